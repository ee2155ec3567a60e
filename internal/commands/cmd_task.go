package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/colonyops/casetrack/internal/casework"
	"github.com/colonyops/casetrack/internal/core/task"
	"github.com/colonyops/casetrack/pkg/iojson"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// dueLayouts are the accepted --due formats, tried in order. Layouts without a
// zone are read in the configured timezone.
var dueLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// TaskCmd implements the casetrack task command group.
type TaskCmd struct {
	flags *Flags
	app   *casework.App

	// list flags
	listStatus   string
	listPriority string
	listQuery    string
	listJSON     bool

	// create and update flags
	title       string
	description string
	caseID      string
	due         string
	status      string
	priority    string
	input       iojson.FileReader[task.CreateInput]
}

// NewTaskCmd creates a new task command.
func NewTaskCmd(flags *Flags, app *casework.App) *TaskCmd {
	return &TaskCmd{flags: flags, app: app}
}

func (cmd *TaskCmd) tasks() *casework.TaskService {
	return cmd.app.Tasks
}

// workspace opens a workspace for the duration of one command. Reads and
// writes go through it so that failures are published as notifications the
// same way they are for long-running views.
func (cmd *TaskCmd) workspace(ctx context.Context) (*casework.Workspace, error) {
	ws := cmd.app.NewWorkspace()
	if err := ws.Open(ctx); err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}
	return ws, nil
}

// Register adds the task command to the application.
func (cmd *TaskCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "task",
		Usage: "Manage case tasks",
		Description: `Task commands create, list and update the tasks tracked for each case.

Examples:
  casetrack task list --status in_progress
  casetrack task create --title "Call client" --due 2025-03-07 --case CASE-9
  casetrack task status <id> completed
  casetrack task attach <id> ./intake.pdf`,
		Commands: []*cli.Command{
			cmd.listCmd(),
			cmd.getCmd(),
			cmd.createCmd(),
			cmd.updateCmd(),
			cmd.statusCmd(),
			cmd.deleteCmd(),
			cmd.attachCmd(),
			cmd.detachCmd(),
		},
	})

	return app
}

func (cmd *TaskCmd) listCmd() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Aliases:   []string{"ls"},
		Usage:     "List tasks ordered by due date",
		UsageText: "casetrack task list [--status <status>] [--priority <priority>] [--query <text>] [--json]",
		Description: `Displays tasks sorted by due date, earliest first.

Filters combine: a task is listed only when it matches the status, the
priority and the query. The query matches title, description and case ID
without regard to case.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "status",
				Aliases:     []string{"s"},
				Usage:       "filter by status (new, in_progress, completed, blocked, all)",
				Destination: &cmd.listStatus,
			},
			&cli.StringFlag{
				Name:        "priority",
				Aliases:     []string{"p"},
				Usage:       "filter by priority (high, medium, low, all)",
				Destination: &cmd.listPriority,
			},
			&cli.StringFlag{
				Name:        "query",
				Aliases:     []string{"q"},
				Usage:       "search title, description and case ID",
				Destination: &cmd.listQuery,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.listJSON,
			},
		},
		Action: cmd.runList,
	}
}

func (cmd *TaskCmd) getCmd() *cli.Command {
	return &cli.Command{
		Name:          "get",
		Usage:         "Show a task as JSON",
		UsageText:     "casetrack task get <id>",
		ShellComplete: TaskIDCompleter(cmd.app),
		Action:        cmd.runGet,
	}
}

func (cmd *TaskCmd) createCmd() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a task",
		UsageText: "casetrack task create --title <title> --due <time> [options]\n   casetrack task create -f task.json",
		Description: `Creates a task. Status defaults to NEW and priority to MEDIUM.

The due time accepts RFC 3339 ("2025-03-07T17:00:00+01:00"), "2025-03-07 17:00"
or a bare date. Times without an offset use the configured timezone.

With -f (or piped stdin and no --title) the task is read as JSON.`,
		Flags:  append(cmd.taskFlags(), cmd.input.Flag()),
		Action: cmd.runCreate,
	}
}

func (cmd *TaskCmd) updateCmd() *cli.Command {
	return &cli.Command{
		Name:          "update",
		Usage:         "Update fields of a task",
		UsageText:     "casetrack task update [--title <title>] [--due <time>] [options] <id>",
		Description:   "Only the flags that are given change; every update refreshes the task's updated time.",
		Flags:         cmd.taskFlags(),
		ShellComplete: TaskIDCompleter(cmd.app),
		Action:        cmd.runUpdate,
	}
}

func (cmd *TaskCmd) statusCmd() *cli.Command {
	return &cli.Command{
		Name:          "status",
		Usage:         "Change the status of a task",
		UsageText:     "casetrack task status <id> <status>",
		ShellComplete: TaskIDCompleter(cmd.app),
		Action:        cmd.runStatus,
	}
}

func (cmd *TaskCmd) deleteCmd() *cli.Command {
	return &cli.Command{
		Name:          "delete",
		Aliases:       []string{"rm"},
		Usage:         "Delete a task",
		UsageText:     "casetrack task delete <id>",
		ShellComplete: TaskIDCompleter(cmd.app),
		Action:        cmd.runDelete,
	}
}

func (cmd *TaskCmd) attachCmd() *cli.Command {
	return &cli.Command{
		Name:          "attach",
		Usage:         "Upload a file and attach it to a task",
		UsageText:     "casetrack task attach <id> <file>",
		ShellComplete: TaskIDCompleter(cmd.app),
		Action:        cmd.runAttach,
	}
}

func (cmd *TaskCmd) detachCmd() *cli.Command {
	return &cli.Command{
		Name:          "detach",
		Usage:         "Remove an attachment from a task by position",
		UsageText:     "casetrack task detach <id> <index>",
		Description:   "Index is zero-based, in the order shown by 'casetrack task get'.",
		ShellComplete: TaskIDCompleter(cmd.app),
		Action:        cmd.runDetach,
	}
}

func (cmd *TaskCmd) taskFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "title",
			Aliases:     []string{"t"},
			Usage:       "task title (3-100 characters)",
			Destination: &cmd.title,
		},
		&cli.StringFlag{
			Name:        "due",
			Usage:       "due date and time",
			Destination: &cmd.due,
		},
		&cli.StringFlag{
			Name:        "description",
			Aliases:     []string{"d"},
			Usage:       "task description, empty to clear",
			Destination: &cmd.description,
		},
		&cli.StringFlag{
			Name:        "case",
			Usage:       "case ID the task belongs to, empty to clear",
			Destination: &cmd.caseID,
		},
		&cli.StringFlag{
			Name:        "status",
			Aliases:     []string{"s"},
			Usage:       "status (new, in_progress, completed, blocked)",
			Destination: &cmd.status,
		},
		&cli.StringFlag{
			Name:        "priority",
			Aliases:     []string{"p"},
			Usage:       "priority (high, medium, low)",
			Destination: &cmd.priority,
		},
	}
}

func (cmd *TaskCmd) runList(ctx context.Context, c *cli.Command) error {
	q, err := task.ParseQuery(cmd.listStatus, cmd.listPriority, cmd.listQuery)
	if err != nil {
		return err
	}

	ws, err := cmd.workspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := ws.LoadErr(); err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	tasks := ws.Filtered(q)

	out := c.Root().Writer

	if cmd.listJSON {
		for _, t := range tasks {
			if err := iojson.WriteLine(out, t); err != nil {
				return fmt.Errorf("encode task: %w", err)
			}
		}
		return nil
	}

	if len(tasks) == 0 {
		_, _ = fmt.Fprintln(c.Root().ErrWriter, "No tasks found")
		return nil
	}

	now := time.Now()
	loc := cmd.location()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPRIORITY\tDUE\tCASE")
	for _, t := range tasks {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s (%s)\t%s\n",
			t.ID,
			t.Title,
			t.Status.Label(),
			t.Priority.Label(),
			t.DueDateTime.In(loc).Format("Jan 2 15:04"),
			humanize.RelTime(t.DueDateTime, now, "ago", "from now"),
			deref(t.CaseID),
		)
	}

	return w.Flush()
}

func (cmd *TaskCmd) runGet(ctx context.Context, c *cli.Command) error {
	id, err := requireArg(c, 0, "casetrack task get <id>")
	if err != nil {
		return err
	}

	t, err := cmd.tasks().Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get task %s: %w", id, err)
	}

	return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, t)
}

func (cmd *TaskCmd) runCreate(ctx context.Context, c *cli.Command) error {
	var in task.CreateInput

	if c.IsSet("file") || !c.IsSet("title") {
		read, err := cmd.input.Read(c.Root().Reader)
		if err != nil {
			return fmt.Errorf("read task: %w", err)
		}
		in = read
	} else {
		patch, err := cmd.patchFromFlags(c)
		if err != nil {
			return err
		}
		in = createInputFromPatch(patch)
	}

	ws, err := cmd.workspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	t, err := ws.Create(ctx, in)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	return iojson.WriteLine(c.Root().Writer, t)
}

func (cmd *TaskCmd) runUpdate(ctx context.Context, c *cli.Command) error {
	id, err := requireArg(c, 0, "casetrack task update [options] <id>")
	if err != nil {
		return err
	}

	patch, err := cmd.patchFromFlags(c)
	if err != nil {
		return err
	}
	if patch.IsEmpty() {
		return fmt.Errorf("nothing to update: pass at least one of --title, --due, --description, --case, --status, --priority")
	}

	ws, err := cmd.workspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	t, err := ws.Update(ctx, id, patch)
	if err != nil {
		return fmt.Errorf("update task %s: %w", id, err)
	}

	return iojson.WriteLine(c.Root().Writer, t)
}

func (cmd *TaskCmd) runStatus(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: casetrack task status <id> <status>")
	}

	id := c.Args().Get(0)
	status, err := task.ParseStatus(c.Args().Get(1))
	if err != nil {
		return err
	}

	ws, err := cmd.workspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	t, err := ws.SetStatus(ctx, id, status)
	if err != nil {
		return fmt.Errorf("set status of %s: %w", id, err)
	}

	_, _ = fmt.Fprintf(c.Root().Writer, "%s %s\n", t.ID, t.Status)
	return nil
}

func (cmd *TaskCmd) runDelete(ctx context.Context, c *cli.Command) error {
	id, err := requireArg(c, 0, "casetrack task delete <id>")
	if err != nil {
		return err
	}

	ws, err := cmd.workspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := ws.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}

	_, _ = fmt.Fprintln(c.Root().Writer, "deleted")
	return nil
}

func (cmd *TaskCmd) runAttach(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: casetrack task attach <id> <file>")
	}

	id, path := c.Args().Get(0), c.Args().Get(1)

	t, err := cmd.app.Attachments.AttachFile(ctx, id, path)
	if err != nil {
		return fmt.Errorf("attach %s: %w", path, err)
	}

	a := t.Attachments[len(t.Attachments)-1]
	_, _ = fmt.Fprintf(c.Root().Writer, "%s (%s, %s)\n", a.URL, a.Type, humanize.Bytes(uint64(a.Size))) //nolint:gosec // sizes are never negative
	return nil
}

func (cmd *TaskCmd) runDetach(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: casetrack task detach <id> <index>")
	}

	id := c.Args().Get(0)
	index, err := strconv.Atoi(c.Args().Get(1))
	if err != nil {
		return fmt.Errorf("invalid index %q: must be a number", c.Args().Get(1))
	}

	t, err := cmd.app.Attachments.Detach(ctx, id, index)
	if err != nil {
		return fmt.Errorf("detach attachment %d: %w", index, err)
	}

	_, _ = fmt.Fprintf(c.Root().Writer, "removed, %d attachment(s) left\n", len(t.Attachments))
	return nil
}

// patchFromFlags collects the task flags that were explicitly set. An empty
// --description or --case clears the field.
func (cmd *TaskCmd) patchFromFlags(c *cli.Command) (task.Patch, error) {
	var patch task.Patch

	if c.IsSet("title") {
		patch.Title = &cmd.title
	}
	if c.IsSet("description") {
		if cmd.description == "" {
			patch.ClearDescription = true
		} else {
			patch.Description = &cmd.description
		}
	}
	if c.IsSet("case") {
		if cmd.caseID == "" {
			patch.ClearCaseID = true
		} else {
			patch.CaseID = &cmd.caseID
		}
	}
	if c.IsSet("due") {
		due, err := parseDue(cmd.due, cmd.location())
		if err != nil {
			return task.Patch{}, err
		}
		patch.DueDateTime = &due
	}
	if c.IsSet("status") {
		s, err := task.ParseStatus(cmd.status)
		if err != nil {
			return task.Patch{}, err
		}
		patch.Status = &s
	}
	if c.IsSet("priority") {
		p, err := task.ParsePriority(cmd.priority)
		if err != nil {
			return task.Patch{}, err
		}
		patch.Priority = &p
	}

	return patch, nil
}

func (cmd *TaskCmd) location() *time.Location {
	if cmd.flags.Config == nil {
		return time.Local
	}
	return cmd.flags.Config.Location()
}

func createInputFromPatch(p task.Patch) task.CreateInput {
	in := task.CreateInput{
		Description: p.Description,
		CaseID:      p.CaseID,
	}
	if p.Title != nil {
		in.Title = *p.Title
	}
	if p.DueDateTime != nil {
		in.DueDateTime = *p.DueDateTime
	}
	if p.Status != nil {
		in.Status = *p.Status
	}
	if p.Priority != nil {
		in.Priority = *p.Priority
	}
	return in
}

// parseDue reads a due time in one of dueLayouts. A bare date means the end
// of that working day.
func parseDue(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dueLayouts {
		t, err := time.ParseInLocation(layout, raw, loc)
		if err != nil {
			continue
		}
		if layout == "2006-01-02" {
			t = t.Add(17 * time.Hour)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid due time %q: use RFC 3339, \"2006-01-02 15:04\" or \"2006-01-02\"", raw)
}

func requireArg(c *cli.Command, i int, usage string) (string, error) {
	v := c.Args().Get(i)
	if v == "" {
		return "", fmt.Errorf("usage: %s", usage)
	}
	return v, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
