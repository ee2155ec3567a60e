package dashboard

import (
	"fmt"
	"testing"
	"time"

	"github.com/colonyops/casetrack/internal/core/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTask(id string, status task.Status, priority task.Priority, due time.Time) task.Task {
	return task.Task{
		ID:          id,
		Title:       "Task " + id,
		Status:      status,
		Priority:    priority,
		DueDateTime: due,
		Attachments: []task.Attachment{},
	}
}

func TestStatusDistribution(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("omits zero counts and keeps canonical order", func(t *testing.T) {
		tasks := []task.Task{
			newTask("1", task.StatusBlocked, task.PriorityLow, now),
			newTask("2", task.StatusNew, task.PriorityLow, now),
			newTask("3", task.StatusBlocked, task.PriorityLow, now),
		}

		got := StatusDistribution(tasks)
		require.Len(t, got, 2)
		assert.Equal(t, task.StatusNew, got[0].Status)
		assert.Equal(t, 1, got[0].Count)
		assert.Equal(t, task.StatusBlocked, got[1].Status)
		assert.Equal(t, 2, got[1].Count)
		assert.Equal(t, "Blocked", got[1].Label)
	})

	t.Run("empty collection", func(t *testing.T) {
		assert.Empty(t, StatusDistribution(nil))
	})
}

func TestPriorityDistribution(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("always three entries", func(t *testing.T) {
		got := PriorityDistribution(nil)
		require.Len(t, got, 3)
		assert.Equal(t, task.PriorityHigh, got[0].Priority)
		assert.Equal(t, task.PriorityMedium, got[1].Priority)
		assert.Equal(t, task.PriorityLow, got[2].Priority)
		for _, c := range got {
			assert.Zero(t, c.Count)
		}
	})

	t.Run("counts include zeros", func(t *testing.T) {
		tasks := []task.Task{
			newTask("1", task.StatusNew, task.PriorityLow, now),
			newTask("2", task.StatusNew, task.PriorityLow, now),
		}

		got := PriorityDistribution(tasks)
		assert.Equal(t, []int{0, 0, 2}, []int{got[0].Count, got[1].Count, got[2].Count})
	})
}

func TestDistributionsSumToSize(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	statuses := task.Statuses()
	priorities := task.Priorities()

	for size := 0; size < 40; size += 7 {
		t.Run(fmt.Sprintf("size %d", size), func(t *testing.T) {
			tasks := make([]task.Task, 0, size)
			for i := range size {
				tasks = append(tasks, newTask(fmt.Sprint(i), statuses[(i*3)%4], priorities[(i*5)%3], now))
			}

			byPriority := PriorityDistribution(tasks)
			assert.Len(t, byPriority, 3)
			sum := 0
			for _, c := range byPriority {
				sum += c.Count
			}
			assert.Equal(t, size, sum)

			sum = 0
			for _, c := range StatusDistribution(tasks) {
				assert.Positive(t, c.Count)
				sum += c.Count
			}
			assert.Equal(t, size, sum)
		})
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, Summary{}, Summarize(nil, now))
	})

	t.Run("counts", func(t *testing.T) {
		tasks := []task.Task{
			newTask("1", task.StatusNew, task.PriorityHigh, now.Add(-time.Hour)),
			newTask("2", task.StatusInProgress, task.PriorityHigh, now.Add(time.Hour)),
			newTask("3", task.StatusCompleted, task.PriorityHigh, now.Add(-time.Hour)),
			newTask("4", task.StatusBlocked, task.PriorityHigh, now.Add(-48*time.Hour)),
		}

		got := Summarize(tasks, now)
		assert.Equal(t, 4, got.Total)
		assert.Equal(t, 2, got.Pending)
		assert.Equal(t, 1, got.Completed)
		assert.Equal(t, 2, got.Overdue)
		assert.Equal(t, 25, got.CompletionRate)
	})

	t.Run("overdue excludes completed", func(t *testing.T) {
		open := newTask("1", task.StatusNew, task.PriorityHigh, now.Add(-time.Hour))
		assert.Equal(t, 1, Summarize([]task.Task{open}, now).Overdue)

		open.Status = task.StatusCompleted
		assert.Equal(t, 0, Summarize([]task.Task{open}, now).Overdue)
	})

	t.Run("due exactly now is not overdue", func(t *testing.T) {
		assert.Equal(t, 0, Summarize([]task.Task{newTask("1", task.StatusNew, task.PriorityLow, now)}, now).Overdue)
	})
}

func TestCompletionRate(t *testing.T) {
	tests := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{0, 5, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{1, 200, 1},
		{5, 5, 100},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d of %d", tt.completed, tt.total), func(t *testing.T) {
			assert.Equal(t, tt.want, CompletionRate(tt.completed, tt.total))
		})
	}
}

func TestBoard(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tasks := []task.Task{
		newTask("1", task.StatusBlocked, task.PriorityLow, now),
		newTask("2", task.StatusNew, task.PriorityLow, now),
		newTask("3", task.StatusBlocked, task.PriorityLow, now),
	}

	cols := Board(tasks)
	require.Len(t, cols, 4)
	assert.Equal(t, task.StatusNew, cols[0].Status)
	assert.Len(t, cols[0].Tasks, 1)
	assert.Empty(t, cols[1].Tasks)
	assert.NotNil(t, cols[1].Tasks)
	require.Len(t, cols[3].Tasks, 2)
	assert.Equal(t, "1", cols[3].Tasks[0].ID)
	assert.Equal(t, "3", cols[3].Tasks[1].ID)
}

func TestCreateThenCompleteScenario(t *testing.T) {
	now := time.Date(2025, 2, 20, 9, 0, 0, 0, time.UTC)
	due := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	created := newTask("1", task.StatusNew, task.PriorityMedium, due)
	other := newTask("2", task.StatusInProgress, task.PriorityHigh, now.Add(-time.Hour))

	before := Summarize([]task.Task{created, other}, now)

	created.Status = task.StatusCompleted
	after := Summarize([]task.Task{created, other}, now)

	assert.Equal(t, before.Completed+1, after.Completed)
	assert.Equal(t, before.Pending-1, after.Pending)
	assert.Equal(t, before.Overdue, after.Overdue)
}
