package commands

import (
	"testing"

	"github.com/colonyops/casetrack/internal/casework"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd(t *testing.T) {
	root := NewRootCmd(&Flags{}, &casework.App{}, "test")

	names := make([]string, 0, len(root.Commands))
	for _, c := range root.Commands {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"task", "dashboard", "notifications", "serve", "doctor", "config"}, names)

	task := root.Command("task")
	require.NotNil(t, task)
	sub := make([]string, 0, len(task.Commands))
	for _, c := range task.Commands {
		sub = append(sub, c.Name)
	}
	assert.Equal(t, []string{"list", "get", "create", "update", "status", "delete", "attach", "detach"}, sub)
}
