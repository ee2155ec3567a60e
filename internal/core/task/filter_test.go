package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryMatches(t *testing.T) {
	withCase := Task{Title: "Draft order", Status: StatusNew, Priority: PriorityLow, CaseID: strPtr("case-9001")}
	noCase := Task{Title: "Call applicant", Status: StatusNew, Priority: PriorityLow}
	described := Task{Title: "Prepare", Description: strPtr("Bundle for CASE-900 hearing"), Status: StatusBlocked, Priority: PriorityHigh}

	tests := []struct {
		name  string
		query Query
		task  Task
		want  bool
	}{
		{"empty query matches", Query{}, noCase, true},
		{"case id substring ignores case", Query{Text: "CASE-9"}, withCase, true},
		{"no case id and no title match", Query{Text: "CASE-9"}, noCase, false},
		{"description match", Query{Text: "case-9"}, described, true},
		{"title match", Query{Text: "call"}, noCase, true},
		{"status mismatch", Query{Status: statusPtr(StatusCompleted)}, withCase, false},
		{"status match", Query{Status: statusPtr(StatusNew)}, withCase, true},
		{"priority mismatch", Query{Priority: priorityPtr(PriorityHigh)}, withCase, false},
		{"all predicates", Query{Status: statusPtr(StatusBlocked), Priority: priorityPtr(PriorityHigh), Text: "hearing"}, described, true},
		{"text fails with matching enums", Query{Status: statusPtr(StatusBlocked), Text: "nothing"}, described, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.query.Matches(tt.task))
		})
	}
}

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery("ALL", "all", "x")
	require.NoError(t, err)
	assert.Nil(t, q.Status)
	assert.Nil(t, q.Priority)
	assert.True(t, q.IsActive())

	q, err = ParseQuery("in progress", "HIGH", "")
	require.NoError(t, err)
	require.NotNil(t, q.Status)
	assert.Equal(t, StatusInProgress, *q.Status)
	assert.Equal(t, PriorityHigh, *q.Priority)

	_, err = ParseQuery("DONE", "", "")
	assert.Error(t, err)

	q, err = ParseQuery("", "", "")
	require.NoError(t, err)
	assert.False(t, q.IsActive())
}

func TestFilter(t *testing.T) {
	tasks := []Task{
		{ID: "1", Title: "one", Status: StatusNew},
		{ID: "2", Title: "two", Status: StatusCompleted},
		{ID: "3", Title: "three", Status: StatusNew},
	}

	got := Filter(tasks, Query{Status: statusPtr(StatusNew)})
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "3", got[1].ID)

	assert.Empty(t, Filter(nil, Query{}))
}

func statusPtr(s Status) *Status       { return &s }
func priorityPtr(p Priority) *Priority { return &p }
