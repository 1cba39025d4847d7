package backendtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuestions(t *testing.T) {
	qs, err := ParseQuestions([]byte(`[
		{"id": "q1", "text": "2+2?", "options": [{"id": "a", "text": "4"}, {"id": "b", "text": "5"}], "correct": "a"}
	]`))
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "a", qs[0].Correct)

	testCases := []struct {
		name string
		data string
	}{
		{name: "empty", data: `[]`},
		{name: "broken json", data: `[{`},
		{name: "one option", data: `[{"id": "q1", "text": "t", "options": [{"id": "a"}], "correct": "a"}]`},
		{name: "unknown correct", data: `[{"id": "q1", "text": "t", "options": [{"id": "a"}, {"id": "b"}], "correct": "c"}]`},
		{
			name: "duplicate id",
			data: `[{"id": "q1", "text": "t", "options": [{"id": "a"}, {"id": "b"}], "correct": "a"},
				{"id": "q1", "text": "t", "options": [{"id": "a"}, {"id": "b"}], "correct": "a"}]`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseQuestions([]byte(tc.data))
			assert.Error(t, err)
		})
	}
}

func TestDefaultQuestions(t *testing.T) {
	qs := DefaultQuestions()
	require.Len(t, qs, defaultMaxQuestions)
	assert.Equal(t, "q1", qs[0].ID)
	assert.Equal(t, "a", qs[0].Correct)
}

func TestNewCapsMaxQuestions(t *testing.T) {
	b := New(WithQuestions(DefaultQuestions()[:2]), WithMaxQuestions(10))
	assert.Equal(t, 2, b.maxQuestions)
}
