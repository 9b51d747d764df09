package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func nonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func TestPlainTableWriter_SetHeaders(t *testing.T) {
	tw := NewPlainTableWriter(&bytes.Buffer{})
	tw.SetHeaders([]string{"claim", "Value", "KIND"})

	assert.Equal(t, []string{"CLAIM", "VALUE", "KIND"}, tw.headers)
	assert.Equal(t, []int{5, 5, 4}, tw.columnWidths)
}

func TestPlainTableWriter_AppendRow(t *testing.T) {
	tw := NewPlainTableWriter(&bytes.Buffer{})
	tw.SetHeaders([]string{"CLAIM", "VALUE"})

	tw.AppendRow([]string{"sub", "123"})
	tw.AppendRow([]string{"preferred_username", "jdoe"})
	tw.AppendRow([]string{"only-one"})
	tw.AppendRow([]string{"a", "b", "dropped"})

	assert.Len(t, tw.rows, 4)
	assert.Equal(t, 18, tw.columnWidths[0])
	assert.Equal(t, []string{"only-one", ""}, tw.rows[2])
	assert.Equal(t, []string{"a", "b"}, tw.rows[3])
}

func TestPlainTableWriter_Render(t *testing.T) {
	tests := []struct {
		name      string
		headers   []string
		rows      [][]string
		noHeaders bool
		wantLines []string
	}{
		{
			name:    "aligned columns",
			headers: []string{"CLAIM", "VALUE"},
			rows:    [][]string{{"sub", "123"}, {"email", "jdoe@example.com"}},
			wantLines: []string{
				"CLAIM   VALUE",
				"sub     123",
				"email   jdoe@example.com",
			},
		},
		{
			name:      "without headers",
			headers:   []string{"CLAIM", "VALUE"},
			rows:      [][]string{{"sub", "123"}},
			noHeaders: true,
			wantLines: []string{"sub     123"},
		},
		{
			name:      "headers only",
			headers:   []string{"CLAIM", "VALUE"},
			wantLines: []string{"CLAIM   VALUE"},
		},
		{
			name:      "nothing to print",
			headers:   []string{"CLAIM", "VALUE"},
			noHeaders: true,
		},
		{
			name: "no headers set",
			rows: [][]string{{"x"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tw := NewPlainTableWriter(&buf)
			if tt.headers != nil {
				tw.SetHeaders(tt.headers)
			}
			tw.SetNoHeaders(tt.noHeaders)
			for _, row := range tt.rows {
				tw.AppendRow(row)
			}

			tw.Render()

			assert.Equal(t, tt.wantLines, nonEmptyLines(buf.String()))
		})
	}
}
