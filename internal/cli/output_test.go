package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutputFormat(t *testing.T) {
	for _, valid := range []string{"table", "plain", "json"} {
		f, err := ParseOutputFormat(valid)
		require.NoError(t, err)
		assert.Equal(t, OutputFormat(valid), f)
	}

	_, err := ParseOutputFormat("yaml")
	assert.Error(t, err)
}

func TestNewTable(t *testing.T) {
	t.Run("table format draws a rounded box", func(t *testing.T) {
		var buf bytes.Buffer
		tbl := NewTable(FormatTable, &buf)
		tbl.SetHeaders([]string{"claim", "value"})
		tbl.AppendRow([]string{"sub", "123"})
		tbl.Render()

		out := buf.String()
		assert.Contains(t, out, "╭")
		assert.Contains(t, out, "CLAIM")
		assert.Contains(t, out, "123")
	})

	t.Run("plain format", func(t *testing.T) {
		var buf bytes.Buffer
		tbl := NewTable(FormatPlain, &buf)
		tbl.SetHeaders([]string{"claim", "value"})
		tbl.AppendRow([]string{"sub", "123"})
		tbl.Render()

		assert.Equal(t, []string{"CLAIM   VALUE", "sub     123"}, nonEmptyLines(buf.String()))
	})
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintJSON(&buf, map[string]string{"status": "running"}))

	var got map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "running", got["status"])
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestFormatMessages(t *testing.T) {
	assert.Contains(t, FormatSuccess("done"), "✓ done")
	assert.Contains(t, FormatWarning("careful"), "⚠ careful")
	assert.Contains(t, FormatError(errors.New("boom")), "Error: boom")
}
