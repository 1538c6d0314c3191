package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTextLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Warn, &buf, FormatText)

	l.Info("should be suppressed")
	require.Empty(t, buf.String())

	l.Error("should appear")
	require.Contains(t, buf.String(), "should appear")
	require.Contains(t, buf.String(), "[ERROR]")
}

func TestJSONLoggerIncludesFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Debug, &buf, FormatJSON)
	l.WithComponent("engine").Info("started", map[string]any{"port": 8080})

	line := strings.TrimSpace(buf.String())
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &decoded))
	require.Equal(t, "started", decoded["message"])
	fields := decoded["fields"].(map[string]any)
	require.Equal(t, "engine", fields["component"])
	require.Equal(t, float64(8080), fields["port"])
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := New(Debug, &buf, FormatJSON)
	child := parent.WithField("request_id", "r1")

	parent.Info("parent message")
	child.Info("child message")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.NotContains(t, lines[0], "request_id")
	require.Contains(t, lines[1], "request_id")
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	require.NoError(t, err)
	require.Equal(t, Warn, level)

	_, err = ParseLevel("bogus")
	require.Error(t, err)
}
