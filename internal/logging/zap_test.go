package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_ZapWritesJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := New("zap", "debug", &buf)

	log.With("account", "a1").Info(context.Background(), "mirrored", "entry", 42)

	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)

	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &m))
	require.Equal(t, "info", m["level"])
	require.Equal(t, "mirrored", m["msg"])
	require.Equal(t, "a1", m["account"])
	require.EqualValues(t, 42, m["entry"])
}

func TestNew_ZapRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New("zap", "warn", &buf)

	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "hidden too")
	require.Empty(t, buf.String())

	log.Warn(context.Background(), "shown")
	require.Contains(t, buf.String(), "shown")
}

func TestNew_SlogJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New("json", "info", &buf)

	log.Debug(context.Background(), "hidden")
	log.Error(context.Background(), "boom", "k", "v")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, `"msg":"boom"`)
	require.Contains(t, out, `"k":"v"`)
}

func TestNew_DefaultIsText(t *testing.T) {
	var buf bytes.Buffer
	log := New("", "", &buf)
	log.Info(context.Background(), "hello", "a", 1)
	require.Contains(t, buf.String(), "level=INFO")
	require.Contains(t, buf.String(), "a=1")
}

func TestNop_DoesNotPanic(t *testing.T) {
	l := Nop()
	l.With("x", 1).Error(context.Background(), "dropped")
}
