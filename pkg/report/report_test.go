package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleNoColor(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, true)

	c.Info("Downloading module: %s(%s)...", "Mapping", "2.1")
	c.Success("Module %s installed successfully.", "Mapping")
	c.Note("Omeka S is already installed. Skip...")
	c.Warning("Module %s could not be found. Skip...", "Bogus")
	c.Error("Download failed: %s", "timeout")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"Downloading module: Mapping(2.1)...",
		"SUCCESS: Module Mapping installed successfully.",
		"NOTE: Omeka S is already installed. Skip...",
		"WARNING: Module Bogus could not be found. Skip...",
		"ERROR: Download failed: timeout",
	}, lines)
}

func TestConsoleColorWritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)
	c.Warning("careful")
	assert.Contains(t, buf.String(), "careful")
}

func TestRecorder(t *testing.T) {
	var r Recorder
	var _ Reporter = &r

	r.Info("a")
	r.Warning("w1")
	r.Note("n")
	r.Warning("w%d", 2)

	assert.Len(t, r.Messages, 4)
	assert.Equal(t, []string{"w1", "w2"}, r.Texts(LevelWarning))
	assert.Equal(t, []string{"n"}, r.Texts(LevelNote))
	assert.Nil(t, r.Texts(LevelError))
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "info", LevelInfo.String())
	assert.Equal(t, "note", LevelNote.String())
	assert.Equal(t, "error", LevelError.String())
}

func TestWriteSummary(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var buf bytes.Buffer
		WriteSummary(&buf, []StageRow{
			{Stage: "modules", OK: 2},
			{Stage: "vocabularies", OK: 1, Notes: 1},
		}, false, true)

		out := buf.String()
		assert.Contains(t, out, "Stage")
		assert.Contains(t, out, "vocabularies")
		assert.True(t, strings.HasSuffix(out, MessageSuccess+"\n"))
	})

	t.Run("with_errors", func(t *testing.T) {
		var buf bytes.Buffer
		WriteSummary(&buf, nil, true, true)
		assert.Equal(t, MessageWithErrors+"\n", buf.String())
	})

	t.Run("failed_rows", func(t *testing.T) {
		require.False(t, StageRow{OK: 3, Notes: 2}.Failed())
		require.True(t, StageRow{Warnings: 1}.Failed())
		require.True(t, StageRow{Errors: 1}.Failed())
	})
}

func TestOutcomeColor(t *testing.T) {
	assert.Contains(t, Outcome(false, false), MessageSuccess)
	assert.Equal(t, MessageWithErrors, Outcome(true, true))
}
