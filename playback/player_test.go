package playback

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podbuddy/core"
)

func wavEntries(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestBlockingPlayRemovesTempFile(t *testing.T) {
	dir := t.TempDir()
	p := NewExecPlayer(dir, "true")

	require.NoError(t, p.Play(buffer(0), true))
	assert.Zero(t, wavEntries(t, dir))
}

func TestBlockingPlayRemovesTempFileOnFailure(t *testing.T) {
	dir := t.TempDir()
	p := NewExecPlayer(dir, "false")

	err := p.Play(buffer(0), true)
	var playErr *core.PlaybackError
	require.ErrorAs(t, err, &playErr)
	assert.Zero(t, wavEntries(t, dir), "failed playback must not leak the wav file")
}

func TestFallbackPlayerDiffersFromDefault(t *testing.T) {
	dir := t.TempDir()
	def := DefaultPlayer(dir)
	fb := FallbackPlayer(dir)
	assert.NotEqual(t, def.command, fb.command,
		"the fallback must be a different mechanism than the default")
}
