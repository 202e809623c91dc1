package playback

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"

	"podbuddy/core"
	"podbuddy/utils/audio"
)

// ExecPlayer plays a buffer by writing it to a WAV file and invoking the
// platform audio player. It is the default local playback capability; a
// device-level binding can replace it behind the Player interface.
type ExecPlayer struct {
	mu      sync.Mutex
	command []string // player command; the wav path is appended
	dir     string
	last    *exec.Cmd
}

// NewExecPlayer builds a player around an explicit command, e.g.
// {"aplay", "-q"}.
func NewExecPlayer(dir string, command ...string) *ExecPlayer {
	if dir == "" {
		dir = os.TempDir()
	}
	return &ExecPlayer{command: command, dir: dir}
}

// DefaultPlayer returns the platform's usual command-line wav player.
func DefaultPlayer(dir string) *ExecPlayer {
	switch runtime.GOOS {
	case "darwin":
		return NewExecPlayer(dir, "afplay")
	case "windows":
		return NewExecPlayer(dir, "powershell", "-c",
			"(New-Object Media.SoundPlayer $args[0]).PlaySync()")
	default:
		return NewExecPlayer(dir, "aplay", "-q")
	}
}

// FallbackPlayer returns a second mechanism tried when the default fails.
// ffplay on every platform, so the retry never re-runs the mechanism that
// just failed.
func FallbackPlayer(dir string) *ExecPlayer {
	return NewExecPlayer(dir, "ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet")
}

func (p *ExecPlayer) Play(buf *core.AudioBuffer, blocking bool) error {
	wav, err := audio.EncodeWAV(buf)
	if err != nil {
		return &core.PlaybackError{Err: err}
	}
	path := filepath.Join(p.dir, fmt.Sprintf("playback-%d.wav", buf.SequenceIndex))
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		return &core.PlaybackError{Err: err}
	}

	args := append(append([]string{}, p.command[1:]...), path)
	cmd := exec.Command(p.command[0], args...)

	if blocking {
		defer os.Remove(path)
		if err := cmd.Run(); err != nil {
			return &core.PlaybackError{Err: err}
		}
		return nil
	}

	if err := cmd.Start(); err != nil {
		return &core.PlaybackError{Err: err}
	}
	p.mu.Lock()
	p.last = cmd
	p.mu.Unlock()
	return nil
}

func (p *ExecPlayer) WaitUntilIdle() error {
	p.mu.Lock()
	cmd := p.last
	p.last = nil
	p.mu.Unlock()
	if cmd == nil {
		return nil
	}
	if err := cmd.Wait(); err != nil {
		return &core.PlaybackError{Err: err}
	}
	return nil
}

// TextPlayer "plays" a buffer by logging its source text. Used when no audio
// device is available, mirroring the degrade-to-text behavior of the speech
// path.
type TextPlayer struct {
	Logger *core.Logger
}

func (p *TextPlayer) Play(buf *core.AudioBuffer, blocking bool) error {
	logger := p.Logger
	if logger == nil {
		logger = core.GetLogger()
	}
	logger.Info("[no audio] "+buf.SourceText, "seq", buf.SequenceIndex)
	return nil
}

func (p *TextPlayer) WaitUntilIdle() error { return nil }
