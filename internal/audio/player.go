package audio

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// ErrNoPlayer is returned when no audio player command is installed.
var ErrNoPlayer = errors.New("no audio player found, install paplay, aplay, ffplay or sox")

// Player plays a WAV file and returns once playback has finished.
type Player interface {
	Play(ctx context.Context, wavPath string) error
}

type command struct {
	name string
	args []string
}

// CommandPlayer shells out to the first available platform player.
type CommandPlayer struct {
	goos     string
	lookPath func(string) (string, error)
}

// NewCommandPlayer returns a player for the running platform.
func NewCommandPlayer() *CommandPlayer {
	return &CommandPlayer{goos: runtime.GOOS, lookPath: exec.LookPath}
}

func candidates(goos, path string) []command {
	switch goos {
	case "darwin":
		return []command{{"afplay", []string{path}}}
	case "windows":
		script := fmt.Sprintf("(New-Object Media.SoundPlayer '%s').PlaySync()", path)
		return []command{{"powershell", []string{"-NoProfile", "-Command", script}}}
	default:
		return []command{
			{"paplay", []string{path}},
			{"aplay", []string{"-q", path}},
			{"ffplay", []string{"-nodisp", "-autoexit", "-loglevel", "quiet", path}},
			{"play", []string{"-q", path}},
		}
	}
}

// resolve picks the command that would be run for path.
func (p *CommandPlayer) resolve(path string) (command, error) {
	for _, c := range candidates(p.goos, path) {
		if _, err := p.lookPath(c.name); err == nil {
			return c, nil
		}
	}
	return command{}, ErrNoPlayer
}

// Name reports the player command that will be used, or "" when none.
func (p *CommandPlayer) Name() string {
	c, err := p.resolve("")
	if err != nil {
		return ""
	}
	return c.name
}

// Play runs the player command and waits for it to exit.
func (p *CommandPlayer) Play(ctx context.Context, wavPath string) error {
	c, err := p.resolve(wavPath)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, c.name, c.args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %w (%s)", c.name, err, string(out))
	}
	return nil
}

// PlayAudio decodes base64 PCM and plays it to completion.
func PlayAudio(ctx context.Context, player Player, pcmBase64 string, sampleRate int) error {
	data, err := base64.StdEncoding.DecodeString(pcmBase64)
	if err != nil {
		return fmt.Errorf("failed to decode audio: %w", err)
	}
	return PlayPCM(ctx, player, data, sampleRate)
}

// PlayPCM plays raw 16-bit little-endian mono PCM to completion.
func PlayPCM(ctx context.Context, player Player, pcm []byte, sampleRate int) error {
	buf, err := DecodePCMBytes(pcm, sampleRate)
	if err != nil {
		return err
	}
	if len(buf.Samples) == 0 {
		return errors.New("no audio samples to play")
	}

	tmp, err := os.CreateTemp("", "poplingo-*.wav")
	if err != nil {
		return fmt.Errorf("failed to create temp audio file: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := tmp.Write(buf.WAV()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write temp audio file: %w", err)
	}

	return player.Play(ctx, path)
}
