package announce

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Default speech command: espeak at a slightly slow rate.
const DefaultCommand = "espeak"

// DefaultArgs are passed before the text.
var DefaultArgs = []string{"-s", "150"}

// CommandSink runs an external speech command with the text as its last
// argument.
type CommandSink struct {
	command string
	args    []string
}

// NewCommandSink creates a sink for command. The command is not looked up
// until the first announcement.
func NewCommandSink(command string, args ...string) (*CommandSink, error) {
	if strings.TrimSpace(command) == "" {
		return nil, ErrEmptyCommand
	}
	return &CommandSink{command: command, args: append([]string(nil), args...)}, nil
}

// Announce implements Sink.
func (s *CommandSink) Announce(ctx context.Context, text string) error {
	args := append(append([]string(nil), s.args...), text)
	cmd := exec.CommandContext(ctx, s.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", s.command, err, msg)
		}
		return fmt.Errorf("%s: %w", s.command, err)
	}
	return nil
}
