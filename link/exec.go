package link

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Executor runs fetched link code.
type Executor interface {
	Execute(ctx context.Context, name string, code []byte) error
}

// ErrNoCommand is returned by a CommandExecutor with no command set.
var ErrNoCommand = errors.New("link: no executor command configured")

// CommandExecutor runs code in a child process: the code is written to
// the command's stdin, the working directory is a fresh temporary
// directory removed afterwards, and the environment is exactly Env.
type CommandExecutor struct {
	Command []string // e.g. {"python3", "-"}
	Env     []string // nil means an empty environment
	Stdout  io.Writer
	Stderr  io.Writer
}

// Execute runs the configured command with code on stdin. The child sees
// ATFF_LINK_NAME set to name.
func (e *CommandExecutor) Execute(ctx context.Context, name string, code []byte) error {
	if len(e.Command) == 0 {
		return ErrNoCommand
	}

	dir, err := os.MkdirTemp("", "atff-link-")
	if err != nil {
		return fmt.Errorf("link: workdir: %w", err)
	}
	defer os.RemoveAll(dir)

	cmd := exec.CommandContext(ctx, e.Command[0], e.Command[1:]...)
	cmd.Dir = dir
	cmd.Env = append(append([]string{}, e.Env...), "ATFF_LINK_NAME="+name)
	cmd.Stdin = bytes.NewReader(code)
	cmd.Stdout = e.Stdout

	var stderr bytes.Buffer
	if e.Stderr != nil {
		cmd.Stderr = io.MultiWriter(e.Stderr, &stderr)
	} else {
		cmd.Stderr = &stderr
	}

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", e.Command[0], err, lastLine(msg))
		}
		return fmt.Errorf("%s: %w", e.Command[0], err)
	}
	return nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
