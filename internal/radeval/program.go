package radeval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// ProgramEngineArgs holds the arguments for creating a program engine.
type ProgramEngineArgs struct {
	// Command is the bridge program, e.g. "python".
	Command string
	// Args are passed to Command, e.g. ["scripts/radeval_bridge.py"].
	Args []string
	// Timeout bounds one invocation. Zero means no limit.
	Timeout time.Duration
}

// waitDelay bounds how long Score waits for stdout/stderr to close after the
// program was killed.
const waitDelay = 5 * time.Second

// ProgramEngine runs a bridge program per scoring call. The request JSON is
// written to stdin and the program must print {"scores": {...}} on stdout.
type ProgramEngine struct {
	command string
	args    []string
	timeout time.Duration
}

// NewProgramEngine creates a [ProgramEngine].
func NewProgramEngine(args ProgramEngineArgs) (*ProgramEngine, error) {
	if args.Command == "" {
		return nil, fmt.Errorf("radeval: program engine must have a 'command'")
	}
	return &ProgramEngine{
		command: args.Command,
		args:    args.Args,
		timeout: args.Timeout,
	}, nil
}

func (pe *ProgramEngine) Score(ctx context.Context, req *Request) (Scores, error) {
	input, err := json.Marshal(newWireRequest(req))
	if err != nil {
		return nil, fmt.Errorf("radeval: marshaling request: %w", err)
	}

	if pe.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, pe.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, pe.command, pe.args...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.WaitDelay = waitDelay
	// Cancellation kills the whole process group, so a shell wrapper or a
	// forking launcher cannot keep the output pipes open.
	killProcessGroupOnCancel(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Running scoring program", "command", pe.command, "args", pe.args, "pairs", len(req.Refs))

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) && pe.timeout > 0 {
				return nil, fmt.Errorf("radeval: %s timed out after %s: %w", pe.command, pe.timeout, ctxErr)
			}
			return nil, fmt.Errorf("radeval: %s stopped: %w", pe.command, ctxErr)
		}
		errOutput := strings.TrimSpace(stderr.String())
		if errOutput != "" {
			return nil, fmt.Errorf("radeval: %s exited with error: %w; stderr: %s", pe.command, err, errOutput)
		}
		return nil, fmt.Errorf("radeval: %s exited with error: %w", pe.command, err)
	}

	var out wireResponse
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("radeval: parsing output of %s: %w", pe.command, err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("radeval: engine error: %s", out.Error)
	}
	return out.Scores, nil
}
