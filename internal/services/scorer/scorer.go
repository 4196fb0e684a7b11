package scorer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Input is the per-user triple a scorer classifies.
type Input struct {
	TotalTickets    int
	Trades          int
	ReputationScore int
}

// ErrRejected marks a classifier that ran but could not score one input.
// It says nothing about the health of the classifier itself.
var ErrRejected = errors.New("scorer rejected input")

// Scorer flags users whose buying and trading pattern looks like scalping.
type Scorer interface {
	IsScalper(ctx context.Context, in Input) (bool, error)
}

// Command runs an external classifier once per call as
// <Path> <Args...> predict <tickets> <trades> <reputation> and reads a
// single 1 or 0 from stdout.
type Command struct {
	Path    string
	Args    []string
	Timeout time.Duration
}

func (c *Command) IsScalper(ctx context.Context, in Input) (bool, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, c.Args...),
		"predict",
		strconv.Itoa(in.TotalTickets),
		strconv.Itoa(in.Trades),
		strconv.Itoa(in.ReputationScore),
	)
	cmd := exec.CommandContext(ctx, c.Path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, fmt.Errorf("scorer: %w", ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, fmt.Errorf("scorer: %w: %s: %s", ErrRejected, err, strings.TrimSpace(stderr.String()))
		}
		return false, fmt.Errorf("scorer: %w", err)
	}

	switch out := strings.TrimSpace(stdout.String()); out {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, fmt.Errorf("scorer: %w: unexpected output %q", ErrRejected, out)
	}
}
