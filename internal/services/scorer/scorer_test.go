package scorer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func script(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "score.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestCommand_PassesStatsAndParsesVerdict(t *testing.T) {
	// flags anyone holding more than five tickets
	path := script(t, `[ "$1" = predict ] || exit 2; if [ "$2" -gt 5 ]; then echo 1; else echo 0; fi`)
	c := &Command{Path: "/bin/sh", Args: []string{path}, Timeout: 5 * time.Second}

	flagged, err := c.IsScalper(context.Background(), Input{TotalTickets: 12, Trades: 4, ReputationScore: -3})
	require.NoError(t, err)
	assert.True(t, flagged)

	flagged, err = c.IsScalper(context.Background(), Input{TotalTickets: 2})
	require.NoError(t, err)
	assert.False(t, flagged)
}

func TestCommand_Failures(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		rejected bool
	}{
		{"non-zero exit", "echo boom >&2; exit 1", true},
		{"garbage output", "echo maybe", true},
		{"timeout", "sleep 5; echo 1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Command{Path: "/bin/sh", Args: []string{script(t, tt.body)}, Timeout: 200 * time.Millisecond}
			_, err := c.IsScalper(context.Background(), Input{})
			require.Error(t, err)
			assert.Equal(t, tt.rejected, errors.Is(err, ErrRejected))
		})
	}
}

func TestCommand_MissingBinaryIsNotRejection(t *testing.T) {
	c := &Command{Path: filepath.Join(t.TempDir(), "missing"), Timeout: time.Second}
	_, err := c.IsScalper(context.Background(), Input{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
}
