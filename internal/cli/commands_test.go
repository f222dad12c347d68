package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/BartekS5/stravaetl/internal/checkpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSince(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"1717236000", time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-06-01T10:00:00Z", time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-06-01T12:00:00+02:00", time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseSince(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), tt.in)
		assert.Equal(t, time.UTC, got.Location())
	}

	_, err := ParseSince("last tuesday")
	assert.Error(t, err)
}

func TestRootCommands(t *testing.T) {
	root := NewRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"extract", "transform-load", "backfill", "checkpoint"}, names)
}

func TestBackfillRequiresSince(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"backfill"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "since")
}

func TestPrintCheckpoints(t *testing.T) {
	store := checkpoint.NewFileStore(t.TempDir())
	store.Now = func() time.Time { return time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "TROY", 1717326000))

	var out bytes.Buffer
	require.NoError(t, printCheckpoints(ctx, &out, store, []string{"TROY", "SAM"}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"ACCOUNT", "UNIX", "UTC"}, strings.Fields(lines[0]))
	assert.Contains(t, lines[1], "1717326000")
	assert.Contains(t, lines[1], "June 02 2024, 11:00:00 AM UTC")
	assert.Contains(t, lines[2], "1717200000")

	// Showing the default must not create a file for SAM.
	_, err := store.Get(ctx, "SAM")
	require.NoError(t, err)
	assert.NoFileExists(t, store.Path("SAM"))
}
