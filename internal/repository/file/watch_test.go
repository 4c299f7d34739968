package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/foodtracker/internal/model"
)

func TestWatch_SeesOtherWriter(t *testing.T) {
	dir := t.TempDir()
	watched, err := New(dir, DefaultName, testLogger())
	require.NoError(t, err)
	writer, err := New(dir, DefaultName, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- watched.Watch(ctx, 20*time.Millisecond, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Write until the watcher has registered and reports the change.
	meal := mustMeal(t, "Soup", nil, 2)
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

wait:
	for {
		select {
		case <-changed:
			break wait
		case <-tick.C:
			require.NoError(t, writer.Save(context.Background(), []*model.Meal{meal}))
		case <-deadline:
			t.Fatal("watcher never reported the archive change")
		}
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	a, err := New(dir, DefaultName, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	calls := 0
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not meals"), 0o644)
	}()
	require.NoError(t, a.Watch(ctx, 20*time.Millisecond, func() { calls++ }))
	assert.Equal(t, 0, calls)
}
