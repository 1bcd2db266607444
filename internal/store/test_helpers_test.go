package store

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/chipflow/internal/engine"
	"github.com/roach88/chipflow/internal/ir"
	"github.com/roach88/chipflow/internal/testutil"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// exampleNetwork is the three-bot example network with watched pair 2,5.
func exampleNetwork() *ir.Network {
	return testutil.ExampleNetwork()
}

// createTestRecord runs net and builds a Record for it.
func createTestRecord(t *testing.T, id string, net *ir.Network) Record {
	t.Helper()

	rec := &engine.Recorder{}
	res, err := engine.Run(net.Instructions,
		engine.WithWatchPair(net.Watch),
		engine.WithObserver(rec.Record),
		engine.WithLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("engine.Run() failed: %v", err)
	}
	record, err := NewRecord(id, net, res, rec.Firings)
	if err != nil {
		t.Fatalf("NewRecord() failed: %v", err)
	}
	return record
}

// writeTestRun writes the example network under id and returns its seq.
func writeTestRun(t *testing.T, s *Store, id string) int64 {
	t.Helper()
	seq, err := s.WriteRun(context.Background(), createTestRecord(t, id, exampleNetwork()))
	if err != nil {
		t.Fatalf("WriteRun(%s) failed: %v", id, err)
	}
	return seq
}

func discardLogger() *slog.Logger {
	return testutil.DiscardLogger()
}
