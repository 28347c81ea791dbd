package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/san-kum/layoutopt/internal/layout"
	"github.com/san-kum/layoutopt/internal/metrics"
)

const pair = `{
  "shapes": [
    {"kind": "Circle", "name": "A", "fields": {"x": {"varying": true}, "y": {"varying": true}, "r": {"value": 10}}},
    {"kind": "Circle", "name": "B", "fields": {"x": {"varying": true}, "y": {"varying": true}, "r": {"value": 5}}}
  ],
  "varyingValues": [0, 0, 60, 40],
  "constraints": [{"name": "contains", "args": ["A", "B"]}]
}`

func runPair(t *testing.T) (*layout.State, *metrics.Trace) {
	t.Helper()
	desc, err := layout.Decode(strings.NewReader(pair), layout.FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	st, err := layout.New(desc, layout.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	tr := metrics.NewTrace(0)
	st.AddObserver(tr)
	st, err = layout.StepUntilConvergence(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	return st, tr
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	store := New(tmpDir)

	if err := store.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	st, tr := runPair(t)
	runID, err := store.Save(Run{Name: "pair", Seed: 42, State: st, Trace: tr, Metrics: map[string]float64{"final_energy": st.Energy}})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(runID, "pair_") {
		t.Errorf("unexpected run id %q", runID)
	}

	meta, err := store.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Seed != 42 {
		t.Errorf("expected seed 42, got %d", meta.Seed)
	}
	if meta.Status != layout.Converged {
		t.Errorf("expected converged, got %s", meta.Status)
	}
	if meta.StateID != st.ID {
		t.Errorf("expected state id %s, got %s", st.ID, meta.StateID)
	}
	if len(meta.Terms) != 1 || meta.Terms[0] != "contains" {
		t.Errorf("unexpected terms %v", meta.Terms)
	}

	snap, err := store.LoadSnapshot(runID)
	if err != nil {
		t.Fatalf("load snapshot failed: %v", err)
	}
	if len(snap.Shapes) != 2 || !snap.Converged {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	loaded, err := store.LoadTrace(runID)
	if err != nil {
		t.Fatalf("load trace failed: %v", err)
	}
	if len(loaded.Points) != len(tr.Points) {
		t.Fatalf("expected %d trace points, got %d", len(tr.Points), len(loaded.Points))
	}
	last := loaded.Points[len(loaded.Points)-1]
	if last.Energy != st.Energy || last.Status != layout.Converged {
		t.Errorf("unexpected last point %+v", last)
	}
}

func TestStoreResume(t *testing.T) {
	store := New(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	st, _ := runPair(t)
	runID, err := store.Save(Run{Name: "pair", State: st})
	if err != nil {
		t.Fatal(err)
	}

	desc, err := store.LoadDescription(runID)
	if err != nil {
		t.Fatalf("load description failed: %v", err)
	}
	resumed, err := layout.New(desc, layout.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	for i := range st.Varying {
		if resumed.Varying[i] != st.Varying[i] {
			t.Errorf("varying[%d] = %f, want %f", i, resumed.Varying[i], st.Varying[i])
		}
	}
	if _, err := store.LoadTrace(runID); err == nil {
		t.Error("expected missing trace for a run saved without one")
	}
}

func TestStoreList(t *testing.T) {
	store := New(t.TempDir())
	runs, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}

	missing := New(t.TempDir() + "/nope")
	if runs, err := missing.List(); err != nil || len(runs) != 0 {
		t.Errorf("expected empty list for missing dir, got %v %v", runs, err)
	}

	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	st, _ := runPair(t)
	if _, err := store.Save(Run{Name: "a", State: st}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save(Run{Name: "b", State: st}); err != nil {
		t.Fatal(err)
	}
	runs, err = store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSON(&buf, map[string]int{"steps": 3}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\"steps\": 3") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

type failingCloser struct {
	closed bool
	err    error
}

func (c *failingCloser) Close() error {
	c.closed = true
	return c.err
}

func TestCloseAfterReportsCloseError(t *testing.T) {
	flush := errors.New("flush failed")
	c := &failingCloser{err: flush}
	if err := closeAfter(c, nil); !errors.Is(err, flush) {
		t.Errorf("expected close error, got %v", err)
	}
	if !c.closed {
		t.Error("closer was not closed")
	}

	write := errors.New("write failed")
	c = &failingCloser{err: flush}
	if err := closeAfter(c, write); !errors.Is(err, write) {
		t.Errorf("expected write error to win, got %v", err)
	}
	if !c.closed {
		t.Error("closer was not closed after a write error")
	}

	if err := closeAfter(&failingCloser{}, nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestWriteJSONReportsWriteError(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("no /dev/full")
	}
	if err := writeJSON("/dev/full", map[string]int{"a": 1}); err == nil {
		t.Error("expected an error writing to a full device")
	}
}
