package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/layoutopt/internal/layout"
	"github.com/san-kum/layoutopt/internal/metrics"
)

const (
	metadataFile    = "metadata.json"
	traceFile       = "trace.csv"
	shapesFile      = "shapes.json"
	descriptionFile = "description.json"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	StateID    string             `json:"state_id"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Shapes     int                `json:"shapes"`
	Terms      []string           `json:"terms"`
	Varying    int                `json:"varying"`
	Steps      int                `json:"steps"`
	Iterations int                `json:"iterations"`
	Energy     float64            `json:"energy"`
	GradNorm   float64            `json:"grad_norm"`
	Status     layout.Status      `json:"status"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Run is what a finished optimization leaves behind.
type Run struct {
	Name    string
	Seed    int64
	State   *layout.State
	Trace   *metrics.Trace
	Metrics map[string]float64
}

// Save writes the run under a fresh directory and returns its id.
func (s *Store) Save(run Run) (string, error) {
	st := run.State
	now := time.Now()
	short := st.ID
	if len(short) > 8 {
		short = short[:8]
	}
	runID := fmt.Sprintf("%s_%d_%s", run.Name, now.Unix(), short)
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	terms := make([]string, len(st.Terms))
	for i, t := range st.Terms {
		terms[i] = t.Name
	}
	meta := RunMetadata{
		ID:         runID,
		Name:       run.Name,
		StateID:    st.ID,
		Timestamp:  now,
		Seed:       run.Seed,
		Shapes:     len(st.Shapes),
		Terms:      terms,
		Varying:    len(st.Varying),
		Steps:      st.Steps,
		Iterations: st.Iterations,
		Energy:     st.Energy,
		GradNorm:   st.GradNorm,
		Status:     st.Status,
		Metrics:    run.Metrics,
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, shapesFile), st.Snapshot()); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, descriptionFile), st.Describe()); err != nil {
		return "", err
	}
	if run.Trace != nil {
		if err := writeTrace(filepath.Join(runDir, traceFile), run.Trace); err != nil {
			return "", err
		}
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	return closeAfter(f, ExportJSON(f, v))
}

// closeAfter closes c and returns werr, or the close error when werr is nil.
func closeAfter(c io.Closer, werr error) error {
	cerr := c.Close()
	if werr != nil {
		return werr
	}
	return cerr
}

// ExportJSON writes v as indented JSON.
func ExportJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTrace(path string, tr *metrics.Trace) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	return closeAfter(f, encodeTrace(f, tr))
}

func encodeTrace(out io.Writer, tr *metrics.Trace) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"step", "iterations", "energy", "grad_norm", "status"}); err != nil {
		return err
	}
	for _, p := range tr.Points {
		row := []string{
			strconv.Itoa(p.Step),
			strconv.Itoa(p.Iterations),
			strconv.FormatFloat(p.Energy, 'g', -1, 64),
			strconv.FormatFloat(p.GradNorm, 'g', -1, 64),
			p.Status.String(),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	var meta RunMetadata
	if err := s.readJSON(runID, metadataFile, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadSnapshot(runID string) (*layout.Snapshot, error) {
	var snap layout.Snapshot
	if err := s.readJSON(runID, shapesFile, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// LoadDescription returns the description of the final configuration, which
// layout.New accepts to resume the run.
func (s *Store) LoadDescription(runID string) (*layout.Description, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, descriptionFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return layout.Decode(f, layout.FormatJSON)
}

func (s *Store) readJSON(runID, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, name))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *Store) LoadTrace(runID string) (*metrics.Trace, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, traceFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	tr := metrics.NewTrace(0)
	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) < 5 {
			continue
		}
		var p metrics.Point
		var perr error
		if p.Step, perr = strconv.Atoi(record[0]); perr != nil {
			continue
		}
		if p.Iterations, perr = strconv.Atoi(record[1]); perr != nil {
			continue
		}
		if p.Energy, perr = strconv.ParseFloat(record[2], 64); perr != nil {
			continue
		}
		if p.GradNorm, perr = strconv.ParseFloat(record[3], 64); perr != nil {
			continue
		}
		if err := p.Status.UnmarshalText([]byte(record[4])); err != nil {
			continue
		}
		tr.Points = append(tr.Points, p)
	}
	return tr, nil
}
