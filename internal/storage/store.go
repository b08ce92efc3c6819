package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/mdokit/internal/solver"
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

// GroupStats summarizes one coupling-group solve inside a run.
type GroupStats struct {
	Group      string  `json:"group"`
	Iterations int     `json:"iterations"`
	Residual   float64 `json:"residual"`
	Converged  bool    `json:"converged"`
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Problem   string             `json:"problem"`
	Timestamp time.Time          `json:"timestamp"`
	Design    map[string]float64 `json:"design"`
	Responses map[string]float64 `json:"responses"`
	Groups    []GroupStats       `json:"groups,omitempty"`
}

// Save writes one evaluation: metadata.json plus a history.csv holding the
// residual trace of every coupling-group solve.
func (s *Store) Save(problem string, design, responses map[string]float64, records []*solver.Record) (string, error) {
	runID := fmt.Sprintf("%s_%s", problem, uuid.NewString()[:8])
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Problem:   problem,
		Timestamp: time.Now(),
		Design:    design,
		Responses: responses,
	}
	for _, rec := range records {
		meta.Groups = append(meta.Groups, GroupStats{
			Group:      rec.Group,
			Iterations: rec.Iterations,
			Residual:   rec.Residual,
			Converged:  rec.Converged,
		})
	}

	metaPath := filepath.Join(runDir, "metadata.json")
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvPath := filepath.Join(runDir, "history.csv")
	csvFile, err := os.Create(csvPath)
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if err := w.Write([]string{"group", "iteration", "residual"}); err != nil {
		return "", err
	}
	for _, rec := range records {
		for i, res := range rec.History {
			row := []string{
				rec.Group,
				strconv.Itoa(i + 1),
				strconv.FormatFloat(res, 'e', -1, 64),
			}
			if err := w.Write(row); err != nil {
				return "", err
			}
		}
	}

	return runID, nil
}

// List returns run metadata sorted newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var runs []RunMetadata
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := s.Load(e.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// History reads back the residual traces, keyed by group name.
func (s *Store) History(runID string) (map[string][]float64, error) {
	csvPath := filepath.Join(s.baseDir, runID, "history.csv")
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}

	out := make(map[string][]float64)
	for i, row := range rows {
		if i == 0 || len(row) != 3 {
			continue
		}
		res, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("storage: bad residual in %s row %d: %w", runID, i, err)
		}
		out[row[0]] = append(out[row[0]], res)
	}
	return out, nil
}

// ExportJSON writes a run's metadata to path.
func (s *Store) ExportJSON(runID, path string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
