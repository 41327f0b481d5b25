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

	"github.com/san-kum/sdesim/internal/config"
	"github.com/san-kum/sdesim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

const (
	metadataFile = "metadata.json"
	pathsFile    = "paths.csv"
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
	ID        string             `json:"id"`
	Model     string             `json:"model"`
	Scheme    string             `json:"scheme"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      uint64             `json:"seed"`
	X0        float64            `json:"x0"`
	T0        float64            `json:"t0"`
	Horizon   float64            `json:"horizon"`
	Steps     int                `json:"steps"`
	Paths     int                `json:"paths"`
	Params    map[string]float64 `json:"params"`
	Metrics   map[string]float64 `json:"metrics"`
}

func (s *Store) Save(cfg *config.Config, result *dynamo.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%s_%d", cfg.Model, cfg.Scheme, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Model:     cfg.Model,
		Scheme:    cfg.Scheme,
		Timestamp: now,
		Seed:      cfg.Seed,
		X0:        cfg.X0,
		T0:        cfg.T0,
		Horizon:   cfg.Horizon,
		Steps:     result.StepsTaken,
		Paths:     cfg.Paths,
		Params:    cfg.Params,
		Metrics:   result.Metrics,
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, pathsFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, result.Times, result.Paths); err != nil {
		return "", err
	}

	return runID, nil
}

// WriteCSV writes one row per time point: the time followed by every
// path's value.
func WriteCSV(out io.Writer, times []float64, paths mat.Matrix) error {
	w := csv.NewWriter(out)

	if paths == nil {
		w.Flush()
		return w.Error()
	}
	rows, cols := paths.Dims()

	header := []string{"time"}
	for p := 0; p < rows; p++ {
		header = append(header, fmt.Sprintf("p%d", p))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for k := 0; k < cols && k < len(times); k++ {
		row := make([]string, 0, rows+1)
		row = append(row, strconv.FormatFloat(times[k], 'g', -1, 64))
		for p := 0; p < rows; p++ {
			row = append(row, strconv.FormatFloat(paths.At(p, k), 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

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

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadPaths reads back the time grid and a paths x times matrix.
func (s *Store) LoadPaths(runID string) (*mat.Dense, []float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, pathsFile))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if len(records) < 2 || len(records[0]) < 2 {
		return nil, []float64{}, nil
	}

	numPaths := len(records[0]) - 1
	body := records[1:]
	times := make([]float64, len(body))
	paths := mat.NewDense(numPaths, len(body), nil)

	for k, record := range body {
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", k+1, err)
		}
		times[k] = t

		for p := 0; p < numPaths; p++ {
			val, err := strconv.ParseFloat(record[p+1], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d path %d: %w", k+1, p, err)
			}
			paths.Set(p, k, val)
		}
	}

	return paths, times, nil
}
