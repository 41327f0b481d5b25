package storage

import (
	"encoding/json"
	"io"

	"gonum.org/v1/gonum/mat"
)

type ExportData struct {
	RunMetadata
	Times []float64   `json:"times"`
	Paths [][]float64 `json:"paths"`
}

// ExportJSON writes the metadata and every path of a stored run to w.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	paths, times, err := s.LoadPaths(runID)
	if err != nil {
		return err
	}

	data := ExportData{
		RunMetadata: *meta,
		Times:       times,
		Paths:       rowsOf(paths),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func rowsOf(m *mat.Dense) [][]float64 {
	if m == nil {
		return [][]float64{}
	}
	rows, _ := m.Dims()
	out := make([][]float64, rows)
	for p := range out {
		out[p] = mat.Row(nil, p, m)
	}
	return out
}
