package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/sdesim/internal/config"
	"github.com/san-kum/sdesim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

func testResult() *dynamo.Result {
	return &dynamo.Result{
		Times: []float64{0.0, 0.5, 1.0},
		Paths: mat.NewDense(2, 3, []float64{
			100, 103.52, 101.25,
			100, 98.5, 97.125,
		}),
		Metrics:    map[string]float64{"mean": 99.1875},
		StepsTaken: 2,
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Seed = 42
	cfg.Paths = 2
	cfg.Steps = 2

	runID, err := st.Save(cfg, testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Model != "gbm" || meta.Scheme != "milstein" {
		t.Errorf("unexpected model/scheme: %s/%s", meta.Model, meta.Scheme)
	}
	if meta.Seed != 42 {
		t.Errorf("expected seed 42, got %d", meta.Seed)
	}
	if meta.Metrics["mean"] != 99.1875 {
		t.Errorf("expected mean 99.1875, got %f", meta.Metrics["mean"])
	}
	if meta.Params["sigma"] != config.DefaultSigma {
		t.Errorf("expected sigma %f, got %f", config.DefaultSigma, meta.Params["sigma"])
	}

	paths, times, err := st.LoadPaths(runID)
	if err != nil {
		t.Fatalf("load paths failed: %v", err)
	}
	if len(times) != 3 || times[1] != 0.5 {
		t.Errorf("unexpected times: %v", times)
	}
	if !mat.Equal(paths, testResult().Paths) {
		t.Errorf("paths differ after round trip: %v", mat.Formatted(paths))
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	st.Init()

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	cfg := config.DefaultConfig()
	st.Save(cfg, testResult())
	cfg.Scheme = "euler"
	st.Save(cfg, testResult())

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "absent"))
	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}
}

func TestStoreSkipsForeignDirs(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	os.MkdirAll(filepath.Join(dir, "not-a-run"), 0755)

	st.Save(config.DefaultConfig(), testResult())

	runs, _ := st.List()
	if len(runs) != 1 {
		t.Errorf("expected 1 run, got %d", len(runs))
	}
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(config.DefaultConfig(), testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	var buf bytes.Buffer
	if err := st.ExportJSON(&buf, runID); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if data.ID != runID {
		t.Errorf("expected id %s, got %s", runID, data.ID)
	}
	if len(data.Paths) != 2 || len(data.Paths[0]) != 3 {
		t.Errorf("unexpected path shape in export")
	}
	if data.Paths[0][1] != 103.52 {
		t.Errorf("expected 103.52, got %f", data.Paths[0][1])
	}
}

func TestLoadMissingRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("missing"); err == nil {
		t.Error("expected error for missing run")
	}
	if _, _, err := st.LoadPaths("missing"); err == nil {
		t.Error("expected error for missing paths")
	}
}
