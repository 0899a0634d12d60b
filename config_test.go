package anychar

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, contents string) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"dataset_dir_iiit5k": "data/iiit5k",
		"dataset_dir_vgg": "data/vgg",
		"use_iiit5k": true,
		"height": 32,
		"window_size": 32,
		"jittering_percent": 0.1,
		"embed_size": 62,
		"lr": 0.001,
		"num_epochs": 3,
		"batch_size": 16,
		"test_and_save_every_n_steps": 50
	}`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DatasetDir() != "data/iiit5k" {
		t.Errorf("unexpected dataset dir: %s", cfg.DatasetDir())
	}
	if cfg.Depth != DefaultDepth || cfg.Stride != 16 || cfg.DropMargin != DefaultDropMargin {
		t.Errorf("bad defaults: depth=%d stride=%d drop=%d", cfg.Depth, cfg.Stride,
			cfg.DropMargin)
	}
	if cfg.EvalEvery != 50 || cfg.NumEpochs != 3 || cfg.BatchSize != 16 {
		t.Errorf("unexpected training options: %+v", cfg)
	}
	if cfg.CkptDir != "ckpt" || cfg.VisualizeDir != "visualize" {
		t.Errorf("bad directory defaults: %s %s", cfg.CkptDir, cfg.VisualizeDir)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
dataset_dir_vgg: data/vgg
height: 24
window_size: 20
stride: 4
embed_size: 36
use_stn: true
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DatasetDir() != "data/vgg" || cfg.Stride != 4 || !cfg.UseSTN {
		t.Errorf("unexpected config: %+v", cfg)
	}
	c, err := cfg.Charset()
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 36 {
		t.Errorf("expected folded charset but got %d classes", c.Len())
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	for i, contents := range []string{
		`{"dataset_dir_vgg": "x", "height": 0, "window_size": 10}`,
		`{"dataset_dir_vgg": "x", "height": 10, "window_size": 10, "depth": 2}`,
		`{"dataset_dir_vgg": "x", "height": 10, "window_size": 10, "embed_size": 20}`,
		`{"dataset_dir_vgg": "x", "height": 10, "window_size": 10, "jittering_percent": 1}`,
		`{"dataset_dir_vgg": "x", "height": 10, "window_size": 10, "debug": true}`,
		`{"dataset_dir_iiit5k": "x", "height": 10, "window_size": 10}`,
		`{"height": "tall"}`,
	} {
		path := writeConfig(t, "config.json", contents)
		if _, err := LoadConfig(path); err == nil {
			t.Errorf("config %d: expected error", i)
		}
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
