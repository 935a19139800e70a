package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml",
		"addr: :9999\nmodels_dir: /tmp\nmem_budget_mb: 123\nmem_margin_mb: 7\ncontext_window: 1024\nmax_new_tokens: 32\nstop_markers: [\"<eos>\"]\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.ModelsDir != "/tmp" || cfg.MemBudgetMB != 123 || cfg.MemMarginMB != 7 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.ContextWindow != 1024 || cfg.MaxNewTokens != 32 {
		t.Fatalf("unexpected inference cfg: %+v", cfg)
	}
	if len(cfg.StopMarkers) != 1 || cfg.StopMarkers[0] != "<eos>" {
		t.Fatalf("unexpected stop markers: %v", cfg.StopMarkers)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json",
		`{"addr":":7070","models_dir":"/m","mem_budget_mb":42,"gpu_layers":28,"use_mmap":true,"sampler_seed":7}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.ModelsDir != "/m" || cfg.MemBudgetMB != 42 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.GPULayers != 28 || !cfg.UseMmap || cfg.SamplerSeed != 7 {
		t.Fatalf("unexpected inference cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml",
		"addr=\":8081\"\nmodels_dir=\"/x\"\nmem_budget_mb=9\nbatch_capacity=256\nthreads=2\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.ModelsDir != "/x" || cfg.MemBudgetMB != 9 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.BatchCapacity != 256 || cfg.Threads != 2 {
		t.Fatalf("unexpected inference cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
	d := t.TempDir()
	cases := []struct {
		name    string
		content string
	}{
		{"cfg.txt", "not supported"},
		{"bad.yaml", "addr: :8080\n: broken\n"},
		{"bad.json", `{ "addr": ":8080", "models_dir": }`},
		{"bad.toml", "addr=:8080\nmodels_dir\n"},
	}
	for _, tc := range cases {
		p := writeTempFile(t, d, tc.name, tc.content)
		if _, err := Load(p); err == nil {
			t.Fatalf("%s: expected load error", tc.name)
		}
	}
}
