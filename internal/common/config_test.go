package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.OCR.Tesseract != "tesseract" || cfg.OCR.Language != "chi_sim" || cfg.OCR.PSM != 6 {
		t.Errorf("ocr defaults = %+v", cfg.OCR)
	}
	if cfg.LLM.Timeout != 60*time.Second {
		t.Errorf("llm timeout = %v, want 60s", cfg.LLM.Timeout)
	}
	if cfg.Pipeline.MaxWorkers != 4 {
		t.Errorf("max workers = %d, want 4", cfg.Pipeline.MaxWorkers)
	}
	if cfg.Pipeline.BlockTimeout != 0 {
		t.Errorf("block timeout = %v, want disabled by default", cfg.Pipeline.BlockTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults: %v", err)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LLM_MODEL", "qwen2.5:7b")
	t.Setenv("PIPELINE_MAX_WORKERS", "8")
	t.Setenv("PIPELINE_BLOCK_TIMEOUT", "30s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.LLM.Model != "qwen2.5:7b" {
		t.Errorf("model = %q", cfg.LLM.Model)
	}
	if cfg.Pipeline.MaxWorkers != 8 {
		t.Errorf("max workers = %d", cfg.Pipeline.MaxWorkers)
	}
	if cfg.Pipeline.BlockTimeout != 30*time.Second {
		t.Errorf("block timeout = %v", cfg.Pipeline.BlockTimeout)
	}
}

func TestLoadConfigYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "server:\n  addr: \":7070\"\nllm:\n  model: local-model\npipeline:\n  max_workers: 2\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("QIAOQIAO_CONFIG", path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Server.Addr != ":7070" || cfg.LLM.Model != "local-model" || cfg.Pipeline.MaxWorkers != 2 {
		t.Errorf("overlay not applied: %+v", cfg)
	}
	// untouched fields keep their env defaults
	if cfg.OCR.Tesseract != "tesseract" {
		t.Errorf("tesseract = %q, want default", cfg.OCR.Tesseract)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("QIAOQIAO_CONFIG", "/does/not/exist.yaml")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig() = nil error, want read failure")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, _ := LoadConfig()
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"empty base url", func(c *Config) { c.LLM.BaseURL = "" }},
		{"empty model", func(c *Config) { c.LLM.Model = "" }},
		{"zero workers", func(c *Config) { c.Pipeline.MaxWorkers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Validate() error = %v, want ErrInvalidInput in chain", err)
			}
		})
	}
}
