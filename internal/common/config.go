package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	OCR      OCRConfig      `yaml:"ocr"`
	LLM      LLMConfig      `yaml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract   string `yaml:"tesseract"`    // binary name or absolute path
	Language    string `yaml:"language"`     // tesseract language pack, e.g. "chi_sim"
	PSM         int    `yaml:"psm"`          // page segmentation mode
	UseAngleCls bool   `yaml:"use_angle_cls"`
}

// LLMConfig holds completion-engine configuration
type LLMConfig struct {
	BaseURL     string        `yaml:"base_url"` // OpenAI-compatible endpoint (vLLM/Ollama/OpenAI)
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// PipelineConfig holds extraction-pipeline configuration
type PipelineConfig struct {
	MaxWorkers   int           `yaml:"max_workers"`   // cap on concurrent block extractions
	BlockTimeout time.Duration `yaml:"block_timeout"` // 0 disables per-block timeouts
	CleanText    bool          `yaml:"clean_text"`
	FormatText   bool          `yaml:"format_text"`
}

// LoadConfig loads configuration from environment variables, optionally
// overlaid with a YAML file named by QIAOQIAO_CONFIG.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		OCR: OCRConfig{
			Tesseract:   getEnv("TESSERACT_BIN", "tesseract"),
			Language:    getEnv("TESSERACT_LANG", "chi_sim"),
			PSM:         getEnvAsInt("TESSERACT_PSM", 6),
			UseAngleCls: getEnvAsBool("OCR_USE_ANGLE_CLS", false),
		},
		LLM: LLMConfig{
			BaseURL:     getEnv("LLM_BASE_URL", "http://localhost:11434/v1"),
			APIKey:      getEnv("LLM_API_KEY", "EMPTY"),
			Model:       getEnv("LLM_MODEL", "qwen2.5:3b"),
			Temperature: 0,
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		},
		Pipeline: PipelineConfig{
			MaxWorkers:   getEnvAsInt("PIPELINE_MAX_WORKERS", 4),
			BlockTimeout: getEnvAsDuration("PIPELINE_BLOCK_TIMEOUT", 0),
			CleanText:    getEnvAsBool("PIPELINE_CLEAN_TEXT", false),
			FormatText:   getEnvAsBool("PIPELINE_FORMAT_TEXT", false),
		},
	}

	if path := os.Getenv("QIAOQIAO_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, WrapError(err, "read config file")
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, WrapError(err, "decode config file")
		}
	}
	return cfg, nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.LLM.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "LLM_BASE_URL is required", ErrInvalidInput)
	}
	if c.LLM.Model == "" {
		return NewAppError("CONFIG_ERROR", "LLM_MODEL is required", ErrInvalidInput)
	}
	if c.Pipeline.MaxWorkers <= 0 {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("invalid PIPELINE_MAX_WORKERS: %d", c.Pipeline.MaxWorkers), ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
