package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Linjx520074913/qiaoqiao/constants"
	"github.com/Linjx520074913/qiaoqiao/internal/common"
)

// Result is the raw OCR output for one image. The pipeline consumes Text;
// Lines and Scores exist for diagnostics.
type Result struct {
	Text     string
	Lines    []string
	Scores   []float64
	Success  bool
	Error    string
	Duration time.Duration
}

// AvgScore is the mean per-line confidence, 0 when no lines were read.
func (r Result) AvgScore() float64 {
	if len(r.Scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range r.Scores {
		sum += s
	}
	return sum / float64(len(r.Scores))
}

// Engine recognizes text in an image file. OCR failure is a terminal input
// error for the request; it is never retried.
type Engine interface {
	Recognize(ctx context.Context, imagePath string) (Result, error)
}

type Config struct {
	Tesseract string // binary name or absolute path; if empty -> "tesseract"
	Language  string // default "chi_sim"
	PSM       int    // e.g. 6 for a uniform block of text
}

// Extractor runs tesseract through an exec Runner.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "chi_sim"
	}
	if cfg.PSM <= 0 {
		cfg.PSM = 6
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// Recognize runs tesseract in TSV mode and folds the word boxes back into
// per-line text plus per-line confidence.
func (e *Extractor) Recognize(ctx context.Context, imagePath string) (Result, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(imagePath))
	if !constants.IsAllowedExt(ext) {
		e.logger.Error("ocr.unsupported_extension", "extension", ext)
		return Result{Error: fmt.Sprintf("unsupported extension: %q", ext)},
			common.NewAppError("OCR_INPUT", fmt.Sprintf("unsupported extension: %q", ext), common.ErrUnsupportedFormat)
	}

	args := []string{
		imagePath, "stdout",
		"-l", e.cfg.Language,
		"--psm", strconv.Itoa(e.cfg.PSM),
		"tsv",
	}
	stdout, _, err := e.runner.Run(ctx, e.cfg.Tesseract, e.logger, args...)
	if err != nil {
		return Result{Error: err.Error(), Duration: time.Since(start)},
			common.WrapError(err, "run tesseract")
	}

	lines, scores := foldTSV(string(stdout))
	res := Result{
		Text:     strings.Join(lines, "\n"),
		Lines:    lines,
		Scores:   scores,
		Success:  true,
		Duration: time.Since(start),
	}
	e.logger.Debug("ocr.ok",
		"path", imagePath,
		"lines", len(lines),
		"avg_score", res.AvgScore(),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// foldTSV collapses tesseract TSV word rows into lines. Confidence is the
// mean word confidence per line, scaled to [0,1].
func foldTSV(tsv string) ([]string, []float64) {
	var (
		lines  []string
		scores []float64

		words    []string
		confSum  float64
		confN    int
		prevLine = -1
	)
	flush := func() {
		if len(words) == 0 {
			return
		}
		lines = append(lines, strings.Join(words, " "))
		if confN > 0 {
			scores = append(scores, confSum/float64(confN)/100.0)
		} else {
			scores = append(scores, 0)
		}
		words, confSum, confN = nil, 0, 0
	}

	for i, row := range strings.Split(tsv, "\n") {
		if i == 0 || strings.TrimSpace(row) == "" {
			continue // header
		}
		cols := strings.Split(row, "\t")
		if len(cols) < 12 {
			continue
		}
		lineNum, err := strconv.Atoi(cols[4])
		if err != nil {
			continue
		}
		if lineNum != prevLine {
			flush()
			prevLine = lineNum
		}
		word := strings.TrimSpace(cols[11])
		if word == "" {
			continue
		}
		if conf, err := strconv.ParseFloat(cols[10], 64); err == nil && conf >= 0 {
			confSum += conf
			confN++
		}
		words = append(words, word)
	}
	flush()
	return lines, scores
}
