package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/bytedance/sonic"

	"github.com/Linjx520074913/qiaoqiao/internal/classify"
	"github.com/Linjx520074913/qiaoqiao/internal/common"
	"github.com/Linjx520074913/qiaoqiao/internal/export"
	"github.com/Linjx520074913/qiaoqiao/internal/llm"
	"github.com/Linjx520074913/qiaoqiao/internal/ocr"
	"github.com/Linjx520074913/qiaoqiao/internal/parse"
	"github.com/Linjx520074913/qiaoqiao/internal/pipeline"
	"github.com/Linjx520074913/qiaoqiao/internal/segment"
)

func main() {
	var (
		imagePath  = flag.String("image", "", "bill image to scan")
		textPath   = flag.String("text", "", "file with already-recognized text (skips OCR), '-' for stdin")
		skipItems  = flag.Bool("skip-items", false, "summary tier: seller and total only")
		cleanText  = flag.Bool("clean", false, "strip UI chrome from recognized text")
		formatText = flag.Bool("format", false, "merge fragmented item lines (implies -clean)")
		concurrent = flag.Bool("concurrent", true, "extract list blocks in parallel")
		xlsxOut    = flag.String("xlsx", "", "also write results to this XLSX file")
		timeout    = flag.Duration("timeout", 5*time.Minute, "overall deadline")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	if (*imagePath == "") == (*textPath == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -image or -text is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		fatal("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	text, err := readInput(ctx, cfg, *imagePath, *textPath, logger)
	if err != nil {
		fatal("%v", err)
	}
	if *cleanText || *formatText {
		text = ocr.Cleaner{FormatText: *formatText}.Clean(text)
	}

	engine := llm.NewClient(llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger)

	bank := parse.NewBankParser(logger)
	generative := parse.NewGenerativeParser(engine, logger)
	hybrid := parse.NewHybridParser(engine, logger)
	router := parse.NewRouter(bank, generative, hybrid, logger)

	processor := pipeline.NewProcessor(
		classify.NewClassifier(logger),
		segment.NewSegmenter(logger),
		router,
		bank,
		generative,
		cfg.Pipeline.MaxWorkers,
		logger,
	)

	result := processor.Process(ctx, text, pipeline.Options{
		Concurrent:   *concurrent,
		SkipItems:    *skipItems,
		BlockTimeout: cfg.Pipeline.BlockTimeout,
	})

	out, err := sonic.MarshalIndent(result, "", "  ")
	if err != nil {
		fatal("encode result: %v", err)
	}
	fmt.Println(string(out))

	if *xlsxOut != "" {
		book, err := export.NewService(logger).ExportScanXLSX(result)
		if err != nil {
			fatal("export: %v", err)
		}
		if err := os.WriteFile(*xlsxOut, book, 0o644); err != nil {
			fatal("write %s: %v", *xlsxOut, err)
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", *xlsxOut)
	}

	if !result.Success {
		os.Exit(1)
	}
}

func readInput(ctx context.Context, cfg *common.Config, imagePath, textPath string, logger *slog.Logger) (string, error) {
	if textPath != "" {
		if textPath == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return "", fmt.Errorf("read stdin: %w", err)
			}
			return string(data), nil
		}
		data, err := os.ReadFile(textPath)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", textPath, err)
		}
		return string(data), nil
	}

	ocrEngine := ocr.NewExtractor(ocr.Config{
		Tesseract: cfg.OCR.Tesseract,
		Language:  cfg.OCR.Language,
		PSM:       cfg.OCR.PSM,
	}, logger)
	recognized, err := ocrEngine.Recognize(ctx, imagePath)
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	if !recognized.Success {
		return "", fmt.Errorf("ocr: %s", recognized.Error)
	}
	return recognized.Text, nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
