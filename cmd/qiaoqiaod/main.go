package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/Linjx520074913/qiaoqiao/internal/classify"
	"github.com/Linjx520074913/qiaoqiao/internal/common"
	"github.com/Linjx520074913/qiaoqiao/internal/export"
	"github.com/Linjx520074913/qiaoqiao/internal/llm"
	"github.com/Linjx520074913/qiaoqiao/internal/ocr"
	"github.com/Linjx520074913/qiaoqiao/internal/parse"
	"github.com/Linjx520074913/qiaoqiao/internal/pipeline"
	"github.com/Linjx520074913/qiaoqiao/internal/segment"
	"github.com/Linjx520074913/qiaoqiao/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ocrEngine := ocr.NewExtractor(ocr.Config{
		Tesseract: cfg.OCR.Tesseract,
		Language:  cfg.OCR.Language,
		PSM:       cfg.OCR.PSM,
	}, logger)

	engine := llm.NewClient(llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger)

	bank := parse.NewBankParser(logger)
	generative := parse.NewGenerativeParser(engine, logger).WithValidation()
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

	handler := server.NewHandler(ocrEngine, processor, export.NewService(logger), cfg, logger)
	srv := server.New(cfg, handler, logger)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}
