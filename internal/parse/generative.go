package parse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"

	"github.com/Linjx520074913/qiaoqiao/constants"
	"github.com/Linjx520074913/qiaoqiao/internal/entity"
	"github.com/Linjx520074913/qiaoqiao/internal/llm"
)

// generativeConfidence is fixed for engine-driven extraction; the engine
// gives no usable self-estimate at temperature zero.
const generativeConfidence = 0.8

// GenerativeParser drives the completion engine with a tier-specific prompt
// and normalizes whatever JSON comes back into an Invoice.
type GenerativeParser struct {
	engine   llm.Engine
	logger   *slog.Logger
	validate bool
	now      func() time.Time
}

func NewGenerativeParser(engine llm.Engine, logger *slog.Logger) *GenerativeParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerativeParser{engine: engine, logger: logger, now: time.Now}
}

// WithValidation enables advisory schema validation of engine output.
// Violations are logged, never fatal.
func (p *GenerativeParser) WithValidation() *GenerativeParser {
	p.validate = true
	return p
}

// Parse runs one extraction at the given tier. Failures from the engine or
// an unrecoverable payload yield a failed result, never a partial invoice.
func (p *GenerativeParser) Parse(ctx context.Context, text string, mode constants.ParseMode) entity.ParseResult {
	prompt, maxTokens := buildPrompt(mode, text)
	start := p.now()
	p.logger.Info("parse.generative.start", "mode", string(mode), "text_len", len(text))

	raw, err := llm.GenerateJSON(ctx, p.engine, prompt, 0, maxTokens)
	if err != nil {
		p.logger.Error("parse.generative.engine_error", "mode", string(mode), "error", err)
		return failure(mode, fmt.Sprintf("completion engine: %v", err))
	}

	if p.validate && mode == constants.ModeStandard {
		if verr := llm.ValidateInvoiceJSON(raw); verr != nil {
			p.logger.Warn("parse.generative.schema_violation", "error", verr)
		}
	}

	var draft Draft
	if err := sonic.UnmarshalString(raw, &draft); err != nil {
		p.logger.Error("parse.generative.decode_error", "error", err)
		return failure(mode, fmt.Sprintf("decode engine output: %v", err))
	}

	inv := draft.ToInvoice(text)
	inv.TotalAmount = reconcileTotal(inv.TotalAmount, inv.Items, text)
	if inv.InvoiceDate == "" {
		inv.InvoiceDate = p.now().Format("2006-01-02 15:04:05")
	}

	p.logger.Info("parse.generative.ok",
		"mode", string(mode),
		"items", len(inv.Items),
		"elapsed_ms", p.now().Sub(start).Milliseconds())

	return entity.ParseResult{
		Success:    true,
		Invoice:    inv,
		Confidence: generativeConfidence,
		ParseMode:  mode,
	}
}

func failure(mode constants.ParseMode, msg string) entity.ParseResult {
	return entity.ParseResult{
		Success:      false,
		ParseMode:    mode,
		ErrorMessage: msg,
	}
}
