package parse

import (
	"context"
	"log/slog"

	"github.com/Linjx520074913/qiaoqiao/constants"
	"github.com/Linjx520074913/qiaoqiao/internal/entity"
)

// Router picks the extraction strategy for a bill type. Bank statements go
// to the deterministic parser, everything else to the generative or hybrid
// path per the type's configured mode.
type Router struct {
	bank       *BankParser
	generative *GenerativeParser
	hybrid     *HybridParser
	logger     *slog.Logger
}

func NewRouter(bank *BankParser, generative *GenerativeParser, hybrid *HybridParser, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{bank: bank, generative: generative, hybrid: hybrid, logger: logger}
}

func (r *Router) Parse(ctx context.Context, text string, billType constants.BillType) entity.ParseResult {
	mode := constants.ModeFor(billType)
	r.logger.Debug("parse.route", "bill_type", string(billType), "mode", string(mode))

	switch mode {
	case constants.ModeBank:
		return r.bank.Parse(text)
	case constants.ModeHybrid:
		return r.hybrid.Parse(ctx, text)
	default:
		return r.generative.Parse(ctx, text, mode)
	}
}
