package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Linjx520074913/qiaoqiao/constants"
	"github.com/Linjx520074913/qiaoqiao/internal/classify"
	"github.com/Linjx520074913/qiaoqiao/internal/entity"
	"github.com/Linjx520074913/qiaoqiao/internal/parse"
	"github.com/Linjx520074913/qiaoqiao/internal/segment"
)

// defaultMaxWorkers caps concurrent block extractions. The completion
// engine is the bottleneck; more workers just queue inside it.
const defaultMaxWorkers = 4

// Options tune one Process call without touching the Processor itself.
type Options struct {
	// Concurrent extracts list blocks in parallel instead of in order.
	Concurrent bool
	// SkipItems switches list blocks to the summary tier.
	SkipItems bool
	// BlockTimeout bounds one block's extraction; zero means no bound.
	BlockTimeout time.Duration
	// Stages, when non-nil, receives per-stage elapsed milliseconds.
	Stages StageTimer
}

// StageTimer collects elapsed milliseconds per named pipeline stage.
// A nil timer records nothing.
type StageTimer map[string]int64

func (t StageTimer) Observe(stage string, start time.Time) {
	if t != nil {
		t[stage] = time.Since(start).Milliseconds()
	}
}

// Processor wires classification, segmentation and extraction into the
// full text pipeline. It is safe for concurrent use.
type Processor struct {
	classifier *classify.Classifier
	segmenter  *segment.Segmenter
	router     *parse.Router
	bank       *parse.BankParser
	generative *parse.GenerativeParser
	maxWorkers int
	logger     *slog.Logger
}

func NewProcessor(
	classifier *classify.Classifier,
	segmenter *segment.Segmenter,
	router *parse.Router,
	bank *parse.BankParser,
	generative *parse.GenerativeParser,
	maxWorkers int,
	logger *slog.Logger,
) *Processor {
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		classifier: classifier,
		segmenter:  segmenter,
		router:     router,
		bank:       bank,
		generative: generative,
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

// DetectType classifies text without extracting anything: bill type,
// classification confidence, the strategy that type maps to, and whether
// the text looks like a multi-document list.
func (p *Processor) DetectType(text string) (constants.BillType, float64, constants.ParseMode, bool) {
	billType, conf, mode := p.classifier.DetectTypeOnly(text)
	isList, _ := classify.IsOrderList(text)
	return billType, conf, mode, isList
}

// Process runs the whole pipeline on recognized text: list detection,
// then either single-document extraction or per-block extraction with
// statistics.
func (p *Processor) Process(ctx context.Context, text string, opts Options) entity.ScanResult {
	detectStart := time.Now()
	isList, listConf := classify.IsOrderList(text)
	opts.Stages.Observe("detect", detectStart)
	if isList {
		p.logger.Info("pipeline.list_detected", "confidence", listConf)
		return p.processList(ctx, text, opts)
	}
	return p.processSingle(ctx, text, opts)
}

func (p *Processor) processSingle(ctx context.Context, text string, opts Options) entity.ScanResult {
	billType, typeConf := p.classifier.Detect(text)
	p.logger.Info("pipeline.single", "bill_type", string(billType), "type_confidence", typeConf)

	parseStart := time.Now()
	result := p.router.Parse(ctx, text, billType)
	opts.Stages.Observe("parse", parseStart)
	if !result.Success {
		return entity.ScanResult{
			Success:  false,
			BillType: billType,
			Error:    result.ErrorMessage,
		}
	}
	return entity.ScanResult{
		Success:    true,
		Invoice:    result.Invoice,
		Confidence: result.Confidence,
		BillType:   billType,
	}
}

func (p *Processor) processList(ctx context.Context, text string, opts Options) entity.ScanResult {
	isBank := p.segmenter.IsBankStatementList(text)
	splitStart := time.Now()
	blocks := p.segmenter.Split(text)
	opts.Stages.Observe("split", splitStart)
	if len(blocks) == 0 {
		p.logger.Warn("pipeline.no_blocks")
		return p.processSingle(ctx, text, opts)
	}

	billType := constants.FoodDelivery
	if isBank {
		billType = constants.BankStatement
	}

	parseStart := time.Now()
	var results []entity.ParseResult
	if opts.Concurrent && len(blocks) > 1 {
		results = p.extractConcurrent(ctx, blocks, isBank, opts)
	} else {
		results = p.extractSequential(ctx, blocks, isBank, opts)
	}
	opts.Stages.Observe("parse", parseStart)

	stats := &entity.BatchStats{TotalOrders: len(blocks)}
	for _, b := range blocks {
		stats.Count(b.Status)
	}

	return entity.ScanResult{
		Success:  true,
		IsList:   true,
		Orders:   results,
		Stats:    stats,
		BillType: billType,
	}
}

func (p *Processor) extractSequential(ctx context.Context, blocks []entity.Block, isBank bool, opts Options) []entity.ParseResult {
	results := make([]entity.ParseResult, len(blocks))
	for i, block := range blocks {
		results[i] = p.extractBlock(ctx, block, isBank, opts)
	}
	return results
}

// extractConcurrent fans blocks out over a bounded worker pool. Results
// land in an index-keyed slice so output order always matches block order
// regardless of completion order.
func (p *Processor) extractConcurrent(ctx context.Context, blocks []entity.Block, isBank bool, opts Options) []entity.ParseResult {
	workers := p.maxWorkers
	if len(blocks) < workers {
		workers = len(blocks)
	}

	type job struct {
		idx   int
		block entity.Block
	}
	jobs := make(chan job)
	results := make([]entity.ParseResult, len(blocks))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.idx] = p.extractBlock(ctx, j.block, isBank, opts)
			}
		}()
	}

	for i, block := range blocks {
		jobs <- job{idx: i, block: block}
	}
	close(jobs)
	wg.Wait()

	return results
}

// extractBlock parses one block. A failure stays local to its slot: the
// surrounding batch keeps going.
func (p *Processor) extractBlock(ctx context.Context, block entity.Block, isBank bool, opts Options) entity.ParseResult {
	if opts.BlockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.BlockTimeout)
		defer cancel()
	}

	var result entity.ParseResult
	if isBank {
		result = p.bank.Parse(block.Text)
	} else {
		mode := constants.ModeFast
		if opts.SkipItems {
			mode = constants.ModeSummary
		}
		result = p.generative.Parse(ctx, block.Text, mode)
	}

	if result.Success && result.Invoice != nil && block.StatusLabel != "" {
		result.Invoice.AppendRemark("订单状态: " + block.StatusLabel)
	}
	return result
}
