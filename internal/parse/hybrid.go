package parse

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/Linjx520074913/qiaoqiao/constants"
	"github.com/Linjx520074913/qiaoqiao/internal/entity"
	"github.com/Linjx520074913/qiaoqiao/internal/llm"
)

const maxTokensSupplement = 1024

var (
	reAnyAmount       = regexp.MustCompile(`(?:¥|人民币)?(\d+\.?\d*)元?`)
	rePhoneNumber     = regexp.MustCompile(`1[3-9]\d{9}`)
	reAccountNumber   = regexp.MustCompile(`账户[：:]*(\d{4,8})`)
	reBankName        = regexp.MustCompile(`【(.*?银行)】`)
	reBankTransaction = regexp.MustCompile(`于(\d{1,2})月(\d{1,2})日(.*?)(支取|收入)人民币([\d.]+)元，交易后余额([\d.]+)`)
	reOrderNumber     = regexp.MustCompile(`(?:订单号|订单编号)[：:]\s*([A-Z0-9]+)`)
	reInvoiceNumber   = regexp.MustCompile(`(?:发票号码?|发票代码)[：:]\s*(\d+)`)
)

// ruleFields is what the deterministic pass managed to pull out. The filled
// list names the fields for the supplement prompt and the confidence
// weighting; both use the wire-format field names.
type ruleFields struct {
	invoiceType   string
	invoiceNumber string
	sellerName    string
	buyerPhone    string
	totalAmount   *float64
	items         []entity.LineItem
	filled        []string
}

func (r *ruleFields) has(field string) bool {
	for _, f := range r.filled {
		if f == field {
			return true
		}
	}
	return false
}

func (r *ruleFields) mark(field string) {
	if !r.has(field) {
		r.filled = append(r.filled, field)
	}
}

// HybridParser runs a deterministic rule pass first and asks the completion
// engine only for what the rules left open. Rule values always win a merge.
type HybridParser struct {
	engine llm.Engine
	logger *slog.Logger
}

func NewHybridParser(engine llm.Engine, logger *slog.Logger) *HybridParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &HybridParser{engine: engine, logger: logger}
}

func (p *HybridParser) Parse(ctx context.Context, text string) entity.ParseResult {
	rules := extractByRules(text)
	p.logger.Info("parse.hybrid.rules", "fields", len(rules.filled))

	draft := p.supplement(ctx, text, rules)

	inv := draft.ToInvoice(text)
	mergeRules(inv, rules)

	return entity.ParseResult{
		Success:    true,
		Invoice:    inv,
		Confidence: hybridConfidence(inv, rules),
		ParseMode:  constants.ModeHybrid,
	}
}

// supplement asks the engine for the remaining fields. An engine failure is
// tolerated: the rule fields alone still make a usable result.
func (p *HybridParser) supplement(ctx context.Context, text string, rules *ruleFields) Draft {
	prompt := buildSupplementPrompt(text, rules.filled, len(rules.items) > 0)
	raw, err := llm.GenerateJSON(ctx, p.engine, prompt, 0, maxTokensSupplement)
	if err != nil {
		p.logger.Warn("parse.hybrid.engine_error", "error", err)
		return Draft{}
	}
	var draft Draft
	if err := sonic.UnmarshalString(raw, &draft); err != nil {
		p.logger.Warn("parse.hybrid.decode_error", "error", err)
		return Draft{}
	}
	return draft
}

func extractByRules(text string) *ruleFields {
	rules := &ruleFields{}

	if m := reBankName.FindStringSubmatch(text); m != nil {
		rules.sellerName = m[1]
		rules.mark("seller_name")
	}

	// later number sources override earlier ones; an explicit invoice
	// number beats an order number beats a bare account
	if m := reAccountNumber.FindStringSubmatch(text); m != nil {
		rules.invoiceNumber = m[1]
		rules.mark("invoice_number")
	}
	if m := reOrderNumber.FindStringSubmatch(text); m != nil {
		rules.invoiceNumber = m[1]
		rules.mark("invoice_number")
	}
	if m := reInvoiceNumber.FindStringSubmatch(text); m != nil {
		rules.invoiceNumber = m[1]
		rules.mark("invoice_number")
	}

	if m := rePhoneNumber.FindString(text); m != "" {
		rules.buyerPhone = m
		rules.mark("buyer_phone")
	}

	if trans := reBankTransaction.FindAllStringSubmatch(text, -1); len(trans) > 0 {
		rules.invoiceType = "银行流水"
		rules.mark("invoice_type")
		var lastBalance float64
		for _, m := range trans {
			amount := mustFloat(m[5])
			if m[4] == "支取" {
				amount = -amount
			}
			item := entity.LineItem{
				Name:        fmt.Sprintf("%s月%s日 %s", m[1], m[2], m[4]),
				Amount:      &amount,
				Description: strings.TrimSpace(m[3]),
			}
			rules.items = append(rules.items, item)
			lastBalance = mustFloat(m[6])
		}
		rules.mark("items")
		rules.totalAmount = &lastBalance
		rules.mark("total_amount")
	}

	if len(rules.items) == 0 {
		// without line items the last amount on the page is usually
		// the total
		if all := reAnyAmount.FindAllStringSubmatch(text, -1); len(all) > 0 {
			if v, err := strconv.ParseFloat(all[len(all)-1][1], 64); err == nil {
				rules.totalAmount = &v
				rules.mark("total_amount")
			}
		}
	}

	return rules
}

func mergeRules(inv *entity.Invoice, rules *ruleFields) {
	if rules.invoiceType != "" {
		inv.InvoiceType = rules.invoiceType
	}
	if rules.invoiceNumber != "" {
		inv.InvoiceNumber = rules.invoiceNumber
	}
	if rules.sellerName != "" {
		inv.SellerName = rules.sellerName
	}
	if rules.buyerPhone != "" {
		inv.BuyerPhone = rules.buyerPhone
	}
	if rules.totalAmount != nil {
		inv.TotalAmount = rules.totalAmount
	}
	if len(rules.items) > 0 {
		inv.Items = rules.items
	}
}

// hybridConfidence weights filled fields, scoring rule-sourced values above
// engine-sourced ones.
func hybridConfidence(inv *entity.Invoice, rules *ruleFields) float64 {
	var total, max float64

	important := []struct {
		weight float64
		field  string
		set    bool
	}{
		{0.15, "invoice_type", inv.InvoiceType != ""},
		{0.15, "invoice_number", inv.InvoiceNumber != ""},
		{0.2, "total_amount", inv.TotalAmount != nil},
		{0.1, "seller_name", inv.SellerName != ""},
	}
	for _, f := range important {
		max += f.weight
		if f.set {
			factor := 0.8
			if rules.has(f.field) {
				factor = 1.0
			}
			total += f.weight * factor
		}
	}

	if len(inv.Items) > 0 {
		max += 0.2
		total += 0.2
	}

	secondary := []bool{inv.BuyerName != "", inv.BuyerPhone != "", inv.InvoiceDate != ""}
	for _, set := range secondary {
		max += 0.05
		if set {
			total += 0.05
		}
	}

	if max == 0 {
		return 0
	}
	conf := total / max
	if conf > 1 {
		conf = 1
	}
	return conf
}
