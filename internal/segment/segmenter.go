package segment

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/Linjx520074913/qiaoqiao/constants"
	"github.com/Linjx520074913/qiaoqiao/internal/classify"
	"github.com/Linjx520074913/qiaoqiao/internal/entity"
)

// bankAnchor opens every debit-card SMS record. Splitting on it is more
// reliable than splitting on the bracketed bank marker, which OCR tends to
// break apart.
const bankAnchor = "您的借记卡账户"

var (
	reCurrencyAmount = regexp.MustCompile(`[¥￥]\s*[\d.]+`)
	reBankAmount     = regexp.MustCompile(`人民币[\d.]+元`)
	reBlankRuns      = regexp.MustCompile(`\n+`)

	bankNames = []string{"中国银行", "建设银行", "工商银行", "农业银行"}

	// co-occurrence of these labels marks a navigation bar, not an order
	navChrome = []string{"全部", "到店取餐", "麦乐送"}
)

// Segmenter splits list-page OCR text into ordered blocks, one per logical
// transaction.
type Segmenter struct {
	logger *slog.Logger
}

func NewSegmenter(logger *slog.Logger) *Segmenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Segmenter{logger: logger}
}

// IsBankStatementList reports whether the text is a concatenation of
// bank-statement SMS messages.
func (s *Segmenter) IsBankStatementList(text string) bool {
	return classify.BankHeaderCount(text) >= 2
}

// Split cuts the text into blocks using bank-mode or merchant-mode
// boundaries. The caller has already decided the text is a list.
func (s *Segmenter) Split(text string) []entity.Block {
	if s.IsBankStatementList(text) {
		return s.splitBankStatements(text)
	}
	return s.splitOrders(text)
}

// splitBankStatements splits on the debit-card anchor phrase. Each fragment
// keeps the anchor; fragments without both an amount and a balance-or-bank
// marker are discarded.
func (s *Segmenter) splitBankStatements(text string) []entity.Block {
	text = reBlankRuns.ReplaceAllString(text, "\n")

	var blocks []entity.Block
	parts := strings.Split(text, bankAnchor)
	for i, part := range parts[1:] {
		record := strings.TrimSpace(bankAnchor + part)
		if !isValidBankStatement(record) {
			continue
		}
		blocks = append(blocks, entity.Block{
			Text:        record,
			StartLine:   i,
			EndLine:     i + 1,
			Status:      constants.StatusCompleted,
			StatusLabel: "已完成",
		})
	}
	s.logger.Debug("segment.bank", "records", len(blocks))
	return blocks
}

func isValidBankStatement(text string) bool {
	flat := strings.ReplaceAll(text, "\n", "")
	if !reBankAmount.MatchString(flat) {
		return false
	}
	if strings.Contains(flat, "余额") {
		return true
	}
	for _, bank := range bankNames {
		if strings.Contains(flat, bank) {
			return true
		}
	}
	return false
}

// splitOrders walks the lines of a merchant order list. Everything before
// the first merchant anchor is page header chrome and is skipped. A reorder
// affordance, or a later merchant anchor while a block is open, closes the
// current block.
func (s *Segmenter) splitOrders(text string) []entity.Block {
	lines := strings.Split(text, "\n")

	var (
		blocks       []entity.Block
		current      []string
		currentStart int
		statusLabel  string
		inOrders     bool
	)

	flush := func(end int) {
		if len(current) == 0 {
			return
		}
		blockText := strings.Join(current, "\n")
		if isValidOrder(blockText) {
			blocks = append(blocks, entity.Block{
				Text:        blockText,
				StartLine:   currentStart,
				EndLine:     end,
				Status:      constants.StatusFor(statusLabel),
				StatusLabel: statusLabel,
			})
		}
		current = nil
	}

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if !inOrders && strings.Contains(line, "餐厅>") {
			inOrders = true
			currentStart = i
		}
		if !inOrders {
			continue
		}

		for _, sk := range constants.StatusKeywords {
			if strings.Contains(line, sk.Keyword) {
				statusLabel = sk.Keyword
				break
			}
		}

		isBoundary := strings.Contains(line, "再来一单") ||
			(i > currentStart && strings.Contains(line, "餐厅>") && len(current) > 0)

		if isBoundary && len(current) > 0 {
			flush(i)
			currentStart = i + 1
			statusLabel = ""
		} else {
			current = append(current, line)
		}
	}
	flush(len(lines))

	s.logger.Debug("segment.orders", "blocks", len(blocks))
	return blocks
}

// isValidOrder keeps a candidate block only when it looks like a real
// transaction rather than leaked navigation chrome.
func isValidOrder(text string) bool {
	isNav := true
	for _, label := range navChrome {
		if !strings.Contains(text, label) {
			isNav = false
			break
		}
	}
	if isNav {
		return false
	}

	hasMerchant := strings.Contains(text, "餐厅>") || strings.Contains(text, "店铺")
	hasAmount := reCurrencyAmount.MatchString(text)
	hasItems := strings.Contains(text, "共") && strings.Contains(text, "件")
	hasStatus := false
	for _, sk := range constants.StatusKeywords {
		if strings.Contains(text, sk.Keyword) {
			hasStatus = true
			break
		}
	}

	return (hasMerchant || hasAmount) && (hasItems || hasStatus || hasAmount)
}
