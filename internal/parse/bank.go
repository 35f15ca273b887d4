package parse

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Linjx520074913/qiaoqiao/constants"
	"github.com/Linjx520074913/qiaoqiao/internal/entity"
)

// bankConfidence is fixed: a pattern match on this rigid SMS format is
// trusted more than any generative output.
const bankConfidence = 0.95

const unknownBank = "未知银行"

var bankMarkers = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"中国银行", regexp.MustCompile(`【中国银行】`)},
	{"建设银行", regexp.MustCompile(`【建设银行】`)},
	{"工商银行", regexp.MustCompile(`【工商银行】`)},
	{"农业银行", regexp.MustCompile(`【农业银行】`)},
}

var (
	reBankAccount  = regexp.MustCompile(`账户(\d+)`)
	reBankDate     = regexp.MustCompile(`(\d+)月(\d+)日`)
	reWithdraw     = regexp.MustCompile(`支取.*?人民币([\d.]+)元`)
	reIncome       = regexp.MustCompile(`收入.*?人民币([\d.]+)元`)
	reCardPayment  = regexp.MustCompile(`网上支付支取.*?人民币([\d.]+)元`)
	reBalanceValue = regexp.MustCompile(`余额([\d.]+)`)
)

// BankParser extracts bank-transaction SMS text with fixed patterns; the
// completion engine is never involved.
type BankParser struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewBankParser(logger *slog.Logger) *BankParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &BankParser{logger: logger, now: time.Now}
}

// Parse extracts one bank SMS. Newlines are stripped first so OCR line
// wrapping cannot break a pattern in half.
func (p *BankParser) Parse(text string) entity.ParseResult {
	flat := strings.ReplaceAll(text, "\n", "")

	bankName := detectBank(flat)

	var account string
	if m := reBankAccount.FindStringSubmatch(flat); m != nil {
		account = m[1]
	}

	// the SMS format carries no year; assume the current one
	var invoiceDate string
	if m := reBankDate.FindStringSubmatch(flat); m != nil {
		invoiceDate = fmt.Sprintf("%d-%s-%s", p.now().Year(), pad2(m[1]), pad2(m[2]))
	}

	transType, amount, err := extractTransaction(flat)
	if err != nil {
		p.logger.Warn("parse.bank.failed", "error", err)
		return entity.ParseResult{
			Success:      false,
			ParseMode:    constants.ModeBank,
			ErrorMessage: err.Error(),
		}
	}

	var balance *float64
	if m := reBalanceValue.FindStringSubmatch(flat); m != nil {
		if v, perr := strconv.ParseFloat(m[1], 64); perr == nil {
			balance = &v
		}
	}

	inv := &entity.Invoice{
		InvoiceType: "Bank Statement",
		InvoiceDate: invoiceDate,
		SellerName:  bankName,
		TotalAmount: &amount,
		Items: []entity.LineItem{{
			Name:     transType,
			Quantity: ptr(1),
			Amount:   &amount,
		}},
		RawText: text,
	}
	if account != "" {
		inv.InvoiceNumber = bankName + "-" + account
		inv.BuyerName = "账户 " + account
	}
	if balance != nil {
		inv.Remarks = fmt.Sprintf("余额: ¥%.2f", *balance)
	}

	return entity.ParseResult{
		Success:    true,
		Invoice:    inv,
		Confidence: bankConfidence,
		ParseMode:  constants.ModeBank,
	}
}

// extractTransaction classifies the verb and pulls the attached amount.
// An income verb wins over a withdraw verb when both appear; the online
// payment form is only consulted when neither generic verb matched.
func extractTransaction(flat string) (string, float64, error) {
	var transType string
	var amount float64
	if m := reWithdraw.FindStringSubmatch(flat); m != nil {
		transType, amount = "支出", mustFloat(m[1])
	}
	if m := reIncome.FindStringSubmatch(flat); m != nil {
		transType, amount = "收入", mustFloat(m[1])
	}
	if amount == 0 {
		if m := reCardPayment.FindStringSubmatch(flat); m != nil {
			transType, amount = "网上支付", mustFloat(m[1])
		}
	}
	if transType == "" || amount == 0 {
		return "", 0, fmt.Errorf("no transaction amount in bank statement")
	}
	return transType, amount, nil
}

func detectBank(flat string) string {
	for _, bm := range bankMarkers {
		if bm.pattern.MatchString(flat) {
			return bm.name
		}
	}
	return unknownBank
}

func mustFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func pad2(s string) string {
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

func ptr(v float64) *float64 { return &v }
