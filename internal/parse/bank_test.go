package parse

import (
	"strings"
	"testing"
	"time"

	"github.com/Linjx520074913/qiaoqiao/constants"
)

func fixedClock(t *testing.T) func() time.Time {
	t.Helper()
	now := time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return now }
}

func TestBankParserWithdraw(t *testing.T) {
	p := NewBankParser(nil)
	p.now = fixedClock(t)

	text := "【中国银行】您的借记卡账户1234于03月05日支取人民币100.00元，交易后余额900.00元。"
	result := p.Parse(text)

	if !result.Success {
		t.Fatalf("Parse() failed: %s", result.ErrorMessage)
	}
	if result.Confidence != 0.95 {
		t.Errorf("confidence = %.2f, want 0.95", result.Confidence)
	}
	if result.ParseMode != constants.ModeBank {
		t.Errorf("parse mode = %q, want bank", result.ParseMode)
	}

	inv := result.Invoice
	if inv.SellerName != "中国银行" {
		t.Errorf("seller = %q, want 中国银行", inv.SellerName)
	}
	if inv.InvoiceNumber != "中国银行-1234" {
		t.Errorf("invoice number = %q, want 中国银行-1234", inv.InvoiceNumber)
	}
	if inv.BuyerName != "账户 1234" {
		t.Errorf("buyer = %q, want 账户 1234", inv.BuyerName)
	}
	if inv.InvoiceDate != "2026-03-05" {
		t.Errorf("date = %q, want 2026-03-05", inv.InvoiceDate)
	}
	if inv.TotalAmount == nil || *inv.TotalAmount != 100.0 {
		t.Errorf("total = %v, want 100.0", inv.TotalAmount)
	}
	if len(inv.Items) != 1 || inv.Items[0].Name != "支出" {
		t.Fatalf("items = %+v, want one 支出 item", inv.Items)
	}
	if inv.Items[0].Amount == nil || *inv.Items[0].Amount != 100.0 {
		t.Errorf("item amount = %v, want 100.0", inv.Items[0].Amount)
	}
	if !strings.Contains(inv.Remarks, "900.00") {
		t.Errorf("remarks = %q, want balance 900.00", inv.Remarks)
	}
	if inv.RawText != text {
		t.Error("raw text not preserved")
	}
}

func TestBankParserIncome(t *testing.T) {
	p := NewBankParser(nil)
	p.now = fixedClock(t)

	result := p.Parse("【建设银行】您的借记卡账户5678于12月09日收入人民币5000.00元，交易后余额15000.00元。")
	if !result.Success {
		t.Fatalf("Parse() failed: %s", result.ErrorMessage)
	}
	inv := result.Invoice
	if inv.SellerName != "建设银行" {
		t.Errorf("seller = %q, want 建设银行", inv.SellerName)
	}
	if len(inv.Items) != 1 || inv.Items[0].Name != "收入" {
		t.Fatalf("items = %+v, want one 收入 item", inv.Items)
	}
	if inv.TotalAmount == nil || *inv.TotalAmount != 5000.0 {
		t.Errorf("total = %v, want 5000.0", inv.TotalAmount)
	}
	if inv.InvoiceDate != "2026-12-09" {
		t.Errorf("date = %q, want 2026-12-09", inv.InvoiceDate)
	}
}

func TestBankParserOnlinePaymentWithdraw(t *testing.T) {
	p := NewBankParser(nil)
	p.now = fixedClock(t)

	// the generic withdraw verb also covers the online-payment form
	result := p.Parse("【工商银行】您的借记卡账户9876于06月15日网上支付支取人民币68.50元，交易后余额431.50元。")
	if !result.Success {
		t.Fatalf("Parse() failed: %s", result.ErrorMessage)
	}
	if len(result.Invoice.Items) != 1 || result.Invoice.Items[0].Name != "支出" {
		t.Fatalf("items = %+v, want one 支出 item", result.Invoice.Items)
	}
	if result.Invoice.TotalAmount == nil || *result.Invoice.TotalAmount != 68.50 {
		t.Errorf("total = %v, want 68.50", result.Invoice.TotalAmount)
	}
}

func TestBankParserUnknownBank(t *testing.T) {
	p := NewBankParser(nil)
	p.now = fixedClock(t)

	result := p.Parse("您的借记卡账户1111于01月01日支取人民币10.00元，交易后余额90.00元。")
	if !result.Success {
		t.Fatalf("Parse() failed: %s", result.ErrorMessage)
	}
	if result.Invoice.SellerName != "未知银行" {
		t.Errorf("seller = %q, want 未知银行", result.Invoice.SellerName)
	}
}

func TestBankParserNoTransaction(t *testing.T) {
	p := NewBankParser(nil)

	result := p.Parse("【中国银行】您的借记卡账户1234状态正常。")
	if result.Success {
		t.Fatal("Parse() succeeded, want failure without a transaction")
	}
	if result.Invoice != nil {
		t.Error("failed result carries a partial invoice")
	}
	if result.ErrorMessage == "" {
		t.Error("failed result has no error message")
	}
}

func TestBankParserJoinsWrappedLines(t *testing.T) {
	p := NewBankParser(nil)
	p.now = fixedClock(t)

	// OCR wraps the SMS mid-pattern; stripping newlines must restore it
	text := "【中国银行】您的借记卡账户1234于03月05日\n支取人民币100.00\n元，交易后余额900.00元。"
	result := p.Parse(text)
	if !result.Success {
		t.Fatalf("Parse() failed: %s", result.ErrorMessage)
	}
	if result.Invoice.TotalAmount == nil || *result.Invoice.TotalAmount != 100.0 {
		t.Errorf("total = %v, want 100.0", result.Invoice.TotalAmount)
	}
}
