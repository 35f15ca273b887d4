package classify

import (
	"testing"

	"github.com/Linjx520074913/qiaoqiao/constants"
)

func TestDetect(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		name string
		text string
		want constants.BillType
	}{
		{
			name: "bank sms",
			text: "【中国银行】您的借记卡账户1234于03月05日支取人民币100.00元，交易后余额900.00元。",
			want: constants.BankStatement,
		},
		{
			name: "food delivery",
			text: "麦当劳（人民路店）\n到店取餐\n原味板烧鸡腿麦满分\n配送费¥0\n再来一单",
			want: constants.FoodDelivery,
		},
		{
			name: "ecommerce order",
			text: "我的订单\n订单详情\n订单号: TB2024112312345\n收货地址 某某小区\n快递已发货",
			want: constants.EcommerceOrder,
		},
		{
			name: "vat invoice",
			text: "增值税专用发票\n发票代码: 14403220911\n纳税人识别号 91440300MA5G\n价税合计 ￥388.00",
			want: constants.VATInvoice,
		},
		{
			name: "receipt",
			text: "收据\n今收到 张三 货款 伍佰元整\n经手人：李四",
			want: constants.Receipt,
		},
		{
			name: "no signal",
			text: "今天天气不错",
			want: constants.Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, conf := c.Detect(tt.text)
			if got != tt.want {
				t.Fatalf("Detect() type = %q, want %q (conf %.2f)", got, tt.want, conf)
			}
			if tt.want == constants.Unknown && conf != 0 {
				t.Errorf("Detect() confidence = %.2f, want 0 for unknown", conf)
			}
			if tt.want != constants.Unknown && (conf <= 0 || conf > 1) {
				t.Errorf("Detect() confidence = %.2f, want in (0, 1]", conf)
			}
		})
	}
}

func TestDetectDeterministic(t *testing.T) {
	c := NewClassifier(nil)
	text := "【建设银行】账户5678支取人民币50.00元 我的订单"

	firstType, firstConf := c.Detect(text)
	for i := 0; i < 10; i++ {
		gotType, gotConf := c.Detect(text)
		if gotType != firstType || gotConf != firstConf {
			t.Fatalf("run %d: Detect() = (%q, %.4f), want (%q, %.4f)", i, gotType, gotConf, firstType, firstConf)
		}
	}
}

func TestDetectEmptyText(t *testing.T) {
	c := NewClassifier(nil)
	got, conf := c.Detect("")
	if got != constants.Unknown || conf != 0 {
		t.Fatalf("Detect(\"\") = (%q, %.2f), want (unknown, 0)", got, conf)
	}
}

func TestDetectTypeOnly(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		text     string
		wantType constants.BillType
		wantMode constants.ParseMode
	}{
		{"【工商银行】账户9876于01月02日收入人民币200.00元，交易后余额1200.00元", constants.BankStatement, constants.ModeHybrid},
		{"增值税专用发票 纳税人识别号 价税合计", constants.VATInvoice, constants.ModeStandard},
		{"美团外卖 配送费 骑手已送达", constants.FoodDelivery, constants.ModeFast},
		{"无关文本", constants.Unknown, constants.ModeFast},
	}
	for _, tt := range tests {
		gotType, _, gotMode := c.DetectTypeOnly(tt.text)
		if gotType != tt.wantType || gotMode != tt.wantMode {
			t.Errorf("DetectTypeOnly(%q) = (%q, %q), want (%q, %q)",
				tt.text, gotType, gotMode, tt.wantType, tt.wantMode)
		}
	}
}
