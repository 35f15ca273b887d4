package classify

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/Linjx520074913/qiaoqiao/constants"
)

// rule is one bill type's detection rule set. A keyword scores 1 when it
// appears in the text, a pattern scores 2 when it matches; the sum is then
// multiplied by the rule weight.
type rule struct {
	billType constants.BillType
	keywords []string
	patterns []*regexp.Regexp
	weight   float64
}

// rules is evaluated in declaration order; on a score tie the earlier rule
// wins, which keeps classification reproducible.
var rules = []rule{
	{
		billType: constants.BankStatement,
		keywords: []string{"银行", "借记卡", "账户", "支取", "收入", "交易后余额", "转账"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`于\d{1,2}月\d{1,2}日.*?(支取|收入)人民币`),
			regexp.MustCompile(`交易后余额[\d.]+`),
			regexp.MustCompile(`账户\d{4,8}`),
		},
		weight: 3,
	},
	{
		billType: constants.FoodDelivery,
		keywords: []string{
			// delivery platforms
			"美团", "饿了么", "外卖", "配送", "骑手", "送达", "麦乐送",
			// restaurant brands
			"麦当劳", "肯德基", "星巴克", "必胜客", "汉堡王", "德克士",
			"瑞幸咖啡", "喜茶", "奈雪", "海底捞", "西贝",
			// order features
			"到店取餐", "堂食", "自取", "外送", "打包",
			"再来一单", "口味", "备注", "餐具",
		},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`预计\d{2}:\d{2}.*?送达`),
			regexp.MustCompile(`配送费`),
			regexp.MustCompile(`到店取餐`),
			regexp.MustCompile(`外送|外卖`),
			regexp.MustCompile(`再来一单`),
			regexp.MustCompile(`餐厅>`),
			regexp.MustCompile(`(已完成|已取消|进行中).*?共\d+件`),
		},
		weight: 2,
	},
	{
		billType: constants.EcommerceOrder,
		keywords: []string{
			"淘宝", "京东", "拼多多", "天猫", "唯品会", "苏宁",
			"订单号", "收货人", "快递", "物流", "订单详情",
			"下单时间", "店铺", "发货", "签收",
			"我的订单", "待收货", "待评价",
		},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`订单号[：:]\s*[A-Z0-9]{10,}`),
			regexp.MustCompile(`实付[金额款]?[：:]\s*[¥￥]?[\d.]+`),
			regexp.MustCompile(`我的订单`),
			regexp.MustCompile(`订单详情`),
			regexp.MustCompile(`收货地址`),
		},
		weight: 2,
	},
	{
		billType: constants.VATInvoice,
		keywords: []string{"增值税", "专用发票", "普通发票", "发票代码", "纳税人识别号", "开票日期"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`发票[代号码]{1,2}[：:]\s*\d{8,}`),
			regexp.MustCompile(`纳税人识别号`),
			regexp.MustCompile(`价税合计`),
		},
		weight: 3,
	},
	{
		billType: constants.Receipt,
		keywords: []string{"收据", "收款", "经手人", "付款人"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`收据`),
			regexp.MustCompile(`[收付]款[人单位]`),
		},
		weight: 1,
	},
}

// Classifier scores raw OCR text against the fixed rule table and picks a
// bill type plus the recommended extraction strategy. It never fails;
// absence of signal yields constants.Unknown with confidence 0.
type Classifier struct {
	logger *slog.Logger
}

func NewClassifier(logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{logger: logger}
}

// Detect returns the best-scoring bill type and a normalized confidence.
func (c *Classifier) Detect(text string) (constants.BillType, float64) {
	var (
		best      constants.BillType
		bestScore float64
		total     float64
	)
	for _, r := range rules {
		var score float64
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				score += 1.0
			}
		}
		for _, p := range r.patterns {
			if p.MatchString(text) {
				score += 2.0
			}
		}
		score *= r.weight

		total += score
		if score > bestScore {
			best = r.billType
			bestScore = score
		}
	}

	if bestScore == 0 {
		return constants.Unknown, 0
	}
	confidence := bestScore / total
	c.logger.Debug("classify.detect", "bill_type", best, "confidence", confidence)
	return best, confidence
}

// DetectTypeOnly reports the detected type, confidence and recommended
// strategy without extracting anything.
func (c *Classifier) DetectTypeOnly(text string) (constants.BillType, float64, constants.ParseMode) {
	t, conf := c.Detect(text)
	return t, conf, constants.ModeFor(t)
}
