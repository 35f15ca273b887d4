package classify

import (
	"regexp"
	"strings"

	"github.com/Linjx520074913/qiaoqiao/constants"
)

// BankHeaders are the bracketed bank-name markers that open each bank SMS.
var BankHeaders = []string{"【中国银行】", "【建设银行】", "【工商银行】", "【农业银行】"}

var (
	reItemsMarker = regexp.MustCompile(`共\d+件`)

	// two structurally distinct transaction shapes
	reTransVerb    = regexp.MustCompile(`于\d{1,2}月\d{1,2}日.*?(支取|收入).*?人民币.*?元`)
	reTransBalance = regexp.MustCompile(`交易后余额[\d.]+`)
)

// BankHeaderCount counts bank-SMS header markers in the text.
func BankHeaderCount(text string) int {
	n := 0
	for _, h := range BankHeaders {
		n += strings.Count(text, h)
	}
	return n
}

// IsOrderList scores the text for "contains multiple documents" using
// independent indicator counters. It requires at least two distinct
// indicator families before calling the text a list, so one repeated UI
// string cannot trigger segmentation on its own; a heavy reorder-affordance
// count or repeated bank headers are each strong enough alone.
func IsOrderList(text string) (bool, float64) {
	score := 0
	indicators := 0

	if strings.Contains(text, "我的订单") || strings.Contains(text, "订单列表") {
		score += 3
		indicators++
	}

	reorderCount := strings.Count(text, "再来一单")
	if reorderCount >= 2 {
		score += reorderCount * 2
		indicators++
	}

	statusCount := 0
	for _, sk := range constants.StatusKeywords {
		statusCount += strings.Count(text, sk.Keyword)
	}
	if statusCount >= 2 {
		score += statusCount
		indicators++
	}

	restaurantCount := strings.Count(text, "餐厅>")
	if restaurantCount >= 2 {
		score += restaurantCount * 2
		indicators++
	}

	itemsCount := len(reItemsMarker.FindAllString(text, -1))
	if itemsCount >= 2 {
		score += itemsCount
		indicators++
	}

	bankCount := BankHeaderCount(text)
	if bankCount >= 2 {
		score += bankCount * 2
		indicators++
	}

	transCount := len(reTransVerb.FindAllString(text, -1)) + len(reTransBalance.FindAllString(text, -1))
	if transCount >= 4 { // at least two transactions, two matches each
		score += transCount
		indicators++
	}

	if indicators == 0 {
		return false, 0
	}

	isList := indicators >= 2 || reorderCount >= 3 || bankCount >= 2
	confidence := float64(score) / 10.0
	if confidence > 1 {
		confidence = 1
	}
	return isList, confidence
}
