package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Linjx520074913/qiaoqiao/internal/entity"
)

var (
	rePaidAmount    = regexp.MustCompile(`实付[：:\s]*[￥¥]?([\d.]+)`)
	rePayableAmount = regexp.MustCompile(`应付[：:\s]*[￥¥]?([\d.]+)`)
	reMarkedAmount  = regexp.MustCompile(`[¥￥]([\d.]+)`)

	// qualifiers that turn a 合计 section into a discount subtotal
	discountQualifiers = []string{"优惠", "优惠券", "优惠减免"}
)

// reconcileTotal re-derives the authoritative total from the source text.
// Amount-bearing phrases are tried in priority order: 实付 beats 应付 beats
// an unqualified 合计 section; a 合计 directly preceded by a discount
// qualifier is skipped so a discount subtotal never becomes the payable
// amount. A positive amount found this way overrides the engine's total
// unconditionally. When the text yields nothing and the engine total is
// absent or non-positive, the positive sum of line-item amounts is the
// last resort.
func reconcileTotal(engineTotal *float64, items []entity.LineItem, rawText string) *float64 {
	for _, re := range []*regexp.Regexp{rePaidAmount, rePayableAmount} {
		if matches := re.FindAllStringSubmatch(rawText, -1); len(matches) > 0 {
			if v, err := strconv.ParseFloat(matches[len(matches)-1][1], 64); err == nil && v > 0 {
				return &v
			}
		}
	}

	if v, ok := totalSectionAmount(rawText); ok && v > 0 {
		return &v
	}

	if engineTotal != nil && *engineTotal > 0 {
		return engineTotal
	}

	var sum float64
	for _, it := range items {
		if it.Amount != nil {
			sum += *it.Amount
		}
	}
	if sum > 0 {
		return &sum
	}
	return nil
}

// totalSectionAmount finds the first 合计 not preceded by a discount
// qualifier and returns the last currency-marked amount on that line or
// the next one.
func totalSectionAmount(text string) (float64, bool) {
	offset := 0
	for {
		idx := strings.Index(text[offset:], "合计")
		if idx < 0 {
			return 0, false
		}
		idx += offset
		if precededByQualifier(text, idx) {
			offset = idx + len("合计")
			continue
		}

		section := text[idx:]
		if nl := strings.IndexByte(section, '\n'); nl >= 0 {
			if nl2 := strings.IndexByte(section[nl+1:], '\n'); nl2 >= 0 {
				section = section[:nl+1+nl2]
			}
		}
		matches := reMarkedAmount.FindAllStringSubmatch(section, -1)
		if len(matches) == 0 {
			return 0, false
		}
		v, err := strconv.ParseFloat(matches[len(matches)-1][1], 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
}

func precededByQualifier(text string, idx int) bool {
	for _, q := range discountQualifiers {
		if idx >= len(q) && strings.HasSuffix(text[:idx], q) {
			return true
		}
	}
	return false
}
