package ocr

import (
	"regexp"
	"strings"
)

// uiChrome lists UI labels that OCR picks up from app screenshots but that
// carry no transaction information. Lines matching one of these exactly are
// dropped.
var uiChrome = map[string]struct{}{
	// buttons and links
	"收藏": {}, "分享": {}, "删除": {}, "编辑": {}, "复制": {}, "保存": {},
	"联系客服": {}, "客服": {}, "在线客服": {}, "咨询": {},
	"开发票": {}, "发票助手": {}, "查看发票": {},
	"再来一单": {}, "再次购买": {}, "立即购买": {},
	"去支付": {}, "立即支付": {}, "确认支付": {},
	"查看详情": {}, "订单详情": {}, "查看更多": {}, "展开": {}, "收起": {},
	"点击收起": {}, "点击展开": {},
	// navigation
	"返回": {}, "< 返回": {}, "首页": {}, "我的": {},
	">": {}, "<": {}, "»": {}, "«": {},
	// notices and marketing
	"温馨提示": {}, "小贴士": {}, "注意事项": {},
	"已读": {}, "未读": {},
	"立即领取": {}, "马上抢": {}, "限时优惠": {},
	"新人专享": {}, "会员专享": {},
	"...": {}, "···": {},
}

var (
	reArrowNote = regexp.MustCompile(`\s*[←→↑↓]\s*.*$`)

	// single letters, lone symbols, single CJK characters
	reMeaningless = []*regexp.Regexp{
		regexp.MustCompile(`^[a-zA-Z]{1,2}$`),
		regexp.MustCompile(`^[><!@#$%^&*()_+=\-]{1,3}$`),
		regexp.MustCompile(`^[\p{Han}]{1}$`),
	}

	// clock times, pickup codes, bare abbreviations, bare small numbers
	reIrrelevant = []*regexp.Regexp{
		regexp.MustCompile(`^\d{1,2}:\d{2}$`),
		regexp.MustCompile(`^取餐码\d+$`),
		regexp.MustCompile(`^[A-Z]{2,3}$`),
		regexp.MustCompile(`^\d{1,2}$`),
	}

	reMultiBlank = regexp.MustCompile(`\n{3,}`)

	reItemDetail = regexp.MustCompile(`^\d+[×x]`)
	reQuantity   = regexp.MustCompile(`^\d+[份个件]$`)
	reBareNumber = regexp.MustCompile(`^\d+\.?\d*$`)
)

// Cleaner strips UI chrome from OCR text and can optionally merge split
// item fragments into single logical lines.
type Cleaner struct {
	FormatText bool
}

// Clean removes UI chrome, annotation arrows, and meaningless fragments.
func (c Cleaner) Clean(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = reArrowNote.ReplaceAllString(line, "")
		if _, ok := uiChrome[line]; ok {
			continue
		}
		if matchesAny(reMeaningless, line) || matchesAny(reIrrelevant, line) {
			continue
		}
		kept = append(kept, line)
	}
	out := strings.Join(kept, "\n")
	out = reMultiBlank.ReplaceAllString(out, "\n\n")
	if c.FormatText {
		out = mergeItemLines(out)
	}
	return strings.TrimSpace(out)
}

func matchesAny(res []*regexp.Regexp, line string) bool {
	for _, re := range res {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// mergeItemLines joins an item name with the quantity and amount lines that
// OCR split off it, e.g.
//
//	原味板烧鸡腿麦满分组合
//	1份
//	￥17
//
// becomes "原味板烧鸡腿麦满分组合 1份 ￥17".
func mergeItemLines(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if len([]rune(line)) <= 4 || strings.Contains(line, "￥") || reItemDetail.MatchString(line) {
			out = append(out, line)
			i++
			continue
		}

		merged := line
		j := i + 1
		quantityFound, amountFound := false, false
		for j < min(i+5, len(lines)) && (!quantityFound || !amountFound) {
			next := strings.TrimSpace(lines[j])

			// skip composition lines like "1×小杯鲜萃咖啡"
			if reItemDetail.MatchString(next) && len([]rune(next)) > 4 {
				j++
				continue
			}
			if !quantityFound && reQuantity.MatchString(next) {
				merged += " " + next
				quantityFound = true
				j++
				continue
			}
			if !amountFound && (strings.HasPrefix(next, "￥") ||
				(reBareNumber.MatchString(next) && len(next) <= 6 && strings.Contains(next, "."))) {
				merged += " " + next
				amountFound = true
				j++
				continue
			}
			// a longer line or a money-section label starts something new
			if len([]rune(next)) > 4 || isSectionLabel(next) {
				break
			}
			j++
		}
		out = append(out, merged)
		i = j
	}
	return strings.Join(out, "\n")
}

func isSectionLabel(line string) bool {
	switch line {
	case "商品小计", "合计", "总计", "实付", "应付":
		return true
	}
	return false
}
