package parse

import (
	"strings"

	"github.com/Linjx520074913/qiaoqiao/constants"
)

// Token budgets per prompt tier.
const (
	maxTokensStandard = 2048
	maxTokensFast     = 512
	maxTokensSummary  = 100
)

// fastPromptTemplate is the trimmed prompt: no few-shot block, but the
// extraction rules the engine gets wrong most often (total priority,
// merchant-name disambiguation, annotation lines) are spelled out.
const fastPromptTemplate = `你是账单信息提取助手。从文本中提取账单信息并输出 JSON。

要求：
1. 提取字段：invoice_type, invoice_number, invoice_date, seller_name, buyer_name, buyer_phone, buyer_address, total_amount, items
2. 对于 items，提取 name, quantity, amount
3. 金额必须是纯数字（如 16.2），不要货币符号
4. 数量必须是纯数字（如 1），不要 "x" 前缀
5. 无法确定的字段设为 null
6. total_amount 提取规则：
   - 查找"合计"、"实付"、"应付"、"总计"后面的最后一个金额（正数）
   - 负数金额是优惠，不要作为 total_amount
   - 优先级：合计 > 实付 > 应付 > 总计 > 商品总价
   - "到手"金额是优惠后价格，不要用作 total_amount
7. seller_name 提取完整的门店/商家名称
   - 提取完整名称（如：杨氏手撕烤鸭（丁头村店））
   - 不要仅提取分店名（如仅"丁头村店"不完整）
   - 不要提取：保险名称（如准时保、食安险）
   - 不要提取：平台名称（如美团、饿了么）
   - 不要提取：配送服务名称
8. items 提取规则：
   - 只提取实际商品名称和价格
   - 如果看到"份量"、"口味"、"备注"等关键词，这是商品说明，不是独立商品
   - 看到"数量×N"或"商品总价"时，前面的商品信息为一组
   - 商品 amount 是原价（商品总价），不是优惠后价格（到手价）
   - 一个商品只能有一个 amount，不要重复计算
9. invoice_type 提取订单类型（如：外卖、咖啡、发票等），不要提取金额标签
10. 必须输出有效的 JSON，不要其他文字

示例：
如果文本包含：
手撕烤鸭半只
到手￥7.87
份量，孜然辣椒
￥26.9
数量×1

应提取为：{"items": [{"name": "手撕烤鸭半只", "quantity": 1, "amount": 26.9}]}
（份量是说明，不是独立商品）

输入文本：
%s

输出 JSON：`

// summaryPromptTemplate extracts only the merchant name and the total.
const summaryPromptTemplate = `从文本提取商家名和金额，输出 JSON。

字段：
- seller_name: 商家品牌名称
- total_amount: 总金额

seller_name 规则：
1. 查找"下单时间"后面的名称（最准确的商家名）
2. 提取品牌主体，不要门店编号
3. 错误示例：
   - ✗ "南山智谷店（No.10649）" - 这只是门店位置
   - ✓ "luckincoffee小程序" - 这才是商家
   - ✗ "杨氏手撕烤鸭（丁头村店）" - 如果末尾有更准确的品牌名，优先用品牌名
   - ✓ "杨氏手撕烤鸭" - 品牌主体

total_amount 规则：
提取"实付"或"合计"后的金额（纯数字）

文本：
%s

JSON：`

const standardSystemPrompt = `你是一个专业的账单信息提取助手。你的任务是从 OCR 识别的文本中提取结构化的账单信息，并以 JSON 格式输出。

要求：
1. 仔细分析输入的文本，识别账单的类型（发票、收据、订单、流水等）
2. 提取所有可能的字段信息，包括：
   - 基本信息：账单类型、账单号、日期
   - 交易方信息：买卖双方名称、地址、电话等
   - 金额信息：小计、税额、总额
   - 明细列表：商品名称、数量、单价、金额
   - 其他：支付方式、备注等
3. 对于无法确定的字段，设置为 null，不要猜测
4. 金额数字提取为浮点数，不包含货币符号
5. 日期统一格式化为 YYYY-MM-DD
6. 必须输出有效的 JSON 格式，不要有其他解释文字`

const standardFewShot = `示例1:
输入文本：
发票号：12345678
日期：2024-01-15
购买方：张三科技有限公司
销售方：北京某某商贸
商品名称：办公桌 数量：2 单价：1500 金额：3000
商品名称：办公椅 数量：5 单价：800 金额：4000
税额：910
总计：7910元

输出JSON：
{
  "invoice_type": "发票",
  "invoice_number": "12345678",
  "invoice_date": "2024-01-15",
  "buyer_name": "张三科技有限公司",
  "seller_name": "北京某某商贸",
  "items": [
    {"name": "办公桌", "quantity": 2.0, "unit_price": 1500.0, "amount": 3000.0},
    {"name": "办公椅", "quantity": 5.0, "unit_price": 800.0, "amount": 4000.0}
  ],
  "tax_amount": 910.0,
  "total_amount": 7910.0
}

示例2:
输入文本：
淘宝订单
订单号：TB202401150001
下单时间：2024-01-15 14:30
收货人：李四
卖家：某某旗舰店
商品：无线鼠标 x1 ￥89
商品：键盘 x1 ￥299
运费：￥0
实付款：￥388

输出JSON：
{
  "invoice_type": "电商订单",
  "invoice_number": "TB202401150001",
  "invoice_date": "2024-01-15",
  "buyer_name": "李四",
  "seller_name": "某某旗舰店",
  "items": [
    {"name": "无线鼠标", "quantity": 1.0, "amount": 89.0},
    {"name": "键盘", "quantity": 1.0, "amount": 299.0}
  ],
  "total_amount": 388.0
}`

// buildPrompt interpolates the raw text into the tier's template.
func buildPrompt(tier constants.ParseMode, text string) (string, int) {
	switch tier {
	case constants.ModeStandard:
		var b strings.Builder
		b.WriteString(standardSystemPrompt)
		b.WriteString("\n\n参考以下示例：\n")
		b.WriteString(standardFewShot)
		b.WriteString("\n\n现在，请提取以下文本中的账单信息：\n\n输入文本：\n")
		b.WriteString(text)
		b.WriteString("\n\n输出JSON：")
		return b.String(), maxTokensStandard
	case constants.ModeSummary:
		return strings.Replace(summaryPromptTemplate, "%s", text, 1), maxTokensSummary
	default:
		return strings.Replace(fastPromptTemplate, "%s", text, 1), maxTokensFast
	}
}

// buildSupplementPrompt asks the engine only for the fields the rule pass
// could not fill; items are excluded when the rules already produced them.
func buildSupplementPrompt(text string, filled []string, skipItems bool) string {
	var b strings.Builder
	b.WriteString("从文本中提取账单信息并输出JSON。\n\n")
	if len(filled) > 0 {
		b.WriteString("已通过规则提取的字段：")
		b.WriteString(strings.Join(filled, ", "))
		b.WriteString("\n\n")
	}
	b.WriteString("请补充提取以下字段（如果文本中有）：\n")
	b.WriteString("- invoice_type（账单类型）\n")
	b.WriteString("- invoice_date（日期）\n")
	b.WriteString("- buyer_name（购买方/收货人）\n")
	b.WriteString("- buyer_address（地址）\n")
	if !skipItems {
		b.WriteString("- items（商品明细）\n")
	}
	b.WriteString("- remarks（备注）\n\n")
	b.WriteString("要求：\n1. 金额必须是纯数字\n2. 日期格式：YYYY-MM-DD\n3. 无法确定的字段设为null\n4. 输出有效的JSON\n\n")
	b.WriteString("输入文本：\n")
	b.WriteString(text)
	b.WriteString("\n\n输出JSON：")
	return b.String()
}
