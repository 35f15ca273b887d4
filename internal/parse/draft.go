package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/Linjx520074913/qiaoqiao/internal/entity"
)

var (
	reCurrencyGlyphs = regexp.MustCompile(`[￥¥$€]`)
	reUnitGlyphs     = regexp.MustCompile(`[×x份件个]`)
)

// FlexNumber is a numeric field as completion engines actually emit it:
// a number, a string with currency or unit glyphs ("￥26.9", "x1"), or
// null. Values that fail coercion stay unset rather than failing the
// decode.
type FlexNumber struct {
	value float64
	valid bool
}

func (n *FlexNumber) UnmarshalJSON(data []byte) error {
	n.valid = false
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	var f float64
	if err := sonic.Unmarshal(data, &f); err == nil {
		n.value, n.valid = f, true
		return nil
	}

	var s string
	if err := sonic.Unmarshal(data, &s); err != nil {
		return nil // booleans, objects: treat as absent
	}
	s = reCurrencyGlyphs.ReplaceAllString(s, "")
	s = reUnitGlyphs.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		n.value, n.valid = f, true
	}
	return nil
}

// Ptr returns the value as an optional, nil when unset.
func (n FlexNumber) Ptr() *float64 {
	if !n.valid {
		return nil
	}
	v := n.value
	return &v
}

// Set builds a present FlexNumber (deterministic extraction paths).
func Set(v float64) FlexNumber { return FlexNumber{value: v, valid: true} }

// Draft is the typed intermediate extraction record matching the invoice
// schema with every field optional. Both the generative decode and the
// deterministic rule pass produce a Draft; it is validated and filtered
// before conversion to an entity.Invoice.
type Draft struct {
	InvoiceType   *string     `json:"invoice_type"`
	InvoiceNumber *string     `json:"invoice_number"`
	InvoiceDate   *string     `json:"invoice_date"`
	SellerName    *string     `json:"seller_name"`
	BuyerName     *string     `json:"buyer_name"`
	BuyerPhone    *string     `json:"buyer_phone"`
	BuyerAddress  *string     `json:"buyer_address"`
	Subtotal      FlexNumber  `json:"subtotal"`
	TaxAmount     FlexNumber  `json:"tax_amount"`
	TotalAmount   FlexNumber  `json:"total_amount"`
	Items         []DraftItem `json:"items"`
	PaymentMethod *string     `json:"payment_method"`
	Remarks       *string     `json:"remarks"`
}

type DraftItem struct {
	Name        string     `json:"name"`
	Quantity    FlexNumber `json:"quantity"`
	UnitPrice   FlexNumber `json:"unit_price"`
	Amount      FlexNumber `json:"amount"`
	Description string     `json:"description,omitempty"`
}

// annotationKeywords mark specification lines, not goods: a "flavor" or
// "serving size" row must never become a line item.
var annotationKeywords = []string{"份量", "口味", "备注", "规格", "加料", "温度"}

func isAnnotation(name string) bool {
	for _, kw := range annotationKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// ToInvoice converts the draft to the canonical record. Annotation items
// and nameless items are dropped; a negative total never survives the
// conversion.
func (d *Draft) ToInvoice(rawText string) *entity.Invoice {
	inv := &entity.Invoice{
		InvoiceType:   deref(d.InvoiceType),
		InvoiceNumber: deref(d.InvoiceNumber),
		InvoiceDate:   deref(d.InvoiceDate),
		SellerName:    deref(d.SellerName),
		BuyerName:     deref(d.BuyerName),
		BuyerPhone:    deref(d.BuyerPhone),
		BuyerAddress:  deref(d.BuyerAddress),
		Remarks:       deref(d.Remarks),
		RawText:       rawText,
		Items:         make([]entity.LineItem, 0, len(d.Items)),
	}
	for _, it := range d.Items {
		name := strings.TrimSpace(it.Name)
		if name == "" || isAnnotation(name) {
			continue
		}
		inv.Items = append(inv.Items, entity.LineItem{
			Name:        name,
			Quantity:    it.Quantity.Ptr(),
			UnitPrice:   it.UnitPrice.Ptr(),
			Amount:      it.Amount.Ptr(),
			Description: it.Description,
		})
	}
	if t := d.TotalAmount.Ptr(); t != nil && *t >= 0 {
		inv.TotalAmount = t
	}
	return inv
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
