package entity

// LineItem is one purchased good or service on an invoice.
// Specification/annotation lines (flavor, serving size, toppings) are
// filtered out before they ever become line items.
type LineItem struct {
	Name        string   `json:"name"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Invoice is the canonical structured record produced by extraction.
// TotalAmount, when present, is the single authoritative total; it is
// non-negative by construction.
type Invoice struct {
	InvoiceType   string     `json:"invoice_type,omitempty"`
	InvoiceNumber string     `json:"invoice_number,omitempty"`
	InvoiceDate   string     `json:"invoice_date,omitempty"`
	SellerName    string     `json:"seller_name,omitempty"`
	BuyerName     string     `json:"buyer_name,omitempty"`
	BuyerPhone    string     `json:"buyer_phone,omitempty"`
	BuyerAddress  string     `json:"buyer_address,omitempty"`
	TotalAmount   *float64   `json:"total_amount,omitempty"`
	Items         []LineItem `json:"items"`
	Remarks       string     `json:"remarks,omitempty"`
	RawText       string     `json:"raw_text,omitempty"`
}

// AppendRemark appends a remark segment using the fixed " | " separator.
func (inv *Invoice) AppendRemark(remark string) {
	if remark == "" {
		return
	}
	if inv.Remarks == "" {
		inv.Remarks = remark
		return
	}
	inv.Remarks += " | " + remark
}
