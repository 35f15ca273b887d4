package constants

// BillType is the document category detected from OCR text.
type BillType string

const (
	BankStatement  BillType = "bank_statement"
	FoodDelivery   BillType = "food_delivery"
	EcommerceOrder BillType = "ecommerce_order"
	VATInvoice     BillType = "vat_invoice"
	Receipt        BillType = "receipt"
	Unknown        BillType = "unknown"
)

// ParseMode is the extraction strategy applied to a document or block.
type ParseMode string

const (
	ModeStandard ParseMode = "standard" // full generative prompt with few-shot examples
	ModeFast     ParseMode = "fast"     // trimmed generative prompt
	ModeSummary  ParseMode = "summary"  // seller name + total only
	ModeHybrid   ParseMode = "hybrid"   // rules first, generative fill-in
	ModeBank     ParseMode = "bank"     // deterministic pattern extraction only
)

// typeToMode maps a detected bill type to its extraction strategy.
// The mapping is fixed; a strategy is never stored apart from its type.
var typeToMode = map[BillType]ParseMode{
	BankStatement:  ModeHybrid,
	FoodDelivery:   ModeFast,
	EcommerceOrder: ModeFast,
	VATInvoice:     ModeStandard,
	Receipt:        ModeFast,
	Unknown:        ModeFast,
}

// ModeFor returns the extraction strategy for a bill type.
func ModeFor(t BillType) ParseMode {
	if m, ok := typeToMode[t]; ok {
		return m
	}
	return ModeFast
}

// DisplayName renders a bill type as a human-facing invoice type label,
// e.g. "bank_statement" -> "Bank Statement".
func (t BillType) DisplayName() string {
	switch t {
	case BankStatement:
		return "Bank Statement"
	case FoodDelivery:
		return "Food Delivery"
	case EcommerceOrder:
		return "Ecommerce Order"
	case VATInvoice:
		return "Vat Invoice"
	case Receipt:
		return "Receipt"
	default:
		return "Unknown"
	}
}
