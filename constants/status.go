package constants

// OrderStatus is the canonical lifecycle status for a segmented block.
type OrderStatus string

// Stable values (these exact strings appear in responses and statistics).
const (
	StatusCompleted       OrderStatus = "completed"
	StatusCancelled       OrderStatus = "cancelled"
	StatusInProgress      OrderStatus = "in_progress"
	StatusPendingPayment  OrderStatus = "pending_payment"
	StatusPendingShipment OrderStatus = "pending_shipment"
	StatusPendingReceipt  OrderStatus = "pending_receipt"
	StatusUnknown         OrderStatus = "unknown"
)

// StatusKeyword pairs a source-text status label with its canonical status.
type StatusKeyword struct {
	Keyword string
	Status  OrderStatus
}

// StatusKeywords is the closed vocabulary of lifecycle-status labels as they
// appear in order-list screenshots. Declaration order is the match order.
var StatusKeywords = []StatusKeyword{
	{"已完成", StatusCompleted},
	{"已取消", StatusCancelled},
	{"进行中", StatusInProgress},
	{"待支付", StatusPendingPayment},
	{"待发货", StatusPendingShipment},
	{"待收货", StatusPendingReceipt},
}

// StatusFor maps a source-text status label to its canonical status.
func StatusFor(keyword string) OrderStatus {
	for _, sk := range StatusKeywords {
		if sk.Keyword == keyword {
			return sk.Status
		}
	}
	return StatusUnknown
}
