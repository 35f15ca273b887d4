package entity

import "github.com/Linjx520074913/qiaoqiao/constants"

// ParseResult is the outcome of extracting one block (or one whole text).
// Created once, never mutated; failed results carry ErrorMessage and no
// invoice.
type ParseResult struct {
	Success      bool                `json:"success"`
	Invoice      *Invoice            `json:"invoice,omitempty"`
	Confidence   float64             `json:"confidence"`
	ParseMode    constants.ParseMode `json:"parse_mode,omitempty"`
	ErrorMessage string              `json:"error_message,omitempty"`
}

// BatchStats counts blocks by lifecycle status for one list request.
// Derived per request, never persisted.
type BatchStats struct {
	TotalOrders int `json:"total_orders"`
	Completed   int `json:"completed"`
	Cancelled   int `json:"cancelled"`
	InProgress  int `json:"in_progress"`
	Other       int `json:"other"`
}

// Count buckets one block status into the statistics.
func (s *BatchStats) Count(status constants.OrderStatus) {
	switch status {
	case constants.StatusCompleted:
		s.Completed++
	case constants.StatusCancelled:
		s.Cancelled++
	case constants.StatusInProgress, constants.StatusPendingPayment,
		constants.StatusPendingShipment, constants.StatusPendingReceipt:
		s.InProgress++
	default:
		s.Other++
	}
}

// ScanResult is the caller-facing result shape, independent of transport.
// Single documents populate Invoice/Confidence; lists populate Orders/Stats.
type ScanResult struct {
	Success    bool               `json:"success"`
	IsList     bool               `json:"is_list"`
	Invoice    *Invoice           `json:"invoice,omitempty"`
	Confidence float64            `json:"confidence,omitempty"`
	Orders     []ParseResult      `json:"orders,omitempty"`
	Stats      *BatchStats        `json:"stats,omitempty"`
	BillType   constants.BillType `json:"bill_type,omitempty"`
	Error      string             `json:"error,omitempty"`
}
