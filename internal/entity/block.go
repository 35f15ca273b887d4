package entity

import "github.com/Linjx520074913/qiaoqiao/constants"

// Block is one segmented logical transaction cut out of a larger OCR text.
// Blocks are immutable once created; Status is read-only metadata that the
// pipeline copies into the final invoice's remarks.
type Block struct {
	Text      string                `json:"text"`
	StartLine int                   `json:"start_line"`
	EndLine   int                   `json:"end_line"`
	Status    constants.OrderStatus `json:"status"`
	// StatusLabel is the raw status keyword as rendered in the source UI
	// (e.g. "已完成"); empty when no status line was seen.
	StatusLabel string `json:"status_label,omitempty"`
}
