package llm

// BuildInvoiceJSONSchema returns the invoice JSON-Schema as a generic map.
// It is deliberately permissive about nulls: completion engines emit null
// for unknown fields and the draft layer drops them afterwards.
func BuildInvoiceJSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"invoice_type":   nullable("string"),
			"invoice_number": nullable("string"),
			"invoice_date":   nullable("string"),
			"seller_name":    nullable("string"),
			"buyer_name":     nullable("string"),
			"buyer_phone":    nullable("string"),
			"buyer_address":  nullable("string"),
			"subtotal":       nullableNumeric(),
			"tax_amount":     nullableNumeric(),
			"total_amount":   nullableNumeric(),
			"items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":        map[string]any{"type": "string"},
						"quantity":    nullableNumeric(),
						"unit_price":  nullableNumeric(),
						"amount":      nullableNumeric(),
						"description": nullable("string"),
					},
					"required": []any{"name"},
				},
			},
			"payment_method": nullable("string"),
			"remarks":        nullable("string"),
		},
	}
}

func nullable(t string) map[string]any {
	return map[string]any{"type": []any{t, "null"}}
}

// nullableNumeric also admits strings: engines regularly emit amounts like
// "￥26.9", which the draft layer coerces.
func nullableNumeric() map[string]any {
	return map[string]any{"type": []any{"number", "string", "null"}}
}
