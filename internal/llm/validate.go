package llm

import (
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	invoiceSchemaOnce sync.Once
	invoiceSchema     *jsonschema.Schema
	invoiceSchemaErr  error
)

// ValidateInvoiceJSON checks a recovered completion document against the
// invoice schema. Validation is advisory for the generative path: the
// caller logs a failure and keeps going, mirroring the tolerant posture
// the draft layer already has toward malformed optionals.
func ValidateInvoiceJSON(doc string) error {
	invoiceSchemaOnce.Do(func() {
		raw, err := sonic.MarshalString(BuildInvoiceJSONSchema())
		if err != nil {
			invoiceSchemaErr = fmt.Errorf("marshal invoice schema: %w", err)
			return
		}
		invoiceSchema, invoiceSchemaErr = jsonschema.CompileString("invoice.json", raw)
	})
	if invoiceSchemaErr != nil {
		return invoiceSchemaErr
	}

	var v any
	if err := sonic.UnmarshalString(doc, &v); err != nil {
		return fmt.Errorf("decode for validation: %w", err)
	}
	return invoiceSchema.Validate(v)
}
