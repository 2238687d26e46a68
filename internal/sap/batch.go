package sap

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceLine is a single invoice document line.
type InvoiceLine struct {
	ItemCode        string          `json:"ItemCode,omitempty"`
	ItemDescription string          `json:"ItemDescription,omitempty"`
	Quantity        decimal.Decimal `json:"Quantity"`
	UnitPrice       decimal.Decimal `json:"UnitPrice"`
}

// InvoiceDocument is the invoice-create payload.
type InvoiceDocument struct {
	CardCode      string          `json:"CardCode"`
	DocCurrency   string          `json:"DocCurrency,omitempty"`
	DocRate       decimal.Decimal `json:"DocRate"`
	Comments      string          `json:"Comments,omitempty"`
	LeadRef       string          `json:"U_LeadRef"`
	DocumentLines []InvoiceLine   `json:"DocumentLines"`
}

// PaymentInvoice links an incoming payment to the invoice it settles.
// DocEntry holds a placeholder during construction; the real value does
// not exist until the changeset commits, so it is replaced with the
// intra-changeset reference at serialization time.
type PaymentInvoice struct {
	DocEntry    string          `json:"DocEntry"`
	SumApplied  decimal.Decimal `json:"SumApplied"`
	InvoiceType string          `json:"InvoiceType"`
}

// IncomingPayment is the payment-create payload.
type IncomingPayment struct {
	CardCode        string           `json:"CardCode"`
	DocCurrency     string           `json:"DocCurrency,omitempty"`
	DocRate         decimal.Decimal  `json:"DocRate"`
	CashAccount     string           `json:"CashAccount"`
	CashSum         decimal.Decimal  `json:"CashSum"`
	PaymentInvoices []PaymentInvoice `json:"PaymentInvoices"`
}

// invoiceEntryPlaceholder marks the payment field that must become the
// changeset back-reference to the invoice operation.
const invoiceEntryPlaceholder = "@invoice-entry@"

// invoiceContentRef is the Service Layer's native reference to the
// entity created by the operation with Content-ID 1.
const invoiceContentRef = "$1"

// BatchRequest is a rendered $batch body.
type BatchRequest struct {
	Boundary   string
	Body       []byte
	Operations int
}

// NewPaymentInvoice builds the invoice link for a payment operation,
// pointing at the invoice created earlier in the same changeset.
func NewPaymentInvoice(amount decimal.Decimal) PaymentInvoice {
	return PaymentInvoice{
		DocEntry:    invoiceEntryPlaceholder,
		SumApplied:  amount,
		InvoiceType: "it_Invoice",
	}
}

// BuildBatch renders one invoice-create plus the payment-create
// operations into a single atomic changeset. The invoice carries
// Content-ID 1; payments carry 2..N+1 in input order and reference the
// invoice via the changeset back-reference. The changeset is the
// atomicity boundary: the Service Layer commits all operations or none,
// which is what closes off the invoice-created-payment-failed half-state.
func BuildBatch(invoice InvoiceDocument, payments []IncomingPayment) (*BatchRequest, error) {
	batchBoundary := "batch_" + uuid.NewString()
	changesetBoundary := "changeset_" + uuid.NewString()

	var buf bytes.Buffer
	writeLine(&buf, "--"+batchBoundary)
	writeLine(&buf, "Content-Type: multipart/mixed; boundary="+changesetBoundary)
	writeLine(&buf, "")

	invoiceBody, err := json.Marshal(invoice)
	if err != nil {
		return nil, fmt.Errorf("failed to encode invoice: %w", err)
	}
	writeOperation(&buf, changesetBoundary, 1, "Invoices", invoiceBody)

	for i, payment := range payments {
		paymentBody, err := json.Marshal(payment)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payment %d: %w", i+1, err)
		}
		paymentBody = bytes.Replace(paymentBody,
			[]byte(`"`+invoiceEntryPlaceholder+`"`),
			[]byte(`"`+invoiceContentRef+`"`), 1)
		writeOperation(&buf, changesetBoundary, i+2, "IncomingPayments", paymentBody)
	}

	writeLine(&buf, "--"+changesetBoundary+"--")
	writeLine(&buf, "--"+batchBoundary+"--")

	return &BatchRequest{
		Boundary:   batchBoundary,
		Body:       buf.Bytes(),
		Operations: len(payments) + 1,
	}, nil
}

// writeOperation renders one embedded HTTP request inside the changeset.
// The Service Layer is sensitive to blank-line placement between the
// part headers, the embedded request line, and the body.
func writeOperation(buf *bytes.Buffer, boundary string, contentID int, resource string, body []byte) {
	writeLine(buf, "--"+boundary)
	writeLine(buf, "Content-Type: application/http")
	writeLine(buf, "Content-Transfer-Encoding: binary")
	writeLine(buf, fmt.Sprintf("Content-ID: %d", contentID))
	writeLine(buf, "")
	writeLine(buf, fmt.Sprintf("POST %s HTTP/1.1", resource))
	writeLine(buf, "Content-Type: application/json")
	writeLine(buf, "")
	buf.Write(body)
	writeLine(buf, "")
}

func writeLine(buf *bytes.Buffer, line string) {
	buf.WriteString(line)
	buf.WriteString("\r\n")
}
