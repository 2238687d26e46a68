package sap

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInvoice() InvoiceDocument {
	return InvoiceDocument{
		CardCode: "C001",
		DocRate:  decimal.NewFromInt(1),
		LeadRef:  "lead-42",
		DocumentLines: []InvoiceLine{
			{ItemDescription: "Course package", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1200000)},
		},
	}
}

func testPayment(account string, amount int64) IncomingPayment {
	sum := decimal.NewFromInt(amount)
	return IncomingPayment{
		CardCode:        "C001",
		DocRate:         decimal.NewFromInt(1),
		CashAccount:     account,
		CashSum:         sum,
		PaymentInvoices: []PaymentInvoice{NewPaymentInvoice(sum)},
	}
}

func TestBuildBatchOperationLayout(t *testing.T) {
	payments := []IncomingPayment{
		testPayment("5010", 700000),
		testPayment("5020", 500000),
	}

	batch, err := BuildBatch(testInvoice(), payments)
	require.NoError(t, err)

	body := string(batch.Body)

	assert.Equal(t, 3, batch.Operations)
	assert.Equal(t, 3, strings.Count(body, "Content-Type: application/http"))
	for id := 1; id <= 3; id++ {
		assert.Contains(t, body, fmt.Sprintf("Content-ID: %d\r\n", id))
	}
	assert.NotContains(t, body, fmt.Sprintf("Content-ID: %d", 4))

	assert.Equal(t, 1, strings.Count(body, "POST Invoices HTTP/1.1"))
	assert.Equal(t, 2, strings.Count(body, "POST IncomingPayments HTTP/1.1"))

	// payments reference the invoice operation, never the placeholder
	assert.Equal(t, 2, strings.Count(body, `"DocEntry":"$1"`))
	assert.NotContains(t, body, invoiceEntryPlaceholder)

	// outer boundary wraps exactly one changeset
	assert.Contains(t, body, "--"+batch.Boundary+"\r\n")
	assert.Contains(t, body, "--"+batch.Boundary+"--\r\n")
	assert.Equal(t, 1, strings.Count(body, "Content-Type: multipart/mixed; boundary=changeset_"))
}

func TestBuildBatchNoPayments(t *testing.T) {
	batch, err := BuildBatch(testInvoice(), nil)
	require.NoError(t, err)

	body := string(batch.Body)
	assert.Equal(t, 1, batch.Operations)
	assert.Contains(t, body, "Content-ID: 1\r\n")
	assert.NotContains(t, body, "IncomingPayments")
}

func TestBuildBatchBlankLinePlacement(t *testing.T) {
	batch, err := BuildBatch(testInvoice(), []IncomingPayment{testPayment("5710", 100)})
	require.NoError(t, err)

	body := string(batch.Body)

	// the protocol requires an empty line between the part headers and
	// the embedded request, and between the embedded headers and body
	require.Contains(t, body, "Content-ID: 1\r\n\r\nPOST Invoices HTTP/1.1\r\n")
	require.Contains(t, body, "POST Invoices HTTP/1.1\r\nContent-Type: application/json\r\n\r\n{")
}
