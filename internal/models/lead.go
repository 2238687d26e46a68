package models

import "time"

// Lead is a sales lead tracked in the local store. The ERP invoice
// fields stay NULL until an invoicing attempt succeeds.
type Lead struct {
	ID              int64
	LeadRef         string
	CustomerName    string
	Phone           string
	Branch          string
	PartnerCode     string
	InvoiceEntry    *int64
	InvoiceNumber   *int64
	PaymentsCreated bool
	InvoicedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// InvoiceResult is the successful outcome written back to a lead.
type InvoiceResult struct {
	InvoiceEntry    int64
	InvoiceNumber   int64
	PaymentsCreated bool
	PartnerCode     string // set only when a partner was created in this attempt
	InvoicedAt      time.Time
}
