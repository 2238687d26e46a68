package invoicing

import "github.com/leadflow/sap-gateway/internal/sap"

// Status classifies the outcome of an invoicing attempt.
type Status string

const (
	// StatusCreated means the invoice and all payments committed in the ERP.
	StatusCreated Status = "CREATED"
	// StatusAlreadyExists means a non-canceled invoice already carries this
	// lead reference. Not an error; the existing identifiers are returned.
	StatusAlreadyExists Status = "ALREADY_EXISTS"
	// StatusInvalidInput means the request was rejected before any network call.
	StatusInvalidInput Status = "INVALID_INPUT"
	// StatusAuthFailure means the login was rejected, fatal after the one retry.
	StatusAuthFailure Status = "AUTH_FAILURE"
	// StatusTransportFailure covers network, timeout, and non-auth HTTP errors.
	StatusTransportFailure Status = "TRANSPORT_FAILURE"
	// StatusBusinessError means the ERP rejected one or more batch
	// operations with a business-rule message.
	StatusBusinessError Status = "BUSINESS_ERROR"
	// StatusPartialMismatch means a structurally successful response whose
	// operation counts do not reconcile. Flagged separately from
	// business rejections so protocol-assumption drift is visible.
	StatusPartialMismatch Status = "PARTIAL_MISMATCH"
)

// Outcome is the structured result of one invoicing attempt. It is
// always returned, never thrown past the orchestrator boundary.
type Outcome struct {
	Status         Status
	Message        string
	Invoice        *sap.DocumentRef
	Payments       []sap.DocumentRef
	PartnerCode    string
	PartnerCreated bool
	AuthRetried    bool
	Errors         []string
}

// OK reports whether the attempt produced a committed invoice.
func (o Outcome) OK() bool {
	return o.Status == StatusCreated
}
