package sap

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"
)

// DocumentRef identifies a Service Layer document.
type DocumentRef struct {
	DocEntry int64 `json:"DocEntry"`
	DocNum   int64 `json:"DocNum"`
}

// InvoiceAPI reads invoice documents.
type InvoiceAPI struct {
	client *Client
	logger *zap.Logger
}

// NewInvoiceAPI creates a new invoice API
func NewInvoiceAPI(client *Client, logger *zap.Logger) *InvoiceAPI {
	return &InvoiceAPI{client: client, logger: logger}
}

// FindByLeadRef returns a non-canceled invoice already tagged with the
// lead reference, or nil when none exists.
func (i *InvoiceAPI) FindByLeadRef(ctx context.Context, leadRef string) (*DocumentRef, error) {
	filter := fmt.Sprintf("U_LeadRef eq '%s' and Cancelled eq 'tNO'", leadRef)
	path := "/Invoices?$select=DocEntry,DocNum&$filter=" + url.QueryEscape(filter)

	var result struct {
		Value []DocumentRef `json:"value"`
	}
	if err := i.client.getJSON(ctx, path, &result); err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	if len(result.Value) == 0 {
		return nil, nil
	}

	i.logger.Debug("Existing invoice found for lead",
		zap.String("lead_ref", leadRef),
		zap.Int64("doc_entry", result.Value[0].DocEntry))
	return &result.Value[0], nil
}
