package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/leadflow/sap-gateway/internal/models"
)

// LeadRepository handles lead database operations
type LeadRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *sql.DB, logger *zap.Logger) *LeadRepository {
	return &LeadRepository{db: db, logger: logger}
}

// Ensure creates the lead row if it does not exist yet. Existing rows
// are left untouched.
func (r *LeadRepository) Ensure(ctx context.Context, leadRef, customerName, phone, branch string) error {
	query := `
		INSERT INTO leads (lead_ref, customer_name, phone, branch)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(lead_ref) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, leadRef, customerName, phone, branch); err != nil {
		r.logger.Error("Failed to ensure lead", zap.Error(err))
		return fmt.Errorf("failed to ensure lead: %w", err)
	}
	return nil
}

// GetByRef returns the lead with the given external reference, or nil.
func (r *LeadRepository) GetByRef(ctx context.Context, leadRef string) (*models.Lead, error) {
	query := `
		SELECT id, lead_ref, customer_name, phone, branch, partner_code,
		       sap_invoice_entry, sap_invoice_number, payments_created,
		       invoiced_at, created_at, updated_at
		FROM leads
		WHERE lead_ref = ?
	`

	var lead models.Lead
	var paymentsCreated int
	err := r.db.QueryRowContext(ctx, query, leadRef).Scan(
		&lead.ID,
		&lead.LeadRef,
		&lead.CustomerName,
		&lead.Phone,
		&lead.Branch,
		&lead.PartnerCode,
		&lead.InvoiceEntry,
		&lead.InvoiceNumber,
		&paymentsCreated,
		&lead.InvoicedAt,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get lead", zap.Error(err))
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	lead.PaymentsCreated = paymentsCreated != 0

	return &lead, nil
}

// SaveInvoiceResult writes the invoice identifiers back to the lead.
// The update is conditional on no prior invoice result: a repeated call
// for the same lead is a no-op, never a second write with a different
// payload.
func (r *LeadRepository) SaveInvoiceResult(ctx context.Context, leadRef string, res models.InvoiceResult) error {
	query := `
		UPDATE leads
		SET sap_invoice_entry = ?,
		    sap_invoice_number = ?,
		    payments_created = ?,
		    partner_code = CASE WHEN ? <> '' THEN ? ELSE partner_code END,
		    invoiced_at = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE lead_ref = ? AND sap_invoice_entry IS NULL
	`

	paymentsCreated := 0
	if res.PaymentsCreated {
		paymentsCreated = 1
	}
	result, err := r.db.ExecContext(ctx, query,
		res.InvoiceEntry,
		res.InvoiceNumber,
		paymentsCreated,
		res.PartnerCode,
		res.PartnerCode,
		res.InvoicedAt,
		leadRef,
	)
	if err != nil {
		r.logger.Error("Failed to save invoice result", zap.Error(err))
		return fmt.Errorf("failed to save invoice result: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		r.logger.Debug("Invoice result already recorded for lead",
			zap.String("lead_ref", leadRef))
	}
	return nil
}
