package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/leadflow/sap-gateway/internal/billing"
	"github.com/leadflow/sap-gateway/internal/models"
	"github.com/leadflow/sap-gateway/internal/sap"
)

// LeadStore is the write-back side of the external lead store. The
// write must be safe to call zero or one time per attempt.
type LeadStore interface {
	SaveInvoiceResult(ctx context.Context, leadRef string, res models.InvoiceResult) error
}

// Request describes one accepted purchase to be invoiced.
type Request struct {
	LeadRef      string
	PartnerCode  string // optional; phone resolution is skipped when set
	Phone        string
	CustomerName string
	Branch       string
	Currency     string
	DocRate      decimal.Decimal
	Comments     string
	Lines        []sap.InvoiceLine
	Payments     []billing.PaymentEntry
}

// Orchestrator drives one invoicing attempt through its states:
// duplicate check, partner resolution, allocation, batch build, send,
// parse, reconcile, persist. Local recovery is limited to a single
// re-authentication; everything else surfaces as a structured Outcome.
type Orchestrator struct {
	client    *sap.Client
	partners  *sap.PartnerAPI
	invoices  *sap.InvoiceAPI
	allocator *billing.Allocator
	leads     LeadStore
	logger    *zap.Logger
}

// NewOrchestrator creates a new invoicing orchestrator
func NewOrchestrator(
	client *sap.Client,
	partners *sap.PartnerAPI,
	invoices *sap.InvoiceAPI,
	allocator *billing.Allocator,
	leads LeadStore,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		client:    client,
		partners:  partners,
		invoices:  invoices,
		allocator: allocator,
		leads:     leads,
		logger:    logger,
	}
}

// attempt is the ephemeral per-request state.
type attempt struct {
	id             string
	state          State
	authRetried    bool
	partnerCode    string
	partnerCreated bool
}

func (a *attempt) transition(log *zap.Logger, next State) {
	log.Debug("Attempt state transition",
		zap.String("from", a.state.String()),
		zap.String("to", next.String()))
	a.state = next
}

// CreateInvoice runs one attempt end to end and always returns a
// structured outcome.
func (o *Orchestrator) CreateInvoice(ctx context.Context, req Request) Outcome {
	att := &attempt{id: uuid.NewString(), state: StateStart}
	log := o.logger.With(
		zap.String("lead_ref", req.LeadRef),
		zap.String("attempt", att.id))

	// Input validation and allocation run ahead of the network states:
	// an unallocatable payment must never reach the wire.
	if req.LeadRef == "" {
		return o.fail(att, log, Outcome{Status: StatusInvalidInput, Message: "lead reference is required"})
	}
	if len(req.Lines) == 0 {
		return o.fail(att, log, Outcome{Status: StatusInvalidInput, Message: "invoice requires at least one line"})
	}
	if req.PartnerCode == "" {
		if _, err := sap.NormalizePhone(req.Phone); err != nil {
			return o.fail(att, log, Outcome{Status: StatusInvalidInput, Message: err.Error()})
		}
	}

	att.transition(log, StateAllocate)
	entries := billing.NormalizePayments(req.Payments)
	allocations, err := o.allocator.Allocate(entries, req.Branch, req.DocRate)
	if err != nil {
		return o.fail(att, log, Outcome{Status: StatusInvalidInput, Message: err.Error()})
	}

	att.transition(log, StateDuplicateCheck)
	existing, err := o.findDuplicate(ctx, att, req.LeadRef, log)
	if err != nil {
		return o.fail(att, log, o.classify(att, err))
	}
	if existing != nil {
		att.transition(log, StateDone)
		log.Info("Invoice already exists for lead",
			zap.Int64("doc_entry", existing.DocEntry),
			zap.Int64("doc_num", existing.DocNum))
		return Outcome{
			Status:      StatusAlreadyExists,
			Message:     "invoice already exists for this lead",
			Invoice:     existing,
			AuthRetried: att.authRetried,
		}
	}

	// ResolvePartner through Parse, restartable once after a re-login.
	// The duplicate-check result stays valid across the restart.
	result, err := o.execute(ctx, att, req, allocations, log)
	if errors.Is(err, sap.ErrSessionExpired) {
		if rerr := o.reauth(ctx, att, log); rerr != nil {
			return o.fail(att, log, o.classify(att, rerr))
		}
		result, err = o.execute(ctx, att, req, allocations, log)
	}
	if err != nil {
		return o.fail(att, log, o.classify(att, err))
	}

	att.transition(log, StateReconcile)
	if !result.OK() {
		return o.fail(att, log, Outcome{
			Status:         StatusBusinessError,
			Message:        "batch rejected by ERP",
			Errors:         result.Errors,
			PartnerCode:    att.partnerCode,
			PartnerCreated: att.partnerCreated,
			AuthRetried:    att.authRetried,
		})
	}
	if result.Invoice == nil || len(result.Payments) != len(allocations) {
		// A count mismatch without explicit errors means the parse or a
		// protocol assumption drifted; never report it as success.
		got := 0
		if result.Invoice != nil {
			got = 1
		}
		return o.fail(att, log, Outcome{
			Status: StatusPartialMismatch,
			Message: fmt.Sprintf("expected 1 invoice and %d payments, got %d invoice(s) and %d payment(s)",
				len(allocations), got, len(result.Payments)),
			Invoice:        result.Invoice,
			Payments:       result.Payments,
			PartnerCode:    att.partnerCode,
			PartnerCreated: att.partnerCreated,
			AuthRetried:    att.authRetried,
		})
	}

	att.transition(log, StatePersist)
	outcome := Outcome{
		Status:         StatusCreated,
		Invoice:        result.Invoice,
		Payments:       result.Payments,
		PartnerCode:    att.partnerCode,
		PartnerCreated: att.partnerCreated,
		AuthRetried:    att.authRetried,
	}
	writeBack := models.InvoiceResult{
		InvoiceEntry:    result.Invoice.DocEntry,
		InvoiceNumber:   result.Invoice.DocNum,
		PaymentsCreated: len(result.Payments) > 0,
		InvoicedAt:      time.Now(),
	}
	if att.partnerCreated {
		writeBack.PartnerCode = att.partnerCode
	}
	if err := o.leads.SaveInvoiceResult(ctx, req.LeadRef, writeBack); err != nil {
		// The changeset committed in the ERP; a lost write-back must not
		// misreport the invoice as failed.
		log.Error("Lead write-back failed", zap.Error(err))
		outcome.Message = "invoice created but lead write-back failed"
	}

	att.transition(log, StateDone)
	log.Info("Invoice created",
		zap.Int64("doc_entry", result.Invoice.DocEntry),
		zap.Int64("doc_num", result.Invoice.DocNum),
		zap.Int("payments", len(result.Payments)),
		zap.Bool("auth_retried", att.authRetried))
	return outcome
}

// findDuplicate looks up an existing invoice for the lead reference,
// allowing one session refresh out of the attempt's retry budget.
func (o *Orchestrator) findDuplicate(ctx context.Context, att *attempt, leadRef string, log *zap.Logger) (*sap.DocumentRef, error) {
	doc, err := o.invoices.FindByLeadRef(ctx, leadRef)
	if errors.Is(err, sap.ErrSessionExpired) {
		if rerr := o.reauth(ctx, att, log); rerr != nil {
			return nil, rerr
		}
		doc, err = o.invoices.FindByLeadRef(ctx, leadRef)
	}
	return doc, err
}

// execute runs ResolvePartner through Parse once.
func (o *Orchestrator) execute(ctx context.Context, att *attempt, req Request, allocations []billing.Allocation, log *zap.Logger) (sap.BatchResult, error) {
	att.transition(log, StateResolvePartner)
	partnerCode := req.PartnerCode
	if partnerCode == "" {
		resolution, err := o.partners.Resolve(ctx, req.Phone, req.CustomerName, req.Currency)
		if err != nil {
			return sap.BatchResult{}, err
		}
		partnerCode = resolution.CardCode
		// A partner created on an earlier pass resolves as a match after
		// the restart; the created fact must survive for the write-back.
		att.partnerCreated = att.partnerCreated || resolution.Created
	}
	att.partnerCode = partnerCode

	att.transition(log, StateBuild)
	docRate := req.DocRate
	if !docRate.IsPositive() {
		docRate = billing.DefaultDocRate
	}
	invoice := sap.InvoiceDocument{
		CardCode:      partnerCode,
		DocCurrency:   req.Currency,
		DocRate:       docRate,
		Comments:      req.Comments,
		LeadRef:       req.LeadRef,
		DocumentLines: req.Lines,
	}
	payments := make([]sap.IncomingPayment, 0, len(allocations))
	for _, alloc := range allocations {
		payments = append(payments, sap.IncomingPayment{
			CardCode:        partnerCode,
			DocCurrency:     req.Currency,
			DocRate:         alloc.DocRate,
			CashAccount:     alloc.Account,
			CashSum:         alloc.Amount,
			PaymentInvoices: []sap.PaymentInvoice{sap.NewPaymentInvoice(alloc.Amount)},
		})
	}
	batch, err := sap.BuildBatch(invoice, payments)
	if err != nil {
		return sap.BatchResult{}, err
	}

	att.transition(log, StateSend)
	raw, err := o.client.ExecuteBatch(ctx, batch)
	if err != nil {
		return sap.BatchResult{}, err
	}

	att.transition(log, StateParse)
	return sap.ParseBatchResponse(raw), nil
}

// reauth performs the single re-authentication this attempt is allowed.
func (o *Orchestrator) reauth(ctx context.Context, att *attempt, log *zap.Logger) error {
	if att.authRetried {
		return &sap.AuthError{Message: "session expired again after re-login"}
	}
	att.authRetried = true
	log.Info("Session expired, re-authenticating")
	return o.client.Login(ctx)
}

// classify maps an error to the outcome taxonomy.
func (o *Orchestrator) classify(att *attempt, err error) Outcome {
	out := Outcome{
		Message:        err.Error(),
		PartnerCode:    att.partnerCode,
		PartnerCreated: att.partnerCreated,
		AuthRetried:    att.authRetried,
	}

	var authErr *sap.AuthError
	var svcErr *sap.ServiceError
	switch {
	case errors.Is(err, sap.ErrInvalidPhone):
		out.Status = StatusInvalidInput
	case errors.Is(err, sap.ErrSessionExpired), errors.As(err, &authErr):
		out.Status = StatusAuthFailure
	case errors.As(err, &svcErr) && svcErr.StatusCode >= 400 && svcErr.StatusCode < 500:
		// A 4xx outside the batch, e.g. a partner create hitting an ERP
		// uniqueness constraint, is a business rejection.
		out.Status = StatusBusinessError
		out.Errors = []string{svcErr.Message}
	default:
		out.Status = StatusTransportFailure
	}
	return out
}

func (o *Orchestrator) fail(att *attempt, log *zap.Logger, out Outcome) Outcome {
	att.transition(log, StateFailed)
	log.Warn("Invoicing attempt failed",
		zap.String("status", string(out.Status)),
		zap.String("message", out.Message),
		zap.Strings("errors", out.Errors))
	return out
}
