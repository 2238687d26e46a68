package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/leadflow/sap-gateway/internal/billing"
	"github.com/leadflow/sap-gateway/internal/invoicing"
	"github.com/leadflow/sap-gateway/internal/sap"
)

type invoiceLineRequest struct {
	ItemCode    string          `json:"item_code"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type paymentRequest struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

type createInvoiceRequest struct {
	PartnerCode  string               `json:"partner_code"`
	CustomerName string               `json:"customer_name"`
	Phone        string               `json:"phone"`
	Branch       string               `json:"branch"`
	Currency     string               `json:"currency"`
	DocRate      decimal.Decimal      `json:"doc_rate"`
	Comments     string               `json:"comments"`
	Lines        []invoiceLineRequest `json:"lines" binding:"required,min=1"`
	Payments     []paymentRequest     `json:"payments"`
}

type documentResponse struct {
	DocEntry int64 `json:"doc_entry"`
	DocNum   int64 `json:"doc_num"`
}

type invoiceResponse struct {
	Status         string             `json:"status"`
	Message        string             `json:"message,omitempty"`
	Invoice        *documentResponse  `json:"invoice,omitempty"`
	Payments       []documentResponse `json:"payments,omitempty"`
	PartnerCode    string             `json:"partner_code,omitempty"`
	PartnerCreated bool               `json:"partner_created,omitempty"`
	Errors         []string           `json:"errors,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCreateInvoice(c *gin.Context) {
	leadRef := c.Param("ref")

	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.leads.Ensure(c.Request.Context(), leadRef, req.CustomerName, req.Phone, req.Branch); err != nil {
		s.logger.Error("Failed to ensure lead record", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record lead"})
		return
	}

	lines := make([]sap.InvoiceLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, sap.InvoiceLine{
			ItemCode:        line.ItemCode,
			ItemDescription: line.Description,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
		})
	}
	payments := make([]billing.PaymentEntry, 0, len(req.Payments))
	for _, payment := range req.Payments {
		payments = append(payments, billing.PaymentEntry{
			Type:   billing.PaymentType(payment.Type),
			Amount: payment.Amount,
		})
	}

	outcome := s.orchestrator.CreateInvoice(c.Request.Context(), invoicing.Request{
		LeadRef:      leadRef,
		PartnerCode:  req.PartnerCode,
		Phone:        req.Phone,
		CustomerName: req.CustomerName,
		Branch:       req.Branch,
		Currency:     req.Currency,
		DocRate:      req.DocRate,
		Comments:     req.Comments,
		Lines:        lines,
		Payments:     payments,
	})

	c.JSON(statusCode(outcome.Status), toInvoiceResponse(outcome))
}

func (s *Server) handleGetLead(c *gin.Context) {
	lead, err := s.leads.GetByRef(c.Request.Context(), c.Param("ref"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load lead"})
		return
	}
	if lead == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
		return
	}
	c.JSON(http.StatusOK, lead)
}

// statusCode maps the outcome taxonomy to HTTP statuses.
func statusCode(status invoicing.Status) int {
	switch status {
	case invoicing.StatusCreated:
		return http.StatusCreated
	case invoicing.StatusAlreadyExists:
		return http.StatusConflict
	case invoicing.StatusInvalidInput:
		return http.StatusBadRequest
	case invoicing.StatusBusinessError:
		return http.StatusUnprocessableEntity
	case invoicing.StatusAuthFailure, invoicing.StatusTransportFailure, invoicing.StatusPartialMismatch:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func toInvoiceResponse(outcome invoicing.Outcome) invoiceResponse {
	resp := invoiceResponse{
		Status:         string(outcome.Status),
		Message:        outcome.Message,
		PartnerCode:    outcome.PartnerCode,
		PartnerCreated: outcome.PartnerCreated,
		Errors:         outcome.Errors,
	}
	if outcome.Invoice != nil {
		resp.Invoice = &documentResponse{DocEntry: outcome.Invoice.DocEntry, DocNum: outcome.Invoice.DocNum}
	}
	for _, payment := range outcome.Payments {
		resp.Payments = append(resp.Payments, documentResponse{DocEntry: payment.DocEntry, DocNum: payment.DocNum})
	}
	return resp
}
