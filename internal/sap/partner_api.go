package sap

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// BusinessPartner is the customer master payload sent on creation.
type BusinessPartner struct {
	CardCode string `json:"CardCode"`
	CardName string `json:"CardName"`
	CardType string `json:"CardType"`
	Phone1   string `json:"Phone1"`
	Currency string `json:"Currency,omitempty"`
}

// PartnerResolution is the outcome of resolving a partner by phone.
type PartnerResolution struct {
	CardCode string
	Created  bool
}

// PartnerAPI resolves and creates business partner records.
type PartnerAPI struct {
	client *Client
	logger *zap.Logger
}

// NewPartnerAPI creates a new partner API
func NewPartnerAPI(client *Client, logger *zap.Logger) *PartnerAPI {
	return &PartnerAPI{client: client, logger: logger}
}

// Resolve finds an existing partner by phone-digit match and creates
// one when no row matches. The phone lookup is idempotent, so the whole
// call is safe to re-run after a session refresh.
func (p *PartnerAPI) Resolve(ctx context.Context, phone, name, currency string) (PartnerResolution, error) {
	digits, err := NormalizePhone(phone)
	if err != nil {
		return PartnerResolution{}, err
	}

	code, err := p.findByPhone(ctx, digits)
	if err != nil {
		return PartnerResolution{}, err
	}
	if code != "" {
		p.logger.Debug("Business partner matched by phone",
			zap.String("card_code", code))
		return PartnerResolution{CardCode: code}, nil
	}

	partner := BusinessPartner{
		CardCode: NewCardCode(time.Now()),
		CardName: name,
		CardType: "cCustomer",
		Phone1:   digits,
		Currency: currency,
	}
	if err := p.client.postJSON(ctx, "/BusinessPartners", partner, nil); err != nil {
		return PartnerResolution{}, fmt.Errorf("failed to create business partner: %w", err)
	}

	p.logger.Info("Business partner created",
		zap.String("card_code", partner.CardCode),
		zap.String("phone", digits))
	return PartnerResolution{CardCode: partner.CardCode, Created: true}, nil
}

type partnerRow struct {
	CardCode string `json:"CardCode"`
	CardName string `json:"CardName"`
	Phone1   string `json:"Phone1"`
	Phone2   string `json:"Phone2"`
}

// findByPhone returns the first partner whose phone fields end with the
// given digits, or "" when none match. Multiple matches are not
// disambiguated; first row wins.
func (p *PartnerAPI) findByPhone(ctx context.Context, digits string) (string, error) {
	filter := fmt.Sprintf("endswith(Phone1,'%s') or endswith(Phone2,'%s')", digits, digits)
	path := "/BusinessPartners?$select=CardCode,CardName,Phone1,Phone2&$filter=" + url.QueryEscape(filter)

	var result struct {
		Value []partnerRow `json:"value"`
	}
	if err := p.client.getJSON(ctx, path, &result); err != nil {
		return "", fmt.Errorf("failed to query business partners: %w", err)
	}
	if len(result.Value) == 0 {
		return "", nil
	}
	return result.Value[0].CardCode, nil
}

const cardCodeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewCardCode proposes a partner code: creation timestamp to seconds
// precision plus one random letter. The Service Layer remains the
// authority on the final code.
func NewCardCode(now time.Time) string {
	return now.Format("20060102150405") + string(cardCodeLetters[rand.IntN(len(cardCodeLetters))])
}
