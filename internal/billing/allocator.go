package billing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentType classifies how the customer settled a sale.
type PaymentType string

const (
	PaymentCash     PaymentType = "cash"
	PaymentCard     PaymentType = "card"
	PaymentTerminal PaymentType = "terminal"
)

// ErrUnknownBranch is returned when a cash payment names a branch with
// no mapped settlement account.
var ErrUnknownBranch = errors.New("unknown branch")

// PaymentEntry is a caller-supplied informal payment.
type PaymentEntry struct {
	Type   PaymentType
	Amount decimal.Decimal
}

// Allocation maps one payment entry to its settlement account. DocRate
// is carried for currency-rate bookkeeping only; no conversion happens
// here.
type Allocation struct {
	Type    PaymentType
	Account string
	Amount  decimal.Decimal
	DocRate decimal.Decimal
}

// Settlement accounts. Terminal and card acquiring settle to fixed
// ledger accounts; cash settles to the register account of the branch.
const (
	terminalAccount = "5710"
	cardAccount     = "5020"
)

// defaultCashAccounts must stay total over the known branch set.
var defaultCashAccounts = map[string]string{
	"chilonzor": "5010",
	"yunusobod": "5011",
	"sergeli":   "5012",
	"samarkand": "5013",
}

// DefaultDocRate is applied when the caller supplies no positive rate.
var DefaultDocRate = decimal.NewFromInt(1)

// NormalizePayments filters raw entries down to well-typed, positive
// amounts. Unknown types and non-positive amounts are dropped, not
// errored; lenient input is deliberate here.
func NormalizePayments(raw []PaymentEntry) []PaymentEntry {
	entries := make([]PaymentEntry, 0, len(raw))
	for _, entry := range raw {
		switch entry.Type {
		case PaymentCash, PaymentCard, PaymentTerminal:
		default:
			continue
		}
		if !entry.Amount.IsPositive() {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// Allocator resolves settlement accounts for payment entries.
type Allocator struct {
	cashAccounts map[string]string
	logger       *zap.Logger
}

// NewAllocator creates an allocator. Entries in overrides replace or
// extend the built-in branch table.
func NewAllocator(overrides map[string]string, logger *zap.Logger) *Allocator {
	accounts := make(map[string]string, len(defaultCashAccounts)+len(overrides))
	for branch, account := range defaultCashAccounts {
		accounts[branch] = account
	}
	for branch, account := range overrides {
		accounts[branch] = account
	}
	return &Allocator{cashAccounts: accounts, logger: logger}
}

// SettlementAccount resolves the ledger account for a payment type and
// branch.
func (a *Allocator) SettlementAccount(paymentType PaymentType, branch string) (string, error) {
	switch paymentType {
	case PaymentTerminal:
		return terminalAccount, nil
	case PaymentCard:
		return cardAccount, nil
	case PaymentCash:
		account, ok := a.cashAccounts[branch]
		if !ok {
			return "", fmt.Errorf("%w: %q has no cash account", ErrUnknownBranch, branch)
		}
		return account, nil
	}
	return "", fmt.Errorf("unsupported payment type %q", paymentType)
}

// Allocate resolves a settlement account for every entry. It fails fast
// on an unmapped cash branch: an unallocatable payment cannot be part
// of a valid batch, so the attempt must die before any network call.
func (a *Allocator) Allocate(entries []PaymentEntry, branch string, docRate decimal.Decimal) ([]Allocation, error) {
	if !docRate.IsPositive() {
		docRate = DefaultDocRate
	}

	allocations := make([]Allocation, 0, len(entries))
	for _, entry := range entries {
		account, err := a.SettlementAccount(entry.Type, branch)
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, Allocation{
			Type:    entry.Type,
			Account: account,
			Amount:  entry.Amount,
			DocRate: docRate,
		})
	}
	return allocations, nil
}
