package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leadflow/sap-gateway/internal/models"
	"github.com/leadflow/sap-gateway/pkg/database"
)

func newTestRepo(t *testing.T) *LeadRepository {
	t.Helper()

	db, err := database.New(database.Config{
		Path:         t.TempDir() + "/leads.db",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, zap.NewNop())
	require.NoError(t, migrator.Run("../../migrations"))

	return NewLeadRepository(db.DB, zap.NewNop())
}

func TestEnsureIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Ensure(ctx, "lead-1", "Aziz", "998901234567", "chilonzor"))
	require.NoError(t, repo.Ensure(ctx, "lead-1", "Someone Else", "998900000000", "sergeli"))

	lead, err := repo.GetByRef(ctx, "lead-1")
	require.NoError(t, err)
	require.NotNil(t, lead)

	// the second insert must not overwrite the first
	assert.Equal(t, "Aziz", lead.CustomerName)
	assert.Equal(t, "chilonzor", lead.Branch)
	assert.Nil(t, lead.InvoiceEntry)
}

func TestGetByRefMissing(t *testing.T) {
	repo := newTestRepo(t)

	lead, err := repo.GetByRef(context.Background(), "no-such-lead")
	require.NoError(t, err)
	assert.Nil(t, lead)
}

func TestSaveInvoiceResultWritesOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Ensure(ctx, "lead-2", "Lola", "998901112233", "yunusobod"))

	first := models.InvoiceResult{
		InvoiceEntry:    500,
		InvoiceNumber:   1500,
		PaymentsCreated: true,
		PartnerCode:     "20250307143005K",
		InvoicedAt:      time.Now().UTC(),
	}
	require.NoError(t, repo.SaveInvoiceResult(ctx, "lead-2", first))

	// a second write with a different payload must be a no-op
	second := models.InvoiceResult{InvoiceEntry: 999, InvoiceNumber: 9999}
	require.NoError(t, repo.SaveInvoiceResult(ctx, "lead-2", second))

	lead, err := repo.GetByRef(ctx, "lead-2")
	require.NoError(t, err)
	require.NotNil(t, lead)
	require.NotNil(t, lead.InvoiceEntry)
	assert.Equal(t, int64(500), *lead.InvoiceEntry)
	require.NotNil(t, lead.InvoiceNumber)
	assert.Equal(t, int64(1500), *lead.InvoiceNumber)
	assert.True(t, lead.PaymentsCreated)
	assert.Equal(t, "20250307143005K", lead.PartnerCode)
	require.NotNil(t, lead.InvoicedAt)
}

func TestSaveInvoiceResultKeepsExistingPartnerCode(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Ensure(ctx, "lead-3", "Timur", "998903334455", "sergeli"))

	// empty partner code means the partner existed before this attempt
	res := models.InvoiceResult{InvoiceEntry: 7, InvoiceNumber: 70, InvoicedAt: time.Now().UTC()}
	require.NoError(t, repo.SaveInvoiceResult(ctx, "lead-3", res))

	lead, err := repo.GetByRef(ctx, "lead-3")
	require.NoError(t, err)
	assert.Empty(t, lead.PartnerCode)
	assert.False(t, lead.PaymentsCreated)
}

func TestSaveInvoiceResultUnknownLead(t *testing.T) {
	repo := newTestRepo(t)

	// no row matches; the conditional update silently affects nothing
	err := repo.SaveInvoiceResult(context.Background(), "ghost",
		models.InvoiceResult{InvoiceEntry: 1, InvoiceNumber: 1, InvoicedAt: time.Now().UTC()})
	require.NoError(t, err)
}
