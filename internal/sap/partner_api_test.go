package sap

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPartnerResolveExistingMatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/BusinessPartners", func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("$filter")
		assert.Contains(t, filter, "endswith(Phone1,'998901234567')")
		assert.Contains(t, filter, "endswith(Phone2,'998901234567')")
		w.Write([]byte(`{"value":[{"CardCode":"C0042","CardName":"Aziz","Phone1":"998901234567"},{"CardCode":"C0043"}]}`))
	})

	client, sessions, _ := newTestClient(t, mux)
	sessions.Set(Session{ID: "s"})
	api := NewPartnerAPI(client, zap.NewNop())

	res, err := api.Resolve(context.Background(), "+998 90 123-45-67", "Aziz", "UZS")
	require.NoError(t, err)
	assert.Equal(t, "C0042", res.CardCode) // first match wins
	assert.False(t, res.Created)
}

func TestPartnerResolveCreatesWhenNoMatch(t *testing.T) {
	var created BusinessPartner
	mux := http.NewServeMux()
	mux.HandleFunc("/BusinessPartners", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`{"value":[]}`))
			return
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{}`))
	})

	client, sessions, _ := newTestClient(t, mux)
	sessions.Set(Session{ID: "s"})
	api := NewPartnerAPI(client, zap.NewNop())

	res, err := api.Resolve(context.Background(), "901234567", "Lola Karimova", "UZS")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, created.CardCode, res.CardCode)
	assert.Equal(t, "Lola Karimova", created.CardName)
	assert.Equal(t, "cCustomer", created.CardType)
	assert.Equal(t, "998901234567", created.Phone1)
}

func TestPartnerResolveInvalidPhone(t *testing.T) {
	client, _, _ := newTestClient(t, http.NewServeMux())
	api := NewPartnerAPI(client, zap.NewNop())

	_, err := api.Resolve(context.Background(), "12345", "Nobody", "UZS")
	assert.ErrorIs(t, err, ErrInvalidPhone)
}

func TestNewCardCodeShape(t *testing.T) {
	now := time.Date(2025, 3, 7, 14, 30, 5, 0, time.UTC)

	for i := 0; i < 50; i++ {
		code := NewCardCode(now)
		require.Len(t, code, 15)
		assert.Equal(t, "20250307143005", code[:14])
		last := code[14]
		assert.True(t, last >= 'A' && last <= 'Z', "trailing byte %q is not an uppercase letter", last)
	}
}
