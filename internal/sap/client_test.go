package sap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *SessionStore, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	sessions := NewSessionStore()
	client := NewClient(Config{
		BaseURL:   server.URL,
		CompanyDB: "TESTDB",
		Username:  "svc",
		Password:  "secret",
	}, sessions, zap.NewNop())
	return client, sessions, server
}

func loginHandler(sessionID string, count *int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if count != nil {
			*count++
		}
		http.SetCookie(w, &http.Cookie{Name: "B1SESSION", Value: sessionID})
		http.SetCookie(w, &http.Cookie{Name: "ROUTEID", Value: ".node0"})
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"SessionId":"` + sessionID + `"}`))
	}
}

func TestClientLoginStoresSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/Login", loginHandler("sess-1", nil))

	client, sessions, _ := newTestClient(t, mux)

	require.NoError(t, client.Login(context.Background()))

	sess := sessions.Current()
	assert.Equal(t, "sess-1", sess.ID)
	assert.Equal(t, ".node0", sess.RouteID)
}

func TestClientLoginRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/Login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":100000027,"message":{"lang":"en-us","value":"Invalid company name or password"}}}`))
	})

	client, sessions, _ := newTestClient(t, mux)

	err := client.Login(context.Background())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Invalid company name or password", authErr.Message)
	assert.True(t, sessions.Current().Empty())
}

func TestClientLoginMalformedBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/Login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	client, sessions, _ := newTestClient(t, mux)

	err := client.Login(context.Background())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.True(t, sessions.Current().Empty())
}

func TestClientAutoLoginOnEmptyStore(t *testing.T) {
	logins := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/Login", loginHandler("sess-2", &logins))
	mux.HandleFunc("/Items", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Cookie"), "B1SESSION=sess-2")
		w.Write([]byte(`{"value":[]}`))
	})

	client, _, _ := newTestClient(t, mux)

	var out struct {
		Value []struct{} `json:"value"`
	}
	require.NoError(t, client.getJSON(context.Background(), "/Items", &out))
	assert.Equal(t, 1, logins)
}

func TestClientSessionExpiryInvalidatesStore(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/Items", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	client, sessions, _ := newTestClient(t, mux)
	sessions.Set(Session{ID: "stale"})

	err := client.getJSON(context.Background(), "/Items", nil)
	assert.True(t, errors.Is(err, ErrSessionExpired))
	assert.True(t, sessions.Current().Empty())
}

func TestClientServiceError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/Items", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":{"value":"bad filter"}}}`))
	})

	client, sessions, _ := newTestClient(t, mux)
	sessions.Set(Session{ID: "ok"})

	err := client.getJSON(context.Background(), "/Items", nil)
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	assert.Equal(t, "bad filter", svcErr.Message)
}
