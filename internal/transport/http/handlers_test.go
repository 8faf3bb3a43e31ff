package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vouch/internal/admin"
	"vouch/internal/eligibility"
	"vouch/internal/identity/store"
	"vouch/internal/roles"
	"vouch/internal/verify"
)

const testSigningKey = "test-signing-key"

type silentMessenger struct{ directs int }

func (m *silentMessenger) SendDirect(context.Context, string, string) error {
	m.directs++
	return nil
}
func (m *silentMessenger) SetNickname(context.Context, string, string, string) error { return nil }
func (m *silentMessenger) CommunityName(_ context.Context, id string) (string, error) {
	return id, nil
}
func (m *silentMessenger) UserName(_ context.Context, _, userID string) (string, error) {
	return userID, nil
}

type silentSender struct{}

func (silentSender) Send(context.Context, string, string, string) error { return nil }

type fixture struct {
	router    http.Handler
	store     *store.InMemory
	messenger *silentMessenger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewInMemory()
	reconciler := roles.NewReconciler(roles.NewInMemoryRegistry())
	messenger := &silentMessenger{}
	dispatcher := verify.NewDispatcher(messenger, silentSender{}, reconciler)

	handler := NewHandler(
		admin.NewService(st, reconciler, nil, nil),
		verify.NewService(st, eligibility.NewDomainChecker()),
		dispatcher,
		nil,
	)
	return &fixture{
		router:    NewRouter(handler, testSigningKey),
		store:     st,
		messenger: messenger,
	}
}

func (f *fixture) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func adminToken(t *testing.T, key string, isAdmin bool) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"admin": isAdmin}).
		SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminAuth(t *testing.T) {
	t.Run("no token", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/communities/c1/onjoin/enable", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token signed with the wrong key", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/communities/c1/onjoin/enable", "",
			adminToken(t, "other-key", true))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token without admin claim", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/communities/c1/onjoin/enable", "",
			adminToken(t, testSigningKey, false))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("no key configured fails closed", func(t *testing.T) {
		f := newFixture(t)
		st := store.NewInMemory()
		reconciler := roles.NewReconciler(roles.NewInMemoryRegistry())
		handler := NewHandler(
			admin.NewService(st, reconciler, nil, nil),
			verify.NewService(st, eligibility.NewDomainChecker()),
			verify.NewDispatcher(f.messenger, silentSender{}, reconciler),
			nil,
		)
		router := NewRouter(handler, "")

		req := httptest.NewRequest(http.MethodPost, "/communities/c1/onjoin/enable",
			strings.NewReader("{}"))
		req.Header.Set("Authorization", "Bearer "+adminToken(t, testSigningKey, true))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestAdminEndpoints(t *testing.T) {
	ctx := context.Background()
	token := func(t *testing.T) string { return adminToken(t, testSigningKey, true) }

	t.Run("set role", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPut, "/communities/c1/role", `{"role":"member"}`, token(t))
		require.Equal(t, http.StatusOK, rec.Code)

		community, err := f.store.GetCommunity(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, "member", community.VerifiedRole)
	})

	t.Run("set role requires a role name", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPut, "/communities/c1/role", `{}`, token(t))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("onjoin toggle", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/communities/c1/onjoin/enable", "", token(t))
		require.Equal(t, http.StatusOK, rec.Code)

		community, err := f.store.GetCommunity(ctx, "c1")
		require.NoError(t, err)
		assert.True(t, community.VerifyOnJoin)

		rec = f.do(t, http.MethodPost, "/communities/c1/onjoin/disable", "", token(t))
		require.Equal(t, http.StatusOK, rec.Code)

		community, err = f.store.GetCommunity(ctx, "c1")
		require.NoError(t, err)
		assert.False(t, community.VerifyOnJoin)
	})

	t.Run("domain add and remove", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/communities/c1/domains", `{"domain":"x.com"}`, token(t))
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = f.do(t, http.MethodDelete, "/communities/c1/domains/x.com", "", token(t))
		require.Equal(t, http.StatusNoContent, rec.Code)

		community, err := f.store.GetCommunity(ctx, "c1")
		require.NoError(t, err)
		assert.Empty(t, community.AllowedDomains)
	})
}

func TestStatusEndpoint(t *testing.T) {
	f := newFixture(t)

	// Status is unprivileged and registers unseen communities with defaults.
	rec := f.do(t, http.MethodGet, "/communities/c1/status", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var report admin.StatusReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, "c1", report.CommunityID)
	assert.False(t, report.VerifyOnJoin)
}

func TestRequestVerification(t *testing.T) {
	t.Run("accepted and prompt dispatched", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/communities/c1/verification-requests",
			`{"user_id":"u1"}`, "")
		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("requires a user id", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/communities/c1/verification-requests", `{}`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
