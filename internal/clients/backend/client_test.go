package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/b3notifier/internal/clients/backend/backendtest"
	"github.com/bobmcallan/b3notifier/internal/common"
	"github.com/bobmcallan/b3notifier/internal/models"
	"github.com/bobmcallan/b3notifier/internal/storage/memstore"
)

func newTestClient(t *testing.T, baseURL string, store *memstore.Store) *Client {
	t.Helper()
	return NewClient(baseURL, WithTokenSource(store), WithRateLimit(0))
}

func TestIsPublicRoute(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/user/send-otp/", true},
		{"/user/verify-otp/", true},
		{"/user/register/", true},
		{"/token/", true},
		{"/token/refresh/", true},
		{"/api/user/send-otp/", true},
		{"/user/profile/", false},
		{"/stock/list/", false},
		{"/stock/quote/?name=ITUB4.SA&periodicity=5", false},
		{"/alert/list/", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsPublicRoute(tt.path), tt.path)
	}
}

func TestCredentialAttachment(t *testing.T) {
	fake := backendtest.New()
	defer fake.Close()
	fake.AddUser("ana", "ana@example.com", "s3cret-pass")

	ctx := context.Background()
	store := memstore.NewStore()
	client := newTestClient(t, fake.URL, store)

	// No token stored: private request goes out without a header.
	_, err := client.ListAssets(ctx)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	reqs := fake.RequestsTo("/stock/list/")
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].Authorization)

	// Store a token: the very next request carries it without re-initialising the client.
	token := fake.IssueToken("ana")
	require.NoError(t, store.SaveTokens(ctx, models.Tokens{Access: token, Refresh: "r"}))

	_, err = client.ListAssets(ctx)
	require.NoError(t, err)
	reqs = fake.RequestsTo("/stock/list/")
	require.Len(t, reqs, 2)
	assert.Equal(t, "Bearer "+token, reqs[1].Authorization)

	// Public route never carries the token, even when one is present.
	_, err = client.SendOTP(ctx, "ana@example.com")
	require.NoError(t, err)
	otpReqs := fake.RequestsTo("/user/send-otp/")
	require.Len(t, otpReqs, 1)
	assert.Empty(t, otpReqs[0].Authorization)

	// Cleared store: header omitted again.
	require.NoError(t, store.ClearTokens(ctx))
	_, _ = client.ListAssets(ctx)
	reqs = fake.RequestsTo("/stock/list/")
	require.Len(t, reqs, 3)
	assert.Empty(t, reqs[2].Authorization)
}

func TestRequestIDHeader(t *testing.T) {
	fake := backendtest.New()
	defer fake.Close()

	client := newTestClient(t, fake.URL, memstore.NewStore())
	ctx := common.WithRequestID(context.Background(), "req-42")
	_, _ = client.SendOTP(ctx, "ana@example.com")

	reqs := fake.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "req-42", reqs[0].RequestID)
}

func TestListAssets_CoercesStringNumbers(t *testing.T) {
	fake := backendtest.New()
	defer fake.Close()
	fake.AddUser("ana", "ana@example.com", "pw")
	fake.SetAssets(
		backendtest.Asset{ID: 7, Name: "ITUB4.SA", Periodicity: 15, CurrentPrice: "29.00", LowerLimit: "25.00", UpperLimit: "30.00"},
		backendtest.Asset{ID: 3, Name: "MGLU3.SA", Periodicity: 5, CurrentPrice: "8.15", LowerLimit: "7.90", UpperLimit: "8.60"},
	)

	store := memstore.NewStore()
	require.NoError(t, store.SaveTokens(context.Background(), models.Tokens{Access: fake.IssueToken("ana"), Refresh: "r"}))
	client := newTestClient(t, fake.URL, store)

	assets, err := client.ListAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, int64(7), assets[0].ID, "backend order preserved")
	assert.Equal(t, "ITUB4.SA", assets[0].Name)
	assert.Equal(t, 15, assets[0].Periodicity)
	assert.True(t, assets[0].CurrentPrice.Equal(decimal.RequireFromString("29")))
	assert.True(t, assets[1].UpperLimit.Equal(decimal.RequireFromString("8.6")))
}

func TestListAssets_MalformedNumberIsDataError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 1, "name": "ITUB4.SA", "periodicity": 5, "current_price": 29, "lower_limit": "25", "upper_limit": "30"},
			{"id": 2, "name": "MGLU3.SA", "periodicity": 5, "current_price": "N/A", "lower_limit": "7", "upper_limit": "9"}
		]`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, memstore.NewStore())
	_, err := client.ListAssets(context.Background())
	require.Error(t, err)

	var dataErr *models.DataError
	require.True(t, errors.As(err, &dataErr), "got %T: %v", err, err)
	assert.Equal(t, "current_price", dataErr.Field)
	assert.Equal(t, "N/A", dataErr.Value)
	assert.Equal(t, int64(2), dataErr.AssetID)
}

func TestListAssets_NullPriceIsDataError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id": 4, "name": "PETR4.SA", "periodicity": 10, "current_price": "30", "lower_limit": null, "upper_limit": "31"}]`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, memstore.NewStore())
	_, err := client.ListAssets(context.Background())

	var dataErr *models.DataError
	require.True(t, errors.As(err, &dataErr))
	assert.Equal(t, "lower_limit", dataErr.Field)
}

func TestListAssets_EmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, memstore.NewStore())
	assets, err := client.ListAssets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestUpdateAsset_UnwrapsEnvelope(t *testing.T) {
	fake := backendtest.New()
	defer fake.Close()
	fake.AddUser("ana", "ana@example.com", "pw")
	fake.SetAssets(backendtest.Asset{ID: 9, Name: "VALE3.SA", Periodicity: 5, CurrentPrice: "60.10", LowerLimit: "58.00", UpperLimit: "63.00"})
	fake.StaleUpdateNote = "Insufficient variation for update."

	store := memstore.NewStore()
	require.NoError(t, store.SaveTokens(context.Background(), models.Tokens{Access: fake.IssueToken("ana"), Refresh: "r"}))
	client := newTestClient(t, fake.URL, store)

	res, err := client.UpdateAsset(context.Background(), 9, models.AssetUpdate{Periodicity: 30})
	require.NoError(t, err)
	assert.Equal(t, "Insufficient variation for update.", res.Notice)
	assert.Equal(t, int64(9), res.Asset.ID)
	assert.Equal(t, 30, res.Asset.Periodicity)
}

func TestAPIError_BackendMessageVerbatim(t *testing.T) {
	fake := backendtest.New()
	defer fake.Close()
	fake.AddUser("ana", "ana@example.com", "pw")

	client := newTestClient(t, fake.URL, memstore.NewStore())
	_, err := client.Register(context.Background(), models.Registration{
		Username: "ana", Email: "other@example.com", Password: "x", ConfirmPassword: "x",
	})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "This username is already in use.", apiErr.Message)
	assert.Equal(t, "/user/register/", apiErr.Endpoint)
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"error key", `{"error": "Asset not found."}`, "Asset not found."},
		{"detail key", `{"detail": "Given token not valid"}`, "Given token not valid"},
		{"non field errors", `{"non_field_errors": ["Invalid or expired code."]}`, "Invalid or expired code."},
		{"field error list", `{"email": ["Enter a valid email address."]}`, "email: Enter a valid email address."},
		{"field error string", `{"password": "Passwords do not match."}`, "password: Passwords do not match."},
		{"html body", `<html>502 Bad Gateway</html>`, GenericErrorMessage},
		{"empty object", `{}`, GenericErrorMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorMessage([]byte(tt.body)))
		})
	}
}

func TestUnwrapEnvelope(t *testing.T) {
	payload, msg := unwrapEnvelope([]byte(`{"message": "ok", "data": {"id": 1}}`))
	assert.JSONEq(t, `{"id": 1}`, string(payload))
	assert.Equal(t, "ok", msg)

	payload, msg = unwrapEnvelope([]byte(`{"count": 1, "results": [{"id": 2}]}`))
	assert.JSONEq(t, `[{"id": 2}]`, string(payload))
	assert.Empty(t, msg)

	payload, msg = unwrapEnvelope([]byte(`{"message": "Asset removed."}`))
	assert.Empty(t, payload)
	assert.Equal(t, "Asset removed.", msg)

	payload, _ = unwrapEnvelope([]byte(`[1, 2]`))
	assert.Equal(t, json.RawMessage(`[1, 2]`), payload)

	payload, msg = unwrapEnvelope([]byte(`{"message": "Code sent.", "user_exists": true}`))
	assert.JSONEq(t, `{"message": "Code sent.", "user_exists": true}`, string(payload))
	assert.Equal(t, "Code sent.", msg)
}

func TestIssueToken_ReturnsPartialPairUnchanged(t *testing.T) {
	fake := backendtest.New()
	defer fake.Close()
	fake.AddUser("ana", "ana@example.com", "pw")
	fake.TokenResponse = func(access, _ string) map[string]string {
		return map[string]string{"access": access}
	}

	client := newTestClient(t, fake.URL, memstore.NewStore())
	tokens, err := client.IssueToken(context.Background(), models.Credentials{Username: "ana", Password: "pw"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.Access)
	assert.Empty(t, tokens.Refresh)
	assert.False(t, tokens.Complete())
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := newTestClient(t, url, memstore.NewStore())
	_, err := client.IssueToken(context.Background(), models.Credentials{Username: "a", Password: "b"})

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr), "got %T", err)
	assert.Equal(t, "/token/", netErr.Endpoint)
}

func TestGetUpdatesInfo(t *testing.T) {
	fake := backendtest.New()
	defer fake.Close()
	fake.AddUser("ana", "ana@example.com", "pw")

	store := memstore.NewStore()
	require.NoError(t, store.SaveTokens(context.Background(), models.Tokens{Access: fake.IssueToken("ana"), Refresh: "r"}))
	client := newTestClient(t, fake.URL, store)

	info, err := client.GetUpdatesInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2025, info.LastUpdate.Year())
	assert.Equal(t, 125, info.TimeUntilNextUpdateSecond)
	assert.True(t, info.NextUpdate.After(info.LastUpdate))
}

func TestGetQuote_EncodesQuery(t *testing.T) {
	fake := backendtest.New()
	defer fake.Close()
	fake.AddUser("ana", "ana@example.com", "pw")

	store := memstore.NewStore()
	require.NoError(t, store.SaveTokens(context.Background(), models.Tokens{Access: fake.IssueToken("ana"), Refresh: "r"}))
	client := newTestClient(t, fake.URL, store)

	q, err := client.GetQuote(context.Background(), "ITUB4.SA", 15)
	require.NoError(t, err)
	assert.Equal(t, "ITUB4.SA", q.Name)
	assert.Equal(t, 15, q.Periodicity)
	assert.True(t, q.LowerLimit.Equal(decimal.RequireFromString("25")))

	reqs := fake.RequestsTo("/stock/quote/")
	require.Len(t, reqs, 1)
	assert.Equal(t, "/stock/quote/?name=ITUB4.SA&periodicity=15", reqs[0].Path)
	assert.NotEmpty(t, reqs[0].Authorization)
}
