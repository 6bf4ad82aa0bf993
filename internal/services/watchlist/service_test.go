package watchlist

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/b3notifier/internal/clients/backend"
	"github.com/bobmcallan/b3notifier/internal/clients/backend/backendtest"
	"github.com/bobmcallan/b3notifier/internal/interfaces"
	"github.com/bobmcallan/b3notifier/internal/models"
	"github.com/bobmcallan/b3notifier/internal/storage/memstore"
)

func newTestService(t *testing.T) (*Service, *backendtest.Server) {
	t.Helper()
	fake := backendtest.New()
	t.Cleanup(fake.Close)
	fake.AddUser("ana", "ana@example.com", "pw")

	store := memstore.NewStore()
	require.NoError(t, store.SaveTokens(context.Background(), models.Tokens{Access: fake.IssueToken("ana"), Refresh: "r"}))

	client := backend.NewClient(fake.URL, backend.WithTokenSource(store), backend.WithRateLimit(0))
	svc := NewService(client, nil)
	svc.now = func() time.Time { return time.Date(2025, 3, 14, 10, 5, 0, 0, time.UTC) }
	return svc, fake
}

func TestAdd_NormalizesTickerAndRecordsAlert(t *testing.T) {
	svc, fake := newTestService(t)

	got, err := svc.Add(context.Background(), "  itub4 ", 15)
	require.NoError(t, err)
	assert.Equal(t, "ITUB4.SA", got.Name)
	assert.Equal(t, 15, got.Periodicity)

	require.Len(t, fake.Assets(), 1)
	alerts := fake.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, backendtest.Alert{
		ID:        1,
		AssetName: "ITUB4.SA",
		AlertType: "addition",
		AlertDate: "2025-03-14",
		AlertTime: "10:05",
	}, alerts[0])
}

func TestAdd_ValidationFailsBeforeRequest(t *testing.T) {
	svc, fake := newTestService(t)

	_, err := svc.Add(context.Background(), "PETR4", 7)
	var vErr *models.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "periodicity", vErr.Field)

	_, err = svc.Add(context.Background(), "   ", 5)
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "name", vErr.Field)

	assert.Empty(t, fake.Requests())
}

func TestAdd_DuplicateSurfacesBackendMessage(t *testing.T) {
	svc, fake := newTestService(t)
	fake.SetAssets(backendtest.Asset{ID: 1, Name: "VALE3.SA", Periodicity: 5, CurrentPrice: "60", LowerLimit: "58", UpperLimit: "63"})

	_, err := svc.Add(context.Background(), "vale3.sa", 5)
	var apiErr *backend.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "This asset is already being monitored.", apiErr.Message)
	assert.Empty(t, fake.Alerts(), "no alert for a failed add")
}

func TestAdd_AlertFailureIsNotReturned(t *testing.T) {
	svc, fake := newTestService(t)
	svc.client = &failingAlerts{BackendClient: svc.client}

	got, err := svc.Add(context.Background(), "BBAS3", 30)
	require.NoError(t, err)
	assert.Equal(t, "BBAS3.SA", got.Name)
	assert.Len(t, fake.Assets(), 1)
}

func TestEdit_ReturnsNotice(t *testing.T) {
	svc, fake := newTestService(t)
	fake.SetAssets(backendtest.Asset{ID: 4, Name: "MGLU3.SA", Periodicity: 5, CurrentPrice: "8.15", LowerLimit: "7.90", UpperLimit: "8.60"})
	fake.StaleUpdateNote = "Insufficient variation for update."

	assets, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)

	res, err := svc.Edit(context.Background(), assets[0], 60)
	require.NoError(t, err)
	assert.Equal(t, 60, res.Asset.Periodicity)
	assert.Equal(t, "Insufficient variation for update.", res.Notice)

	alerts := fake.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, "edition", alerts[0].AlertType)
	assert.Equal(t, "MGLU3.SA", alerts[0].AssetName)
}

func TestEdit_InvalidPeriodicity(t *testing.T) {
	svc, fake := newTestService(t)
	_, err := svc.Edit(context.Background(), models.MonitoredAsset{ID: 1, Name: "X.SA"}, 0)
	var vErr *models.ValidationError
	assert.True(t, errors.As(err, &vErr))
	assert.Empty(t, fake.Requests())
}

func TestRemove_RecordsAlert(t *testing.T) {
	svc, fake := newTestService(t)
	fake.SetAssets(
		backendtest.Asset{ID: 1, Name: "ITUB4.SA", Periodicity: 5, CurrentPrice: "29", LowerLimit: "25", UpperLimit: "30"},
		backendtest.Asset{ID: 2, Name: "PETR4.SA", Periodicity: 5, CurrentPrice: "36", LowerLimit: "34", UpperLimit: "38"},
	)

	require.NoError(t, svc.Remove(context.Background(), models.MonitoredAsset{ID: 1, Name: "ITUB4.SA"}))

	remaining := fake.Assets()
	require.Len(t, remaining, 1)
	assert.Equal(t, "PETR4.SA", remaining[0].Name)

	alerts := fake.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, "removal", alerts[0].AlertType)
}

func TestRemove_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.Remove(context.Background(), models.MonitoredAsset{ID: 99, Name: "NOPE.SA"})
	assert.True(t, backend.IsStatus(err, http.StatusNotFound))
}

func TestQuote(t *testing.T) {
	svc, fake := newTestService(t)
	q, err := svc.Quote(context.Background(), "itub4", 10)
	require.NoError(t, err)
	assert.Equal(t, "ITUB4.SA", q.Name)
	assert.Equal(t, "29", q.CurrentPrice.String())

	reqs := fake.RequestsTo("/stock/quote/")
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Path, "name=ITUB4.SA")
}

type failingAlerts struct {
	interfaces.BackendClient
}

func (f *failingAlerts) CreateAlert(context.Context, models.NewAlert) (*models.Alert, error) {
	return nil, errors.New("alert endpoint unavailable")
}
