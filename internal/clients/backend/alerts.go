package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bobmcallan/b3notifier/internal/models"
)

// ListAlerts returns the alert feed, newest first as ordered by the backend.
func (c *Client) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	const path = "/alert/list/"
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Payload) == 0 {
		return []models.Alert{}, nil
	}
	var alerts []models.Alert
	if err := json.Unmarshal(resp.Payload, &alerts); err != nil {
		return nil, fmt.Errorf("failed to decode alert list: %w", err)
	}
	return alerts, nil
}

// CreateAlert records a client-side event (addition, edition, removal).
func (c *Client) CreateAlert(ctx context.Context, alert models.NewAlert) (*models.Alert, error) {
	const path = "/alert/create/"
	resp, err := c.do(ctx, http.MethodPost, path, alert)
	if err != nil {
		return nil, err
	}
	var out models.Alert
	if err := resp.decode(path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
