package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bobmcallan/b3notifier/internal/models"
)

// ListAssets returns the watchlist in backend order.
func (c *Client) ListAssets(ctx context.Context) ([]models.MonitoredAsset, error) {
	resp, err := c.do(ctx, http.MethodGet, "/stock/list/", nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Payload) == 0 {
		return []models.MonitoredAsset{}, nil
	}
	return decodeAssets(resp.Payload)
}

// CreateAsset starts monitoring a ticker; the backend fills price and limits.
func (c *Client) CreateAsset(ctx context.Context, asset models.NewAsset) (*models.MonitoredAsset, error) {
	const path = "/stock/create/"
	resp, err := c.do(ctx, http.MethodPost, path, asset)
	if err != nil {
		return nil, err
	}
	if len(resp.Payload) == 0 {
		return nil, fmt.Errorf("empty response from %s", path)
	}
	return decodeAsset(resp.Payload)
}

// UpdateAsset changes the periodicity and lets the backend recompute limits.
// When the backend keeps the limits, its message is returned as the notice.
func (c *Client) UpdateAsset(ctx context.Context, id int64, update models.AssetUpdate) (*models.AssetUpdateResult, error) {
	path := fmt.Sprintf("/stock/update/%d/", id)
	resp, err := c.do(ctx, http.MethodPut, path, update)
	if err != nil {
		return nil, err
	}
	if len(resp.Payload) == 0 {
		return nil, fmt.Errorf("empty response from %s", path)
	}
	asset, err := decodeAsset(resp.Payload)
	if err != nil {
		return nil, err
	}
	return &models.AssetUpdateResult{Asset: *asset, Notice: resp.Message}, nil
}

// DeleteAsset stops monitoring an asset.
func (c *Client) DeleteAsset(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/stock/delete/%d/", id), nil)
	return err
}

// GetQuote previews price and limits for a ticker before it is added.
func (c *Client) GetQuote(ctx context.Context, name string, periodicity int) (*models.Quote, error) {
	params := url.Values{}
	params.Set("name", name)
	params.Set("periodicity", strconv.Itoa(periodicity))
	path := "/stock/quote/?" + params.Encode()

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var r assetRecord
	if err := resp.decode(path, &r); err != nil {
		return nil, err
	}
	if r.Name == "" {
		r.Name = name
	}
	if len(r.Periodicity) == 0 {
		r.Periodicity = []byte(strconv.Itoa(periodicity))
	}
	a, err := r.toModel()
	if err != nil {
		return nil, err
	}
	return &models.Quote{
		Name:         a.Name,
		Periodicity:  a.Periodicity,
		CurrentPrice: a.CurrentPrice,
		LowerLimit:   a.LowerLimit,
		UpperLimit:   a.UpperLimit,
	}, nil
}

// GetUpdatesInfo reports when prices were last and will next be refreshed.
func (c *Client) GetUpdatesInfo(ctx context.Context) (*models.UpdateInfo, error) {
	const path = "/stocks/updates-info/"
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var r updateInfoRecord
	if err := resp.decode(path, &r); err != nil {
		return nil, err
	}
	return r.toModel()
}
