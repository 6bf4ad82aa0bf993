package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/b3notifier/internal/models"
)

var errMissing = errors.New("value missing")

// assetRecord is the wire shape of a MonitoredAsset. Numeric fields may
// arrive as JSON numbers or as strings (Django DecimalField).
type assetRecord struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Periodicity  json.RawMessage `json:"periodicity"`
	CurrentPrice json.RawMessage `json:"current_price"`
	LowerLimit   json.RawMessage `json:"lower_limit"`
	UpperLimit   json.RawMessage `json:"upper_limit"`
}

func (r assetRecord) toModel() (models.MonitoredAsset, error) {
	a := models.MonitoredAsset{ID: r.ID, Name: r.Name}

	var err error
	if a.Periodicity, err = parseInt("periodicity", r.Periodicity, r.ID); err != nil {
		return models.MonitoredAsset{}, err
	}
	if a.CurrentPrice, err = parseDecimal("current_price", r.CurrentPrice, r.ID); err != nil {
		return models.MonitoredAsset{}, err
	}
	if a.LowerLimit, err = parseDecimal("lower_limit", r.LowerLimit, r.ID); err != nil {
		return models.MonitoredAsset{}, err
	}
	if a.UpperLimit, err = parseDecimal("upper_limit", r.UpperLimit, r.ID); err != nil {
		return models.MonitoredAsset{}, err
	}
	return a, nil
}

// rawScalar returns the textual value of a JSON number or string.
func rawScalar(raw json.RawMessage) (string, error) {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return "", errMissing
	}
	if v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return string(v), err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return "", errMissing
		}
		return s, nil
	}
	return string(v), nil
}

func parseDecimal(field string, raw json.RawMessage, id int64) (decimal.Decimal, error) {
	s, err := rawScalar(raw)
	if err != nil {
		return decimal.Zero, &models.DataError{Field: field, Value: s, AssetID: id, Err: err}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &models.DataError{Field: field, Value: s, AssetID: id, Err: err}
	}
	return d, nil
}

func parseInt(field string, raw json.RawMessage, id int64) (int, error) {
	s, err := rawScalar(raw)
	if err != nil {
		return 0, &models.DataError{Field: field, Value: s, AssetID: id, Err: err}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &models.DataError{Field: field, Value: s, AssetID: id, Err: err}
	}
	return n, nil
}

// decodeAssets converts wire records, failing on the first malformed one.
func decodeAssets(payload json.RawMessage) ([]models.MonitoredAsset, error) {
	var records []assetRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("failed to decode asset list: %w", err)
	}
	assets := make([]models.MonitoredAsset, 0, len(records))
	for _, r := range records {
		a, err := r.toModel()
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, nil
}

func decodeAsset(payload json.RawMessage) (*models.MonitoredAsset, error) {
	var r assetRecord
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("failed to decode asset: %w", err)
	}
	a, err := r.toModel()
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// updateInfoRecord is the wire shape of /stocks/updates-info/.
type updateInfoRecord struct {
	LastUpdate *string         `json:"last_update"`
	NextUpdate *string         `json:"next_update"`
	Remaining  json.RawMessage `json:"time_until_next_update_seconds"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
}

func parseTimestamp(field string, s *string) (time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, *s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &models.DataError{Field: field, Value: *s, Err: errors.New("unrecognised timestamp")}
}

func (r updateInfoRecord) toModel() (*models.UpdateInfo, error) {
	last, err := parseTimestamp("last_update", r.LastUpdate)
	if err != nil {
		return nil, err
	}
	next, err := parseTimestamp("next_update", r.NextUpdate)
	if err != nil {
		return nil, err
	}
	info := &models.UpdateInfo{LastUpdate: last, NextUpdate: next}
	if len(bytes.TrimSpace(r.Remaining)) > 0 && !bytes.Equal(bytes.TrimSpace(r.Remaining), []byte("null")) {
		secs, err := parseDecimal("time_until_next_update_seconds", r.Remaining, 0)
		if err != nil {
			return nil, err
		}
		info.TimeUntilNextUpdateSecond = int(secs.IntPart())
	}
	return info, nil
}
