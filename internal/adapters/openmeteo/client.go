// Package openmeteo implementa ForecastProvider con la API de Open-Meteo:
// miembros del ensemble cuando existen y el forecast determinista como fallback.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/forecastedge/internal/adapters/httpx"
	"github.com/alejandrodnm/forecastedge/internal/domain"
)

const (
	defaultEnsembleBase = "https://ensemble-api.open-meteo.com"
	defaultForecastBase = "https://api.open-meteo.com"

	defaultVariable = "temperature_2m_max"
	defaultModels   = "gfs_seamless,ecmwf_ifs025"

	// 10 000 llamadas/día en el plan libre; 5/s por host es holgado.
	ratePerSec     = 5
	burst          = 5
	requestTimeout = 15 * time.Second
)

// Config configura el client. Los campos vacíos usan los valores de producción.
type Config struct {
	EnsembleBase string
	ForecastBase string
	Variable     string // daily variable, e.g. temperature_2m_max
	Models       string // comma-separated ensemble models
}

// Client consulta las dos APIs con un limiter por host.
type Client struct {
	cfg      Config
	ensemble *httpx.Client
	forecast *httpx.Client
}

// NewClient crea un Client.
func NewClient(cfg Config, opts ...httpx.Option) *Client {
	if cfg.EnsembleBase == "" {
		cfg.EnsembleBase = defaultEnsembleBase
	}
	if cfg.ForecastBase == "" {
		cfg.ForecastBase = defaultForecastBase
	}
	if cfg.Variable == "" {
		cfg.Variable = defaultVariable
	}
	if cfg.Models == "" {
		cfg.Models = defaultModels
	}
	return &Client{
		cfg:      cfg,
		ensemble: httpx.New("open-meteo-ensemble", ratePerSec, burst, requestTimeout, opts...),
		forecast: httpx.New("open-meteo-forecast", ratePerSec, burst, requestTimeout, opts...),
	}
}

// dailyResponse: "daily" mezcla "time" con una serie por variable/miembro
// (temperature_2m_max, temperature_2m_max_member01, temperature_2m_max_gfs_seamless, ...).
type dailyResponse struct {
	Daily map[string]json.RawMessage `json:"daily"`
}

// FetchForecast devuelve los miembros del ensemble para spec.EventDate o, si no hay,
// el valor determinista. Un Forecast vacío significa que ninguna API tiene datos.
func (c *Client) FetchForecast(ctx context.Context, spec domain.EventSpec) (domain.Forecast, error) {
	f := domain.Forecast{Location: spec.Location, EventDate: spec.EventDate}

	samples, ensErr := c.fetchEnsemble(ctx, spec)
	if ensErr == nil && len(samples) > 0 {
		f.Samples = samples
		f.Source = "ensemble:" + c.cfg.Models
		return f, nil
	}
	if ensErr != nil {
		slog.Warn("ensemble forecast failed, falling back to deterministic",
			"location", spec.Location, "err", ensErr)
	}

	value, ok, detErr := c.fetchDeterministic(ctx, spec)
	if detErr != nil {
		if ensErr != nil {
			return f, fmt.Errorf("openmeteo.FetchForecast %s: ensemble: %v; forecast: %w", spec.Location, ensErr, detErr)
		}
		return f, fmt.Errorf("openmeteo.FetchForecast %s: %w", spec.Location, detErr)
	}
	if ok {
		f.Deterministic = &value
		f.Source = "forecast"
	}
	return f, nil
}

func (c *Client) fetchEnsemble(ctx context.Context, spec domain.EventSpec) ([]float64, error) {
	q := c.query(spec)
	q.Set("models", c.cfg.Models)

	var resp dailyResponse
	if err := c.ensemble.GetJSON(ctx, c.cfg.EnsembleBase+"/v1/ensemble?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	idx, err := dayIndex(resp.Daily, spec.EventDate)
	if err != nil || idx < 0 {
		return nil, err
	}

	var samples []float64
	for key, raw := range resp.Daily {
		if !c.isEnsembleKey(key) {
			continue
		}
		series, err := decodeSeries(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		if idx < len(series) && series[idx] != nil {
			samples = append(samples, *series[idx])
		}
	}
	return samples, nil
}

// isEnsembleKey acepta los miembros perturbados y la corrida de control de cada
// modelo: "<var>", "<var>_<model>", "<var>_memberNN" y "<var>_memberNN_<model>".
func (c *Client) isEnsembleKey(key string) bool {
	if !strings.HasPrefix(key, c.cfg.Variable) {
		return false
	}
	if key == c.cfg.Variable || strings.Contains(key, "member") {
		return true
	}
	for _, m := range strings.Split(c.cfg.Models, ",") {
		if m = strings.TrimSpace(m); m != "" && key == c.cfg.Variable+"_"+m {
			return true
		}
	}
	return false
}

func (c *Client) fetchDeterministic(ctx context.Context, spec domain.EventSpec) (float64, bool, error) {
	var resp dailyResponse
	if err := c.forecast.GetJSON(ctx, c.cfg.ForecastBase+"/v1/forecast?"+c.query(spec).Encode(), &resp); err != nil {
		return 0, false, err
	}
	idx, err := dayIndex(resp.Daily, spec.EventDate)
	if err != nil || idx < 0 {
		return 0, false, err
	}
	raw, ok := resp.Daily[c.cfg.Variable]
	if !ok {
		return 0, false, nil
	}
	series, err := decodeSeries(raw)
	if err != nil {
		return 0, false, fmt.Errorf("decode %s: %w", c.cfg.Variable, err)
	}
	if idx >= len(series) || series[idx] == nil {
		return 0, false, nil
	}
	return *series[idx], true, nil
}

func (c *Client) query(spec domain.EventSpec) url.Values {
	day := spec.EventDate.Format("2006-01-02")
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(spec.Latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(spec.Longitude, 'f', 4, 64))
	q.Set("daily", c.cfg.Variable)
	q.Set("start_date", day)
	q.Set("end_date", day)
	if spec.Unit != "" {
		q.Set("temperature_unit", spec.Unit)
	}
	tz := spec.Timezone
	if tz == "" {
		tz = "auto"
	}
	q.Set("timezone", tz)
	return q
}

// dayIndex devuelve la posición de la fecha en daily.time, o -1 si no está.
func dayIndex(daily map[string]json.RawMessage, date time.Time) (int, error) {
	raw, ok := daily["time"]
	if !ok {
		return -1, nil
	}
	var days []string
	if err := json.Unmarshal(raw, &days); err != nil {
		return -1, fmt.Errorf("decode time: %w", err)
	}
	want := date.Format("2006-01-02")
	for i, d := range days {
		if d == want {
			return i, nil
		}
	}
	return -1, nil
}

// decodeSeries admite null para miembros sin dato.
func decodeSeries(raw json.RawMessage) ([]*float64, error) {
	var series []*float64
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, err
	}
	return series, nil
}
