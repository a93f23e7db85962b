package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/forecastedge/internal/adapters/openmeteo"
	"github.com/alejandrodnm/forecastedge/internal/domain"
	"github.com/alejandrodnm/forecastedge/internal/ensemble"
	"github.com/alejandrodnm/forecastedge/internal/ladder"
	"github.com/alejandrodnm/forecastedge/internal/lifecycle"
	"github.com/alejandrodnm/forecastedge/internal/probability"
	"github.com/alejandrodnm/forecastedge/internal/risk"
	"github.com/alejandrodnm/forecastedge/internal/signal"
	"github.com/alejandrodnm/forecastedge/internal/sizing"
)

// Config es la configuración completa del bot.
type Config struct {
	Scanner  ScannerConfig  `yaml:"scanner"`
	Forecast ForecastConfig `yaml:"forecast"`
	Signal   SignalConfig   `yaml:"signal"`
	Sizing   SizingConfig   `yaml:"sizing"`
	Ladder   LadderConfig   `yaml:"ladder"`
	Stops    StopsConfig    `yaml:"stops"`
	Risk     RiskConfig     `yaml:"risk"`
	API      APIConfig      `yaml:"api"`
	Events   []EventConfig  `yaml:"events" validate:"dive"`
	Storage  StorageConfig  `yaml:"storage"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// ScannerConfig controla el loop.
type ScannerConfig struct {
	IntervalSeconds int  `yaml:"interval_seconds" default:"900" validate:"gt=0"`
	AnalysisWorkers int  `yaml:"analysis_workers" default:"4" validate:"gte=0"` // 0 = NumCPU*2
	PaperTrade      bool `yaml:"paper_trade" default:"true"`
}

// ForecastConfig controla la agregación del ensemble y el fallback sintético.
type ForecastConfig struct {
	Variable             string             `yaml:"variable" default:"temperature_2m_max" validate:"required"`
	Models               string             `yaml:"models" default:"gfs_seamless,ecmwf_ifs025"`
	DefaultTypicalSpread float64            `yaml:"default_typical_spread" default:"4" validate:"gt=0"`
	TypicalSpread        map[string]float64 `yaml:"typical_spread" validate:"dive,gt=0"` // por location
	SyntheticSigma       float64            `yaml:"synthetic_sigma" default:"3" validate:"gt=0"`
	SyntheticMembers     int                `yaml:"synthetic_members" default:"50" validate:"gte=2"`
	SyntheticConfidence  float64            `yaml:"synthetic_confidence" default:"0.25" validate:"gt=0,lte=1"`
	Seed                 uint64             `yaml:"seed" default:"42"`
	HorizonBands         []HorizonBand      `yaml:"horizon_bands" validate:"dive"` // vacío = bandas por defecto
}

// HorizonBand: σ mínimo para eventos a menos de MaxHours. MaxHours 0 = sin límite.
type HorizonBand struct {
	MaxHours float64 `yaml:"max_hours" validate:"gte=0"`
	Sigma    float64 `yaml:"sigma" validate:"gt=0"`
}

// SignalConfig contiene los umbrales de edge.
type SignalConfig struct {
	MinEdge             float64 `yaml:"min_edge" default:"0.08" validate:"gt=0,lt=1"`
	MinLadderEdge       float64 `yaml:"min_ladder_edge" default:"0.05" validate:"gt=0,ltefield=MinEdge"`
	MinConfidence       float64 `yaml:"min_confidence" default:"0.30" validate:"gte=0,lte=1"`
	MinPrice            float64 `yaml:"min_price" default:"0.01" validate:"gte=0,lt=1"`
	MaxPrice            float64 `yaml:"max_price" default:"0.99" validate:"gtfield=MinPrice,lte=1"`
	MinDepth            float64 `yaml:"min_depth" validate:"gte=0"`
	StructuralThreshold float64 `yaml:"structural_threshold" default:"0.05" validate:"gt=0"`
}

// SizingConfig: fractional Kelly con topes.
type SizingConfig struct {
	KellyFraction  float64 `yaml:"kelly_fraction" default:"0.25" validate:"gt=0,lte=1"`
	MaxTradeUSD    float64 `yaml:"max_trade_usd" default:"10" validate:"gt=0"`
	MaxBankrollPct float64 `yaml:"max_bankroll_pct" default:"0.05" validate:"gt=0,lte=1"`
}

// LadderConfig: budget 0 desactiva los ladders.
type LadderConfig struct {
	Window       int     `yaml:"window" default:"2" validate:"gte=0"`
	MaxLegs      int     `yaml:"max_legs" default:"5" validate:"gte=2"`
	Budget       float64 `yaml:"budget_usd" default:"10" validate:"gte=0"`
	CheapCeiling float64 `yaml:"cheap_ceiling" default:"0.20" validate:"gt=0,lte=1"`
	MinLegUSD    float64 `yaml:"min_leg_usd" default:"0.5" validate:"gte=0"`
	MinShares    float64 `yaml:"min_shares" default:"5" validate:"gte=0"`
}

// StopsConfig contiene los parámetros de stop-loss.
type StopsConfig struct {
	FixedStopFraction  float64  `yaml:"fixed_stop_fraction" default:"0.5" validate:"gt=0,lte=1"`
	TrailingActivation float64  `yaml:"trailing_activation" default:"0.2" validate:"gt=0"`
	TrailingDistance   float64  `yaml:"trailing_distance" default:"0.2" validate:"gt=0,lt=1"`
	VolatileCategories []string `yaml:"volatile_categories" validate:"dive,oneof=WEATHER CRYPTO EQUITIES ECONOMICS SPORTS SOCIAL POLITICS OTHER"`
}

// RiskConfig: límites del risk guard. 0 desactiva el check.
type RiskConfig struct {
	StartingBankroll float64 `yaml:"starting_bankroll" default:"1000" validate:"gt=0"`
	MinBankroll      float64 `yaml:"min_bankroll" default:"500" validate:"gte=0,ltefield=StartingBankroll"`
	MaxDrawdownPct   float64 `yaml:"max_drawdown_pct" default:"0.30" validate:"gte=0,lte=1"`
	MaxExposureUSD   float64 `yaml:"max_exposure_usd" default:"300" validate:"gte=0"`
	MaxPositionPct   float64 `yaml:"max_position_pct" default:"0.05" validate:"gte=0,lte=1"`
}

// APIConfig contiene los base URLs de las APIs.
type APIConfig struct {
	GammaBase    string `yaml:"gamma_base" default:"https://gamma-api.polymarket.com" validate:"url"`
	EnsembleBase string `yaml:"ensemble_base" default:"https://ensemble-api.open-meteo.com" validate:"url"`
	ForecastBase string `yaml:"forecast_base" default:"https://api.open-meteo.com" validate:"url"`
}

// EventConfig describe un evento a seguir. Date vacío = se toma del mercado.
type EventConfig struct {
	Slug        string  `yaml:"slug" validate:"required"`
	Location    string  `yaml:"location" validate:"required"`
	Latitude    float64 `yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude   float64 `yaml:"longitude" validate:"gte=-180,lte=180"`
	Unit        string  `yaml:"unit" default:"fahrenheit" validate:"oneof=fahrenheit celsius"`
	Timezone    string  `yaml:"timezone" default:"America/New_York" validate:"timezone"`
	Granularity float64 `yaml:"granularity" default:"1" validate:"gt=0"`
	Date        string  `yaml:"date" validate:"omitempty,datetime=2006-01-02"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn" default:"forecastedge.db" validate:"required"` // ruta al archivo SQLite, o ":memory:"
}

// MetricsConfig controla el endpoint de Prometheus.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" default:":9102" validate:"required_if=Enabled true"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"text" validate:"oneof=text json"`
}

var validate = validator.New()

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Orden: defaults de los tags → YAML → variables de entorno → validación.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse construye la configuración a partir de YAML ya leído.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("config.Parse: defaults: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Parse: parse YAML: %w", err)
	}
	// Los eventos llegan del YAML: sus defaults se aplican después.
	for i := range cfg.Events {
		if err := defaults.Set(&cfg.Events[i]); err != nil {
			return nil, fmt.Errorf("config.Parse: defaults for event %d: %w", i, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config.Parse: %w", describe(err))
	}
	return &cfg, nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
		cfg.Metrics.Enabled = true
	}
	if v := os.Getenv("STARTING_BANKROLL"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config.applyEnvOverrides: STARTING_BANKROLL %q: %w", v, err)
		}
		cfg.Risk.StartingBankroll = f
	}
	return nil
}

// describe aplana los errores del validator a "Campo: regla".
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Namespace(), rule))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// ScanInterval devuelve el intervalo de escaneo como time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.IntervalSeconds) * time.Second
}

// EventSpecs convierte los eventos configurados al tipo del dominio.
func (c *Config) EventSpecs() []domain.EventSpec {
	specs := make([]domain.EventSpec, 0, len(c.Events))
	for _, e := range c.Events {
		spec := domain.EventSpec{
			Slug:        e.Slug,
			Location:    e.Location,
			Latitude:    e.Latitude,
			Longitude:   e.Longitude,
			Unit:        e.Unit,
			Timezone:    e.Timezone,
			Granularity: e.Granularity,
		}
		if e.Date != "" {
			// Validado con datetime=2006-01-02.
			spec.EventDate, _ = time.Parse(time.DateOnly, e.Date)
		}
		specs = append(specs, spec)
	}
	return specs
}

// EnsembleConfig devuelve la configuración del agregador.
func (c *Config) EnsembleConfig() ensemble.Config {
	spread := make(map[string]float64, len(c.Forecast.TypicalSpread))
	for k, v := range c.Forecast.TypicalSpread {
		spread[strings.ToLower(k)] = v
	}
	return ensemble.Config{
		DefaultTypicalSpread: c.Forecast.DefaultTypicalSpread,
		TypicalSpread:        spread,
		SyntheticSigma:       c.Forecast.SyntheticSigma,
		SyntheticMembers:     c.Forecast.SyntheticMembers,
		SyntheticConfidence:  c.Forecast.SyntheticConfidence,
		Seed:                 c.Forecast.Seed,
	}
}

// ProbabilityConfig devuelve las bandas de horizonte, o las de por defecto.
func (c *Config) ProbabilityConfig() probability.Config {
	if len(c.Forecast.HorizonBands) == 0 {
		return probability.DefaultConfig()
	}
	bands := make([]probability.HorizonBand, 0, len(c.Forecast.HorizonBands))
	for _, b := range c.Forecast.HorizonBands {
		h := b.MaxHours
		if h == 0 {
			h = math.Inf(1)
		}
		bands = append(bands, probability.HorizonBand{MaxHours: h, Sigma: b.Sigma})
	}
	return probability.Config{HorizonBands: bands}
}

// SignalConfig devuelve los umbrales del detector.
func (c *Config) SignalConfig() signal.Config {
	return signal.Config{
		MinEdge:             c.Signal.MinEdge,
		MinLadderEdge:       c.Signal.MinLadderEdge,
		MinConfidence:       c.Signal.MinConfidence,
		MinPrice:            c.Signal.MinPrice,
		MaxPrice:            c.Signal.MaxPrice,
		MinDepth:            c.Signal.MinDepth,
		StructuralThreshold: c.Signal.StructuralThreshold,
	}
}

// SizingConfig devuelve los parámetros de Kelly.
func (c *Config) SizingConfig() sizing.Config {
	return sizing.Config{
		KellyFraction:  c.Sizing.KellyFraction,
		MaxTradeUSD:    c.Sizing.MaxTradeUSD,
		MaxBankrollPct: c.Sizing.MaxBankrollPct,
	}
}

// LadderConfig comparte los umbrales de señal y el sizing.
func (c *Config) LadderConfig() ladder.Config {
	return ladder.Config{
		Window:        c.Ladder.Window,
		MaxLegs:       c.Ladder.MaxLegs,
		Budget:        c.Ladder.Budget,
		CheapCeiling:  c.Ladder.CheapCeiling,
		MinLegUSD:     c.Ladder.MinLegUSD,
		MinShares:     c.Ladder.MinShares,
		MinLadderEdge: c.Signal.MinLadderEdge,
		MinConfidence: c.Signal.MinConfidence,
		Sizing:        c.SizingConfig(),
	}
}

// StopConfig devuelve los parámetros de stop-loss. Sin categorías volátiles
// configuradas se usan las de por defecto.
func (c *Config) StopConfig() lifecycle.StopConfig {
	cfg := lifecycle.StopConfig{
		FixedStopFraction:  c.Stops.FixedStopFraction,
		TrailingActivation: c.Stops.TrailingActivation,
		TrailingDistance:   c.Stops.TrailingDistance,
		VolatileCategories: lifecycle.DefaultStopConfig().VolatileCategories,
	}
	if len(c.Stops.VolatileCategories) > 0 {
		cfg.VolatileCategories = make([]domain.Category, 0, len(c.Stops.VolatileCategories))
		for _, s := range c.Stops.VolatileCategories {
			cfg.VolatileCategories = append(cfg.VolatileCategories, domain.ParseCategory(s))
		}
	}
	return cfg
}

// RiskConfig devuelve los límites del guard.
func (c *Config) RiskConfig() risk.Config {
	return risk.Config{
		StartingBankroll: c.Risk.StartingBankroll,
		MinBankroll:      c.Risk.MinBankroll,
		MaxDrawdownPct:   c.Risk.MaxDrawdownPct,
		MaxExposureUSD:   c.Risk.MaxExposureUSD,
		MaxPositionPct:   c.Risk.MaxPositionPct,
	}
}

// OpenMeteoConfig devuelve la configuración del forecast provider.
func (c *Config) OpenMeteoConfig() openmeteo.Config {
	return openmeteo.Config{
		EnsembleBase: c.API.EnsembleBase,
		ForecastBase: c.API.ForecastBase,
		Variable:     c.Forecast.Variable,
		Models:       c.Forecast.Models,
	}
}
