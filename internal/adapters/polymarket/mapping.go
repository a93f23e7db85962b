package polymarket

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/forecastedge/internal/domain"
)

// mapEvent convierte un gammaEvent DTO a domain.Event.
func mapEvent(ge gammaEvent, spec domain.EventSpec) domain.Event {
	g := spec.Granularity
	if g <= 0 {
		g = 1
	}
	ev := domain.Event{
		ID:          ge.ID,
		Slug:        ge.Slug,
		Title:       ge.Title,
		Category:    ge.Category,
		Location:    spec.Location,
		Granularity: g,
		Closed:      ge.Closed,
		EndDate:     parseTime(ge.EndDate),
		EventDate:   spec.EventDate,
	}
	if ev.Category == "" && len(ge.Tags) > 0 {
		ev.Category = ge.Tags[0].Label
	}
	if ev.EventDate.IsZero() && !ev.EndDate.IsZero() {
		ev.EventDate = eventDate(ev.EndDate, spec.Timezone)
	}

	for _, m := range ge.Markets {
		ev.Buckets = append(ev.Buckets, mapBucket(m, g))
	}
	ev.Buckets = domain.SortBuckets(ev.Buckets)
	return ev
}

// mapBucket convierte un mercado de Gamma en un Bucket. Si la etiqueta no se
// puede interpretar, los límites quedan en NaN y el core lo descarta como
// ErrInvalidBucketRange.
func mapBucket(m gammaMarket, granularity float64) domain.Bucket {
	label := m.GroupItemTitle
	if label == "" {
		label = m.Question
	}
	b := domain.Bucket{
		ID:    m.ConditionID,
		Label: label,
	}
	if b.ID == "" {
		b.ID = m.ID
	}

	low, high, err := parseBucketRange(label, granularity)
	if err != nil {
		low, high = math.NaN(), math.NaN()
	}
	b.Low, b.High = low, high

	yes, no, pricesOK := parseOutcomePrices(m.OutcomePrices)
	b.PriceYes, b.PriceNo = yes, no
	// Precio de compra: el ask de YES; el de NO es 1 - bid de YES.
	if ask, err := m.BestAsk.Float64(); err == nil && ask > 0 {
		b.PriceYes = ask
	}
	if bid, err := m.BestBid.Float64(); err == nil && bid > 0 {
		b.PriceNo = 1 - bid
	}
	if depth, err := m.LiquidityNum.Float64(); err == nil {
		b.Depth = depth
	}

	if m.Closed && pricesOK {
		b.Outcome = outcomeFromPrices(yes, no)
	}
	return b
}

// parseOutcomePrices decodifica "[\"0.12\",\"0.88\"]".
func parseOutcomePrices(raw string) (yes, no float64, ok bool) {
	if raw == "" {
		return 0, 0, false
	}
	var prices []string
	if err := json.Unmarshal([]byte(raw), &prices); err != nil || len(prices) < 2 {
		return 0, 0, false
	}
	y, err1 := strconv.ParseFloat(prices[0], 64)
	n, err2 := strconv.ParseFloat(prices[1], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return y, n, true
}

// outcomeFromPrices: un mercado cerrado liquida a 1/0.
func outcomeFromPrices(yes, no float64) domain.Outcome {
	switch {
	case yes >= 0.99 && no <= 0.01:
		return domain.OutcomeYes
	case no >= 0.99 && yes <= 0.01:
		return domain.OutcomeNo
	}
	return domain.OutcomeUnresolved
}

var (
	rangeRe  = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*(?:-|to)\s*(-?\d+(?:\.\d+)?)$`)
	numberRe = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)$`)
	unitRe   = regexp.MustCompile(`\s*°?\s*[fc]\b|°|º`)
)

// parseBucketRange interpreta etiquetas como "78-79°F", "77°F or below" o
// "88°F or higher". Los rangos son inclusivos en la etiqueta, así que el límite
// superior se extiende un paso de granularidad: "78-79" → [78, 80).
func parseBucketRange(label string, granularity float64) (low, high float64, err error) {
	s := strings.ToLower(strings.TrimSpace(label))

	for _, suffix := range []string{"or below", "or lower", "or less"} {
		if rest, ok := strings.CutSuffix(s, suffix); ok {
			v, err := parseNumber(rest)
			if err != nil {
				return 0, 0, err
			}
			return math.Inf(-1), v + granularity, nil
		}
	}
	for _, suffix := range []string{"or higher", "or above", "or more"} {
		if rest, ok := strings.CutSuffix(s, suffix); ok {
			v, err := parseNumber(rest)
			if err != nil {
				return 0, 0, err
			}
			return v, math.Inf(1), nil
		}
	}

	clean := strings.TrimSpace(unitRe.ReplaceAllString(s, ""))
	if m := rangeRe.FindStringSubmatch(clean); m != nil {
		lo, _ := strconv.ParseFloat(m[1], 64)
		hi, _ := strconv.ParseFloat(m[2], 64)
		return lo, hi + granularity, nil
	}
	if numberRe.MatchString(clean) {
		v, _ := strconv.ParseFloat(clean, 64)
		return v, v + granularity, nil
	}
	return 0, 0, fmt.Errorf("unrecognised bucket label %q", label)
}

func parseNumber(s string) (float64, error) {
	clean := strings.TrimSpace(unitRe.ReplaceAllString(s, ""))
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("bucket bound %q: %w", s, err)
	}
	return v, nil
}

// eventDate devuelve la fecha local (medianoche UTC) del fin del evento.
func eventDate(end time.Time, tz string) time.Time {
	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	y, m, d := end.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// parseTime acepta los formatos que usa Polymarket.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
