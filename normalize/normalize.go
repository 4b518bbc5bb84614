// Package normalize turns raw report input into validated, quantized fields:
// coordinates into fixed-point decimals with 6 fractional digits, and the
// free-text description into a heatmap intensity in [0, 1].
//
// All rounding is half away from zero (decimal.Round), so quantization is
// idempotent: re-normalizing a normalized value returns it unchanged.
package normalize

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"civicgrid-be/apperr"
)

var (
	latMin = decimal.NewFromInt(-90)
	latMax = decimal.NewFromInt(90)
	lonMin = decimal.NewFromInt(-180)
	lonMax = decimal.NewFromInt(180)

	one = decimal.NewFromInt(1)
	two = decimal.NewFromInt(2)
)

// Scorer produces a sentiment compound polarity in [-1, 1] for a text,
// positive meaning positive sentiment.
type Scorer interface {
	Compound(text string) float64
}

// Normalizer validates coordinates and derives intensity. Scoring is bounded
// by timeout so a slow scorer cannot stall issue creation.
type Normalizer struct {
	scorer  Scorer
	timeout time.Duration
}

func New(scorer Scorer, timeout time.Duration) *Normalizer {
	return &Normalizer{scorer: scorer, timeout: timeout}
}

// Coordinates parses raw latitude/longitude strings and quantizes them to
// exactly 6 fractional digits. Parse or range failures return an
// InvalidLocation error.
func (n *Normalizer) Coordinates(latRaw, lonRaw string) (decimal.Decimal, decimal.Decimal, error) {
	lat, err := parseCoordinate(latRaw, "latitude", latMin, latMax)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	lon, err := parseCoordinate(lonRaw, "longitude", lonMin, lonMax)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return lat, lon, nil
}

func parseCoordinate(raw, name string, min, max decimal.Decimal) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, apperr.InvalidLocationf("%s is required", name)
	}
	v, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, apperr.InvalidLocationf("%s is not a valid decimal number", name)
	}
	if v.LessThan(min) || v.GreaterThan(max) {
		return decimal.Zero, apperr.InvalidLocationf("%s must be between %s and %s", name, min, max)
	}
	return v.Round(6), nil
}

// Intensity scores the description and maps the compound polarity c to
// (1 - c) / 2, quantized to 2 fractional digits: strongly negative text
// weighs 1.00 on the heatmap, strongly positive 0.00, neutral 0.50.
// Deterministic for a given description and scorer.
func (n *Normalizer) Intensity(ctx context.Context, description string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	scored := make(chan float64, 1)
	go func() {
		scored <- n.scorer.Compound(description)
	}()

	select {
	case compound := <-scored:
		return intensityFromCompound(compound), nil
	case <-ctx.Done():
		return decimal.Zero, ctx.Err()
	}
}

func intensityFromCompound(compound float64) decimal.Decimal {
	intensity := one.Sub(decimal.NewFromFloat(compound)).Div(two).Round(2)
	if intensity.IsNegative() {
		return decimal.Zero
	}
	if intensity.GreaterThan(one) {
		return one
	}
	return intensity
}
