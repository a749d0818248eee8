package models

import (
	"errors"
	"fmt"
)

// ErrInvalidSearchParams is returned when SearchParams fail validation.
var ErrInvalidSearchParams = errors.New("invalid search params")

// DebugLimit caps processed listings in debug mode.
const DebugLimit = 3

// SearchParams holds user search criteria. Zero numeric bounds mean "unset".
type SearchParams struct {
	Zip        string `json:"zip" mapstructure:"zip"`
	Radius     int    `json:"radius" mapstructure:"radius"`
	YearMin    int    `json:"year_min" mapstructure:"year_min"`
	YearMax    int    `json:"year_max" mapstructure:"year_max"`
	MaxMileage int    `json:"max_mileage" mapstructure:"max_mileage"`
	MaxPrice   int    `json:"max_price,omitempty" mapstructure:"max_price"`
	Limit      int    `json:"limit" mapstructure:"limit"`
	Debug      bool   `json:"debug" mapstructure:"debug"`
}

// Validate checks the numeric invariants of the search.
func (p SearchParams) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"radius", p.Radius},
		{"year_min", p.YearMin},
		{"year_max", p.YearMax},
		{"max_mileage", p.MaxMileage},
		{"max_price", p.MaxPrice},
		{"limit", p.Limit},
	}
	for _, f := range fields {
		if f.value < 0 {
			return fmt.Errorf("%w: %s must not be negative (got %d)", ErrInvalidSearchParams, f.name, f.value)
		}
	}
	if p.YearMin > 0 && p.YearMax > 0 && p.YearMin > p.YearMax {
		return fmt.Errorf("%w: year_min %d is greater than year_max %d", ErrInvalidSearchParams, p.YearMin, p.YearMax)
	}
	return nil
}

// EffectiveLimit is the number of listing URLs a run visits.
func (p SearchParams) EffectiveLimit() int {
	if p.Debug {
		return DebugLimit
	}
	return p.Limit
}
