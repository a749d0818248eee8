// Package filter enforces the numeric bounds of a search against listings
// that already passed classification.
package filter

import (
	"fmt"

	"github.com/Jasminestrone/MiataMaestro/pkg/models"
)

// Check reports whether l satisfies the bounds in params. When it does
// not, reason names the violated bound. Unknown attributes never fail.
func Check(l models.Listing, params models.SearchParams) (bool, string) {
	if l.Year != nil {
		if params.YearMin > 0 && *l.Year < params.YearMin {
			return false, fmt.Sprintf("year %d below minimum %d", *l.Year, params.YearMin)
		}
		if params.YearMax > 0 && *l.Year > params.YearMax {
			return false, fmt.Sprintf("year %d above maximum %d", *l.Year, params.YearMax)
		}
	}
	if l.Mileage != nil && params.MaxMileage > 0 && *l.Mileage > params.MaxMileage {
		return false, fmt.Sprintf("mileage %d exceeds %d", *l.Mileage, params.MaxMileage)
	}
	if l.Price != nil && params.MaxPrice > 0 && *l.Price > params.MaxPrice {
		return false, fmt.Sprintf("price %d exceeds %d", *l.Price, params.MaxPrice)
	}
	return true, ""
}

// Apply returns the listings that pass Check, preserving order.
func Apply(listings []models.Listing, params models.SearchParams) []models.Listing {
	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if ok, _ := Check(l, params); ok {
			out = append(out, l)
		}
	}
	return out
}
