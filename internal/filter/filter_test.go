package filter

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Jasminestrone/MiataMaestro/pkg/models"
)

func listing(id string, year, mileage, price *int) models.Listing {
	return models.Listing{ID: id, Title: "Mazda Miata", Year: year, Mileage: mileage, Price: price}
}

func TestCheck(t *testing.T) {
	params := models.SearchParams{YearMin: 1990, YearMax: 1997, MaxMileage: 150000, MaxPrice: 8000}

	tests := []struct {
		name    string
		listing models.Listing
		want    bool
	}{
		{"all unknown", listing("a", nil, nil, nil), true},
		{"within bounds", listing("b", models.IntPtr(1994), models.IntPtr(90000), models.IntPtr(6500)), true},
		{"year too old", listing("c", models.IntPtr(1989), nil, nil), false},
		{"year too new", listing("d", models.IntPtr(1999), nil, nil), false},
		{"year on bound", listing("e", models.IntPtr(1997), nil, nil), true},
		{"mileage over", listing("f", nil, models.IntPtr(150001), nil), false},
		{"price over", listing("g", nil, nil, models.IntPtr(8001)), false},
		{"price on bound", listing("h", nil, nil, models.IntPtr(8000)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := Check(tt.listing, params)
			if got != tt.want {
				t.Errorf("Check() = %v (%s), want %v", got, reason, tt.want)
			}
			if !got && reason == "" {
				t.Error("rejection should carry a reason")
			}
		})
	}
}

func TestCheck_UnsetBounds(t *testing.T) {
	l := listing("a", models.IntPtr(2025), models.IntPtr(499000), models.IntPtr(99000))
	if ok, reason := Check(l, models.SearchParams{}); !ok {
		t.Errorf("Check() with no bounds rejected listing: %s", reason)
	}

	onlyMax := models.SearchParams{YearMax: 2000}
	if ok, _ := Check(listing("b", models.IntPtr(1990), nil, nil), onlyMax); !ok {
		t.Error("YearMax alone should not impose a lower bound")
	}
}

func TestApply_Idempotent(t *testing.T) {
	params := models.SearchParams{YearMin: 1990, YearMax: 2005, MaxMileage: 120000, MaxPrice: 10000}
	input := []models.Listing{
		listing("1", models.IntPtr(1991), models.IntPtr(100000), models.IntPtr(5000)),
		listing("2", models.IntPtr(2010), nil, nil),
		listing("3", nil, models.IntPtr(200000), nil),
		listing("4", nil, nil, nil),
		listing("5", models.IntPtr(2000), nil, models.IntPtr(12000)),
		listing("6", models.IntPtr(1999), models.IntPtr(60000), nil),
	}

	once := Apply(input, params)
	twice := Apply(once, params)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second Apply changed result (-once +twice):\n%s", diff)
	}

	var ids []string
	for _, l := range once {
		ids = append(ids, l.ID)
	}
	if diff := cmp.Diff([]string{"1", "4", "6"}, ids); diff != "" {
		t.Errorf("kept ids mismatch (-want +got):\n%s", diff)
	}
}
