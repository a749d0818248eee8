package classify

import "testing"

func TestIsVehicleRelated(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"1991 Mazda Miata", true},
		{"MX-5 NA hardtop", true},
		{"mx5 club", true},
		{"Classic roadster for sale", true},
		{"Mazda convertible, red", true},
		{"Mazda 3 hatchback", false},
		{"Honda Civic", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := IsVehicleRelated(tt.text); got != tt.want {
				t.Errorf("IsVehicleRelated(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestIsPartsOnly(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		want        bool
	}{
		{
			name:  "parting out with negated title",
			title: "Miata parts car, parting out, no title",
			want:  true,
		},
		{
			name:  "whole car",
			title: "Miata, runs and drives, has title",
			want:  false,
		},
		{
			name:        "parts words but car indicators present",
			title:       "Miata for parts or repair",
			description: "Engine runs, clean title",
			want:        false,
		},
		{
			name: "empty listing",
			want: true,
		},
		{
			name:  "no parts words",
			title: "1990 Miata",
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPartsOnly(tt.title, tt.description); got != tt.want {
				t.Errorf("IsPartsOnly(%q, %q) = %v, want %v", tt.title, tt.description, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		want        Decision
	}{
		{
			name:  "accepted",
			title: "Miata, runs and drives, has title",
			want:  Decision{Accepted: true},
		},
		{
			name:  "parts only",
			title: "Miata parts car, parting out, no title",
			want:  Decision{Reason: ReasonPartsOnly},
		},
		{
			name:        "unrelated",
			title:       "2012 Honda Civic",
			description: "Great commuter, runs well",
			want:        Decision{Reason: ReasonNotVehicleRelated},
		},
		{
			name:        "short title",
			title:       "MX5",
			description: "Runs and drives, clean title, 5-speed",
			want:        Decision{Reason: ReasonInvalidTitle},
		},
		{
			name:        "emoji title counted in characters",
			title:       "MX5🔥",
			description: "Runs and drives, clean title, 5-speed",
			want:        Decision{Reason: ReasonInvalidTitle},
		},
		{
			name:        "roadster that is not the model",
			title:       "Vintage roadster project",
			description: "Runs great, new top",
			want:        Decision{Reason: ReasonNotModel},
		},
		{
			name:        "model only in description",
			title:       "Mazda convertible for sale",
			description: "1994 Miata, runs and drives",
			want:        Decision{Accepted: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.title, tt.description); got != tt.want {
				t.Errorf("Classify() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
