package extract

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Jasminestrone/MiataMaestro/pkg/models"
)

func bodyPage(body string) *Snapshot {
	return &Snapshot{Body: body}
}

func intValue(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func TestExtract_Price(t *testing.T) {
	tests := []struct {
		name string
		body string
		want any
	}{
		{"asking with dollar", "Asking: $45,500 obo", 45500},
		{"below range", "$250", nil},
		{"cents are dropped", "Price $4,500.00 firm", 4500},
		{"first in range wins", "$20 shipping, $7,800 for the car", 7800},
		{"price label without dollar", "Price: 6200", 6200},
		{"above range", "$250,000", nil},
		{"no price", "call me", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(bodyPage(tt.body))
			if v := intValue(got.Price); v != tt.want {
				t.Errorf("Price = %v, want %v", v, tt.want)
			}
		})
	}
}

func TestExtract_Mileage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want any
	}{
		{"k shorthand", "98k miles", 98000},
		{"labelled", "Mileage: 45,230", 45230},
		{"distance only", "50 miles away", nil},
		{"distance context excluded", "Located 5,000 miles away from you", nil},
		{"driven", "driven 120,000 miles", 120000},
		{"odometer k", "Odometer: 130k", 130000},
		{"plain miles", "about 87,000 mi on the clock", 87000},
		{"below range", "200 miles", nil},
		{"miles followed by a year", "Only 45,000 miles 1995 Mazda Miata", 45000},
		{"miles label with colon", "Miles: 88,500", 88500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(bodyPage(tt.body))
			if v := intValue(got.Mileage); v != tt.want {
				t.Errorf("Mileage = %v, want %v", v, tt.want)
			}
		})
	}
}

func TestExtract_Year(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		body        string
		want        any
	}{
		{name: "short year in title", title: "FS: '91 Miata", want: 1991},
		{name: "two digit 2000s", title: "'05 MX-5 Miata", want: 2005},
		{
			name:        "title beats description",
			title:       "1994 Mazda Miata",
			description: "Bought it new in 2003 and kept it garaged ever since",
			want:        1994,
		},
		{
			name:        "description when title has none",
			title:       "Mazda Miata",
			description: "This is a 1999 with a hardtop and new tires all round",
			want:        1999,
		},
		{name: "body fallback", title: "Mazda Miata", body: "Year: 2001", want: 2001},
		{name: "out of range", title: "1985 Mazda", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Snapshot{
				TextMap: map[string][]string{
					TitleSelectors[0]:       {tt.title},
					DescriptionSelectors[0]: {tt.description},
				},
				Body: tt.body,
			}
			got := Extract(p)
			if v := intValue(got.Year); v != tt.want {
				t.Errorf("Year = %v, want %v", v, tt.want)
			}
		})
	}
}

func TestDetectTransmission(t *testing.T) {
	tests := []struct {
		text string
		want models.Transmission
	}{
		{"5-speed manual", models.TransmissionManual},
		{"automatic, manual transmission swap planned", models.TransmissionAutomatic},
		{"Automatic", models.TransmissionAutomatic},
		{"stick shift, new clutch", models.TransmissionManual},
		{"clean title", models.TransmissionUnknown},
		{"autobahn cruiser", models.TransmissionUnknown},
		{"manual or automatic, your pick", models.TransmissionUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := DetectTransmission(tt.text); got != tt.want {
				t.Errorf("DetectTransmission(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtract_Title(t *testing.T) {
	p := &Snapshot{
		TextMap: map[string][]string{
			`h1[dir="auto"]`:   {"Marketplace"},
			`span[dir="auto"]`: {"1992 Mazda Miata"},
		},
	}
	if got := Extract(p).Title; got != "1992 Mazda Miata" {
		t.Errorf("Title = %q, want vehicle-related heading", got)
	}

	p = &Snapshot{
		TextMap: map[string][]string{
			`h1`: {"abc", "Red roadster"},
		},
	}
	if got := Extract(p).Title; got != "Red roadster" {
		t.Errorf("Title = %q, want %q", got, "Red roadster")
	}

	p = &Snapshot{
		TextMap: map[string][]string{
			`h2`: {"Honda Civic EX"},
		},
	}
	if got := Extract(p).Title; got != "Honda Civic EX" {
		t.Errorf("Title = %q, want first non-empty heading", got)
	}
}

func TestExtract_Description(t *testing.T) {
	medium := "Clean car with a new top." // 25 chars
	longer := "Clean car with a new top and tires." // longer but under 51
	longest := strings.Repeat("Timing belt done at 90k, water pump too. ", 3)

	p := &Snapshot{
		TextMap: map[string][]string{
			DescriptionSelectors[0]: {"short", medium},
			DescriptionSelectors[1]: {longer},
		},
	}
	if got := Extract(p).Description; got != medium {
		t.Errorf("Description = %q, want %q", got, medium)
	}

	p.TextMap[DescriptionSelectors[2]] = []string{longest}
	if got := Extract(p).Description; got != longest {
		t.Errorf("Description = %q, want the longest block", got)
	}
}

func TestExtract_DescriptionTruncatedButScannedInFull(t *testing.T) {
	desc := strings.Repeat("x", 600) + " odometer reads 76,000 miles"
	p := &Snapshot{
		TextMap: map[string][]string{DescriptionSelectors[0]: {desc}},
	}
	got := Extract(p)
	if n := len([]rune(got.Description)); n != models.MaxDescriptionLen {
		t.Errorf("len(Description) = %d, want %d", n, models.MaxDescriptionLen)
	}
	if v := intValue(got.Mileage); v != 76000 {
		t.Errorf("Mileage = %v, want 76000", v)
	}
}

func TestExtract_Images(t *testing.T) {
	p := &Snapshot{
		ImageMap: map[string][]Image{
			ImageSelectors[0]: {
				{Src: "/relative.jpg", Width: 800, Height: 600},
				{Src: "https://cdn.example.com/thumb.jpg", Width: 80, Height: 80},
				{Src: "https://cdn.example.com/a.jpg", Width: 800, Height: 600},
			},
			ImageSelectors[2]: {
				{Src: "https://cdn.example.com/a.jpg", Width: 800, Height: 600},
				{Src: "https://cdn.example.com/b.jpg", Width: 640, Height: 480},
				{Src: "https://cdn.example.com/c.jpg", Width: 640, Height: 480},
			},
		},
	}
	want := []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"}
	if diff := cmp.Diff(want, Extract(p).Images); diff != "" {
		t.Errorf("Images mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_EmptyPage(t *testing.T) {
	got := Extract(&Snapshot{})
	want := Candidate{Transmission: models.TransmissionUnknown}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestHTMLPage(t *testing.T) {
	raw := []byte(`<html><head><style>.x{}</style><script>var price = "$1";</script></head>
<body>
<div role="main">
  <h1>1990 Mazda Miata MX-5</h1>
  <div dir="auto">Original owner. 5 speed manual, 112k miles, new soft top and timing belt.</div>
  <span>Price: $5,900</span>
  <img src="https://cdn.example.com/front.jpg" width="960" height="720">
  <img src="https://cdn.example.com/icon.png" width="16" height="16">
</div>
</body></html>`)

	p, err := NewHTMLPage(raw)
	if err != nil {
		t.Fatalf("NewHTMLPage() error = %v", err)
	}
	if strings.Contains(p.BodyText(), "var price") {
		t.Error("BodyText should not include script content")
	}

	got := Extract(p)
	want := Candidate{
		Title:        "1990 Mazda Miata MX-5",
		Description:  "Original owner. 5 speed manual, 112k miles, new soft top and timing belt.",
		Price:        models.IntPtr(5900),
		Year:         models.IntPtr(1990),
		Mileage:      models.IntPtr(112000),
		Transmission: models.TransmissionManual,
		Images:       []string{"https://cdn.example.com/front.jpg"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestHTMLPage_LineBreaksInDescription(t *testing.T) {
	raw := []byte(`<html><body><div role="main">
<h1>1994 Mazda Miata</h1>
<div dir="auto">Selling my Miata, 5 speed<br>manual, 120k miles<br>1994 with clean title, runs and drives great.</div>
</div></body></html>`)

	p, err := NewHTMLPage(raw)
	if err != nil {
		t.Fatalf("NewHTMLPage() error = %v", err)
	}

	got := Extract(p)
	want := "Selling my Miata, 5 speed\nmanual, 120k miles\n1994 with clean title, runs and drives great."
	if got.Description != want {
		t.Errorf("Description = %q, want %q", got.Description, want)
	}
	if tr := DetectTransmission(got.Description); tr != models.TransmissionManual {
		t.Errorf("DetectTransmission(description) = %v, want Manual", tr)
	}
	if v := intValue(got.Mileage); v != 120000 {
		t.Errorf("Mileage = %v, want 120000", v)
	}
}

func TestExtract_LengthThresholdsCountCharacters(t *testing.T) {
	// Three runes, twelve bytes: too short for a title.
	p := &Snapshot{TextMap: map[string][]string{`h1`: {"🚗🚗🚗", "Red roadster"}}}
	if got := Extract(p).Title; got != "Red roadster" {
		t.Errorf("Title = %q, want the emoji heading skipped", got)
	}

	// Twenty runes but well over twenty bytes: not a description.
	short := strings.Repeat("🔥", 10) + "Miata runs"
	p = &Snapshot{TextMap: map[string][]string{DescriptionSelectors[0]: {short}}}
	if got := Extract(p).Description; got != "" {
		t.Errorf("Description = %q, want none", got)
	}
}

func TestCandidate_Listing(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := Candidate{Title: "1991 Miata", Year: models.IntPtr(1991), Transmission: models.TransmissionManual}
	l := c.Listing("listing_1", "https://www.facebook.com/marketplace/item/123/", now)
	if l.ID != "listing_1" || l.URL != "https://www.facebook.com/marketplace/item/123/" {
		t.Errorf("unexpected identity: %+v", l)
	}
	if l.Title != c.Title || *l.Year != 1991 || !l.ScrapedAt.Equal(now) {
		t.Errorf("attributes not carried over: %+v", l)
	}
}
