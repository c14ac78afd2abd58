package fetcher

import "testing"

func TestFindAmenitiesPage(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "relative href resolved against base",
			html: `<a href="/amenities">Amenities</a>`,
			want: "https://thetower.example.com/amenities",
		},
		{
			name: "absolute href",
			html: `<a href="https://thetower.example.com/lifestyle">Lifestyle</a>`,
			want: "https://thetower.example.com/lifestyle",
		},
		{
			name: "anchor fragment skipped",
			html: `<a href="#amenities">Amenities</a>`,
			want: "",
		},
		{
			name: "secondary keyword accepted only when resolved URL matches primary set",
			html: `<a href="/about-our-amenities">About</a>`,
			want: "https://thetower.example.com/about-our-amenities",
		},
		{
			name: "secondary keyword rejected when resolved URL lacks primary keywords",
			html: `<a href="/about-us">About</a>`,
			want: "",
		},
		{
			name: "no match",
			html: `<a href="/contact">Contact</a>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindAmenitiesPage("https://thetower.example.com/", tt.html)
			if got != tt.want {
				t.Errorf("FindAmenitiesPage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindUnitsPage(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "floor-plans link",
			html: `<a href="/floor-plans">Floor Plans</a>`,
			want: "https://thetower.example.com/floor-plans",
		},
		{
			name: "availability link",
			html: `<a href="/availability?beds=2">Check Availability</a>`,
			want: "https://thetower.example.com/availability?beds=2",
		},
		{
			name: "underscore floor_plan variant",
			html: `<a href="/floor_plans">Plans</a>`,
			want: "https://thetower.example.com/floor_plans",
		},
		{
			name: "first matching anchor wins",
			html: `<a href="/pricing">Pricing</a><a href="/floor-plans">Floor Plans</a>`,
			want: "https://thetower.example.com/pricing",
		},
		{
			name: "no match",
			html: `<a href="/gallery">Gallery</a>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindUnitsPage("https://thetower.example.com/", tt.html)
			if got != tt.want {
				t.Errorf("FindUnitsPage() = %q, want %q", got, tt.want)
			}
		})
	}
}
