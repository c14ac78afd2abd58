package extractor

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PatternExtractor extracts units and amenities with regex and selector
// heuristics instead of an LLM call. It is fully deterministic, which makes
// it the extractor of choice in tests and a usable degraded mode when no
// model credential is configured. Recall is far below the LLM path.
type PatternExtractor struct{}

// NewPatternExtractor creates a PatternExtractor.
func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{}
}

var (
	studioRe = regexp.MustCompile(`(?i)\bstudio\b`)
	bedsRe   = regexp.MustCompile(`(?i)(\d+)\s*(?:bed|br|bedroom)`)
	bathsRe  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:bath|ba\b|bathroom)`)
	sqftRe   = regexp.MustCompile(`(?i)([\d,]+)\s*(?:sq\.?\s*ft|sqft|sf)`)
	rentRe   = regexp.MustCompile(`\$[\d,]+`)
	unitNoRe = regexp.MustCompile(`(?i)(?:unit|apt|#)\s*([0-9]+[a-z]?)`)
)

// ExtractUnits scans floor-plan table rows and card sections for unit data.
func (p *PatternExtractor) ExtractUnits(_ context.Context, html, _ string) UnitsResult {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return UnitsResult{}
	}

	var units []ScrapedUnit

	collect := func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return
		}

		unit, ok := parseUnitText(text)
		if !ok {
			return
		}
		units = append(units, unit)
	}

	doc.Find("tr").Each(collect)
	doc.Find(`div[class*="floor-plan"], div[class*="floorplan"], div[class*="unit-type"], div[class*="pricing"]`).Each(collect)

	result := UnitsResult{
		Units:          units,
		TotalAvailable: len(units),
	}

	// Move-in specials show up as short promo sentences.
	specialRe := regexp.MustCompile(`(?i)(?:special|offer)[^.<]*(?:month|free|off)[^.<]*`)
	if m := specialRe.FindString(html); m != "" {
		result.MoveInSpecials = []string{strings.TrimSpace(m)}
	}

	return result
}

// parseUnitText pulls beds/baths/sqft/rent out of one row or card's text.
// A row counts as a unit when it has a bed count or a rent figure.
func parseUnitText(text string) (ScrapedUnit, bool) {
	var unit ScrapedUnit
	found := false

	if studioRe.MatchString(text) {
		unit.Beds = 0
		found = true
	} else if m := bedsRe.FindStringSubmatch(text); m != nil {
		unit.Beds, _ = strconv.Atoi(m[1])
		found = true
	}

	if m := bathsRe.FindStringSubmatch(text); m != nil {
		unit.Baths, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := sqftRe.FindStringSubmatch(text); m != nil {
		unit.Sqft, _ = strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	}
	if m := rentRe.FindString(text); m != "" {
		unit.Rent, _ = strconv.Atoi(strings.NewReplacer("$", "", ",", "").Replace(m))
		if unit.Rent > 0 {
			found = true
		}
	}
	if m := unitNoRe.FindStringSubmatch(text); m != nil {
		unit.UnitNumber = strings.ToUpper(m[1])
	}

	return unit, found
}

// amenityKeywords drives the pattern-based amenity scan; any list item
// containing one of these is treated as an amenity.
var amenityKeywords = []string{
	"pool", "gym", "fitness", "rooftop", "concierge", "doorman", "parking",
	"garage", "laundry", "washer", "dryer", "dishwasher", "air conditioning",
	"balcony", "terrace", "patio", "garden", "courtyard", "lounge", "clubhouse",
	"business center", "pet", "dog", "cat", "spa", "sauna", "yoga", "theater",
	"screening room", "game room", "billiards", "bbq", "grill", "fire pit",
	"package", "storage", "bike", "ev charging", "valet", "security", "wifi",
	"smart home", "keyless", "view", "floor-to-ceiling", "walk-in closet",
}

// ExtractAmenities scans list items for amenity keywords.
func (p *PatternExtractor) ExtractAmenities(_ context.Context, html, _ string) AmenitiesResult {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return AmenitiesResult{}
	}

	seen := make(map[string]bool)
	var amenities []ScrapedAmenity

	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(strings.Join(strings.Fields(s.Text()), " "))
		if text == "" || len(text) >= 100 {
			return
		}
		lower := strings.ToLower(text)
		for _, kw := range amenityKeywords {
			if strings.Contains(lower, kw) {
				if !seen[text] {
					seen[text] = true
					amenities = append(amenities, ScrapedAmenity{Name: text})
				}
				break
			}
		}
	})

	result := AmenitiesResult{Amenities: amenities}

	petRe := regexp.MustCompile(`(?i)(?:pet[^.<]*policy|(?:cats?|dogs?)[^.<]*(?:allowed|welcome|accepted)|pet\s*(?:friendly|deposit|fee|rent))[^.<]*`)
	if m := petRe.FindString(html); m != "" {
		result.PetPolicy = strings.TrimSpace(m)
	}

	return result
}
