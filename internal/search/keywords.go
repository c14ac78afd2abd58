// Package search filters buildings by free-text amenity terms through a
// keyword-expansion synonym table and assembles ranked unit results.
package search

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AmenityKeywords maps a canonical search term to the substring keywords that
// match against amenity names. A term absent from the table falls back to
// matching itself, so arbitrary free text still works, just less fuzzy.
var AmenityKeywords = map[string][]string{
	// Pools and water
	"Pool":        {"pool", "swimming", "lap pool", "infinity", "rooftop pool"},
	"Hot Tub":     {"hot tub", "jacuzzi", "whirlpool"},
	"Cold Plunge": {"cold plunge", "plunge pool", "ice bath"},
	"Sauna":       {"sauna", "infrared sauna"},
	"Steam Room":  {"steam room", "steam"},
	"Spa":         {"spa", "wellness"},

	// Fitness and sports
	"Gym":           {"gym", "fitness", "workout", "exercise", "weight room"},
	"Yoga":          {"yoga", "pilates", "meditation"},
	"Basketball":    {"basketball", "sport court"},
	"Tennis":        {"tennis", "pickleball"},
	"Golf":          {"golf simulator", "golf sim"},
	"Running Track": {"running track", "jogging track"},
	"Spin":          {"spin", "cycling", "peloton"},
	"Boxing":        {"boxing", "mma", "martial arts"},
	"Rock Climbing": {"climbing wall", "rock climbing", "bouldering"},

	// Outdoor
	"Rooftop":   {"rooftop", "roof deck", "sky deck", "sky lounge", "terrace"},
	"Pool Deck": {"pool deck", "sundeck", "sun deck"},
	"Cabana":    {"cabana", "poolside"},
	"BBQ":       {"bbq", "grill", "barbecue", "outdoor kitchen"},
	"Garden":    {"garden", "courtyard"},
	"Fire Pit":  {"fire pit", "firepit"},

	// Pet
	"Pet Spa":  {"pet spa", "dog grooming", "pet grooming", "dog wash", "pet wash"},
	"Dog Park": {"dog park", "dog run", "bark park"},

	// Social
	"Lounge":         {"lounge", "club room", "resident lounge"},
	"Game Room":      {"game room", "billiard", "pool table", "gaming"},
	"Movie Theater":  {"movie theater", "screening room", "theater", "cinema"},
	"Library":        {"library", "reading room"},
	"Wine Room":      {"wine room", "wine cellar", "wine locker", "wine storage"},
	"Private Dining": {"private dining", "chef", "demonstration kitchen"},
	"Coworking":      {"coworking", "co-working", "business center", "conference room", "work from home"},
	"Podcast":        {"podcast", "recording studio"},
	"Karaoke":        {"karaoke"},

	// Services
	"Concierge":    {"concierge", "24-hour", "24 hour"},
	"Doorman":      {"doorman", "door attendant", "attended lobby"},
	"Valet":        {"valet", "valet parking"},
	"Package Room": {"package room", "package locker", "amazon locker"},
	"Dry Cleaning": {"dry cleaning", "laundry service"},

	// Parking
	"Parking":      {"parking", "garage"},
	"EV Charging":  {"ev charging", "electric vehicle", "tesla charger", "ev charger"},
	"Bike Storage": {"bike storage", "bicycle", "bike room"},

	// Family
	"Playroom": {"playroom", "children", "kids room", "play area"},
	"Daycare":  {"daycare", "childcare"},

	// In-unit
	"Washer Dryer":             {"washer", "dryer", "laundry", "w/d", "in-unit laundry"},
	"Balcony":                  {"balcony", "patio", "private outdoor", "terrace"},
	"Floor To Ceiling Windows": {"floor-to-ceiling", "floor to ceiling", "large windows", "panoramic"},
	"High Ceilings":            {"high ceiling", "tall ceiling", "loft"},
	"Walk-in Closet":           {"walk-in closet", "walk in closet", "custom closet", "california closet"},
	"Hardwood Floors":          {"hardwood", "wood floor"},
	"Stainless Steel":          {"stainless steel", "stainless appliances", "chef kitchen", "gourmet kitchen"},
	"Granite":                  {"granite", "marble", "quartz", "stone countertop"},
	"Smart Home":               {"smart home", "smart lock", "nest", "keyless"},
	"Central Air":              {"central air", "central ac", "hvac", "climate control"},
	"Fireplace":                {"fireplace"},
	"Den":                      {"den", "home office", "study"},
	"Soaking Tub":              {"soaking tub", "spa tub", "freestanding tub"},
	"Double Vanity":            {"double vanity", "dual sink", "his and hers"},

	// Views
	"City View":  {"city view", "skyline view", "manhattan view"},
	"Water View": {"water view", "ocean view", "bay view", "river view", "waterfront"},
	"Park View":  {"park view", "central park"},
}

// Synonyms resolves search terms to keyword sets. Lookups are
// case-insensitive on the canonical term.
type Synonyms map[string][]string

// DefaultSynonyms builds a Synonyms table from AmenityKeywords.
func DefaultSynonyms() Synonyms {
	s := make(Synonyms, len(AmenityKeywords))
	for term, keywords := range AmenityKeywords {
		s[strings.ToLower(term)] = keywords
	}
	return s
}

// LoadSynonyms reads a YAML file mapping terms to keyword lists and merges
// it over the defaults. Entries in the file replace same-named defaults.
func LoadSynonyms(path string) (Synonyms, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read synonyms file: %w", err)
	}
	var overrides map[string][]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse synonyms file %s: %w", path, err)
	}
	s := DefaultSynonyms()
	for term, keywords := range overrides {
		s[strings.ToLower(term)] = keywords
	}
	return s, nil
}

// Keywords returns the keyword set for a term, falling back to the term
// itself when it is not in the table.
func (s Synonyms) Keywords(term string) []string {
	t := strings.ToLower(strings.TrimSpace(term))
	if keywords, ok := s[t]; ok {
		return keywords
	}
	return []string{t}
}
