package fetcher

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Sub-page discovery keyword sets. The href is matched first, then the
// resolved absolute URL is matched again against the primary set, which
// guards against false positives from anchor hrefs alone.
var (
	amenitiesKeywords  = regexp.MustCompile(`(?i)amenities|features|lifestyle`)
	amenitiesSecondary = regexp.MustCompile(`(?i)community|about`)

	unitsKeywords  = regexp.MustCompile(`(?i)floor[-_]?plans?|availability|apartments|units|pricing`)
	unitsSecondary = regexp.MustCompile(`(?i)rent|apply|schedule`)
)

// FindAmenitiesPage scans anchor hrefs in html for an amenities page and
// returns its absolute URL, or "" when none is found.
func FindAmenitiesPage(baseURL, html string) string {
	return findSubPage(baseURL, html, amenitiesKeywords, amenitiesSecondary)
}

// FindUnitsPage scans anchor hrefs in html for a floor-plans/availability
// page and returns its absolute URL, or "" when none is found.
func FindUnitsPage(baseURL, html string) string {
	return findSubPage(baseURL, html, unitsKeywords, unitsSecondary)
}

func findSubPage(baseURL, html string, primary, secondary *regexp.Regexp) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" || strings.HasPrefix(href, "#") {
			return
		}
		hrefs = append(hrefs, href)
	})

	// Primary-keyword hrefs first, then the looser secondary pass. Either
	// way the resolved URL must re-match the primary keyword set.
	for _, pattern := range []*regexp.Regexp{primary, secondary} {
		for _, href := range hrefs {
			if !pattern.MatchString(href) {
				continue
			}
			ref, err := url.Parse(href)
			if err != nil {
				continue
			}
			resolved := base.ResolveReference(ref).String()
			if primary.MatchString(resolved) {
				return resolved
			}
		}
	}

	return ""
}
