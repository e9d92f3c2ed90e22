package identity

import (
	"regexp"
	"strconv"
	"strings"

	"listing_engine/models"
)

var (
	streetReplacements = map[string]string{
		"street":    "st",
		"avenue":    "ave",
		"drive":     "dr",
		"road":      "rd",
		"boulevard": "blvd",
		"lane":      "ln",
		"court":     "ct",
		"place":     "pl",
		"circle":    "cir",
		"terrace":   "ter",
		"highway":   "hwy",
		"parkway":   "pkwy",
		"trail":     "trl",
		"north":     "n",
		"south":     "s",
		"east":      "e",
		"west":      "w",
		"northeast": "ne",
		"northwest": "nw",
		"southeast": "se",
		"southwest": "sw",
		"apartment": "apt",
		"suite":     "ste",
		"unit":      "unit",
	}
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	nonAlnumRegex   = regexp.MustCompile(`[^a-z0-9#\s]`)
)

// Keyer derives the identity key used to recognize the same property
// across sources that share no listing ID.
type Keyer interface {
	Key(l *models.Listing) string
}

// AddressCityPrice keys a listing as lowercase(address)-lowercase(city)-price.
// It is a heuristic: a price change or a differently formatted address
// between the two sources yields a missed merge, never a false one.
type AddressCityPrice struct{}

func (AddressCityPrice) Key(l *models.Listing) string {
	return strings.ToLower(l.Address) + "-" + strings.ToLower(l.City) + "-" + FormatPrice(l.ListPrice)
}

// FormatPrice renders a price the shortest way that round-trips, or "" for nil.
func FormatPrice(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

// NormalizeAddress lowercases, strips punctuation and abbreviates street
// words so that "123 Main Street." and "123 main st" compare equal.
func NormalizeAddress(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	addr = nonAlnumRegex.ReplaceAllString(addr, " ")
	words := strings.Fields(addr)
	for i, w := range words {
		if abbrev, ok := streetReplacements[w]; ok {
			words[i] = abbrev
		}
	}
	return multiSpaceRegex.ReplaceAllString(strings.Join(words, " "), " ")
}
