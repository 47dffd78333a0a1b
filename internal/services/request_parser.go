package services

import (
	"regexp"
	"strings"

	"supplymarket/internal/models"
)

// ParsedRequest is what could be read out of a request's free text.
type ParsedRequest struct {
	Category       *models.Category
	Volume         *string
	City           *string
	DeliveryNeeded bool
}

// Units are listed longest first: alternation picks the leftmost match.
var volumePattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(тонн[а-я]*|тн|т|tons?|t|килограмм[а-я]*|кг|kg|куб[а-я]*|м3|м³|m3|штук[а-я]*|шт|pcs|pieces?|мешк[а-я]*|мешок|bags?|литр[а-я]*|л|liters?|litres?|l)(?:[^\p{L}\d]|$)`)

var unitAliases = []struct {
	prefix string
	unit   string
}{
	{"тонн", "t"}, {"тн", "t"}, {"т", "t"}, {"ton", "t"}, {"t", "t"},
	{"килограмм", "kg"}, {"кг", "kg"}, {"kg", "kg"},
	{"куб", "m3"}, {"м3", "m3"}, {"м³", "m3"}, {"m3", "m3"},
	{"штук", "pcs"}, {"шт", "pcs"}, {"pcs", "pcs"}, {"piece", "pcs"},
	{"мешк", "bags"}, {"мешок", "bags"}, {"bag", "bags"},
	{"литр", "l"}, {"л", "l"}, {"liter", "l"}, {"litre", "l"}, {"l", "l"},
}

var deliveryMarkers = []string{"доставк", "привез", "delivery", "deliver"}

// ParseRequest extracts the category, volume, city and delivery intent from
// a buyer's query. The category with the most keyword hits wins; ties go to
// the first category in the given order.
func ParseRequest(query string, categories []models.Category, regions []models.Region) ParsedRequest {
	text := strings.ToLower(query)
	var out ParsedRequest

	best := 0
	for i := range categories {
		if hits := keywordHits(text, &categories[i]); hits > best {
			best = hits
			out.Category = &categories[i]
		}
	}

	if m := volumePattern.FindStringSubmatch(query); m != nil {
		volume := strings.ReplaceAll(m[1], ",", ".") + " " + canonicalUnit(m[2])
		out.Volume = &volume
	}

	longest := 0
	for _, r := range regions {
		for _, name := range []string{r.Name, r.NameLocal} {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" || len(name) <= longest || !strings.Contains(text, name) {
				continue
			}
			longest = len(name)
			city := r.Name
			out.City = &city
		}
	}

	for _, marker := range deliveryMarkers {
		if strings.Contains(text, marker) {
			out.DeliveryNeeded = true
			break
		}
	}
	return out
}

func keywordHits(text string, c *models.Category) int {
	hits := 0
	seen := map[string]bool{}
	terms := append([]string{c.Name, c.NameLocal}, c.Keywords...)
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		if strings.Contains(text, term) {
			hits++
		}
	}
	return hits
}

func canonicalUnit(raw string) string {
	raw = strings.ToLower(raw)
	for _, a := range unitAliases {
		if strings.HasPrefix(raw, a.prefix) {
			return a.unit
		}
	}
	return raw
}
