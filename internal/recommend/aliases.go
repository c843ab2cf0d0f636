package recommend

import "strings"

// CuisineAliases maps specific dish terms to the broader cuisine category the
// places data is tagged with. Lookup is case-insensitive; unknown terms pass
// through unchanged.
var CuisineAliases = map[string]string{
	"sushi":     "japanese",
	"omakase":   "japanese",
	"ramen":     "japanese",
	"izakaya":   "japanese",
	"tacos":     "mexican",
	"taqueria":  "mexican",
	"dim sum":   "chinese",
	"dumplings": "chinese",
	"pho":       "vietnamese",
	"banh mi":   "vietnamese",
	"curry":     "indian",
	"pizza":     "italian",
	"pasta":     "italian",
	"bbq":       "barbecue",
	"falafel":   "middle eastern",
	"shawarma":  "middle eastern",
}

// CategoryAliases maps specific activity terms to the broad event categories
// used by the events data.
var CategoryAliases = map[string]string{
	"standup":   "comedy",
	"stand-up":  "comedy",
	"open mic":  "comedy",
	"concert":   "music",
	"gig":       "music",
	"show":      "music",
	"dj":        "nightlife",
	"club":      "nightlife",
	"party":     "nightlife",
	"gallery":   "art",
	"museum":    "art",
	"exhibit":   "art",
	"play":      "theater",
	"musical":   "theater",
	"broadway":  "theater",
	"movie":     "film",
	"screening": "film",
	"kids":      "family",
	"game":      "sports",
	"match":     "sports",
}

// PriceTiers maps descriptive price words to the tier symbols stored on
// places.
var PriceTiers = map[string]string{
	"cheap":      "$",
	"affordable": "$",
	"budget":     "$",
	"moderate":   "$$",
	"mid-range":  "$$",
	"upscale":    "$$$",
	"expensive":  "$$$",
	"fancy":      "$$$$",
	"splurge":    "$$$$",
}

// broadLocations are location answers that mean "search citywide"; the
// location filter is skipped entirely for these.
var broadLocations = map[string]struct{}{
	"citywide":      {},
	"anywhere":      {},
	"new york":      {},
	"new york city": {},
	"nyc":           {},
	"no preference": {},
	"everywhere":    {},
}

// IsBroadLocation reports whether a location hint should skip the location
// filter.
func IsBroadLocation(location string) bool {
	if location == "" {
		return true
	}
	_, ok := broadLocations[strings.ToLower(strings.TrimSpace(location))]
	return ok
}

// NormalizeCuisine resolves dish-level terms to their broad cuisine category.
func NormalizeCuisine(cuisine string) string {
	key := strings.ToLower(strings.TrimSpace(cuisine))
	if mapped, ok := CuisineAliases[key]; ok {
		return mapped
	}
	return key
}

// NormalizeCategory resolves specific activity terms to broad event
// categories.
func NormalizeCategory(category string) string {
	key := strings.ToLower(strings.TrimSpace(category))
	if mapped, ok := CategoryAliases[key]; ok {
		return mapped
	}
	return key
}

// NormalizePriceTier turns a descriptive price word into a tier symbol.
// Tier symbols pass through; anything unrecognized maps to "" (no filter).
func NormalizePriceTier(price string) string {
	key := strings.ToLower(strings.TrimSpace(price))
	if mapped, ok := PriceTiers[key]; ok {
		return mapped
	}
	switch key {
	case "$", "$$", "$$$", "$$$$":
		return key
	}
	return ""
}
