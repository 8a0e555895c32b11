package logic

import (
	"strings"
	"unicode/utf8"
)

const maxShortNameLen = 8

var knownShortNames = map[string]string{
	"paris saint-germain":      "PSG",
	"paris saint germain":      "PSG",
	"fc barcelone":             "BARCELONE",
	"fc barcelona":             "BARCELONA",
	"manchester united":        "MANCHESTER",
	"manchester city":          "MANCHESTER",
	"tottenham hotspur":        "SPURS",
	"atletico madrid":          "ATLÉTICO",
	"real sociedad":            "SOCIEDAD",
	"real betis balompié":      "BETIS",
	"real betis balompie":      "BETIS",
	"borussia dortmund":        "DORTMUND",
	"borussia mönchengladbach": "GLADBACH",
	"borussia monchengladbach": "GLADBACH",
	"newcastle united":         "NEWCASTLE",
	"nottingham forest":        "FOREST",
	"bayer leverkusen":         "LEVERKUSEN",
	"rb leipzig":               "LEIPZIG",
	"west ham united":          "WEST HAM",
	"crystal palace":           "PALACE",
	"athletic club":            "ATHLETIC",
	"brighton & hove albion":   "BRIGHTON",
	"brighton and hove albion": "BRIGHTON",
	"hellas verona":            "VERONA",
}

var shortNameStopWords = map[string]struct{}{
	"fc": {}, "cf": {}, "ac": {}, "sc": {}, "club": {},
	"de": {}, "la": {}, "el": {}, "los": {}, "las": {},
	"sporting": {}, "real": {}, "atletico": {}, "athletic": {}, "sociedad": {},
	"calcio": {}, "united": {}, "city": {}, "hotspur": {},
}

// GenerateShortName derives a display name for teams stored without one.
// Names of up to eight characters are kept; otherwise a known abbreviation
// or the last significant word is used.
func GenerateShortName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) <= maxShortNameLen {
		return name
	}
	if short, ok := knownShortNames[strings.ToLower(name)]; ok {
		return short
	}

	tokens := strings.Fields(name)
	var candidates []string
	for _, t := range tokens {
		if _, stop := shortNameStopWords[strings.ToLower(t)]; !stop {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		candidates = tokens
	}
	return candidates[len(candidates)-1]
}
