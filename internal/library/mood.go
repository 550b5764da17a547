package library

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var moodWhitespaceRegex = regexp.MustCompile(`\s+`)

// moodTarget maps mood keywords to recommendation tuning targets. Valence
// is musical positiveness; both default to a neutral 0.5.
type moodTarget struct {
	keywords []string
	valence  float64
	energy   float64
}

var moodTargets = []moodTarget{
	{keywords: []string{"happy"}, valence: 0.8, energy: 0.7},
	{keywords: []string{"sad", "melancholic"}, valence: 0.2, energy: 0.3},
	{keywords: []string{"energetic", "workout"}, valence: 0.7, energy: 0.9},
	{keywords: []string{"relaxed", "chill"}, valence: 0.6, energy: 0.3},
	{keywords: []string{"focus", "study"}, valence: 0.5, energy: 0.4},
}

// normalizeMood folds the free-text mood to a comparable form: decomposed
// accents stripped, lowercased, whitespace collapsed.
func normalizeMood(mood string) string {
	mood = norm.NFKD.String(mood)

	var b strings.Builder
	for _, r := range mood {
		if !unicode.IsMark(r) {
			b.WriteRune(r)
		}
	}

	mood = strings.ToLower(b.String())
	mood = moodWhitespaceRegex.ReplaceAllString(mood, " ")
	return strings.TrimSpace(mood)
}

// targetsFor matches the mood against the keyword table. Unknown moods get
// neutral targets.
func targetsFor(mood string) (valence, energy float64) {
	normalized := normalizeMood(mood)

	for _, target := range moodTargets {
		for _, keyword := range target.keywords {
			if strings.Contains(normalized, keyword) {
				return target.valence, target.energy
			}
		}
	}
	return 0.5, 0.5
}
