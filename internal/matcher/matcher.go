// internal/matcher/matcher.go
// Package matcher ranks scraped anchor candidates against a search target.
// Scoring is additive; the relative ordering of the rules is the contract,
// the literal weights are calibration. A candidate is only accepted when
// its score clears MinScore: for downstream persistence a wrong match is
// worse than none.
package matcher

import (
	"sort"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"tracklift/pkg/types"
)

// Scoring weights. Ordering guarantees (exact > partial, both > either,
// artist-without-title penalized) matter more than the absolute values.
const (
	exactTitleBonus      = 100
	titleWordBonus       = 10
	allTitleWordsBonus   = 25
	artistBonus          = 30
	titleAndArtistBonus  = 50
	artistWithoutTitlePenalty = -75
	requestedVersionBonus     = 40
	unrequestedVersionPenalty = -30
	originalVersionBonus      = 15
	similarityWeight          = 20
)

// MinScore is the confidence threshold below which Best reports no match.
const MinScore = 60

// versionQualifiers are the version markers considered when the target
// names a specific cut. "original" is handled separately.
var versionQualifiers = []string{"remix", "edit", "club", "bootleg", "vip", "extended", "dub", "rework"}

// stopwords are skipped when counting significant title words.
var stopwords = map[string]bool{
	"the": true, "and": true, "feat": true, "ft": true, "vs": true, "with": true,
}

// Candidate is a scraped anchor considered as a possible match.
type Candidate struct {
	Text  string
	Href  string
	Score int
}

// Target is what the caller is searching for.
type Target struct {
	Title  string
	Artist string
}

// Score rates one candidate text against the target.
func Score(candidateText string, target Target) int {
	candidate := types.NormalizeText(candidateText)
	title := types.NormalizeText(target.Title)
	artist := types.NormalizeText(target.Artist)

	score := 0

	titleExact := title != "" && strings.Contains(candidate, title)
	if titleExact {
		score += exactTitleBonus
	}

	words := significantWords(title)
	present := 0
	for _, word := range words {
		if strings.Contains(candidate, word) {
			present++
		}
	}
	score += present * titleWordBonus

	allWords := len(words) > 0 && present == len(words)
	if allWords {
		score += allTitleWordsBonus
	}

	artistPresent := artist != "" && strings.Contains(candidate, artist)
	if artistPresent {
		score += artistBonus
	}

	titlePresent := titleExact || allWords
	switch {
	case artistPresent && titlePresent:
		score += titleAndArtistBonus
	case artistPresent && present == 0:
		// Same artist, different track. Worse than an unknown candidate.
		score += artistWithoutTitlePenalty
	}

	score += versionScore(candidate, title)

	// Graded similarity breaks ties between near-identical candidates.
	reference := strings.TrimSpace(artist + " " + title)
	similarity := strutil.Similarity(candidate, reference, metrics.NewJaroWinkler())
	score += int(similarity * similarityWeight)

	return score
}

// versionScore handles version-qualifier matching: a requested qualifier
// earns a bonus, unrequested qualifiers are penalized, and "original" is
// bonused only when the target names no version at all.
func versionScore(candidate, title string) int {
	requested := qualifiersIn(title)
	inCandidate := qualifiersIn(candidate)

	score := 0
	if len(requested) > 0 {
		matched := true
		for _, q := range requested {
			if !containsString(inCandidate, q) {
				matched = false
				break
			}
		}
		if matched {
			score += requestedVersionBonus
		}
		for _, q := range inCandidate {
			if !containsString(requested, q) {
				score += unrequestedVersionPenalty
			}
		}
		return score
	}

	for range inCandidate {
		score += unrequestedVersionPenalty
	}
	if strings.Contains(candidate, "original") {
		score += originalVersionBonus
	}
	return score
}

func qualifiersIn(text string) []string {
	var found []string
	for _, q := range versionQualifiers {
		if strings.Contains(text, q) {
			found = append(found, q)
		}
	}
	return found
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func significantWords(normalizedTitle string) []string {
	var words []string
	for _, word := range strings.Fields(normalizedTitle) {
		word = strings.Trim(word, "()[]-")
		if len(word) < 3 || stopwords[word] {
			continue
		}
		words = append(words, word)
	}
	return words
}

// Rank scores all candidates and returns them ordered best-first.
func Rank(candidates []Candidate, target Target) []Candidate {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		ranked[i].Score = Score(ranked[i].Text, target)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Best returns the top candidate if it clears the confidence threshold.
// Below threshold it reports no confident match rather than guessing.
func Best(candidates []Candidate, target Target) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	ranked := Rank(candidates, target)
	if ranked[0].Score < MinScore {
		return Candidate{}, false
	}
	return ranked[0], true
}
