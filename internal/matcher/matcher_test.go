// internal/matcher/matcher_test.go
package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreMonotonicity(t *testing.T) {
	target := Target{Title: "Strobe (Club Edit)", Artist: "deadmau5"}

	exact := Score("deadmau5 - Strobe (Club Edit)", target)
	wrongVersion := Score("deadmau5 - Strobe (Original Mix)", target)
	unrelated := Score("Someone Else - Unrelated Track", target)

	assert.Greater(t, exact, wrongVersion,
		"exact version match must beat a different version of the same track")
	assert.Greater(t, wrongVersion, unrelated,
		"same track in another version must beat an unrelated candidate")
}

func TestBestRejectsBelowThreshold(t *testing.T) {
	target := Target{Title: "Strobe (Club Edit)", Artist: "deadmau5"}
	candidates := []Candidate{
		{Text: "Gardening For Beginners", Href: "/1"},
		{Text: "Completely Different Song - Nobody", Href: "/2"},
	}

	_, ok := Best(candidates, target)
	assert.False(t, ok, "matcher must report no confident match, not the best of a bad set")
}

func TestBestPicksExactVersion(t *testing.T) {
	target := Target{Title: "Strobe (Club Edit)", Artist: "deadmau5"}
	candidates := []Candidate{
		{Text: "deadmau5 - Strobe (Original Mix)", Href: "/original"},
		{Text: "deadmau5 - Strobe (Club Edit)", Href: "/club-edit"},
		{Text: "deadmau5 - Ghosts 'n' Stuff", Href: "/ghosts"},
	}

	best, ok := Best(candidates, target)
	require.True(t, ok)
	assert.Equal(t, "/club-edit", best.Href)
}

func TestArtistWithoutTitleIsPenalized(t *testing.T) {
	target := Target{Title: "Strobe", Artist: "deadmau5"}

	sameArtistOtherTrack := Score("deadmau5 - Ghosts 'n' Stuff", target)
	neutral := Score("Some Unknown Upload", target)

	assert.Less(t, sameArtistOtherTrack, neutral,
		"a different track by the target artist must rank below a neutral candidate")
}

func TestOriginalBonusOnlyWithoutRequestedVersion(t *testing.T) {
	plain := Target{Title: "Strobe", Artist: "deadmau5"}

	original := Score("deadmau5 - Strobe (Original Mix)", plain)
	remix := Score("deadmau5 - Strobe (Club Remix)", plain)
	assert.Greater(t, original, remix,
		"with no requested version, original must beat an unrequested remix")

	// When a version is requested, "original" earns nothing extra.
	clubEdit := Target{Title: "Strobe (Club Edit)", Artist: "deadmau5"}
	exact := Score("deadmau5 - Strobe (Club Edit)", clubEdit)
	originalForVersioned := Score("deadmau5 - Strobe (Original Mix)", clubEdit)
	assert.Greater(t, exact, originalForVersioned)
}

func TestBestEmptyInput(t *testing.T) {
	_, ok := Best(nil, Target{Title: "Strobe", Artist: "deadmau5"})
	assert.False(t, ok)
}

func TestRankOrdersDescending(t *testing.T) {
	target := Target{Title: "Strobe", Artist: "deadmau5"}
	ranked := Rank([]Candidate{
		{Text: "nothing to see"},
		{Text: "deadmau5 - Strobe"},
		{Text: "Strobe cover by somebody"},
	}, target)

	require.Len(t, ranked, 3)
	assert.Equal(t, "deadmau5 - Strobe", ranked[0].Text)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score)
	}
}
