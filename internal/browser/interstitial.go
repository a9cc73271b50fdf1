// internal/browser/interstitial.go
package browser

import "strings"

// NavState models the navigation lifecycle of one headless attempt.
type NavState int

const (
	StateLoading NavState = iota
	StateInterstitial
	StateReady
	StateBlocked
)

// String returns the state name for logging.
func (s NavState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateInterstitial:
		return "interstitial"
	case StateReady:
		return "ready"
	case StateBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// interstitialRetries bounds how many recovery rounds (wait, click
// continue, re-navigate) run before the attempt is declared Blocked.
const interstitialRetries = 3

// interstitialTitleFragments are page-title heuristics for anti-bot
// challenge pages. Matching is case-insensitive.
var interstitialTitleFragments = []string{
	"just a moment",
	"please wait",
	"checking your browser",
	"attention required",
	"one more step",
	"access denied",
	"are you a robot",
	"verify you are human",
	"ddos protection",
}

// IsInterstitialTitle reports whether a page title looks like an anti-bot
// challenge rather than real content.
func IsInterstitialTitle(title string) bool {
	lowered := strings.ToLower(title)
	for _, fragment := range interstitialTitleFragments {
		if strings.Contains(lowered, fragment) {
			return true
		}
	}
	return false
}

// Advance computes the next navigation state from the current one and the
// latest page observation. Blocked and Ready are terminal.
func Advance(current NavState, title string, retriesUsed int) NavState {
	switch current {
	case StateReady, StateBlocked:
		return current
	default:
		if !IsInterstitialTitle(title) {
			return StateReady
		}
		if retriesUsed >= interstitialRetries {
			return StateBlocked
		}
		return StateInterstitial
	}
}

// continueSelectors are tried in order when an interstitial offers a
// clickable way through.
var continueSelectors = []string{
	"#challenge-stage button",
	"input[type=\"submit\"]",
	"button[type=\"submit\"]",
	"a.continue",
}
