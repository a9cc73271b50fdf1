// internal/platform/platform.go
package platform

import (
	"strings"

	"tracklift/pkg/types"
)

// domainRule maps a domain fragment to a platform. Rules are evaluated in
// order, so more specific fragments must come before generic ones. This
// table is the single source of truth for classification precedence.
type domainRule struct {
	fragment string
	platform types.Platform
}

var rules = []domainRule{
	{"open.spotify.com", types.PlatformSpotify},
	{"spotify.com", types.PlatformSpotify},
	{"youtube.com", types.PlatformYouTube},
	{"youtu.be", types.PlatformYouTube},
	{"music.youtube.com", types.PlatformYouTube},
	{"soundcloud.com", types.PlatformSoundCloud},
	{"beatport.com", types.PlatformBeatport},
	{"music.apple.com", types.PlatformAppleMusic},
	{"itunes.apple.com", types.PlatformAppleMusic},
	{"tidal.com", types.PlatformTidal},
	{"deezer.com", types.PlatformDeezer},
	{"deezer.page.link", types.PlatformDeezer},
}

// Classify maps a URL to a platform by case-insensitive domain-fragment
// lookup. Unmatched URLs classify as Other. Classification is pure and has
// no side effects.
func Classify(url string) types.Platform {
	lowered := strings.ToLower(url)
	for _, rule := range rules {
		if strings.Contains(lowered, rule.fragment) {
			return rule.platform
		}
	}
	return types.PlatformOther
}
