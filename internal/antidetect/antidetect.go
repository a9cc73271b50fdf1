// internal/antidetect/antidetect.go
// Package antidetect holds the anti-automation countermeasures shared by
// the strategy backends: realistic header generation with user-agent
// rotation for plain HTTP, and stealth scripts plus human-like pacing for
// the headless backends.
package antidetect

import (
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// UserAgentRotator cycles through a pool of realistic user agents.
type UserAgentRotator struct {
	agents []string
	mu     sync.Mutex
	index  int
}

// NewUserAgentRotator creates a rotator, falling back to the default pool
// when no agents are supplied.
func NewUserAgentRotator(agents []string) *UserAgentRotator {
	if len(agents) == 0 {
		agents = defaultUserAgents()
	}
	return &UserAgentRotator{agents: agents}
}

// Next returns the next user agent in rotation.
func (r *UserAgentRotator) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent := r.agents[r.index]
	r.index = (r.index + 1) % len(r.agents)
	return agent
}

// Random returns a random user agent.
func (r *UserAgentRotator) Random() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.agents[rand.Intn(len(r.agents))]
}

func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36 Edg/126.0.0.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
	}
}

// BrowserHeaders returns a browser-like header set for a static fetch.
// An optional referer makes the request look like in-site navigation.
func BrowserHeaders(userAgent, referer string) http.Header {
	headers := make(http.Header)
	headers.Set("User-Agent", userAgent)
	headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	headers.Set("Accept-Language", randomAcceptLanguage())
	headers.Set("Accept-Encoding", "gzip, deflate, br")
	headers.Set("DNT", "1")
	headers.Set("Connection", "keep-alive")
	headers.Set("Upgrade-Insecure-Requests", "1")
	headers.Set("Sec-Fetch-Dest", "document")
	headers.Set("Sec-Fetch-Mode", "navigate")
	if referer != "" {
		headers.Set("Referer", referer)
		headers.Set("Sec-Fetch-Site", "same-origin")
	} else {
		headers.Set("Sec-Fetch-Site", "none")
	}
	return headers
}

func randomAcceptLanguage() string {
	languages := []string{
		"en-US,en;q=0.9",
		"en-US,en;q=0.5",
		"en-GB,en;q=0.9,en-US;q=0.8",
		"en-US,en;q=0.9,de;q=0.6",
	}
	return languages[rand.Intn(len(languages))]
}

// DelayRandomizer produces human-like pauses within a range.
type DelayRandomizer struct {
	min time.Duration
	max time.Duration
}

// NewDelayRandomizer creates a randomizer for delays in [min, max).
func NewDelayRandomizer(min, max time.Duration) *DelayRandomizer {
	if max <= min {
		max = min + time.Millisecond
	}
	return &DelayRandomizer{min: min, max: max}
}

// Delay returns a random duration within the configured range.
func (d *DelayRandomizer) Delay() time.Duration {
	return d.min + time.Duration(rand.Int63n(int64(d.max-d.min)))
}
