// internal/browser/interstitial_test.go
package browser

import "testing"

func TestIsInterstitialTitle(t *testing.T) {
	tests := []struct {
		title        string
		interstitial bool
	}{
		{"Just a moment...", true},
		{"Please Wait... | Cloudflare", true},
		{"Checking your browser before accessing", true},
		{"Attention Required! | Cloudflare", true},
		{"Verify you are human", true},
		{"deadmau5 @ Ultra Music Festival 2024 - Tracklist", false},
		{"Strobe (Original Mix) :: Beatport", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := IsInterstitialTitle(tt.title); got != tt.interstitial {
				t.Errorf("IsInterstitialTitle(%q) = %v, want %v", tt.title, got, tt.interstitial)
			}
		})
	}
}

func TestAdvanceStateMachine(t *testing.T) {
	const challenge = "Just a moment..."
	const content = "Tracklist - Carl Cox @ Space Ibiza"

	// Content page resolves to Ready immediately.
	if got := Advance(StateLoading, content, 0); got != StateReady {
		t.Errorf("expected Ready for content title, got %v", got)
	}

	// Challenge page enters Interstitial and stays there while retries remain.
	state := Advance(StateLoading, challenge, 0)
	if state != StateInterstitial {
		t.Fatalf("expected Interstitial, got %v", state)
	}
	state = Advance(state, challenge, 1)
	if state != StateInterstitial {
		t.Errorf("expected Interstitial on retry 1, got %v", state)
	}

	// A successful recovery round lands on Ready.
	if got := Advance(StateInterstitial, content, 2); got != StateReady {
		t.Errorf("expected Ready after recovery, got %v", got)
	}

	// Exhausted retries are terminal.
	state = Advance(StateInterstitial, challenge, interstitialRetries)
	if state != StateBlocked {
		t.Fatalf("expected Blocked after %d retries, got %v", interstitialRetries, state)
	}
	if got := Advance(state, content, 0); got != StateBlocked {
		t.Errorf("Blocked must be terminal, got %v", got)
	}

	// Ready is terminal too.
	if got := Advance(StateReady, challenge, 0); got != StateReady {
		t.Errorf("Ready must be terminal, got %v", got)
	}
}
