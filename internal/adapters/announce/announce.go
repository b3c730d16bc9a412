// Package announce speaks access decisions.
package announce

import (
	"context"
	"fmt"

	"github.com/okian/facegate/internal/domain/model"
)

// Sink plays one announcement. Calls may block for the duration of the
// playback.
type Sink interface {
	Announce(ctx context.Context, text string) error
}

// Fixed phrases.
const (
	SpoofText  = "Spoof attempt detected"
	DeniedText = "Access denied"
)

// Greeting tiers, by match confidence.
const (
	confidentGreeting = 0.95
	probableGreeting  = 0.85
)

// Text returns what to say for a decided result, or "" when nothing should
// be announced.
func Text(result model.MatchResult, granted bool) string {
	switch {
	case result.Status == model.StatusNoFaceDetected:
		return ""
	case granted:
		return Greeting(result.Identity, result.Confidence)
	case result.Status == model.StatusSpoofDetected:
		return SpoofText
	default:
		return DeniedText
	}
}

// Greeting phrases a welcome with less certainty as confidence drops.
func Greeting(name string, confidence float64) string {
	switch {
	case confidence >= confidentGreeting:
		return fmt.Sprintf("Welcome, %s", name)
	case confidence >= probableGreeting:
		return fmt.Sprintf("I think you are %s", name)
	default:
		return fmt.Sprintf("Recognized %s", name)
	}
}
