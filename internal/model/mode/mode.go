package mode

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMode is returned for any tag outside the fixed mode set.
var ErrUnknownMode = errors.New("unknown mode")

// Mode selects which instruction template anchors a turn.
type Mode string

const (
	Chat        Mode = "chat"
	Strategy    Mode = "strategy"
	SocialMedia Mode = "social_media"
	SEO         Mode = "seo"
	Budget      Mode = "budget"
)

// All lists the modes in their canonical display order.
func All() []Mode {
	return []Mode{Chat, Strategy, SocialMedia, SEO, Budget}
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	for _, known := range All() {
		if m == known {
			return true
		}
	}
	return false
}

// ParseMode normalizes user input such as "Social Media" or "social-media".
func ParseMode(raw string) (Mode, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	m := Mode(normalized)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, raw)
	}
	return m, nil
}

// Template couples a mode with the instruction sent as the system message.
type Template struct {
	Mode        Mode   `json:"mode" yaml:"mode"`
	Title       string `json:"title" yaml:"title"`
	Instruction string `json:"instruction" yaml:"instruction"`
}
