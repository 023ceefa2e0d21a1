package subtitles

import (
	"errors"
	"fmt"
	"strings"
)

// Style carries every user-facing caption option. Zero values are not valid;
// start from DefaultStyle.
type Style struct {
	Font     string
	FontSize int
	// Position is a numpad-style 3x3 grid code: 1 bottom-left, 5 center, 9 top-right.
	Position int
	// HighlightColor is the RGB hex color of the word being spoken.
	HighlightColor string
	Outline        int
	Shadow         int
	Blur           int
	MarginL        int
	MarginR        int

	MaxChars int
	MaxWords int
	SplitGap float64
	MergeGap float64

	// SRTFormat wraps the highlighted word in the SRT output: u, i or b.
	SRTFormat string
}

func DefaultStyle() Style {
	return Style{
		Font:           "Lexend Bold",
		FontSize:       21,
		Position:       5,
		HighlightColor: "FFF000",
		Outline:        1,
		Shadow:         2,
		Blur:           21,
		MaxChars:       38,
		MaxWords:       2,
		SplitGap:       0.5,
		MergeGap:       0.15,
		SRTFormat:      "b",
	}
}

var ErrInvalidColor = errors.New("color must be 6 hex digits")

func (s Style) Validate() error {
	if strings.TrimSpace(s.Font) == "" {
		return errors.New("font is required")
	}
	if s.FontSize <= 0 {
		return fmt.Errorf("font size must be > 0, got %d", s.FontSize)
	}
	if s.Position < 1 || s.Position > 9 {
		return fmt.Errorf("position must be in 1..9, got %d", s.Position)
	}
	if _, err := normalizeHex(s.HighlightColor); err != nil {
		return fmt.Errorf("highlight color %q: %w", s.HighlightColor, err)
	}
	if s.Outline < 0 || s.Shadow < 0 || s.Blur < 0 || s.MarginL < 0 || s.MarginR < 0 {
		return errors.New("outline, shadow, blur and margins must be >= 0")
	}
	if s.MaxChars <= 0 {
		return fmt.Errorf("max chars must be > 0, got %d", s.MaxChars)
	}
	if s.MaxWords <= 0 {
		return fmt.Errorf("max words must be > 0, got %d", s.MaxWords)
	}
	if s.SplitGap < 0 || s.MergeGap < 0 {
		return errors.New("gap thresholds must be >= 0")
	}
	switch s.SRTFormat {
	case "u", "i", "b":
	default:
		return fmt.Errorf("srt format must be one of u, i, b, got %q", s.SRTFormat)
	}
	return nil
}

// RGBToBGR reverses the byte triplet of a hex color: "FFF000" -> "00F0FF".
// A leading '#' is dropped; letter case is preserved.
func RGBToBGR(hex string) (string, error) {
	h, err := normalizeHex(hex)
	if err != nil {
		return "", err
	}
	return h[4:6] + h[2:4] + h[0:2], nil
}

// BGRToRGB is the inverse of RGBToBGR. The reversal is its own inverse.
func BGRToRGB(hex string) (string, error) { return RGBToBGR(hex) }

func normalizeHex(s string) (string, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return "", ErrInvalidColor
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return "", ErrInvalidColor
		}
	}
	return s, nil
}
