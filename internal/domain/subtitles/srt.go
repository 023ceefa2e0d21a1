package subtitles

import (
	"fmt"
	"math"
	"strings"

	"github.com/forPelevin/shortsmith/internal/types"
)

// RenderSRT writes one cue per word, numbered from 1. The spoken word is
// colored and wrapped in the tag named by Style.SRTFormat.
func RenderSRT(captions []Caption, st Style) ([]byte, error) {
	color, err := normalizeHex(st.HighlightColor)
	if err != nil {
		return nil, fmt.Errorf("highlight color: %w", err)
	}
	open, closing := "<"+st.SRTFormat+">", "</"+st.SRTFormat+">"

	var b strings.Builder
	n := 0
	for _, c := range captions {
		for i := range c.Words {
			n++
			start, end := wordSpan(c, i)
			fmt.Fprintf(&b, "%d\n%s --> %s\n", n, srtTime(start), srtTime(end))
			b.WriteString(highlightLine(c.Words, i, func(w string) string {
				return fmt.Sprintf(`<font color="#%s">%s%s%s</font>`, color, open, w, closing)
			}))
			b.WriteString("\n\n")
		}
	}
	return []byte(b.String()), nil
}

func highlightLine(words []types.Word, cur int, mark func(string) string) string {
	parts := make([]string, len(words))
	for i, w := range words {
		if i == cur {
			parts[i] = mark(w.Word)
			continue
		}
		parts[i] = w.Word
	}
	return strings.Join(parts, " ")
}

func srtTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	ms := int64(math.Round(sec * 1000))
	h := ms / 3600000
	ms -= h * 3600000
	m := ms / 60000
	ms -= m * 60000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
