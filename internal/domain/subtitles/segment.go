package subtitles

import (
	"strings"

	"github.com/forPelevin/shortsmith/internal/types"
)

// Caption is one timed display unit after split and merge.
type Caption struct {
	ID    int
	Start float64
	End   float64
	Words []types.Word
}

func (c Caption) Text() string {
	parts := make([]string, len(c.Words))
	for i, w := range c.Words {
		parts[i] = w.Word
	}
	return strings.Join(parts, " ")
}

// Segment groups a word stream into captions. The steps run in a fixed order:
// split on silence gaps, split on character budget, merge across short gaps
// up to MaxWords.
func Segment(words []types.Word, st Style) []Caption {
	var clean []types.Word
	for _, w := range words {
		w.Word = strings.TrimSpace(w.Word)
		if w.Word == "" {
			continue
		}
		if w.End < w.Start {
			w.End = w.Start
		}
		clean = append(clean, w)
	}
	if len(clean) == 0 {
		return nil
	}

	groups := splitByGap(clean, st.SplitGap)
	groups = splitByLength(groups, st.MaxChars)
	groups = mergeByGap(groups, st.MergeGap, st.MaxWords)

	out := make([]Caption, len(groups))
	for i, g := range groups {
		out[i] = Caption{
			ID:    i + 1,
			Start: g[0].Start,
			End:   g[len(g)-1].End,
			Words: g,
		}
	}
	return out
}

func splitByGap(words []types.Word, gap float64) [][]types.Word {
	var out [][]types.Word
	cur := []types.Word{words[0]}
	for _, w := range words[1:] {
		if w.Start-cur[len(cur)-1].End > gap {
			out = append(out, cur)
			cur = nil
		}
		cur = append(cur, w)
	}
	return append(out, cur)
}

func splitByLength(groups [][]types.Word, maxChars int) [][]types.Word {
	var out [][]types.Word
	for _, g := range groups {
		var cur []types.Word
		curLen := 0
		for _, w := range g {
			wl := len([]rune(w.Word))
			next := curLen + wl
			if curLen > 0 {
				next++
			}
			if len(cur) > 0 && next > maxChars {
				out = append(out, cur)
				cur = nil
				next = wl
			}
			cur = append(cur, w)
			curLen = next
		}
		out = append(out, cur)
	}
	return out
}

func mergeByGap(groups [][]types.Word, gap float64, maxWords int) [][]types.Word {
	out := [][]types.Word{groups[0]}
	for _, g := range groups[1:] {
		last := out[len(out)-1]
		d := g[0].Start - last[len(last)-1].End
		if d < gap && len(last)+len(g) <= maxWords {
			merged := make([]types.Word, 0, len(last)+len(g))
			merged = append(merged, last...)
			out[len(out)-1] = append(merged, g...)
			continue
		}
		out = append(out, g)
	}
	return out
}
