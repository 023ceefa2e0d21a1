package subtitles

import (
	"fmt"
	"math"
	"strings"
)

const assStyleName = "Default"

// RenderASS writes one Dialogue per spoken word. Each line shows the whole
// caption with the current word recolored, so playback reads as a moving
// highlight.
func RenderASS(captions []Caption, st Style) ([]byte, error) {
	bgr, err := RGBToBGR(st.HighlightColor)
	if err != nil {
		return nil, fmt.Errorf("highlight color: %w", err)
	}

	var b strings.Builder
	b.WriteString(assHeader(st))
	b.WriteString("\n\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, c := range captions {
		for i := range c.Words {
			start, end := wordSpan(c, i)
			b.WriteString("Dialogue: 0,")
			b.WriteString(assTime(start))
			b.WriteString(",")
			b.WriteString(assTime(end))
			b.WriteString(",")
			b.WriteString(assStyleName)
			b.WriteString(",,0,0,0,,")
			if st.Blur > 0 {
				fmt.Fprintf(&b, "{\\blur%d}", st.Blur)
			}
			for j, other := range c.Words {
				if j > 0 {
					b.WriteString(" ")
				}
				text := sanitizeASS(other.Word)
				if j == i {
					fmt.Fprintf(&b, "{\\1c&H%s&}%s{\\r}", bgr, text)
					continue
				}
				b.WriteString(text)
			}
			b.WriteString("\n")
		}
	}
	return []byte(b.String()), nil
}

func assHeader(st Style) string {
	var b strings.Builder
	b.WriteString("[Script Info]\n")
	b.WriteString("ScriptType: v4.00+\n")
	b.WriteString("PlayResX: 384\n")
	b.WriteString("PlayResY: 288\n")
	b.WriteString("ScaledBorderAndShadow: yes\n")
	b.WriteString("\n[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&b, "Style: %s,%s,%d,&H00FFFFFF,&H000000FF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,%d,%d,%d,%d,%d,10,1",
		assStyleName, strings.ReplaceAll(sanitizeASS(st.Font), ",", " "), st.FontSize, st.Outline, st.Shadow, st.Position, st.MarginL, st.MarginR)
	return b.String()
}

func assTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	cs := int64(math.Round(sec * 100))
	h := cs / 360000
	cs -= h * 360000
	m := cs / 6000
	cs -= m * 6000
	s := cs / 100
	cs -= s * 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}

// wordSpan keeps a word on screen until the next word of the same caption
// starts, so the highlight never blinks out mid-caption.
func wordSpan(c Caption, i int) (float64, float64) {
	start := c.Words[i].Start
	end := c.End
	if i+1 < len(c.Words) {
		end = c.Words[i+1].Start
	}
	if end < start {
		end = start
	}
	return start, end
}
