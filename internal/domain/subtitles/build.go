package subtitles

import (
	"fmt"

	"github.com/forPelevin/shortsmith/internal/types"
)

type Artifacts struct {
	SRT      []byte
	ASS      []byte
	Captions []Caption
}

// Build segments the transcript and renders both subtitle formats. The output
// depends only on its inputs.
func Build(tr types.Transcript, st Style) (Artifacts, error) {
	if err := st.Validate(); err != nil {
		return Artifacts{}, fmt.Errorf("subtitle style: %w", err)
	}
	caps := Segment(tr.Words(), st)
	srt, err := RenderSRT(caps, st)
	if err != nil {
		return Artifacts{}, err
	}
	ass, err := RenderASS(caps, st)
	if err != nil {
		return Artifacts{}, err
	}
	return Artifacts{SRT: srt, ASS: ass, Captions: caps}, nil
}
