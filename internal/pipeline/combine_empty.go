package pipeline

import (
	"context"

	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/domain"
)

// CombineEmptyName identifies the CombineEmpty processor.
const CombineEmptyName = "combine_empty"

// CombineEmpty turns a text entry followed by an uncaptioned options entry
// into a single options entry captioned with the text.
type CombineEmpty struct{}

func (CombineEmpty) Name() string { return CombineEmptyName }

func (CombineEmpty) Process(_ context.Context, entries []domain.Entry, _ domain.Query) ([]domain.Entry, error) {
	out := make([]domain.Entry, 0, len(entries))
	for _, e := range entries {
		opts, ok := e.(*domain.OptionsEntry)
		if ok && opts.Text == "" && len(out) > 0 {
			if text, ok := out[len(out)-1].(*domain.TextEntry); ok {
				merged := *opts
				merged.Text = text.Text
				out[len(out)-1] = &merged
				continue
			}
		}
		out = append(out, e)
	}
	return out, nil
}
