package watson

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/domain"
)

// Watson response_type values this package understands. Anything else is
// dropped from the output.
const (
	responseTypeText       = "text"
	responseTypeOption     = "option"
	responseTypeSuggestion = "suggestion"
	responseTypePause      = "pause"
)

// Intent is a classified intent as exchanged with Watson. Suggestion option
// ids carry a JSON list of these.
type Intent struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

type channel struct {
	Channel string `json:"channel"`
}

type channelList struct {
	Channels []channel `json:"channels"`
}

func (c channelList) names() domain.Channels {
	if c.Channels == nil {
		return domain.Channels{}
	}
	out := make([]string, 0, len(c.Channels))
	for _, ch := range c.Channels {
		out = append(out, ch.Channel)
	}
	return domain.Channels{Channels: out}
}

type optionValue struct {
	Input struct {
		Text    *string  `json:"text"`
		Intents []Intent `json:"intents"`
	} `json:"input"`
}

type vendorOption struct {
	Label *string     `json:"label"`
	Value optionValue `json:"value"`
}

type textBlock struct {
	Text *string `json:"text"`
	channelList
}

type optionBlock struct {
	Title      string         `json:"title"`
	Preference string         `json:"preference"`
	Options    []vendorOption `json:"options"`
	channelList
}

type suggestionBlock struct {
	Title       string         `json:"title"`
	Suggestions []vendorOption `json:"suggestions"`
	channelList
}

type pauseBlock struct {
	Time   *int `json:"time"`
	Typing bool `json:"typing"`
	channelList
}

// Normalize converts Watson's output.generic blocks into response entries.
// Unknown block types and blocks missing required fields are skipped. The
// only hard failure is a delimited command missing a required field.
func Normalize(generic []json.RawMessage, email string) ([]domain.Entry, error) {
	out := make([]domain.Entry, 0, len(generic))
	for _, raw := range generic {
		e, err := normalizeBlock(raw, email)
		if err != nil {
			return nil, err
		}
		if e != nil {
			out = append(out, e)
		}
	}
	return out, nil
}

func normalizeBlock(raw json.RawMessage, email string) (domain.Entry, error) {
	var head struct {
		ResponseType string `json:"response_type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, nil
	}

	switch head.ResponseType {
	case responseTypeText:
		var b textBlock
		if json.Unmarshal(raw, &b) != nil || b.Text == nil {
			return nil, nil
		}
		if strings.HasPrefix(*b.Text, "/") {
			cmd, err := parseCommand(*b.Text, email)
			if err != nil {
				return nil, err
			}
			cmd.Channels = b.names()
			return cmd, nil
		}
		return &domain.TextEntry{Text: *b.Text, Channels: b.names()}, nil

	case responseTypeOption:
		var b optionBlock
		if json.Unmarshal(raw, &b) != nil {
			return nil, nil
		}
		options, ok := convertOptions(b.Options, false)
		if !ok {
			return nil, nil
		}
		e := &domain.OptionsEntry{Text: b.Title, Options: options, Channels: b.names()}
		switch b.Preference {
		case "dropdown":
			e.OptionsType = domain.OptionsTypeDropdown
		case "button":
			e.OptionsType = domain.OptionsTypeButton
		}
		return e, nil

	case responseTypeSuggestion:
		var b suggestionBlock
		if json.Unmarshal(raw, &b) != nil {
			return nil, nil
		}
		options, ok := convertOptions(b.Suggestions, true)
		if !ok {
			return nil, nil
		}
		return &domain.OptionsEntry{
			Text:        b.Title,
			OptionsType: domain.OptionsTypeSuggestion,
			Options:     options,
			Channels:    b.names(),
		}, nil

	case responseTypePause:
		var b pauseBlock
		if json.Unmarshal(raw, &b) != nil || b.Time == nil {
			return nil, nil
		}
		return &domain.PauseEntry{Time: *b.Time, IsTyping: b.Typing, Channels: b.names()}, nil
	}

	return nil, nil
}

func convertOptions(in []vendorOption, withIntents bool) ([]domain.Option, bool) {
	out := make([]domain.Option, 0, len(in))
	for _, o := range in {
		if o.Label == nil || o.Value.Input.Text == nil {
			return nil, false
		}
		opt := domain.Option{Text: *o.Label, Value: *o.Value.Input.Text}
		if withIntents && len(o.Value.Input.Intents) > 0 {
			id, err := json.Marshal(o.Value.Input.Intents)
			if err != nil {
				return nil, false
			}
			opt.OptionID = string(id)
		}
		out = append(out, opt)
	}
	return out, true
}

// parseOptionID decodes an option id produced for a suggestion back into
// the intents Watson expects.
func parseOptionID(optionID string) ([]Intent, error) {
	var intents []Intent
	if err := json.Unmarshal([]byte(optionID), &intents); err != nil {
		return nil, fmt.Errorf("option_id is not a valid intent list: %w", err)
	}
	return intents, nil
}
