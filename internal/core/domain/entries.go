package domain

import (
	"encoding/json"
	"fmt"
)

// EntryType discriminates response entries on the wire.
type EntryType string

const (
	EntryTypeText    EntryType = "TEXT"
	EntryTypePause   EntryType = "PAUSE"
	EntryTypeOptions EntryType = "OPTIONS"
	EntryTypeCommand EntryType = "COMMAND"
)

// OptionsType tells the widget how to render an options entry.
type OptionsType string

const (
	OptionsTypeDropdown   OptionsType = "dropdown"
	OptionsTypeButton     OptionsType = "button"
	OptionsTypeSuggestion OptionsType = "suggestion"
)

// Entry is one unit of assistant output. The set of implementations is closed:
// *TextEntry, *PauseEntry, *OptionsEntry and *CommandEntry.
type Entry interface {
	EntryType() EntryType
	EntryChannels() []string
	entry()
}

// Channels restricts an entry to specific presentation surfaces.
// A nil list targets every surface and is omitted on the wire; an empty
// list targets none and is sent as [].
type Channels struct {
	Channels []string `json:"channels,omitzero"`
}

func (c Channels) EntryChannels() []string { return c.Channels }

// TextEntry is a plain text bubble.
type TextEntry struct {
	Text string `json:"text"`
	Channels
}

// PauseEntry asks the widget to wait, optionally showing a typing indicator.
type PauseEntry struct {
	Time     int  `json:"time"`
	IsTyping bool `json:"is_typing"`
	Channels
}

// Option is a single selectable choice.
type Option struct {
	Text     string `json:"text"`
	Value    string `json:"value"`
	OptionID string `json:"option_id,omitempty"`
}

// OptionsEntry is a multiple-choice prompt with an optional caption.
type OptionsEntry struct {
	Text        string      `json:"text,omitempty"`
	OptionsType OptionsType `json:"options_type,omitempty"`
	Options     []Option    `json:"options"`
	Channels
}

// CommandEntry instructs the client (or a processor) to perform an action.
type CommandEntry struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
	Channels
}

func (*TextEntry) EntryType() EntryType    { return EntryTypeText }
func (*PauseEntry) EntryType() EntryType   { return EntryTypePause }
func (*OptionsEntry) EntryType() EntryType { return EntryTypeOptions }
func (*CommandEntry) EntryType() EntryType { return EntryTypeCommand }

func (*TextEntry) entry()    {}
func (*PauseEntry) entry()   {}
func (*OptionsEntry) entry() {}
func (*CommandEntry) entry() {}

func (e *TextEntry) MarshalJSON() ([]byte, error) {
	type plain TextEntry
	return json.Marshal(struct {
		Type EntryType `json:"type"`
		*plain
	}{EntryTypeText, (*plain)(e)})
}

func (e *PauseEntry) MarshalJSON() ([]byte, error) {
	type plain PauseEntry
	return json.Marshal(struct {
		Type EntryType `json:"type"`
		*plain
	}{EntryTypePause, (*plain)(e)})
}

func (e *OptionsEntry) MarshalJSON() ([]byte, error) {
	type plain OptionsEntry
	cp := *e
	if cp.Options == nil {
		cp.Options = []Option{}
	}
	return json.Marshal(struct {
		Type EntryType `json:"type"`
		*plain
	}{EntryTypeOptions, (*plain)(&cp)})
}

func (e *CommandEntry) MarshalJSON() ([]byte, error) {
	type plain CommandEntry
	cp := *e
	if cp.Args == nil {
		cp.Args = []string{}
	}
	return json.Marshal(struct {
		Type EntryType `json:"type"`
		*plain
	}{EntryTypeCommand, (*plain)(&cp)})
}

// Entries is an ordered list of response entries that decodes from the
// type-tagged wire format.
type Entries []Entry

func (es *Entries) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Entries, 0, len(raw))
	for i, r := range raw {
		e, err := UnmarshalEntry(r)
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, e)
	}
	*es = out
	return nil
}

// UnmarshalEntry decodes a single type-tagged entry.
func UnmarshalEntry(data []byte) (Entry, error) {
	var head struct {
		Type EntryType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	var e Entry
	switch head.Type {
	case EntryTypeText:
		e = &TextEntry{}
	case EntryTypePause:
		e = &PauseEntry{}
	case EntryTypeOptions:
		e = &OptionsEntry{}
	case EntryTypeCommand:
		e = &CommandEntry{}
	default:
		return nil, fmt.Errorf("unknown entry type %q", head.Type)
	}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, err
	}
	return e, nil
}
