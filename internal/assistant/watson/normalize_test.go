package watson

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/domain"
)

func loadGeneric(t *testing.T, name string) []json.RawMessage {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	var generic []json.RawMessage
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return generic
}

func TestNormalize_Fixture(t *testing.T) {
	got, err := Normalize(loadGeneric(t, "generic.json"), "")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	want := []domain.Entry{
		&domain.CommandEntry{Command: "dostuff", Args: []string{"arg1", "arg2", "arg3"}},
		&domain.TextEntry{Text: "regular_text"},
		&domain.OptionsEntry{
			Text:        "Choose one",
			OptionsType: domain.OptionsTypeButton,
			Options: []domain.Option{
				{Text: "my option 1", Value: "fire!"},
				{Text: "last resort", Value: "run"},
			},
		},
		&domain.OptionsEntry{
			OptionsType: domain.OptionsTypeDropdown,
			Options:     []domain.Option{{Text: "no pref", Value: "none"}},
		},
		&domain.OptionsEntry{
			Options: []domain.Option{{Text: "no title", Value: "without it"}},
		},
		&domain.OptionsEntry{
			OptionsType: domain.OptionsTypeSuggestion,
			Options: []domain.Option{{
				Text:     "maybe",
				Value:    "suggest",
				OptionID: `[{"intent":"core_maybe","confidence":0.5}]`,
			}},
			Channels: domain.Channels{Channels: []string{"console"}},
		},
		&domain.PauseEntry{
			Time:     3000,
			IsTyping: true,
			Channels: domain.Channels{Channels: []string{"console", "slack"}},
		},
	}

	if len(got) != len(want) {
		t.Fatalf("Normalize() returned %d entries, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if !reflect.DeepEqual(got[i], want[i]) {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestNormalize_Empty(t *testing.T) {
	got, err := Normalize(nil, "")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Normalize(nil) = %+v, want empty", got)
	}
}

func TestNormalize_MissingCommandFieldFails(t *testing.T) {
	generic := []json.RawMessage{
		json.RawMessage(`{"response_type":"text","text":"hello"}`),
		json.RawMessage(`{"response_type":"text","text":"/create_service_account <|start_description|>d<|end_description|>"}`),
	}
	_, err := Normalize(generic, "")
	if !IsMissingCommandField(err) {
		t.Fatalf("Normalize() error = %v, want missing command field", err)
	}
}

func TestNormalize_CommandKeepsChannels(t *testing.T) {
	generic := []json.RawMessage{
		json.RawMessage(`{"response_type":"text","text":"/redirect /insights","channels":[{"channel":"web"}]}`),
	}
	got, err := Normalize(generic, "")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	cmd, ok := got[0].(*domain.CommandEntry)
	if !ok {
		t.Fatalf("entry = %T, want *domain.CommandEntry", got[0])
	}
	if cmd.Command != "redirect" || !reflect.DeepEqual(cmd.Args, []string{"/insights"}) {
		t.Errorf("command = %+v", cmd)
	}
	if !reflect.DeepEqual(cmd.EntryChannels(), []string{"web"}) {
		t.Errorf("channels = %v", cmd.EntryChannels())
	}
}

func TestNormalize_EmptyChannelsTargetNoSurface(t *testing.T) {
	generic := []json.RawMessage{
		json.RawMessage(`{"response_type":"text","text":"hi","channels":[]}`),
		json.RawMessage(`{"response_type":"text","text":"everywhere"}`),
	}
	got, err := Normalize(generic, "")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Normalize() returned %d entries, want 2", len(got))
	}

	tests := []struct {
		entry domain.Entry
		want  string
	}{
		{got[0], `{"type":"TEXT","text":"hi","channels":[]}`},
		{got[1], `{"type":"TEXT","text":"everywhere"}`},
	}
	for _, tt := range tests {
		data, err := json.Marshal(tt.entry)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(data) != tt.want {
			t.Errorf("Marshal() = %s, want %s", data, tt.want)
		}
	}
}

func TestParseOptionID(t *testing.T) {
	intents, err := parseOptionID(`[{"intent":"core_maybe","confidence":0.5}]`)
	if err != nil {
		t.Fatalf("parseOptionID() error = %v", err)
	}
	if len(intents) != 1 || intents[0].Intent != "core_maybe" || intents[0].Confidence != 0.5 {
		t.Errorf("parseOptionID() = %+v", intents)
	}

	if _, err := parseOptionID("not json"); err == nil {
		t.Error("expected error for malformed option id")
	}
}
