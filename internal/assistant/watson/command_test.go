package watson

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		email    string
		wantCmd  string
		wantArgs []string
	}{
		{
			name:     "plain command",
			text:     "/dostuff arg1 arg2 arg3",
			wantCmd:  "dostuff",
			wantArgs: []string{"arg1", "arg2", "arg3"},
		},
		{
			name:     "no args",
			text:     "/finish_conversation",
			wantCmd:  "finish_conversation",
			wantArgs: []string{},
		},
		{
			name: "feedback with study",
			text: "/feedback <|start_feedback_type|>bug<|end_feedback_type|>" +
				"<|start_feedback_response|>The page is broken<|end_feedback_response|>" +
				"<|start_usability_study|>true<|end_usability_study|>",
			email:   "jdoe@example.com",
			wantCmd: CommandFeedback,
			wantArgs: []string{
				"bug",
				"Feedback: The page is broken\n\nThe user agreed to be contacted for usability studies at jdoe@example.com.",
			},
		},
		{
			name:    "feedback defaults",
			text:    "/feedback",
			wantCmd: CommandFeedback,
			wantArgs: []string{
				"general",
				"Feedback: \n\nThe user did not agree to be contacted for usability studies.",
			},
		},
		{
			name: "feedback multiline response",
			text: "/feedback <|start_feedback_response|>line one\nline two<|end_feedback_response|>" +
				"<|start_usability_study|>False<|end_usability_study|>",
			wantCmd: CommandFeedback,
			wantArgs: []string{
				"general",
				"Feedback: line one\nline two\n\nThe user did not agree to be contacted for usability studies.",
			},
		},
		{
			name:     "service account",
			text:     "/create_service_account <|start_name|>my-sa<|end_name|> <|start_description|>for ci<|end_description|>",
			wantCmd:  CommandCreateServiceAccount,
			wantArgs: []string{"my-sa", "for ci"},
		},
		{
			name:     "service account without description",
			text:     "/create_service_account <|start_name|>my-sa<|end_name|>",
			wantCmd:  CommandCreateServiceAccount,
			wantArgs: []string{"my-sa", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCommand(tt.text, tt.email)
			if err != nil {
				t.Fatalf("parseCommand() error = %v", err)
			}
			if got.Command != tt.wantCmd {
				t.Errorf("Command = %q, want %q", got.Command, tt.wantCmd)
			}
			if !reflect.DeepEqual(got.Args, tt.wantArgs) {
				t.Errorf("Args = %q, want %q", got.Args, tt.wantArgs)
			}
		})
	}
}

func TestParseCommand_MissingRequiredField(t *testing.T) {
	text := "/create_service_account <|start_description|>x<|end_description|>"
	_, err := parseCommand(text, "")

	var missing *MissingCommandFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("parseCommand() error = %v, want MissingCommandFieldError", err)
	}
	if missing.Field != "name" || missing.Text != text {
		t.Errorf("MissingCommandFieldError = %+v", missing)
	}
}
