package watson

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/domain"
)

// Commands whose arguments are delimited fields instead of space separated words.
const (
	CommandFeedback             = "feedback"
	CommandCreateServiceAccount = "create_service_account"
)

// MissingCommandFieldError is returned when a delimited command lacks a
// required field.
type MissingCommandFieldError struct {
	Field string
	Text  string
}

func (e *MissingCommandFieldError) Error() string {
	return fmt.Sprintf("command field %q missing from %q", e.Field, e.Text)
}

type commandField struct {
	name     string
	required bool
	fallback string
	pattern  *regexp.Regexp
}

func field(name string, required bool, fallback string) commandField {
	return commandField{
		name:     name,
		required: required,
		fallback: fallback,
		pattern:  regexp.MustCompile(`(?s)<\|start_` + regexp.QuoteMeta(name) + `\|>(.*?)<\|end_` + regexp.QuoteMeta(name) + `\|>`),
	}
}

var (
	feedbackFields = []commandField{
		field("feedback_type", false, "general"),
		field("feedback_response", false, ""),
		field("usability_study", false, "false"),
	}
	createServiceAccountFields = []commandField{
		field("name", true, ""),
		field("description", false, ""),
	}
)

// parseCommand turns "/name arg1 arg2" into a command entry. text must start
// with a slash.
func parseCommand(text, email string) (*domain.CommandEntry, error) {
	params := strings.Split(text, " ")
	name := strings.Trim(params[0], "/")

	switch name {
	case CommandFeedback:
		values, err := extractFields(text, feedbackFields)
		if err != nil {
			return nil, err
		}
		return &domain.CommandEntry{
			Command: CommandFeedback,
			Args:    []string{values["feedback_type"], feedbackDescription(values, email)},
		}, nil
	case CommandCreateServiceAccount:
		values, err := extractFields(text, createServiceAccountFields)
		if err != nil {
			return nil, err
		}
		return &domain.CommandEntry{
			Command: CommandCreateServiceAccount,
			Args:    []string{values["name"], values["description"]},
		}, nil
	}

	return &domain.CommandEntry{Command: name, Args: params[1:]}, nil
}

func extractFields(text string, fields []commandField) (map[string]string, error) {
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		m := f.pattern.FindStringSubmatch(text)
		if m == nil {
			if f.required {
				return nil, &MissingCommandFieldError{Field: f.name, Text: text}
			}
			values[f.name] = f.fallback
			continue
		}
		values[f.name] = strings.TrimSpace(m[1])
	}
	return values, nil
}

func feedbackDescription(values map[string]string, email string) string {
	var study string
	switch {
	case !strings.EqualFold(values["usability_study"], "true"):
		study = "The user did not agree to be contacted for usability studies."
	case email != "":
		study = fmt.Sprintf("The user agreed to be contacted for usability studies at %s.", email)
	default:
		study = "The user agreed to be contacted for usability studies."
	}
	return fmt.Sprintf("Feedback: %s\n\n%s", values["feedback_response"], study)
}
