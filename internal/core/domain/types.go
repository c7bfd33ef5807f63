package domain

import "encoding/json"

// Session binds a dialogue-engine session to the identity that opened it.
type Session struct {
	Key          string `json:"key"`
	UserIdentity string `json:"user_identity"`
	UserID       string `json:"user_id"`
}

// Query is the semantic input of one turn.
type Query struct {
	Text     string `json:"text,omitempty"`
	OptionID string `json:"option_id,omitempty"`
}

// AssistantInput is what the orchestrator hands to a dialogue backend.
type AssistantInput struct {
	SessionID    string
	UserID       string
	Query        Query
	IncludeDebug bool
}

// AssistantContext carries caller attributes the dialogue engine may branch on.
type AssistantContext struct {
	IsInternal bool
	IsOrgAdmin bool
	UserEmail  string
}

// AssistantOutput is one backend turn before post-processing.
type AssistantOutput struct {
	SessionID   string
	UserID      string
	Response    []Entry
	DebugOutput json.RawMessage
}

// TalkInput is the user-facing part of a talk request.
type TalkInput struct {
	Text     string `json:"text" validate:"max=4096"`
	OptionID string `json:"option_id,omitempty" validate:"max=4096"`
}

// TalkRequest is the body of POST /talk.
type TalkRequest struct {
	SessionID    *string   `json:"session_id" validate:"omitempty,max=256"`
	Input        TalkInput `json:"input"`
	IncludeDebug bool      `json:"include_debug,omitempty"`
}

// TalkResponse is the body returned from POST /talk.
type TalkResponse struct {
	SessionID   string          `json:"session_id"`
	Response    Entries         `json:"response"`
	DebugOutput json.RawMessage `json:"debug_output,omitempty"`
}
