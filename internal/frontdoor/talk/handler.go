// Package talk serves the conversation endpoint. A turn resolves the caller's
// session, hands the query to the dialogue backend and runs the response
// processors over what comes back.
package talk

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/codec"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/domain"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/ports"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/identity"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/server"
)

// Path is the route, relative to the public base URL.
const Path = "/talk"

// maxBodyBytes bounds the request body.
const maxBodyBytes = 1 << 20

// Handler handles POST /talk.
type Handler struct {
	sessions  ports.SessionStore
	assistant ports.Assistant
	chain     ports.ProcessorChain
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewHandler creates a talk handler. A nil chain returns backend entries
// unchanged.
func NewHandler(sessions ports.SessionStore, assistant ports.Assistant, chain ports.ProcessorChain, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sessions:  sessions,
		assistant: assistant,
		chain:     chain,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
}

// ServeHTTP runs one conversation turn. The identity header has already been
// checked by server.IdentityMiddleware.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := r.Header.Get(identity.HeaderName)
	id, err := identity.Decode(token)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	userID, err := id.UserID()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	server.AddLogField(ctx, "user_id", userID)

	req, err := h.decode(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var sessionID string
	if req.SessionID != nil {
		sessionID = *req.SessionID
		session, err := h.sessions.Get(ctx, sessionID)
		if err != nil {
			h.fail(w, r, storeUnavailable(r, err))
			return
		}
		if session == nil || session.UserID != userID {
			server.AddLogField(ctx, "session_id", sessionID)
			h.fail(w, r, domain.ErrInvalidSession(sessionID))
			return
		}
	} else {
		sessionID, err = h.assistant.CreateSession(ctx, userID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
	}
	server.AddLogField(ctx, "session_id", sessionID)

	// Refreshes the expiry of existing sessions.
	if err := h.sessions.Put(ctx, &domain.Session{
		Key:          sessionID,
		UserIdentity: token,
		UserID:       userID,
	}); err != nil {
		h.fail(w, r, storeUnavailable(r, err))
		return
	}

	query := domain.Query{Text: req.Input.Text, OptionID: req.Input.OptionID}
	out, err := h.assistant.SendMessage(ctx, domain.AssistantInput{
		SessionID:    sessionID,
		UserID:       userID,
		Query:        query,
		IncludeDebug: req.IncludeDebug,
	}, domain.AssistantContext{
		IsInternal: id.IsInternal(),
		IsOrgAdmin: id.IsOrgAdmin(),
		UserEmail:  id.Email(),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	entries := out.Response
	if h.chain != nil {
		entries, err = h.chain.Run(ctx, entries, query)
		if err != nil {
			h.fail(w, r, err)
			return
		}
	}

	resp := domain.TalkResponse{
		SessionID: sessionID,
		Response:  entries,
	}
	if req.IncludeDebug {
		resp.DebugOutput = out.DebugOutput
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.ErrorContext(ctx, "failed to write talk response", slog.String("error", err.Error()))
	}
}

func (h *Handler) decode(r *http.Request) (*domain.TalkRequest, error) {
	var req domain.TalkRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.ErrInvalidRequest("request body is required")
		}
		return nil, domain.ErrInvalidRequest("invalid request body: " + err.Error())
	}
	if err := h.validate.Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, domain.ErrInvalidRequest("invalid field " + verrs[0].Namespace() + ": failed " + verrs[0].Tag())
		}
		return nil, domain.ErrInvalidRequest(err.Error())
	}
	return &req, nil
}

// storeUnavailable records the driver error in the request log and returns
// the error shown to the caller.
func storeUnavailable(r *http.Request, err error) error {
	server.AddLogField(r.Context(), "store_error", err.Error())
	return domain.ErrBackendUnavailable("session store unavailable")
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	server.AddError(r.Context(), err)
	codec.WriteError(w, err)
}
