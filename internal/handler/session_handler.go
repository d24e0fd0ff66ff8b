package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"lumochat/internal/app/media"
	"lumochat/internal/app/session"
	"lumochat/internal/pkg/errs"
	"lumochat/internal/pkg/req"
	"lumochat/internal/pkg/resp"
)

// SubmitMessageInput is the JSON body of POST /api/messages.
type SubmitMessageInput struct {
	Message string `json:"message"`
}

// MessageView is one message log entry as rendered by the HTTP surface.
type MessageView struct {
	Index       int    `json:"index"`
	From        string `json:"from"`
	Body        string `json:"body"`
	AvatarURL   string `json:"avatarUrl"`
	KnownSender bool   `json:"knownSender"`
	IsImage     bool   `json:"isImage"`
}

// HandleGetSession returns the identity and lifecycle status of the surface's session.
func HandleGetSession(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := deps.Session

		data := map[string]any{
			"id":       s.ID(),
			"identity": s.Identity(),
			"status":   s.Status().String(),
			"draft":    s.Draft(),
			"messages": s.Len(),
		}
		resp.RespondSuccess(w, r, data)
	}
}

// HandleGetRoster returns the current roster in server order.
func HandleGetRoster(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, deps.Session.Roster())
	}
}

// HandleListMessages returns log entries starting at the optional "since" index,
// plus the index to poll from next.
func HandleListMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		since := 0
		if raw := r.URL.Query().Get("since"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			since = n
		}

		entries := deps.Session.MessagesSince(since)

		views := make([]MessageView, 0, len(entries))
		for i, e := range entries {
			views = append(views, MessageView{
				Index:       since + i,
				From:        e.Message.From,
				Body:        e.Message.Body,
				AvatarURL:   e.Sender.AvatarURL,
				KnownSender: e.KnownSender,
				IsImage:     media.IsImageReference(e.Message.Body),
			})
		}

		next := since + len(views)
		if len(views) == 0 {
			next = min(since, deps.Session.Len())
		}

		data := map[string]any{
			"messages": views,
			"next":     next,
		}
		resp.RespondSuccess(w, r, data)
	}
}

// HandleSubmitMessage sends a chat message through the surface's session.
func HandleSubmitMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input SubmitMessageInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if isBlank(input.Message) {
			resp.RespondError(w, r, errs.NewError(errs.ErrEmptyMessage))
			return
		}

		if err := deps.Session.SubmitMessage(input.Message); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Message submission failed.")
			respondSubmitError(w, r, err, deps.Session.Draft())
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"sent": true})
	}
}

// respondSubmitError maps a SubmitMessage failure to its response. Failures that keep the
// draft return it so the caller can retry.
func respondSubmitError(w http.ResponseWriter, r *http.Request, err error, draft string) {
	switch {
	case errors.Is(err, session.ErrNotConnected):
		resp.RespondDraftKept(w, r, errs.NewError(errs.ErrNotConnected), draft)
	case errors.Is(err, session.ErrMessageTooLong):
		resp.RespondDraftKept(w, r, errs.NewError(errs.ErrMessageContentTooLong, session.MaxContentBytes), draft)
	case errors.Is(err, session.ErrClosed):
		resp.RespondError(w, r, errs.NewError(errs.ErrSessionClosed))
	default:
		resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
	}
}
