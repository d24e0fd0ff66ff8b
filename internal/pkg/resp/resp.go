/*
Package resp writes the JSON envelopes of the local HTTP surface.

Every response carries a business code (0 on success, see the errs package), a short message and
optional data. Session views change with every frame from the server, so responses are never
cached. A failed submission that keeps the draft returns it under "draft" so the caller can
retry without retyping.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"lumochat/internal/pkg/errs"
)

// Envelope is the body of every surface response.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// KeptDraft is the error data of a submission that failed but left the draft in place.
type KeptDraft struct {
	Draft string `json:"draft"`
}

// RespondJSON encodes payload with the surface headers. Encoding failures are logged with the
// request's logger and answered with a bare 500.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	logger := zerolog.Ctx(r.Context())

	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error().Err(err).Int("http_status", httpStatus).Msg("Error encoding JSON response")
		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Cache-Control", "no-store")

	w.WriteHeader(httpStatus)
	if _, err := w.Write(body); err != nil {
		logger.Debug().Err(err).Msg("Client went away before the response was written")
	}
}

// RespondSuccess sends data with HTTP 200 and code 0.
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	RespondJSON(w, r, http.StatusOK, Envelope{Code: 0, Message: "success", Data: data})
}

// RespondError sends customErr with its own HTTP status. A nil error is reported as ErrUnknown.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	RespondJSON(w, r, customErr.Status, Envelope{
		Code:    customErr.Code,
		Message: customErr.Message,
		Data:    customErr.Data,
	})
}

// RespondDraftKept sends customErr with the retained draft as its data.
func RespondDraftKept(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError, draft string) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}
	RespondError(w, r, customErr.WithData(KeptDraft{Draft: draft}))
}
