package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"lumochat/internal/app/media"
	"lumochat/internal/pkg/errs"
	"lumochat/internal/pkg/metrics"
	"lumochat/internal/pkg/req"
	"lumochat/internal/pkg/resp"
)

// mediaFormField is the multipart field carrying the image.
const mediaFormField = "file"

// HandleShareMedia uploads the image in the "file" form field and posts its URL as a chat
// message. When the upload succeeds but the send fails, the URL is returned as the kept draft.
func HandleShareMedia(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Media == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrMediaDisabled))
			return
		}

		if customErr := req.SetupMultipart(w, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		file, header, err := r.FormFile(mediaFormField)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		defer file.Close()

		logger := zerolog.Ctx(r.Context())

		url, err := deps.Media.Share(r.Context(), header.Filename, header.Size, file)
		if err != nil {
			metrics.Incr(metrics.MediaFailed, 1)
			logger.Warn().Err(err).Str("file_name", header.Filename).Msg("Image share failed.")
			resp.RespondError(w, r, mediaError(err))
			return
		}
		metrics.Incr(metrics.MediaShared, 1)

		if err := deps.Session.SubmitMessage(url); err != nil {
			logger.Warn().Err(err).Msg("Uploaded image could not be posted.")
			respondSubmitError(w, r, err, deps.Session.Draft())
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"url": url})
	}
}

func mediaError(err error) *errs.CustomError {
	switch {
	case errors.Is(err, media.ErrFileSizeInvalid):
		return errs.NewError(errs.ErrFileSizeTooLarge)
	case errors.Is(err, media.ErrFileTypeInvalid):
		return errs.NewError(errs.ErrFileTypeInvalid)
	case errors.Is(err, media.ErrStorageFailed):
		return errs.NewError(errs.ErrFileStorageFailed)
	default:
		return errs.NewError(errs.ErrUnknown, err)
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
