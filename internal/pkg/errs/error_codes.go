/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific request, session and media errors on the local HTTP
surface, so that scripts driving the client can react to them without parsing messages.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrFormParseFailed indicates failure to parse multipart or URL-encoded form data.
	ErrFormParseFailed = 1005

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Session and Content Errors
const (
	// ErrNotConnected indicates that the chat connection is not open. The draft is kept.
	ErrNotConnected = 2001

	// ErrEmptyMessage indicates that the submitted body was empty or whitespace only.
	ErrEmptyMessage = 2002

	// ErrSessionClosed indicates that the session has been torn down.
	ErrSessionClosed = 2003

	// ErrMessageContentTooLong indicates that the message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2201
)

// 4xxx: Media Errors
const (
	// ErrMediaDisabled indicates that no media storage is configured.
	ErrMediaDisabled = 4001

	// ErrFileSizeTooLarge indicates that the shared file is empty or over the size limit.
	ErrFileSizeTooLarge = 4002

	// ErrFileTypeInvalid indicates that the shared file is not a supported image type.
	ErrFileTypeInvalid = 4003

	// ErrFileStorageFailed indicates that the storage backend rejected the upload.
	ErrFileStorageFailed = 4004
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general internal error.
	ErrUnknown = 5000
)
