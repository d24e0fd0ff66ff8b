/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrFormParseFailed:       {Code: ErrFormParseFailed, Message: "Failed to process uploaded data.", Status: http.StatusBadRequest},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Session and Content Errors
	ErrNotConnected:          {Code: ErrNotConnected, Message: "Not connected to the chat server. Your message was kept.", Status: http.StatusServiceUnavailable},
	ErrEmptyMessage:          {Code: ErrEmptyMessage, Message: "Message is empty."},
	ErrSessionClosed:         {Code: ErrSessionClosed, Message: "Chat session has ended.", Status: http.StatusGone},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long (max %d bytes).", Status: http.StatusBadRequest},

	// 4xxx: Media Errors
	ErrMediaDisabled:     {Code: ErrMediaDisabled, Message: "Image sharing is not configured.", Status: http.StatusNotImplemented},
	ErrFileSizeTooLarge:  {Code: ErrFileSizeTooLarge, Message: "File is too large.", Status: http.StatusBadRequest},
	ErrFileTypeInvalid:   {Code: ErrFileTypeInvalid, Message: "Only images can be shared.", Status: http.StatusBadRequest},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again.", Status: http.StatusBadGateway},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
