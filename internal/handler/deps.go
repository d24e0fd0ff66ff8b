package handler

import (
	"lumochat/internal/app/media"
	"lumochat/internal/app/session"
	"lumochat/internal/configs"
	"lumochat/internal/pkg/limiter"
)

// Link reports whether the shared chat connection is open.
type Link interface {
	IsOpen() bool
}

// AppDeps groups everything the HTTP surface needs.
type AppDeps struct {
	// Session is the State mounted for the HTTP surface.
	Session *session.State
	Config  *configs.AppConfig
	Link    Link

	// Media is nil when no storage is configured.
	Media media.Service

	// PostLimiter throttles the POST routes per client IP.
	PostLimiter *limiter.IPRateLimiter
}
