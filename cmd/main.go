/*
Package main is the entry point for the lumochat client.

It loads configuration from the environment and command-line flags, initializes logging and
metrics, owns the single connection to the chat server, and mounts the enabled surfaces (the
terminal UI and the optional local HTTP surface) against it. Interrupt signals (SIGINT, SIGTERM)
trigger a graceful shutdown: surfaces unmount first, then the connection and bus close.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"lumochat/internal/app/bus"
	"lumochat/internal/app/media"
	"lumochat/internal/app/session"
	"lumochat/internal/app/transport"
	"lumochat/internal/configs"
	"lumochat/internal/handler"
	"lumochat/internal/pkg/logx"
	"lumochat/internal/pkg/metrics"
	"lumochat/internal/tui"
)

// defaultTUILogFile receives logs in terminal mode when no log file is configured.
const defaultTUILogFile = "lumochat.log"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "lumochat",
		Usage: "realtime chat client",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "chat server WebSocket URL (overrides CHAT_SERVER_URL)"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "display name to register (overrides CHAT_USERNAME)"},
			&cli.StringFlag{Name: "http", Usage: "address of the local HTTP surface, e.g. 127.0.0.1:8090 (overrides CHAT_HTTP_ADDR)"},
			&cli.BoolFlag{Name: "headless", Usage: "run without the terminal UI"},
			&cli.StringFlag{Name: "log-file", Usage: "write logs to this file (overrides CHAT_LOG_FILE)"},
		},
		Action: run,
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	headless := cmd.Bool("headless")

	logOut, closeLog, err := openLogOutput(cfg.LogFile, headless)
	if err != nil {
		return err
	}
	defer closeLog()

	logx.InitGlobalLogger(cfg.IsDevelopment(), logOut)
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Str("server_url", cfg.ServerURL).
		Str("username", cfg.Username).
		Str("http_addr", cfg.HTTPAddr).
		Bool("headless", headless).
		Bool("media_enabled", cfg.MediaEnabled()).
		Msg("Configuration loaded successfully")

	metricsOut := logOut
	if metricsOut == nil {
		metricsOut = os.Stderr
	}
	metrics.Start(cfg.MetricsTick, metricsOut)

	var mediaService media.Service
	if cfg.MediaEnabled() {
		mediaService, err = media.NewService(ctx, media.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
			S3PublicBaseURL:   cfg.S3PublicBaseURL,
		})
		if err != nil {
			return err
		}
	}

	frames := bus.New()
	channel := transport.NewChannel(cfg.ServerURL, frames, transport.Options{HandshakeTimeout: cfg.DialTimeout})

	connCtx, stopConn := context.WithCancel(ctx)
	connDone := make(chan struct{})
	go func() {
		defer close(connDone)
		channel.Maintain(connCtx, cfg.DialTimeout, transport.DefaultBackoff)
	}()

	defer func() {
		stopConn()
		<-connDone
		if err := channel.Close(); err != nil {
			logx.Error(err, "Failed to close connection")
		}
		frames.Close()
		logx.Info("Client stopped.")
	}()

	if cfg.HTTPAddr != "" {
		stopHTTP := serveHTTP(cfg, frames, channel, mediaService)
		defer stopHTTP()
	}

	if headless {
		if cfg.HTTPAddr == "" {
			logx.Warn("Running headless without an HTTP surface; nothing will be displayed.")
		}
		<-ctx.Done()
		logx.Info("Received shutdown signal. Starting graceful shutdown...")
		return nil
	}

	return tui.Run(ctx, frames, channel, cfg.Username, mediaService)
}

// loadConfig reads the environment and applies command-line overrides.
func loadConfig(cmd *cli.Command) (*configs.AppConfig, error) {
	cfg, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if cmd.IsSet("url") {
		cfg.ServerURL = cmd.String("url")
	}
	if cmd.IsSet("name") {
		cfg.Username = cmd.String("name")
	}
	if cmd.IsSet("http") {
		cfg.HTTPAddr = cmd.String("http")
	}
	if cmd.IsSet("log-file") {
		cfg.LogFile = cmd.String("log-file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Username == "" {
		return nil, errors.New("a username is required: pass --name or set CHAT_USERNAME")
	}

	return cfg, nil
}

// openLogOutput picks the log destination. The terminal UI owns the screen, so in that mode
// logs always go to a file.
func openLogOutput(path string, headless bool) (io.Writer, func(), error) {
	if path == "" && !headless {
		path = defaultTUILogFile
	}
	if path == "" {
		return nil, func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// serveHTTP mounts a session for the HTTP surface and starts its server. The returned func
// shuts the server down and unmounts the session.
func serveHTTP(cfg *configs.AppConfig, frames *bus.Bus, channel *transport.Channel, mediaService media.Service) func() {
	httpSession := session.New(frames, channel, cfg.Username, session.WithSurface("http"))
	postLimiter := handler.NewPostLimiter()

	deps := &handler.AppDeps{
		Session:     httpSession,
		Config:      cfg,
		Link:        channel,
		Media:       mediaService,
		PostLimiter: postLimiter,
	}

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler.Router(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info("HTTP surface listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Error(err, "HTTP surface failed")
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logx.Error(err, "HTTP surface forced to shutdown")
		}
		postLimiter.Stop()
		httpSession.Close()
	}
}
