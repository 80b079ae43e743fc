package main

import (
	"bufio"
	"chat-room/auth"
	"chat-room/domain"
	"chat-room/errors"
	"chat-room/infrastructure/storage"
	"chat-room/internal"
	"chat-room/moderation"
	"chat-room/observability"
	"chat-room/projection"
	"chat-room/repositories"
	"chat-room/runtime"
	"chat-room/services"
	"chat-room/ui"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const (
	commandQuit    = "/quit"
	commandSignOut = "/signout"
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Chat room terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires the chat room and reports an exit code, so that every defer runs before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	config, err := internal.Load()
	if err != nil {
		return exitConfig, err
	}
	if err = config.RequireIdentity(); err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Identity
	sessions := services.NewSessionService(log, auth.NewProvider([]byte(config.TokenSecret), config.TokenIssuer))
	session, err := sessions.SignIn(ctx, config.IDToken)
	if err != nil {
		return exitRuntime, err
	}

	// 3. Document store
	documentStore, closeStore, err := storage.Open(ctx, config, log)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn("Closing store failed", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()
	messageStore := repositories.NewMessageStore(log, documentStore, observability.NewMetrics(registry),
		repositories.Options{SendTimeout: config.SendTimeout, FetchTimeout: config.FetchTimeout})
	defer func() {
		_ = messageStore.Close()
	}()

	// 4. Surface
	renderer := ui.NewTerminalRenderer(os.Stdout, config.TerminalWidth, ui.WithClear())
	opts := []ui.Option{ui.WithMergePolicy(projection.ParseMergePolicy(config.MergePolicy))}
	if config.CensoredDir != "" {
		moderator, err := buildModerator(config, log)
		if err != nil {
			return exitConfig, err
		}
		opts = append(opts, ui.WithModerator(moderator))
	}
	surface := ui.NewSurface(log, messageStore, session, renderer, opts...)

	if config.DebugPort > 0 {
		internal.StartDebugServer(ctx, log, config.DebugPort, internal.NewDebugRouter(registry,
			func() ([]domain.Message, string) { return surface.Messages(), session.UserID }))
	}

	surfaceCtx, teardown := context.WithCancel(ctx)
	defer teardown()
	runErr := make(chan error, 1)
	go func() {
		runErr <- surface.Run(surfaceCtx)
	}()
	stopSurface := func() {
		teardown()
		if err := <-runErr; err != nil {
			log.Warn("Chat surface stopped with error", "error", err)
		}
	}

	// 5. Input loop
	lines := readLines(os.Stdin)
	for {
		select {
		case err := <-runErr:
			if err != nil {
				return exitRuntime, err
			}
			return exitOK, nil

		case line, ok := <-lines:
			if !ok {
				stopSurface()
				return exitOK, nil
			}
			switch strings.TrimSpace(line) {
			case commandQuit:
				stopSurface()
				return exitOK, nil
			case commandSignOut:
				sessions.SignOut(ctx, stopSurface)
				return exitOK, nil
			}
			if err := surface.Submit(ctx, line); err != nil {
				switch {
				case errors.Is(err, errors.ErrTextTooShort):
					renderer.Notice("warn", fmt.Sprintf("Messages need at least %d characters", domain.MinTextLength))
				default:
					renderer.Notice("error", err.Error())
				}
			}
		}
	}
}

func buildModerator(config internal.Config, log *slog.Logger) (*moderation.Moderator, error) {
	char, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return nil, err
	}
	data, err := runtime.NewCensoredLoader(os.DirFS(config.CensoredDir)).LoadAll(".")
	if err != nil {
		return nil, fmt.Errorf("loading censored words: %w", err)
	}
	log.Info("Moderation enabled", "words", len(data.Words), "languages", data.Languages)
	moderator, err := moderation.NewModerator(data.Words, char, log)
	if err != nil {
		return nil, err
	}
	return moderator.WithLanguages(data.Languages...), nil
}

// readLines forwards input lines until EOF. The input belongs to this goroutine.
func readLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}
