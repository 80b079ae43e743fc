package main

import (
	"chat-room/auth"
	"chat-room/domain"
	"chat-room/infrastructure/storage"
	"chat-room/internal"
	"chat-room/observability"
	"chat-room/repositories"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

var sentences = []string{
	"The quick brown fox jumps over the lazy dog.",
	"The cat in the hat is very fat.",
	"The boy with the toy enjoys playing in the sun.",
	"She sells seashells by the seashore.",
	"The early bird catches the worm.",
	"A picture is worth a thousand words.",
	"Actions speak louder than words.",
	"An apple a day keeps the doctor away.",
	"All that glitters is not gold.",
	"April showers bring May flowers.",
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Seed terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run posts the sample sentences as a fake user, or only prints an ID token with -token.
func run() (int, error) {
	userID := flag.String("user", "seed-bot", "User id of the fake sender")
	name := flag.String("name", "Seed Bot", "Display name of the fake sender")
	picture := flag.String("picture", "", "Photo URL of the fake sender")
	count := flag.Int("count", len(sentences), "Number of messages to post")
	interval := flag.Duration("interval", 0, "Pause between two messages")
	tokenOnly := flag.Bool("token", false, "Print an ID token for the user and exit")
	flag.Parse()

	config, err := internal.Load()
	if err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	token, err := auth.IssueToken([]byte(config.TokenSecret), config.TokenIssuer, *userID, *name, *picture, config.TokenDuration)
	if err != nil {
		return exitRuntime, fmt.Errorf("issuing token: %w", err)
	}
	if *tokenOnly {
		fmt.Println(token)
		return exitOK, nil
	}

	ctx := context.Background()
	session, err := auth.NewProvider([]byte(config.TokenSecret), config.TokenIssuer).SignIn(ctx, token)
	if err != nil {
		return exitRuntime, err
	}

	documentStore, closeStore, err := storage.Open(ctx, config, log)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		_ = closeStore()
	}()

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	messageStore := repositories.NewMessageStore(log, documentStore, metrics,
		repositories.Options{SendTimeout: config.SendTimeout})
	for i := 0; i < *count; i++ {
		messageStore.Send(domain.Message{
			ID:             uuid.New(),
			Text:           sentences[i%len(sentences)],
			SenderPhotoURL: session.PhotoURL,
			SenderID:       session.UserID,
			CreatedAt:      time.Now().UTC(),
		})
		if *interval > 0 {
			time.Sleep(*interval)
		}
	}
	// Close waits for the writes still in flight
	if err = messageStore.Close(); err != nil {
		return exitRuntime, err
	}
	log.Info("Seeded messages", "count", *count, "user_id", session.UserID)
	return exitOK, nil
}
