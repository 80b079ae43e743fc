package main

import (
	"chat-room/infrastructure/storage"
	"chat-room/internal"
	"chat-room/repositories"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

func main() {
	full := flag.Bool("full", false, "Print full message ids")
	flag.Parse()

	if err := run(*full); err != nil {
		fmt.Fprintf(os.Stderr, "Inspect failed: %v\n", err)
		os.Exit(1)
	}
}

// run prints the recent window, oldest first, the way the chat surface shows it.
func run(full bool) error {
	config, err := internal.Load()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	documentStore, closeStore, err := storage.Open(ctx, config, log)
	if err != nil {
		return err
	}
	defer func() {
		_ = closeStore()
	}()

	messageStore := repositories.NewMessageStore(log, documentStore, nil,
		repositories.Options{FetchTimeout: config.FetchTimeout})
	messages, err := messageStore.FetchRecent(ctx)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Created", "Sender", "ID", "Text", "Photo"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, m := range messages {
		id := m.ID.String()
		if !full {
			id = id[:8]
		}
		table.Append([]string{m.CreatedAt.Format(time.DateTime), m.SenderID, id, m.Text, m.SenderPhotoURL})
	}
	table.Render()
	fmt.Printf("%d messages\n", len(messages))
	return nil
}
