package main

import (
	"chat-sync/domain"
	"chat-sync/infrastructure/storage"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"unicode/utf8"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

const maxBodyWidth = 60

func main() {
	_ = godotenv.Load()
	dbPath := flag.String("db", envOrDefault("BADGER_FILEPATH", "data/badger"), "Path to badger DB")
	after := flag.Uint64("after", 0, "Only show messages after this id")
	limit := flag.Int("limit", 100, "Maximum number of messages to show, 0 for all")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	repository, err := storage.NewBadgerMessageRepository(db, logs.GetLoggerFromString("ERROR"))
	if err != nil {
		log.Fatal(err)
	}
	messages, err := repository.Since(context.Background(), domain.MessageID(*after), *limit)
	if err != nil {
		log.Fatal(err)
	}
	tail, _ := repository.LatestID(context.Background())

	render(os.Stdout, messages)
	fmt.Printf("\n%d message(s) shown, log tail is %d\n", len(messages), tail)
}

// openDB opens the log read-only, next to a running server
func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLogger(nil)
	return badger.Open(opts)
}

func render(w io.Writer, messages []domain.Message) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Id", "Created At", "Sender", "Body"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, message := range messages {
		table.Append([]string{
			strconv.FormatUint(uint64(message.ID), 10),
			message.CreatedAt.Format("2006-01-02 15:04:05"),
			message.Sender,
			truncate(message.Body, maxBodyWidth),
		})
	}
	table.Render()
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	return string([]rune(s)[:width-1]) + "…"
}

func envOrDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
