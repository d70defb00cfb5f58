// Command inspect prints the groups and message history of a gateway store.
// It opens badger read-only, so it can run next to a live gateway.
package main

import (
	"chat-gateway/domain"
	"chat-gateway/infrastructure/storage"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

func main() {
	_ = godotenv.Load()
	dbPath := flag.String("db", os.Getenv("BADGER_FILEPATH"), "Path to badger DB")
	groupID := flag.String("group", "", "Print the history of this group instead of the group list")
	page := flag.Int("page", 1, "History page, newest first")
	limit := flag.Int("limit", 20, "History page size")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("missing -db or BADGER_FILEPATH")
	}
	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLogger(nil))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	if *groupID != "" {
		err = printHistory(db, domain.GroupID(*groupID), *page, *limit)
	} else {
		err = printGroups(db)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
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
	return table
}

func printGroups(db *badger.DB) error {
	table := newTable("Group ID", "Kind", "Name", "Members", "Created")
	count := 0
	err := db.View(func(txn *badger.Txn) error {
		prefix := []byte(storage.GroupPrefix)
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				group, err := storage.DecodeGroup(v)
				if err != nil {
					// keep listing the rest
					fmt.Printf("Error decoding key %s: %v\n", string(item.Key()), err)
					return nil
				}
				table.Append([]string{
					string(group.ID),
					kindLabel(group.Kind),
					group.Name,
					joinMembers(group.Members),
					group.CreatedAt.Format("2006-01-02 15:04:05"),
				})
				count++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	table.Render()
	fmt.Println(color.Gray.Sprintf("%d group(s)", count))
	return nil
}

func printHistory(db *badger.DB, groupID domain.GroupID, page, limit int) error {
	repository := storage.NewMessageRepository(db, logs.GetLoggerFromLevel(slog.LevelError), limit)
	result, err := repository.Page(context.Background(), groupID, page, limit)
	if err != nil {
		return err
	}

	table := newTable("Seq", "At", "Author", "Text")
	for _, m := range result.Docs {
		table.Append([]string{
			strconv.FormatUint(m.Seq, 10),
			m.CreatedAt.Format("2006-01-02 15:04:05.000"),
			string(m.AuthorID),
			m.Text,
		})
	}
	table.Render()
	fmt.Println(color.Gray.Sprintf("page %d/%d, %d message(s) in total",
		result.Page, result.TotalPages, result.TotalDocs))
	return nil
}

func kindLabel(kind domain.GroupKind) string {
	if kind == domain.KindPrivate {
		return color.Magenta.Sprint(string(kind))
	}
	return color.Cyan.Sprint(string(kind))
}

func joinMembers(members []domain.UserID) string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}
