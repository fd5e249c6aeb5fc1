package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/chatarc/internal/archive"
	"github.com/matheus3301/chatarc/internal/bookmarks"
	"github.com/matheus3301/chatarc/internal/bus"
	"github.com/matheus3301/chatarc/internal/perf"
	"github.com/matheus3301/chatarc/internal/store"
	"github.com/matheus3301/chatarc/internal/workspace"
	"go.uber.org/fx"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	profile := workspace.Resolve(*profileFlag)
	if err := workspace.ValidateProfile(profile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	var (
		svc     *archive.Service
		bm      *bookmarks.Service
		evts    *bus.Bus
		tracker *perf.Tracker
	)
	app := fx.New(
		archive.Module(archive.Params{Profile: profile}),
		fx.Populate(&svc, &bm, &evts, &tracker),
		fx.NopLogger,
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot open profile %q: %v\n", profile, err)
		exit(app, 1)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		_ = app.Stop(stopCtx)
	}()

	ctx, cmdCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cmdCancel()

	switch args[0] {
	case "import":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: chatarc import <file>")
			exit(app, 1)
		}
		cmdImport(ctx, app, svc, evts, args[1], *jsonFlag)
	case "chats":
		cmdChats(svc, *jsonFlag)
	case "show":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: chatarc show <chat-id>")
			exit(app, 1)
		}
		cmdShow(app, svc, args[1], *jsonFlag)
	case "delete":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: chatarc delete <chat-id>")
			exit(app, 1)
		}
		cmdDelete(app, svc, args[1])
	case "bookmark":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: chatarc bookmark <add|rm|list> [message-id]")
			exit(app, 1)
		}
		cmdBookmark(app, bm, args[1:], *jsonFlag)
	case "stats":
		cmdStats(app, svc, tracker, *jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		exit(app, 1)
	}
}

// exit stops the fx app before terminating so the lock and store close cleanly.
func exit(app *fx.App, code int) {
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = app.Stop(stopCtx)
	os.Exit(code)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: chatarc [--profile <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  import <file>        Import a transcript export")
	fmt.Fprintln(os.Stderr, "  chats                List archived chats")
	fmt.Fprintln(os.Stderr, "  show <chat-id>       Show a chat's messages")
	fmt.Fprintln(os.Stderr, "  delete <chat-id>     Delete a chat and its messages")
	fmt.Fprintln(os.Stderr, "  bookmark add <id>    Bookmark a message")
	fmt.Fprintln(os.Stderr, "  bookmark rm <id>     Remove a bookmark")
	fmt.Fprintln(os.Stderr, "  bookmark list        List bookmarks")
	fmt.Fprintln(os.Stderr, "  stats                Show store counts and timings")
}

func cmdImport(ctx context.Context, app *fx.App, svc *archive.Service, b *bus.Bus, path string, jsonOut bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		exit(app, 1)
	}

	events, unsub := b.Subscribe("import.progress", 64)
	defer unsub()
	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case evt := <-events:
				p, ok := evt.Payload.(bus.ImportProgress)
				if ok && !jsonOut {
					fmt.Fprintf(os.Stderr, "\rparsing: %3d%% (%d/%d lines)", p.Progress, p.ProcessedLines, p.TotalLines)
				}
			case <-quit:
				return
			}
		}
	}()

	chat, err := svc.ImportTranscript(ctx, string(data))
	close(quit)
	<-done
	if !jsonOut {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		exit(app, 1)
	}
	if jsonOut {
		outputJSON(chat)
		return
	}
	fmt.Printf("Imported %q: %d messages, %d participants\n", chat.Name, chat.MessageCount, chat.ParticipantCount)
	fmt.Printf("Chat ID: %s\n", chat.ID)
}

func cmdChats(svc *archive.Service, jsonOut bool) {
	chats := svc.ListChats()
	if jsonOut {
		outputJSON(chats)
		return
	}
	if len(chats) == 0 {
		fmt.Println("No chats archived.")
		return
	}
	for _, c := range chats {
		fmt.Printf("%-36s  %-30s  %d messages\n", c.ID, c.Name, c.MessageCount)
	}
}

func cmdShow(app *fx.App, svc *archive.Service, chatID string, jsonOut bool) {
	chat, msgs, err := svc.LoadChat(chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "error: chat %q not found\n", chatID)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		exit(app, 1)
	}
	if jsonOut {
		outputJSON(struct {
			Chat     *store.Chat     `json:"chat"`
			Messages []store.Message `json:"messages"`
		}{chat, msgs})
		return
	}
	fmt.Printf("%s (%d messages)\n\n", chat.Name, chat.MessageCount)
	for _, m := range msgs {
		if m.IsSystem {
			fmt.Printf("%s %s  -- %s\n", m.Date, m.Time, m.Content)
			continue
		}
		fmt.Printf("%s %s  %s: %s\n", m.Date, m.Time, m.Sender, m.Content)
	}
}

func cmdDelete(app *fx.App, svc *archive.Service, chatID string) {
	if err := svc.DeleteChat(chatID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "error: chat %q not found\n", chatID)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		exit(app, 1)
	}
	fmt.Printf("Deleted chat %s\n", chatID)
}

func cmdBookmark(app *fx.App, bm *bookmarks.Service, args []string, jsonOut bool) {
	switch args[0] {
	case "add":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: chatarc bookmark add <message-id>")
			exit(app, 1)
		}
		if err := bm.Save(args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			exit(app, 1)
		}
		fmt.Printf("Bookmarked %s\n", args[1])
	case "rm":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: chatarc bookmark rm <message-id>")
			exit(app, 1)
		}
		if err := bm.Remove(args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			exit(app, 1)
		}
		fmt.Printf("Removed bookmark %s\n", args[1])
	case "list":
		list := bm.List()
		if jsonOut {
			outputJSON(list)
			return
		}
		if len(list) == 0 {
			fmt.Println("No bookmarks.")
			return
		}
		for _, b := range list {
			fmt.Printf("%s %s  [%s] %s: %s\n", b.Date, b.Time, b.ChatName, b.Sender, b.Content)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown bookmark subcommand: %s\n", args[0])
		exit(app, 1)
	}
}

func cmdStats(app *fx.App, svc *archive.Service, tracker *perf.Tracker, jsonOut bool) {
	chats, messages, bookmarkCount, err := svc.Counts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		exit(app, 1)
	}
	if jsonOut {
		outputJSON(struct {
			Chats     int64 `json:"chats"`
			Messages  int64 `json:"messages"`
			Bookmarks int64 `json:"bookmarks"`
		}{chats, messages, bookmarkCount})
		return
	}
	fmt.Printf("Chats:     %d\n", chats)
	fmt.Printf("Messages:  %d\n", messages)
	fmt.Printf("Bookmarks: %d\n", bookmarkCount)
	if summary := tracker.Summary(); summary != "" {
		fmt.Println()
		fmt.Println(summary)
	}
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
