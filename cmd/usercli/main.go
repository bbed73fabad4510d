// Package main provides the user CLI entry point for testing.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	castboxv1 "github.com/osa030/castbox/internal/api/castboxv1"
)

var (
	app    = kingpin.New("castbox-usercli", "castbox read-only client for testing")
	server = app.Flag("server", "Server address").Default("http://localhost:5000").String()

	// browse command
	browseCmd  = app.Command("browse", "Browse the media library")
	browsePath = browseCmd.Arg("path", "Folder path relative to the media root").Default("").String()

	// subscribe command
	subscribeCmd = app.Command("subscribe", "Subscribe to notifications")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Create client
	client := castboxv1.NewPlaybackServiceClient(
		http.DefaultClient,
		*server,
	)

	ctx := context.Background()

	// Execute command
	switch command {
	case browseCmd.FullCommand():
		browse(ctx, client, *browsePath)
	case subscribeCmd.FullCommand():
		subscribe(ctx, client)
	}
}

func browse(ctx context.Context, client castboxv1.PlaybackServiceClient, path string) {
	resp, err := client.Browse(ctx, connect.NewRequest(&castboxv1.BrowseRequest{Path: path}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	l := resp.Msg
	if l.Path == "" {
		fmt.Println("/")
	} else {
		fmt.Printf("/%s (parent: /%s)\n", l.Path, l.Parent)
	}
	for _, f := range l.Folders {
		fmt.Printf("  [dir]  %s\n", f.Path)
	}
	for _, f := range l.Files {
		fmt.Printf("  [file] %s  (%s)\n", f.Path, f.Title)
	}
}

func subscribe(ctx context.Context, client castboxv1.PlaybackServiceClient) {
	stream, err := client.SubscribeNotifications(ctx, connect.NewRequest(&castboxv1.SubscribeNotificationsRequest{}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Subscribed to notifications. Press Ctrl+C to exit.")

	// Handle shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nUnsubscribing...")
		os.Exit(0)
	}()

	// Receive notifications
	for stream.Receive() {
		printNotification(stream.Msg())
	}

	if err := stream.Err(); err != nil {
		fmt.Printf("Stream error: %v\n", err)
	}
}

func printNotification(n *castboxv1.Notification) {
	fmt.Printf("\n[Sequence: %d] ", n.SequenceNo)

	switch n.Type {
	case castboxv1.NotificationTypeInitialState:
		fmt.Println("=== INITIAL STATE ===")
	case "dispatched":
		fmt.Println("=== PLAYING ===")
	case "stop_requested":
		fmt.Println("=== STOPPING ===")
	case "stopped", "stop_timed_out", "track_finished":
		fmt.Printf("=== ENDED (%s) ===\n", n.Type)
	case "device_not_found", "invalid_item":
		fmt.Printf("=== DROPPED (%s) ===\n", n.Type)
	default:
		fmt.Printf("=== %s ===\n", n.Type)
	}

	fmt.Printf("  State: %s\n", n.State)
	if n.SessionID != "" {
		fmt.Printf("  Session ID: %s\n", n.SessionID)
		fmt.Printf("  Device: %s\n", n.DeviceName)
		fmt.Printf("  Title: %s\n", n.Title)
	}
	fmt.Printf("  Queue Size: %d\n", n.QueueSize)
	fmt.Printf("  Time: %s\n", n.Time)
}
