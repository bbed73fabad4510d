// Package main provides the admin CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	castboxv1 "github.com/osa030/castbox/internal/api/castboxv1"
	apiconnect "github.com/osa030/castbox/internal/api/connect"
)

var (
	app    = kingpin.New("castbox-admincli", "castbox admin client")
	server = app.Flag("server", "Server address").Default("http://localhost:5000").String()
	token  = app.Flag("token", "Admin token (or set ADMIN_TOKEN env)").Envar("ADMIN_TOKEN").String()

	// status command
	statusCmd = app.Command("status", "Get playback status")

	// devices command
	devicesCmd = app.Command("devices", "List discovered devices")

	// queue command
	queueCmd = app.Command("queue", "List queued items")

	// play command
	playCmd    = app.Command("play", "Play an item now, preempting the current one")
	playDevice = playCmd.Arg("device", "Device name").Required().String()
	playRef    = playCmd.Arg("ref", "Streaming track reference or media URL").Required().String()
	playTitle  = playCmd.Flag("title", "Display title").String()

	// enqueue command
	enqueueCmd    = app.Command("enqueue", "Append an item to the queue")
	enqueueDevice = enqueueCmd.Arg("device", "Device name").Required().String()
	enqueueRef    = enqueueCmd.Arg("ref", "Streaming track reference or media URL").Required().String()
	enqueueTitle  = enqueueCmd.Flag("title", "Display title").String()

	// enqueue-folder command
	folderCmd    = app.Command("enqueue-folder", "Append every audio file of a library folder")
	folderDevice = folderCmd.Arg("device", "Device name").Required().String()
	folderPath   = folderCmd.Arg("path", "Folder path relative to the media root").Default("").String()

	// next command
	nextCmd = app.Command("next", "Skip to the next queued item").Alias("skip")

	// stop command
	stopCmd = app.Command("stop", "Stop playback and clear the queue")
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
	case statusCmd.FullCommand():
		status(ctx, client)
	case devicesCmd.FullCommand():
		listDevices(ctx, client)
	case queueCmd.FullCommand():
		listQueue(ctx, client)
	case playCmd.FullCommand():
		playNow(ctx, client, buildItem(*playDevice, *playRef, *playTitle))
	case enqueueCmd.FullCommand():
		enqueue(ctx, client, buildItem(*enqueueDevice, *enqueueRef, *enqueueTitle))
	case folderCmd.FullCommand():
		enqueueFolder(ctx, client, *folderDevice, *folderPath)
	case nextCmd.FullCommand():
		next(ctx, client)
	case stopCmd.FullCommand():
		stop(ctx, client)
	}
}

// newRequest wraps msg and attaches the admin token when one is set.
func newRequest[T any](msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if *token != "" {
		req.Header().Set(apiconnect.AdminTokenHeader, *token)
	}
	return req
}

// buildItem treats http(s) references as media URLs and anything else as a
// streaming track reference.
func buildItem(device, ref, title string) *castboxv1.QueueItem {
	item := &castboxv1.QueueItem{DeviceName: device, Title: title}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		item.MediaURL = ref
	} else {
		item.TrackRef = ref
	}
	return item
}

func exitOnError(err error) {
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func status(ctx context.Context, client castboxv1.PlaybackServiceClient) {
	resp, err := client.GetStatus(ctx, newRequest(&castboxv1.GetStatusRequest{}))
	exitOnError(err)

	s := resp.Msg.Status
	fmt.Println("\n=== CURRENT STATUS ===")
	fmt.Printf("State: %s\n", formatState(s.State))
	fmt.Printf("Queue Size: %d\n", s.QueueSize)
	fmt.Printf("Devices: %d (last scan: %s)\n", s.DeviceCount, s.LastScan)
	fmt.Printf("Subscribers: %d\n", s.SubscriberCount)

	if s.CurrentItem != nil {
		fmt.Println("\nCurrent Session:")
		fmt.Printf("  Session ID: %s\n", s.SessionID)
		fmt.Printf("  Device: %s\n", s.DeviceName)
		fmt.Printf("  Backend: %s (%s)\n", s.Backend, s.Kind)
		fmt.Printf("  Title: %s\n", s.CurrentItem.Title)
		if s.CurrentItem.Artist != "" {
			fmt.Printf("  Artist: %s\n", s.CurrentItem.Artist)
		}
		if s.CurrentItem.TrackRef != "" {
			fmt.Printf("  Track: %s\n", s.CurrentItem.TrackRef)
		} else {
			fmt.Printf("  URL: %s\n", s.CurrentItem.MediaURL)
		}
		fmt.Printf("  Started At: %s\n", s.StartedAt)
		if s.StopRequestedAt != "" {
			fmt.Printf("  Stop Requested At: %s\n", s.StopRequestedAt)
		}
	} else {
		fmt.Println("\nNothing playing")
	}
	fmt.Println()
}

func listDevices(ctx context.Context, client castboxv1.PlaybackServiceClient) {
	resp, err := client.ListDevices(ctx, newRequest(&castboxv1.ListDevicesRequest{}))
	exitOnError(err)

	fmt.Printf("Devices (%d, last scan: %s):\n", len(resp.Msg.Devices), resp.Msg.LastScan)
	for _, d := range resp.Msg.Devices {
		if d.Model != "" {
			fmt.Printf("  %-30s %-10s %s\n", d.Name, d.Kind, d.Model)
		} else {
			fmt.Printf("  %-30s %s\n", d.Name, d.Kind)
		}
	}
}

func listQueue(ctx context.Context, client castboxv1.PlaybackServiceClient) {
	resp, err := client.ListQueue(ctx, newRequest(&castboxv1.ListQueueRequest{}))
	exitOnError(err)

	fmt.Printf("Queue (%d):\n", len(resp.Msg.Items))
	for i, item := range resp.Msg.Items {
		ref := item.TrackRef
		if ref == "" {
			ref = item.MediaURL
		}
		fmt.Printf("  %2d. [%s] %s (%s, added: %s)\n", i+1, item.DeviceName, item.Title, ref, item.AddedAt)
	}
}

func playNow(ctx context.Context, client castboxv1.PlaybackServiceClient, item *castboxv1.QueueItem) {
	resp, err := client.PlayNow(ctx, newRequest(&castboxv1.PlayNowRequest{Item: item}))
	exitOnError(err)

	if resp.Msg.Success {
		fmt.Printf("Success: %s\n", resp.Msg.Message)
	} else {
		fmt.Printf("Rejected [%s]: %s\n", resp.Msg.Code, resp.Msg.Message)
	}
}

func enqueue(ctx context.Context, client castboxv1.PlaybackServiceClient, item *castboxv1.QueueItem) {
	resp, err := client.Enqueue(ctx, newRequest(&castboxv1.EnqueueRequest{Item: item}))
	exitOnError(err)

	if resp.Msg.Success {
		fmt.Printf("Success: %s (queue size: %d)\n", resp.Msg.Message, resp.Msg.QueueSize)
	} else {
		fmt.Printf("Rejected [%s]: %s\n", resp.Msg.Code, resp.Msg.Message)
	}
}

func enqueueFolder(ctx context.Context, client castboxv1.PlaybackServiceClient, device, path string) {
	resp, err := client.EnqueueFolder(ctx, newRequest(&castboxv1.EnqueueFolderRequest{
		DeviceName: device,
		Path:       path,
	}))
	exitOnError(err)

	if resp.Msg.Success {
		fmt.Printf("Added %d items (queue size: %d)\n", resp.Msg.Added, resp.Msg.QueueSize)
	} else {
		fmt.Printf("Rejected [%s]: %s\n", resp.Msg.Code, resp.Msg.Message)
	}
}

func next(ctx context.Context, client castboxv1.PlaybackServiceClient) {
	resp, err := client.Next(ctx, newRequest(&castboxv1.NextRequest{}))
	exitOnError(err)

	if resp.Msg.Success {
		fmt.Println("Skip requested")
	} else {
		fmt.Printf("Failed: %s\n", resp.Msg.Message)
	}
}

func stop(ctx context.Context, client castboxv1.PlaybackServiceClient) {
	resp, err := client.Stop(ctx, newRequest(&castboxv1.StopRequest{}))
	exitOnError(err)

	if resp.Msg.Success {
		fmt.Println("Playback stopped")
	} else {
		fmt.Printf("Failed: %s\n", resp.Msg.Message)
	}
}

func formatState(state string) string {
	switch state {
	case "idle":
		return "⏹  Idle"
	case "playing":
		return "▶️  Playing"
	case "stopping":
		return "⏳ Stopping"
	default:
		return "❓ " + state
	}
}
