// Package spotify provides a client for the Spotify API.
package spotify

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
)

// PlayerDevice is a device registered with the account.
type PlayerDevice struct {
	ID     string
	Name   string
	Type   string
	Active bool
}

// Client is a Spotify API client.
type Client struct {
	client     *spotify.Client
	maxRetries int
	retryDelay time.Duration
}

func newClient(client *spotify.Client) *Client {
	return &Client{
		client:     client,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// Devices lists the playback devices currently registered with the account.
func (c *Client) Devices(ctx context.Context) ([]PlayerDevice, error) {
	var result []spotify.PlayerDevice
	err := c.retry(ctx, func() error {
		d, err := c.client.PlayerDevices(ctx)
		if err != nil {
			return err
		}
		result = d
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get player devices")
	}

	devices := make([]PlayerDevice, 0, len(result))
	for _, d := range result {
		devices = append(devices, PlayerDevice{
			ID:     d.ID.String(),
			Name:   d.Name,
			Type:   d.Type,
			Active: d.Active,
		})
	}
	return devices, nil
}

// Play starts playback of ref. Track URIs are played as a single-item list;
// anything else (album, playlist, artist) is played as a context.
// An empty deviceID targets the account's active device.
func (c *Client) Play(ctx context.Context, deviceID, ref string) error {
	uri := toURI(ref)
	if uri == "" {
		return errors.New("track reference is required")
	}

	opt := &spotify.PlayOptions{}
	if deviceID != "" {
		id := spotify.ID(deviceID)
		opt.DeviceID = &id
	}
	if strings.HasPrefix(uri, "spotify:track:") {
		opt.URIs = []spotify.URI{spotify.URI(uri)}
	} else {
		playbackContext := spotify.URI(uri)
		opt.PlaybackContext = &playbackContext
	}

	err := c.retry(ctx, func() error {
		return c.client.PlayOpt(ctx, opt)
	})
	if err != nil {
		return errors.Wrapf(err, "failed to start playback: uri=%s", uri)
	}
	return nil
}

// Pause pauses playback. An empty deviceID targets the active device.
func (c *Client) Pause(ctx context.Context, deviceID string) error {
	opt := &spotify.PlayOptions{}
	if deviceID != "" {
		id := spotify.ID(deviceID)
		opt.DeviceID = &id
	}

	err := c.retry(ctx, func() error {
		return c.client.PauseOpt(ctx, opt)
	})
	if err != nil {
		return errors.Wrap(err, "failed to pause playback")
	}
	return nil
}

// IsPlaying reports whether the account's player is currently playing.
func (c *Client) IsPlaying(ctx context.Context) (bool, error) {
	var state *spotify.PlayerState
	err := c.retry(ctx, func() error {
		s, err := c.client.PlayerState(ctx)
		if err != nil {
			return err
		}
		state = s
		return nil
	})
	if err != nil {
		return false, errors.Wrap(err, "failed to get player state")
	}
	if state == nil {
		return false, nil
	}
	return state.Playing, nil
}

// SearchAlbumImage returns the first image URL of the best album match,
// or an empty string when nothing matches.
func (c *Client) SearchAlbumImage(ctx context.Context, artist, album string) (string, error) {
	query := "album:" + album
	if artist != "" {
		query += " artist:" + artist
	}

	var result *spotify.SearchResult
	err := c.retry(ctx, func() error {
		r, err := c.client.Search(ctx, query, spotify.SearchTypeAlbum, spotify.Limit(1))
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to search album")
	}

	if result == nil || result.Albums == nil {
		return "", nil
	}
	for _, a := range result.Albums.Albums {
		if len(a.Images) > 0 {
			return a.Images[0].URL, nil
		}
	}
	return "", nil
}

// retry retries an operation with linear backoff. The backoff ends early
// when ctx is done.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			select {
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), lastErr.Error())
			case <-time.After(c.retryDelay * time.Duration(i+1)):
			}
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

// toURI normalises a Spotify URI or open.spotify.com URL into URI form.
// Unknown input is returned trimmed and unchanged.
func toURI(input string) string {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "spotify:") {
		return input
	}

	if !strings.Contains(input, "open.spotify.com") {
		return input
	}

	for _, kind := range []string{"track", "album", "playlist", "artist", "episode", "show"} {
		marker := "/" + kind + "/"
		if !strings.Contains(input, marker) {
			continue
		}
		parts := strings.Split(input, marker)
		// Remove query parameters and trailing slashes
		id := strings.Split(parts[len(parts)-1], "?")[0]
		id = strings.TrimRight(id, "/")
		if id == "" {
			return ""
		}
		return "spotify:" + kind + ":" + id
	}
	return input
}
