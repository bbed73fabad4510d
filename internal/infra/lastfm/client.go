// Package lastfm provides a client for the Last.fm API.
package lastfm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
)

// Client is a Last.fm API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Config represents Last.fm client configuration.
type Config struct {
	APIKey string
}

// Image is one size variant of an artwork image.
type Image struct {
	URL  string `json:"#text"`
	Size string `json:"size"`
}

// GetAlbumInfoResponse represents the response from album.getInfo API.
type GetAlbumInfoResponse struct {
	Album struct {
		Name   string  `json:"name"`
		Artist string  `json:"artist"`
		Image  []Image `json:"image"`
	} `json:"album"`
}

// LastFMError represents an error response from Last.fm API.
type LastFMError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// sizeRank orders Last.fm image sizes from smallest to largest.
var sizeRank = map[string]int{
	"small":      1,
	"medium":     2,
	"large":      3,
	"extralarge": 4,
	"mega":       5,
}

// New creates a new Last.fm client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("last.fm API key is required")
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    "https://ws.audioscrobbler.com/2.0/",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// GetAlbumImage returns the largest cover image for an album, or an empty
// string if Last.fm has none.
// Reference: https://www.last.fm/api/show/album.getInfo
func (c *Client) GetAlbumImage(ctx context.Context, artistName, albumName string) (string, error) {
	if artistName == "" || albumName == "" {
		return "", errors.New("artist name and album name are required")
	}

	params := url.Values{}
	params.Set("method", "album.getInfo")
	params.Set("artist", artistName)
	params.Set("album", albumName)
	params.Set("autocorrect", "1")

	var response GetAlbumInfoResponse
	if err := c.get(ctx, params, &response); err != nil {
		return "", err
	}

	return largestImage(response.Album.Image), nil
}

// get performs a GET call and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")
	reqURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	// Check for Last.fm API errors
	var apiError LastFMError
	if err := json.Unmarshal(body, &apiError); err == nil && apiError.Error != 0 {
		return errors.Errorf("last.fm API error %d: %s", apiError.Error, apiError.Message)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}

func largestImage(images []Image) string {
	best, bestRank := "", 0
	for _, img := range images {
		if img.URL == "" {
			continue
		}
		if rank := sizeRank[img.Size]; rank >= bestRank {
			best, bestRank = img.URL, rank
		}
	}
	return best
}
