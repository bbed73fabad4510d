package spotify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// ErrUnauthenticated is returned when no token is available yet.
var ErrUnauthenticated = errors.New("spotify account is not authenticated")

// Scopes are the permissions castbox asks for.
var Scopes = []string{
	spotifyauth.ScopeUserLibraryRead,
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID       string
	ClientSecret   string
	RedirectURL    string
	RefreshToken   string
	TokenCachePath string
	// BaseURL overrides the Web API endpoint; used by tests.
	BaseURL string
}

// Provider hands out authenticated clients. A token comes from the configured
// refresh token, the on-disk cache, or the interactive login flow.
type Provider struct {
	mu     sync.Mutex
	auth   *spotifyauth.Authenticator
	cfg    Config
	token  *oauth2.Token
	client *Client
	state  string
}

// NewProvider creates a provider and loads any cached token.
func NewProvider(cfg Config) *Provider {
	opts := []spotifyauth.AuthenticatorOption{
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(Scopes...),
	}
	if cfg.RedirectURL != "" {
		opts = append(opts, spotifyauth.WithRedirectURL(cfg.RedirectURL))
	}

	p := &Provider{
		auth: spotifyauth.New(opts...),
		cfg:  cfg,
	}

	switch {
	case cfg.RefreshToken != "":
		p.token = &oauth2.Token{RefreshToken: cfg.RefreshToken}
	case cfg.TokenCachePath != "":
		token, err := loadToken(cfg.TokenCachePath)
		if err != nil {
			zlog.Debug().Msgf("no cached spotify token: path=%s error=%v", cfg.TokenCachePath, err)
		} else {
			p.token = token
			zlog.Info().Msgf("loaded cached spotify token: path=%s", cfg.TokenCachePath)
		}
	}
	return p
}

// Authenticated reports whether a token is available.
func (p *Provider) Authenticated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token != nil
}

// RefreshToken returns the refresh token of the current login, or "" before
// one completes.
func (p *Provider) RefreshToken() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token == nil {
		return ""
	}
	return p.token.RefreshToken
}

// Client returns an authenticated client or ErrUnauthenticated.
func (p *Provider) Client(ctx context.Context) (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token == nil {
		return nil, ErrUnauthenticated
	}
	if p.client == nil {
		var opts []spotify.ClientOption
		if p.cfg.BaseURL != "" {
			opts = append(opts, spotify.WithBaseURL(p.cfg.BaseURL))
		}
		// The HTTP client outlives the request that triggered its creation.
		httpClient := p.auth.Client(context.WithoutCancel(ctx), p.token)
		p.client = newClient(spotify.New(httpClient, opts...))
	}
	return p.client, nil
}

// AuthURL starts the interactive login flow and returns the consent URL.
func (p *Provider) AuthURL() (string, error) {
	state, err := randomState()
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.state = state
	p.mu.Unlock()

	return p.auth.AuthURL(state), nil
}

// CompleteAuth exchanges the callback request for a token and caches it.
func (p *Provider) CompleteAuth(ctx context.Context, r *http.Request) error {
	p.mu.Lock()
	state := p.state
	p.mu.Unlock()

	if state == "" {
		return errors.New("no login in progress")
	}
	if got := r.FormValue("state"); got != state {
		return errors.Newf("state mismatch: got=%s", got)
	}

	token, err := p.auth.Token(ctx, state, r)
	if err != nil {
		return errors.Wrap(err, "failed to exchange authorization code")
	}

	p.mu.Lock()
	p.token = token
	p.client = nil
	p.state = ""
	p.mu.Unlock()

	if p.cfg.TokenCachePath != "" {
		if err := saveToken(p.cfg.TokenCachePath, token); err != nil {
			zlog.Warn().Msgf("failed to cache spotify token: path=%s error=%v", p.cfg.TokenCachePath, err)
		}
	}
	zlog.Info().Msg("spotify login completed")
	return nil
}

func randomState() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", errors.Wrap(err, "failed to generate oauth state")
	}
	return hex.EncodeToString(buf[:]), nil
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read token cache")
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, errors.Wrap(err, "failed to parse token cache")
	}
	if token.RefreshToken == "" && token.AccessToken == "" {
		return nil, errors.New("token cache is empty")
	}
	return &token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return errors.Wrap(err, "failed to encode token")
	}
	return errors.Wrap(os.WriteFile(path, data, 0o600), "failed to write token cache")
}
