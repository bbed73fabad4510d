// Package main provides the Spotify authentication tool.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/castbox/internal/api/web"
	"github.com/osa030/castbox/internal/infra/logger"
	"github.com/osa030/castbox/internal/infra/spotify"
)

var (
	app          = kingpin.New("castbox-auth", "Spotify authentication tool for castbox")
	clientID     = app.Flag("client-id", "Spotify Client ID").Envar("SPOTIFY_CLIENT_ID").Required().String()
	clientSecret = app.Flag("client-secret", "Spotify Client Secret").Envar("SPOTIFY_CLIENT_SECRET").Required().String()
	port         = app.Flag("port", "Callback server port").Default("8888").Int()
	tokenCache   = app.Flag("token-cache", "Also write the token to this cache file").String()
)

// loginWaiter signals once the provider completes a login.
type loginWaiter struct {
	*spotify.Provider
	once sync.Once
	done chan struct{}
}

func (l *loginWaiter) CompleteAuth(ctx context.Context, r *http.Request) error {
	if err := l.Provider.CompleteAuth(ctx, r); err != nil {
		return err
	}
	l.once.Do(func() { close(l.done) })
	return nil
}

func main() {
	_ = godotenv.Load()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if err := logger.Init(logger.Config{Output: "stderr", Level: "info"}); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	provider := spotify.NewProvider(spotify.Config{
		ClientID:       *clientID,
		ClientSecret:   *clientSecret,
		RedirectURL:    fmt.Sprintf("http://127.0.0.1:%d/callback", *port),
		TokenCachePath: *tokenCache,
	})
	waiter := &loginWaiter{Provider: provider, done: make(chan struct{})}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: web.NewRouter(web.Config{Auth: waiter}),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Msgf("Failed to start callback server: %v", err)
		}
	}()

	url, err := provider.AuthURL()
	if err != nil {
		zlog.Fatal().Msgf("Failed to start login: %v", err)
	}
	fmt.Println("Please visit the following URL to authorize castbox:")
	fmt.Println("")
	fmt.Println(url)
	fmt.Println("")
	fmt.Println("Waiting for authorization...")

	<-waiter.done

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		zlog.Warn().Msgf("Failed to shutdown callback server: %v", err)
	}

	token := provider.RefreshToken()
	fmt.Println("")
	fmt.Println("=== Authorization Successful ===")
	fmt.Println("")
	fmt.Println("Add this to your config/server.yaml:")
	fmt.Println("")
	fmt.Println("spotify:")
	fmt.Printf("  refresh_token: \"%s\"\n", token)
	fmt.Println("")
	fmt.Println("Or set as environment variable:")
	fmt.Printf("export SPOTIFY_REFRESH_TOKEN=\"%s\"\n", token)
}
