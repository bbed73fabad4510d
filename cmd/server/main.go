// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	castboxv1 "github.com/osa030/castbox/internal/api/castboxv1"
	apiconnect "github.com/osa030/castbox/internal/api/connect"
	"github.com/osa030/castbox/internal/api/web"
	"github.com/osa030/castbox/internal/app/artwork"
	"github.com/osa030/castbox/internal/app/backend"
	"github.com/osa030/castbox/internal/app/discovery"
	"github.com/osa030/castbox/internal/app/filter"
	"github.com/osa030/castbox/internal/app/library"
	"github.com/osa030/castbox/internal/app/session"
	"github.com/osa030/castbox/internal/infra/cast"
	"github.com/osa030/castbox/internal/infra/config"
	"github.com/osa030/castbox/internal/infra/lastfm"
	"github.com/osa030/castbox/internal/infra/logger"
	"github.com/osa030/castbox/internal/infra/mqtt"
	"github.com/osa030/castbox/internal/infra/sonos"
	"github.com/osa030/castbox/internal/infra/spotify"
)

var (
	app        = kingpin.New("castbox-server", "castbox playback server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available filters and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Handle list-filters command
	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
		File:   "",
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	// Run server (defer ensures shutdown hook is called)
	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	// Validate filter config
	if err := validateFilterConfig(cfg); err != nil {
		return fmt.Errorf("invalid filter config: %w", err)
	}

	ctx := context.Background()

	// Streaming account (optional)
	var provider *spotify.Provider
	var devices discovery.SpotifyDevices
	var account backend.StreamingAccount
	if cfg.Spotify.Enabled() {
		provider = spotify.NewProvider(spotify.Config{
			ClientID:       cfg.Spotify.ClientID,
			ClientSecret:   cfg.Spotify.ClientSecret,
			RedirectURL:    cfg.Spotify.RedirectURL,
			RefreshToken:   cfg.Spotify.RefreshToken,
			TokenCachePath: cfg.Spotify.TokenCachePath,
		})
		devices = provider
		account = provider
		if !provider.Authenticated() {
			zlog.Warn().Msgf("Spotify account not authenticated, visit %s/login", strings.TrimRight(cfg.Server.PublicURL, "/"))
		}
	} else {
		zlog.Info().Msg("Spotify not configured, streaming playback disabled")
	}

	// Device discovery
	scanner, err := discovery.NewChainFromConfig(cfg, devices)
	if err != nil {
		return fmt.Errorf("failed to create discovery sources: %w", err)
	}
	zlog.Info().Msgf("Discovery sources: %s", strings.Join(scanner.Sources(), ", "))

	// Playback backends
	resolver := backend.NewFactory(backend.Config{
		CommandTimeout: cfg.Playback.CommandTimeout,
		PollStreaming:  cfg.Spotify.PollStatus,
	}, cast.Dial, sonos.New(cfg.Playback.CommandTimeout), account)

	// Media library
	lib, err := library.New(library.Config{
		Root:       cfg.Media.Root,
		Extensions: cfg.Media.Extensions,
		PublicURL:  cfg.Server.PublicURL,
	})
	if err != nil {
		return fmt.Errorf("failed to open media library: %w", err)
	}
	if cfg.Server.PublicURL == "" {
		zlog.Warn().Msg("server.public_url not set (or HOST_IP), library items cannot be queued")
	}

	// Cover art
	artworkSvc, err := newArtwork(cfg, provider)
	if err != nil {
		return fmt.Errorf("failed to create artwork service: %w", err)
	}

	// Event bus (optional)
	var publisher session.Publisher
	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("failed to connect to mqtt broker: %w", err)
		}
		defer func() {
			if err := mqttClient.Close(); err != nil {
				zlog.Error().Msgf("Failed to close mqtt client: %v", err)
			}
		}()
		publisher = session.NewMQTTPublisher(mqttClient)
	}

	// Create session manager
	sessionMgr, err := session.NewManager(cfg, session.Dependencies{
		Scanner:   scanner,
		Resolver:  resolver,
		Library:   lib,
		Artwork:   artworkSvc,
		Publisher: publisher,
	})
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	// Create RPC service
	playbackService := apiconnect.NewPlaybackService(sessionMgr, cfg)
	adminAuthInterceptor := apiconnect.NewAdminAuthInterceptor(cfg)
	rpcPath, rpcHandler := castboxv1.NewPlaybackServiceHandler(
		playbackService,
		connect.WithInterceptors(adminAuthInterceptor),
	)

	// Create HTTP router
	routerConfig := web.Config{
		Media:      lib,
		CoverArt:   sessionMgr,
		StaticDir:  cfg.Server.StaticDir,
		RPCPath:    rpcPath,
		RPCHandler: rpcHandler,
	}
	if provider != nil {
		routerConfig.Auth = provider
	}
	router := web.NewRouter(routerConfig)

	// Determine server address
	serverAddr := cfg.Server.Addr
	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:    serverAddr,
		Handler: h2c.NewHandler(router, &http2.Server{}),
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	// Start session
	if err := sessionMgr.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	// Start server
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", serverAddr)
		// Signal that we're about to start listening
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for server to start listening
	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	// Execute startup hook if configured (after server is running)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	// Wait for shutdown signal, session end, or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
		stopCtx, cancel := context.WithTimeout(ctx, cfg.Playback.CommandTimeout)
		if err := sessionMgr.Stop(stopCtx); err != nil {
			zlog.Error().Msgf("Failed to stop playback: %v", err)
		}
		cancel()
	case <-sessionMgr.Done():
		zlog.Info().Msg("Session ended, shutting down...")
	case err := <-serverErrCh:
		sessionMgr.Close()
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close session manager first to terminate active connections/streams
	sessionMgr.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	// Execute shutdown hook if configured
	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// newArtwork builds the cover art service. The streaming catalog is tried
// before Last.fm.
func newArtwork(cfg *config.Config, provider *spotify.Provider) (*artwork.Service, error) {
	var finders []artwork.Finder

	if provider != nil {
		finders = append(finders, artwork.Finder{
			Name: "spotify",
			Find: func(ctx context.Context, artist, album string) (string, error) {
				return provider.SearchAlbumImage(ctx, artist, album)
			},
		})
	}

	if cfg.Artwork.LastFMAPIKey != "" {
		lastfmClient, err := lastfm.New(lastfm.Config{APIKey: cfg.Artwork.LastFMAPIKey})
		if err != nil {
			return nil, err
		}
		finders = append(finders, artwork.Finder{
			Name: "lastfm",
			Find: lastfmClient.GetAlbumImage,
		})
	}

	if len(finders) == 0 {
		zlog.Info().Msg("No cover art sources configured, the placeholder is always served")
	}

	return artwork.New(artwork.Config{
		CacheSize:   cfg.Artwork.CacheSize,
		Placeholder: cfg.Artwork.Placeholder,
	}, finders...)
}

// printFilters prints available filters.
func printFilters() {
	fmt.Println("Available Filters:")
	for _, factory := range filter.GetRegistered() {
		f := factory()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}

// validateFilterConfig validates filter configurations.
func validateFilterConfig(cfg *config.Config) error {
	registry := filter.GetRegistered()

	for filterName, filterCfg := range cfg.Filters {
		if !filterCfg.Enabled {
			continue
		}

		factory, exists := registry[filterName]
		if !exists {
			return fmt.Errorf("unknown filter: %s", filterName)
		}

		f := factory()
		if err := f.ValidateConfig(filterCfg.Settings); err != nil {
			return fmt.Errorf("filter %s: %w", filterName, err)
		}
	}

	return nil
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
