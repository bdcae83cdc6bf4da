// Command pixelboard starts the Pixel Board server.
//
// It supports three modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "console" – plays on the board from the terminal, one "x y color" line per move
//  3. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, board preset and overrides, storage backend,
// debug logging, and optional ngrok tunneling for easy external access
// during development. Every flag can also be set from the environment or a
// .env file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/pixelboard/api"
	"github.com/wricardo/pixelboard/game/config"
	"github.com/wricardo/pixelboard/game/engine"
	"github.com/wricardo/pixelboard/game/service"
	"github.com/wricardo/pixelboard/game/storage"
	"github.com/wricardo/pixelboard/transport/console"
	"github.com/wricardo/pixelboard/transport/mcp"
	"github.com/wricardo/pixelboard/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Pixel Board Server"
)

// consolePreset is the board the console command plays on unless --board is given
const consolePreset = "console"

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			logrus.WithError(err).Warn("Error loading .env file")
		}
	} else {
		logrus.Info("Loaded environment variables from .env file")
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		logrus.WithError(err).Fatal("pixelboard failed")
	}
}

// newApp builds the command tree. Flags declared on the root are inherited
// by every subcommand.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "pixelboard",
		Usage:   "shared pixel board with a per-player cooldown",
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing board presets", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "board", Usage: "Board preset name (defaults to classic, console for the console command)", Sources: cli.EnvVars("BOARD")},
			&cli.IntFlag{Name: "width", Usage: "Override the preset width"},
			&cli.IntFlag{Name: "height", Usage: "Override the preset height"},
			&cli.StringFlag{Name: "fill", Usage: "Override the preset fill color"},
			&cli.DurationFlag{Name: "cooldown", Usage: "Override the preset cooldown (e.g. 10s, 0s)"},
			&cli.StringFlag{Name: "storage", Value: storage.BackendMemory, Usage: "Storage backend: memory, file, redis or mysql", Sources: cli.EnvVars("STORAGE")},
			&cli.StringFlag{Name: "data-file", Value: "pixelboard.json", Usage: "Data file for the file backend", Sources: cli.EnvVars("DATA_FILE")},
			&cli.StringFlag{Name: "redis-addr", Value: "localhost:6379", Usage: "Redis address for the redis backend", Sources: cli.EnvVars("REDIS_ADDR")},
			&cli.StringFlag{Name: "redis-prefix", Value: storage.DefaultRedisPrefix, Usage: "Key prefix for the redis backend", Sources: cli.EnvVars("REDIS_PREFIX")},
			&cli.StringFlag{Name: "mysql-dsn", Usage: "DSN for the mysql backend", Sources: cli.EnvVars("MYSQL_DSN")},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging", Sources: cli.EnvVars("DEBUG")},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			setupLogging(cmd.Bool("debug"))
			return ctx, nil
		},
		Action: runServerCommand,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  runServerCommand,
			},
			{
				Name:  "console",
				Usage: "Play from the terminal",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "player", Value: console.DefaultPlayerName, Usage: "Player name"},
					&cli.BoolFlag{Name: "no-color", Usage: "Disable colored output"},
				},
				Action: runConsoleCommand,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  runStdioMCPCommand,
			},
			{
				Name:  "version",
				Usage: "Show version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Fprintf(cmd.Root().Writer, "%s v%s\n", AppName, Version)
					return nil
				},
			},
		},
	}
}

// setupLogging configures the global logrus logger
func setupLogging(debug bool) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.SetReportCaller(true)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetReportCaller(false)
	}
}

// boardOptions is everything needed to build the game service
type boardOptions struct {
	ConfigDir string
	Board     string
	Width     int
	Height    int
	Fill      string
	Cooldown  *time.Duration
	Storage   storage.Options
}

// boardOptionsFrom reads the board and storage flags. defaultBoard is used
// when --board is not set; empty means the config manager's default.
func boardOptionsFrom(cmd *cli.Command, defaultBoard string) boardOptions {
	opts := boardOptions{
		ConfigDir: cmd.String("config-dir"),
		Board:     cmd.String("board"),
		Width:     cmd.Int("width"),
		Height:    cmd.Int("height"),
		Fill:      cmd.String("fill"),
		Storage: storage.Options{
			Backend:     cmd.String("storage"),
			DataFile:    cmd.String("data-file"),
			RedisAddr:   cmd.String("redis-addr"),
			RedisPrefix: cmd.String("redis-prefix"),
			MySQLDSN:    cmd.String("mysql-dsn"),
		},
	}
	if opts.Board == "" {
		opts.Board = defaultBoard
	}
	if cmd.IsSet("cooldown") {
		cooldown := cmd.Duration("cooldown")
		opts.Cooldown = &cooldown
	}
	return opts
}

// resolveSettings loads the preset and applies the overrides
func resolveSettings(opts boardOptions) (engine.Settings, error) {
	configManager, err := config.NewManager(opts.ConfigDir)
	if err != nil {
		return engine.Settings{}, fmt.Errorf("failed to create config manager: %w", err)
	}

	preset := configManager.GetDefault()
	if opts.Board != "" {
		preset, err = configManager.LoadConfig(opts.Board)
		if err != nil {
			return engine.Settings{}, fmt.Errorf("failed to load board %q: %w", opts.Board, err)
		}
	}

	settings, err := preset.Settings()
	if err != nil {
		return engine.Settings{}, err
	}

	if opts.Width > 0 {
		settings.Width = opts.Width
	}
	if opts.Height > 0 {
		settings.Height = opts.Height
	}
	if opts.Fill != "" {
		fill, err := engine.ParseColor(opts.Fill)
		if err != nil {
			return engine.Settings{}, err
		}
		settings.FillColor = fill
	}
	if opts.Cooldown != nil {
		settings.Cooldown = *opts.Cooldown
	}

	logrus.WithFields(logrus.Fields{
		"board":    preset.Name,
		"width":    settings.Width,
		"height":   settings.Height,
		"fill":     settings.FillColor,
		"cooldown": settings.Cooldown,
	}).Info("Board configured")
	return settings, nil
}

// initializeServices wires the preset, storage backend, engine and game
// service. The returned closer releases the storage backend.
func initializeServices(opts boardOptions, svcOpts ...service.Option) (service.GameService, func() error, error) {
	settings, err := resolveSettings(opts)
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := storage.Open(opts.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}

	eng, err := engine.NewEngine(settings, store)
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("failed to create engine: %w", err)
	}

	logrus.WithField("storage", opts.Storage.Backend).Info("Storage ready")
	return service.NewGameService(eng, svcOpts...), closeStore, nil
}

// startHub runs a hub until ctx is done
func startHub(ctx context.Context) *websocket.Hub {
	hub := websocket.NewHub()
	go hub.Run(ctx)
	return hub
}

func runServerCommand(ctx context.Context, cmd *cli.Command) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	hub := startHub(ctx)

	gameService, closeStore, err := initializeServices(boardOptionsFrom(cmd, ""), service.WithEventSink(hub))
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer closeStore()

	logrus.Infof("Starting %s v%s (mode: server)", AppName, Version)
	return runHTTPServer(ctx, cmd, gameService, hub)
}

func runConsoleCommand(ctx context.Context, cmd *cli.Command) error {
	gameService, closeStore, err := initializeServices(boardOptionsFrom(cmd, consolePreset))
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer closeStore()

	opts := []console.Option{console.WithPlayerName(cmd.String("player"))}
	if cmd.Bool("no-color") {
		opts = append(opts, console.WithColor(false))
	}
	return console.New(gameService, os.Stdin, os.Stdout, opts...).Run(ctx)
}

func runStdioMCPCommand(ctx context.Context, cmd *cli.Command) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	hub := startHub(ctx)

	gameService, closeStore, err := initializeServices(boardOptionsFrom(cmd, ""), service.WithEventSink(hub))
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer closeStore()

	logrus.Infof("Starting %s v%s (mode: stdio-mcp)", AppName, Version)
	return runStdioMCPWithInternalServer(cmd.Int("port"), gameService, hub)
}

// newRouter mounts the API at the root and the MCP endpoint at /mcp
func newRouter(apiServer http.Handler, mcpServer *server.MCPServer) *http.ServeMux {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpServer))
	return mainRouter
}

// mcpHandler answers one JSON-RPC message per POST
func mcpHandler(mcpServer *server.MCPServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpServer.HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(parent context.Context, cmd *cli.Command, gameService service.GameService, hub *websocket.Hub) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	apiServer := api.NewServer(gameService, hub)

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))
	mainRouter := newRouter(apiServer, mcpClient.GetMCPServer())

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		logrus.Infof("HTTP server listening on %s", addr)
		logrus.Infof("REST API: http://%s/api", addr)
		logrus.Infof("WebSocket: ws://%s/ws", addr)
		logrus.Infof("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), mainRouter)
		}()
	}

	var runErr error
	select {
	case sig := <-stop:
		logrus.Infof("Received signal: %v. Shutting down...", sig)
	case <-parent.Done():
		logrus.Info("Context cancelled. Shutting down...")
	case runErr = <-serveErr:
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("HTTP server shutdown error")
	}

	wg.Wait()
	logrus.Info("Server stopped")
	return runErr
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx is done
func runNgrokTunnel(ctx context.Context, authToken, domain string, handler http.Handler) {
	if authToken == "" {
		logrus.Warn("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	logrus.Info("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logrus.Infof("Using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logrus.WithError(err).Error("Failed to start ngrok tunnel")
		return
	}

	tunnelServer := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		tunnelServer.Close()
	}()

	ngrokURL := tun.URL()
	logrus.Infof("🚀 Ngrok tunnel established: %s", ngrokURL)
	logrus.Infof("  REST API (ngrok): %s/api", ngrokURL)
	logrus.Infof("  WebSocket (ngrok): %s/ws", ngrokURL)
	logrus.Infof("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := tunnelServer.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Error("Ngrok server error")
	}
	logrus.Info("Ngrok tunnel closed")
}

// externalAPIAvailable reports whether a pixel board API answers at baseURL
func externalAPIAvailable(baseURL string) bool {
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// startInternalServer serves the API on a random loopback port and returns
// its base URL. hub must be running.
func startInternalServer(gameService service.GameService, hub *websocket.Hub) (string, *http.Server, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}

	internalAddr := listener.Addr().String()
	logrus.Infof("Starting internal HTTP server on %s for MCP stdio", internalAddr)

	httpServer := &http.Server{
		Handler:           api.NewServer(gameService, hub),
		ReadHeaderTimeout: 15 * time.Second,
	}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("Internal HTTP server error")
		}
	}()

	return fmt.Sprintf("http://%s", internalAddr), httpServer, nil
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at http://localhost:<port>; if unavailable, it
// starts a minimal internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(port int, gameService service.GameService, hub *websocket.Hub) error {
	baseURL := fmt.Sprintf("http://localhost:%d", port)
	logrus.Infof("Checking for external API server at %s...", baseURL)

	if externalAPIAvailable(baseURL) {
		logrus.Infof("External API server found at %s, using it for MCP", baseURL)
	} else {
		logrus.Info("No external API server found, starting internal HTTP server")

		internalURL, httpServer, err := startInternalServer(gameService, hub)
		if err != nil {
			return err
		}
		defer httpServer.Close()
		baseURL = internalURL
	}

	mcpClient := mcp.NewClient(baseURL)
	logrus.WithField("api", baseURL).Info("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
