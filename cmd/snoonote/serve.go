package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/snoonote/internal/api"
	"github.com/kalambet/snoonote/internal/config"
	"github.com/kalambet/snoonote/internal/notion"
	"github.com/kalambet/snoonote/internal/proxyhttp"
	"github.com/kalambet/snoonote/internal/reddit"
)

var serveTransport string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the snoonote MCP server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveTransport, "transport", "",
		"transport to serve on: stdio or http (overrides SNOONOTE_SERVER_TRANSPORT)")
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "snoonote version %s\n", version)

	if serveTransport != "" {
		os.Setenv("SNOONOTE_SERVER_TRANSPORT", serveTransport)
	}
	cfg, err := config.Load()
	if err != nil {
		printError("configuration error: %v", err)
		return err
	}

	// Initialize structured logging. Logs go to stderr so the stdio
	// transport keeps stdout for protocol frames.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// One proxy-configured outbound client shared by both adapters.
	httpClient, err := proxyhttp.NewClient(cfg.Proxy.URL, 30*time.Second)
	if err != nil {
		printError("building outbound HTTP client: %v", err)
		return err
	}
	if cfg.Proxy.URL != "" {
		slog.Info("outbound calls routed through proxy", "proxy", cfg.Proxy.URL)
	}

	redditClient := reddit.NewClient(cfg.Reddit.ClientID, cfg.Reddit.ClientSecret, cfg.Reddit.UserAgent, httpClient)
	notionClient := notion.NewClient(cfg.Notion.Token, httpClient)

	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Reddit:     redditClient,
		Notion:     notionClient,
		DatabaseID: cfg.Notion.DatabaseID,
	})

	slog.Info("tools available",
		"tools", "search_reddit, search_posts, get_top_subreddit_posts, save_reddit_qa_to_notion")

	switch cfg.Server.Transport {
	case config.TransportHTTP:
		return serveHTTP(ctx, cfg, mcpSrv)
	default:
		return serveStdio(ctx, mcpSrv)
	}
}

func serveStdio(ctx context.Context, mcpSrv *server.MCPServer) error {
	printStep("starting stdio server (no auth required)")
	stdioSrv := server.NewStdioServer(mcpSrv)
	if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server error: %w", err)
	}
	return nil
}

func serveHTTP(ctx context.Context, cfg config.Config, mcpSrv *server.MCPServer) error {
	streamable := server.NewStreamableHTTPServer(mcpSrv, server.WithStateLess(true))

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	// Every MCP request must carry the bearer token; rejected requests
	// never reach the dispatcher.
	r.Route("/mcp", func(r chi.Router) {
		r.Use(api.BearerAuth(cfg.Auth.APIKey))
		r.Mount("/", streamable)
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		printStep("starting HTTP server on %s (bearer token required)", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	printSuccess("server stopped")
	return nil
}
