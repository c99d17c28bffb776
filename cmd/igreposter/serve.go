package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"igreposter/internal/server"
	"igreposter/pkg/config"
	"igreposter/pkg/graphapi"
	"igreposter/pkg/logger"
	"igreposter/pkg/paraphrase"
	"igreposter/pkg/queue"
	"igreposter/pkg/scrape"
	"igreposter/pkg/secrets"
	"igreposter/pkg/store"
)

var (
	listenAddr   string
	storeBackend string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard API server",
	Long: `Run the HTTP API server that backs the repost dashboard.

The server exposes the post scheduling CRUD, source profile search and
confirmation, content analysis, the repost queue, caption generation,
the Instagram OAuth flow, and publishing.

API keys are resolved in order from the configuration file, environment
variables, and the secret store ('igreposter keys set'). The server
starts without them; operations that need a missing key fail with a
configuration error until it is provided.`,
	Example: `  # In-memory store on the default port
  igreposter serve

  # Persistent snapshot and a custom address
  IGREPOSTER_SNAPSHOT_FILE=./state.json igreposter serve --listen-addr :8080

  # Postgres-backed store
  DATABASE_URL=postgres://... igreposter serve --store postgres`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&listenAddr, "listen-addr", "", "address to listen on (default :5000)")
	serveCmd.Flags().StringVar(&storeBackend, "store", "", "persistence backend: memory or postgres")
}

func runServe(cmd *cobra.Command, args []string) {
	flags := make(map[string]interface{})
	if listenAddr != "" {
		flags["listen-addr"] = listenAddr
	}
	if storeBackend != "" {
		flags["store"] = storeBackend
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	log := logger.GetLogger()

	// Keys absent from config and environment fall back to the secret store.
	if manager, err := secrets.NewManager(); err == nil {
		if cfg.Scraper.RapidAPIKey == "" {
			cfg.Scraper.RapidAPIKey = manager.Value(secrets.KeyRapidAPI)
		}
		if cfg.Paraphrase.APIKey == "" {
			cfg.Paraphrase.APIKey = manager.Value(secrets.KeyOpenAI)
		}
		if cfg.Graph.AppID == "" {
			cfg.Graph.AppID = manager.Value(secrets.KeyGraphAppID)
		}
		if cfg.Graph.AppSecret == "" {
			cfg.Graph.AppSecret = manager.Value(secrets.KeyGraphAppSecret)
		}
	} else {
		log.WithError(err).Warn("secret store unavailable")
	}

	st, err := store.New(cfg.Store, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer st.Close()

	client := scrape.NewClient(scrape.ClientOptions{
		APIKey:            cfg.Scraper.RapidAPIKey,
		Timeout:           cfg.Scraper.RequestTimeout,
		MaxRetries:        cfg.Scraper.MaxRetries,
		RequestsPerMinute: cfg.Scraper.RequestsPerMinute,
	}, log)
	coordinator := scrape.NewCoordinator(client, log,
		scrape.WithPreviewCount(cfg.Scraper.PreviewPostCount))

	rewriter := paraphrase.New(paraphrase.Options{
		APIKey:              cfg.Paraphrase.APIKey,
		BaseURL:             cfg.Paraphrase.BaseURL,
		Model:               cfg.Paraphrase.Model,
		MaxCompletionTokens: cfg.Paraphrase.MaxCompletionTokens,
		SampleCaptionLimit:  cfg.Paraphrase.SampleCaptionLimit,
		Timeout:             cfg.Paraphrase.RequestTimeout,
	}, log)

	redirectBase := cfg.Graph.RedirectBase
	if redirectBase == "" {
		redirectBase = "http://localhost" + cfg.Server.ListenAddr
	}
	publisher := graphapi.New(graphapi.Options{
		AppID:       cfg.Graph.AppID,
		AppSecret:   cfg.Graph.AppSecret,
		RedirectURI: strings.TrimRight(redirectBase, "/") + "/auth/instagram/callback",
	}, log)

	handler := server.NewHandler(st, coordinator, rewriter, publisher, queue.NewBuilder(), log)
	srv := server.New(cfg.Server, handler, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithField("version", version).Info("igreposter starting")
	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Fatal("server exited with error")
	}
	log.Info("server stopped")
}
