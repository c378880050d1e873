package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/codesearch/internal/config"
	"github.com/Aman-CERP/codesearch/internal/contextgen"
	"github.com/Aman-CERP/codesearch/internal/embed"
	"github.com/Aman-CERP/codesearch/internal/pipeline"
	"github.com/Aman-CERP/codesearch/internal/query"
	"github.com/Aman-CERP/codesearch/internal/session"
	"github.com/Aman-CERP/codesearch/internal/store"
	"github.com/Aman-CERP/codesearch/internal/storemgr"
	"github.com/Aman-CERP/codesearch/internal/watcher"
)

// newServeCmd builds the serve command: the one long-running entrypoint
// this module ships. It loads config from the environment, provisions the
// store manager and indexing pipeline, and serves the streaming session
// protocol plus a small HTTP admin surface until interrupted.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the search server",
		Long: `serve loads configuration from the environment, opens (or creates)
the configured store, and accepts streaming session connections for it on
ListenAddr. An optional HTTP admin endpoint reports store stats on AdminAddr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	return cmd
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := slog.Default().With("component", "serve", "store", cfg.StoreName)

	cached, err := embed.NewEmbedder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("new embedder: %w", err)
	}
	defer func() { _ = cached.Close() }()

	reranker := embed.NewReranker(cfg)

	stores, err := storemgr.New(cfg.DataRoot, store.DefaultVectorStoreConfig(cfg.ModelEmbedDim), store.DefaultBM25Config())
	if err != nil {
		return fmt.Errorf("new store manager: %w", err)
	}
	defer func() { _ = stores.Close() }()

	if _, err := stores.Ensure(ctx, cfg.StoreName); err != nil {
		return fmt.Errorf("ensure store %q: %w", cfg.StoreName, err)
	}

	plCfg := pipeline.Config{
		EmbedWorkers:   cfg.EmbedWorkers,
		EmbedBatchSize: cfg.EmbedBatchSize,
		MaxQueuedJobs:  cfg.EmbedQueueMax,
	}
	pl := pipeline.New(cfg.DataRoot, stores, cached, plCfg, log)
	defer func() { _ = pl.Close() }()

	if cfg.ContextualEnabled {
		pl.SetContextGen(contextgen.New(contextgen.Config{
			Enabled:    true,
			CodeChunks: cfg.ContextualCodeChunks,
			OllamaHost: cfg.OllamaHost,
			Model:      cfg.ContextModel,
		}))
	}

	parser := query.NewParser(query.NewKeywordClassifier(), log)

	mgr := session.NewManager(pl, stores, cached, reranker, parser, session.Config{}, log)
	defer mgr.Close()

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}
	log.Info("listening", "addr", cfg.ListenAddr)

	errCh := make(chan error, 2)

	go func() {
		errCh <- mgr.Serve(ctx, listener, cfg.StoreName)
	}()

	var admin *http.Server
	if cfg.AdminAddr != "" {
		admin = newAdminServer(cfg.AdminAddr, stores, log)
		go func() {
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("admin server: %w", err)
			}
		}()
	}

	if cfg.WatchDir != "" {
		ing, err := watcher.NewIngestor(cfg.WatchDir, cfg.StoreName, pl, watcher.DefaultOptions(), log)
		if err != nil {
			return fmt.Errorf("new watcher: %w", err)
		}
		go func() {
			if err := ing.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("watcher: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error("server error", "error", err)
		}
	}

	_ = listener.Close()
	if admin != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = admin.Shutdown(shutdownCtx)
	}

	return nil
}

// newAdminServer builds the minimal HTTP admin surface: a liveness probe
// and a per-store stats endpoint, both read-only.
func newAdminServer(addr string, stores *storemgr.Manager, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/stores", func(w http.ResponseWriter, r *http.Request) {
		list := stores.List()
		out := make([]storeSummary, 0, len(list))
		for _, s := range list {
			stats, err := stores.Stats(s.Name)
			if err != nil {
				log.Warn("admin stats failed", "store", s.Name, "error", err)
				continue
			}
			out = append(out, storeSummary{Name: s.Name, Stats: stats})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

type storeSummary struct {
	Name  string         `json:"name"`
	Stats storemgr.Stats `json:"stats"`
}
