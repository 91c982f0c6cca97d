package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shubhon9/api-sniffer/pkg/admin"
	"github.com/Shubhon9/api-sniffer/pkg/config"
	"github.com/Shubhon9/api-sniffer/pkg/logging"
	"github.com/Shubhon9/api-sniffer/pkg/masking"
	"github.com/Shubhon9/api-sniffer/pkg/middleware"
	"github.com/Shubhon9/api-sniffer/pkg/persist"
	"github.com/Shubhon9/api-sniffer/pkg/requestlog"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		listenAddr string
		targetURL  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a capturing proxy with the admin API",
		Long: `Starts an HTTP listener that forwards traffic to --target (or answers
with a small echo handler when no target is set), capturing every
request/response pair. The admin API serves the captured history.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			return runServe(cmd.Context(), cfg, listenAddr, targetURL)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	cmd.Flags().StringVarP(&listenAddr, "listen", "l", "127.0.0.1:8080", "capture listener address")
	cmd.Flags().StringVarP(&targetURL, "target", "t", "", "upstream URL to proxy to (echo handler when empty)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, listenAddr, targetURL string) error {
	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: logging.ParseFormat(cfg.Logging.Format),
	})

	policy := masking.NewPolicy(cfg.MaskFields...)
	mem := requestlog.NewMemoryStore(cfg.MaxLogs, policy)

	var (
		store    requestlog.SubscribableStore = mem
		recorder requestlog.Recorder          = mem
		reporter admin.SyncReporter
	)
	if cfg.Persist.Enabled {
		ps := persist.New(mem, persist.Config{
			Path:             cfg.Persist.Path,
			WriteInterval:    cfg.Persist.WriteInterval(),
			WriteDebounce:    cfg.Persist.WriteDebounce(),
			WriteBatchSize:   cfg.Persist.WriteBatchSize,
			RefreshOnStartup: cfg.Persist.Refresh(),
			Logger:           log,
		})
		ps.OnReload(func(n int) {
			log.Info("restored persisted capture log", "entries", n, "path", cfg.Persist.Path)
		})
		ps.Open()
		store = ps
		recorder = ps
		reporter = ps
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("failed to close capture store", "error", err)
		}
	}()

	upstream, err := buildUpstream(targetURL)
	if err != nil {
		return err
	}
	level := middleware.ParseLevel(cfg.CaptureLevel)
	captureHandler := middleware.New(upstream, recorder, level, log)

	captureSrv := &http.Server{
		Addr:              listenAddr,
		Handler:           captureHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	adminSrv := &http.Server{
		Addr:              cfg.Admin.Addr,
		Handler:           admin.New(store, reporter, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		log.Info("capture listener started", "addr", listenAddr, "target", targetURL, "level", string(level))
		errCh <- captureSrv.ListenAndServe()
	}()
	go func() {
		log.Info("admin API started", "addr", cfg.Admin.Addr)
		errCh <- adminSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = captureSrv.Shutdown(shutdownCtx)
	_ = adminSrv.Shutdown(shutdownCtx)
	return nil
}

// buildUpstream returns the handler traffic is forwarded to: a reverse
// proxy when a target is configured, an echo handler otherwise.
func buildUpstream(targetURL string) (http.Handler, error) {
	if targetURL == "" {
		return http.HandlerFunc(echoHandler), nil
	}
	target, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("invalid target URL %q: %w", targetURL, err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid target URL %q: scheme and host are required", targetURL)
	}
	return httputil.NewSingleHostReverseProxy(target), nil
}

// echoHandler answers with request details, useful for trying the
// sniffer without an upstream service.
func echoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"echo":true,"method":%q,"path":%q}`, r.Method, r.URL.Path)
}
