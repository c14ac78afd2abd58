package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/digisapp/luxapts/internal/batch"
	"github.com/digisapp/luxapts/internal/logger"
	"github.com/digisapp/luxapts/internal/search"
	"github.com/digisapp/luxapts/internal/server"
	"github.com/digisapp/luxapts/internal/store"
	"github.com/digisapp/luxapts/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Serve the cron scrape triggers, the admin scrape dashboard and the
unit search endpoint.

The database connection string comes from --database-url, the
LUXAPTS_DATABASE_URL or DATABASE_URL environment variables, or the
config file. Cron endpoints are protected by the cron_secret bearer
token when one is configured.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("addr", ":8080", "listen address")
	flags.String("database-url", "", "Postgres connection string")
	flags.Int("db-max-conns", 10, "max open database connections")
	flags.String("synonyms", "", "YAML file with extra amenity synonyms")
	flags.String("fetch-mode", "static", "fetch mode: static, dynamic, auto")
	flags.Duration("timeout", 0, "per-page fetch timeout (default 15s)")
	flags.String("max-content-size", "", "max HTML passed to the LLM (e.g. 200KB, default 100KB)")

	_ = viper.BindPFlag("database_url", flags.Lookup("database-url"))
	_ = viper.BindPFlag("db_max_conns", flags.Lookup("db-max-conns"))
	_ = viper.BindPFlag("synonyms", flags.Lookup("synonyms"))
}

func runServe(cmd *cobra.Command, args []string) error {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dsn := viper.GetString("database_url")
	if dsn == "" {
		logError("database connection string required (--database-url or DATABASE_URL)")
		return errors.New("database connection string required")
	}
	st, err := store.Open(dsn, viper.GetInt("db_max_conns"))
	if err != nil {
		logError("failed to connect to database: %v", err)
		return err
	}
	defer func() { _ = st.Close() }()

	fetchMode, _ := cmd.Flags().GetString("fetch-mode")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	sizeStr, _ := cmd.Flags().GetString("max-content-size")
	maxContentSize, err := parseContentSize(sizeStr)
	if err != nil {
		logError("%v", err)
		return err
	}
	sc, err := buildScraper(fetchMode, timeout, maxContentSize)
	if err != nil {
		logError("failed to build scraper: %v", err)
		return err
	}

	synonyms := search.Synonyms(nil)
	if path := viper.GetString("synonyms"); path != "" {
		synonyms, err = search.LoadSynonyms(path)
		if err != nil {
			logError("failed to load synonyms: %v", err)
			return err
		}
	}

	srv := server.New(st, batch.NewRunner(st, sc), search.NewService(st, synonyms), viper.GetString("cron_secret"))

	addr, _ := cmd.Flags().GetString("addr")
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "version", version.String())
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logError("server failed: %v", err)
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logError("shutdown failed: %v", err)
			return err
		}
	}
	return nil
}
