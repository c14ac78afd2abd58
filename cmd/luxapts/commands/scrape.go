package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/digisapp/luxapts/internal/batch"
	"github.com/digisapp/luxapts/internal/logger"
	"github.com/digisapp/luxapts/internal/store"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape building websites for units, amenities and pricing",
	Long: `Run one scrape pass and exit. Without --building this runs a batch
over due buildings, selected by staleness; with --building it scrapes
that one building.

Examples:
  # Units for up to 20 due buildings in a city
  luxapts scrape --type units --city new-york --limit 20

  # Amenities and policies, re-scraping buildings already covered
  luxapts scrape --type amenities --city new-york --force

  # Everything for one building
  luxapts scrape --building 7e2c... --type full

  # Show which buildings are due without scraping
  luxapts scrape --type units --dry-run`,
	RunE: runScrapeCmd,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	flags := scrapeCmd.Flags()
	flags.String("database-url", "", "Postgres connection string")
	flags.StringP("city", "c", "", "limit to one city by slug")
	flags.String("building", "", "scrape a single building by id")
	flags.StringP("type", "t", "units", "scrape type: units, amenities, full (full needs --building)")
	flags.Int("limit", 20, "max buildings per batch")
	flags.Int("days-stale", 7, "rescrape buildings older than this many days")
	flags.Bool("force", false, "ignore staleness (scrape-disabled buildings are still skipped)")
	flags.Bool("dry-run", false, "print the buildings that would be scraped and exit")
	flags.Duration("delay", 0, "override the delay between buildings (default 3s units, 5s amenities)")
	flags.String("fetch-mode", "static", "fetch mode: static, dynamic, auto")
	flags.Duration("timeout", 0, "per-page fetch timeout (default 15s)")
	flags.String("max-content-size", "", "max HTML passed to the LLM (e.g. 200KB, default 100KB)")
}

func runScrapeCmd(cmd *cobra.Command, args []string) error {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	scrapeType, _ := cmd.Flags().GetString("type")
	buildingID, _ := cmd.Flags().GetString("building")
	switch scrapeType {
	case "units", "amenities":
	case "full":
		if buildingID == "" {
			return fmt.Errorf("type full requires --building")
		}
	default:
		return fmt.Errorf("invalid type %q (use units, amenities or full)", scrapeType)
	}

	dsn, _ := cmd.Flags().GetString("database-url")
	if dsn == "" {
		dsn = viper.GetString("database_url")
	}
	if dsn == "" {
		logError("database connection string required (--database-url or DATABASE_URL)")
		return fmt.Errorf("database connection string required")
	}
	st, err := store.Open(dsn, 5)
	if err != nil {
		logError("failed to connect to database: %v", err)
		return err
	}
	defer func() { _ = st.Close() }()

	citySlug, _ := cmd.Flags().GetString("city")
	limit, _ := cmd.Flags().GetInt("limit")
	daysStale, _ := cmd.Flags().GetInt("days-stale")
	force, _ := cmd.Flags().GetBool("force")

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		return printDueBuildings(ctx, st, citySlug, scrapeType, limit, daysStale, force)
	}

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
	var runnerOpts []batch.RunnerOption
	if delay, _ := cmd.Flags().GetDuration("delay"); delay > 0 {
		runnerOpts = append(runnerOpts, batch.WithDelay(delay))
	}
	runner := batch.NewRunner(st, sc, runnerOpts...)

	start := time.Now()
	var summary *batch.Summary
	if buildingID != "" {
		summary, err = runner.RunBuilding(ctx, buildingID, store.ScrapeType(scrapeType), force)
	} else {
		opts := batch.Options{CitySlug: citySlug, Limit: limit, DaysStale: daysStale, Force: force}
		if scrapeType == "units" {
			summary, err = runner.RunUnits(ctx, opts)
		} else {
			summary, err = runner.RunAmenities(ctx, opts)
		}
	}
	if err != nil {
		logError("scrape failed: %v", err)
		return err
	}

	logger.Info("scrape complete",
		"processed", summary.Processed,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"duration", time.Since(start).Round(time.Second))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func printDueBuildings(ctx context.Context, st store.Store, citySlug, scrapeType string, limit, daysStale int, force bool) error {
	opts := batch.SelectOptions{
		OnlyUnits:     scrapeType == "units",
		OnlyAmenities: scrapeType == "amenities",
		Limit:         limit,
		DaysStale:     daysStale,
		Force:         force,
	}
	if citySlug != "" {
		city, err := st.GetCityBySlug(ctx, citySlug)
		if err != nil {
			logError("unknown city %q", citySlug)
			return err
		}
		opts.CityID = city.ID
	}

	buildings, err := batch.GetBuildingsToScrape(ctx, st, opts)
	if err != nil {
		return err
	}
	if len(buildings) == 0 {
		fmt.Println("no buildings due")
		return nil
	}
	for _, b := range buildings {
		fmt.Printf("%s  %s  %s\n", b.ID, b.Name, b.WebsiteURL)
	}
	fmt.Printf("%d buildings due\n", len(buildings))
	return nil
}
