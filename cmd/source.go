package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/agentuity/go-common/env"
	"github.com/agentuity/go-common/logger"
	"github.com/agentuity/go-common/tui"
	"github.com/funcn-ai/funcn/internal/config"
	"github.com/funcn-ai/funcn/internal/registry"
	"github.com/funcn-ai/funcn/internal/util"
	"github.com/spf13/cobra"
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage registry sources",
	Long: `Manage the registry sources components are resolved from.

Sources are tried in ascending priority order (lower value first). All
enabled sources are consulted on every resolve so catalogs from multiple
registries are merged.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var sourceAddCmd = &cobra.Command{
	Use:   "add <alias> <url>",
	Short: "Add a registry source",
	Long: `Add a registry source to the project configuration.

The URL must use the http, https, or file scheme and should point at the
directory serving ` + config.IndexFilename + `. Adding a source rewrites
` + config.Filename + ` as plain JSON, so comments in it are not preserved.

Examples:
  funcn source add mycompany https://registry.mycompany.com/index.json
  funcn source add local file:///home/me/registry/index.json --priority 10
  funcn source add staging https://staging.example.com/index.json --skip-connectivity-check`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		logger := env.NewLogger(cmd)
		cfg := loadProjectConfig(logger)

		alias, rawURL := args[0], args[1]
		priority, _ := cmd.Flags().GetInt("priority")
		skipCheck, _ := cmd.Flags().GetBool("skip-connectivity-check")

		warning, err := config.ValidateSourceURL(rawURL)
		if err != nil {
			logger.Fatal("%s", err)
		}
		if warning != "" {
			tui.ShowWarning("%s", warning)
		}

		if !skipCheck {
			if err := probeSource(ctx, logger, alias, rawURL); err != nil {
				logger.Fatal("connectivity check failed: %s (use --skip-connectivity-check to add anyway)", err)
			}
		}

		if _, err := cfg.AddSource(alias, rawURL, priority); err != nil {
			logger.Fatal("%s", err)
		}
		printSuccess("Added source %s (%s) with priority %d", alias, rawURL, priority)
	},
}

// probeSource fetches and validates the source's index without touching the
// cache, so a bad registry never gets persisted as reachable.
func probeSource(ctx context.Context, log logger.Logger, alias, rawURL string) error {
	sources := config.NewSourceMap()
	sources.Set(alias, &config.SourceEntry{URL: rawURL, Priority: config.DefaultPriority, Enabled: true})
	fetcher := registry.NewFetcher(ctx, log, sources, nil)
	var err error
	tui.ShowSpinner("checking connectivity ...", func() {
		_, err = fetcher.FetchIndex(alias)
	})
	return err
}

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured registry sources",
	Run: func(cmd *cobra.Command, args []string) {
		logger := env.NewLogger(cmd)
		cfg := loadProjectConfig(logger)

		refresh, _ := cmd.Flags().GetBool("refresh")
		format, _ := cmd.Flags().GetString("format")

		var stats map[string]registry.CacheStat
		if cfg.CacheConfig.Enabled {
			store := registry.NewCacheStore(cacheDir(), cfg.CacheConfig.TTLSeconds)
			if refresh {
				if err := store.Invalidate(""); err != nil {
					logger.Fatal("%s", err)
				}
			}
			if all, err := store.Stats(); err == nil {
				stats = make(map[string]registry.CacheStat, len(all))
				for _, st := range all {
					stats[st.Alias] = st
				}
			}
		}

		sources := cfg.RegistrySources.Sorted()
		if format == "json" {
			out := make([]map[string]any, 0, len(sources))
			for _, source := range sources {
				out = append(out, map[string]any{
					"alias":    source.Alias,
					"url":      source.URL,
					"priority": source.Priority,
					"enabled":  source.Enabled,
					"default":  source.IsDefault(),
				})
			}
			json.NewEncoder(os.Stdout).Encode(out)
			return
		}

		headers := []string{tui.Title("Alias"), tui.Title("URL"), tui.Title("Priority"), tui.Title("Status"), tui.Title("Cached")}
		rows := [][]string{}
		for _, source := range sources {
			status := "enabled"
			if !source.Enabled {
				status = "disabled"
			}
			alias := tui.Bold(source.Alias)
			if source.IsDefault() {
				alias += " " + tui.Muted("(default)")
			}
			cached := tui.Muted("-")
			if st, ok := stats[source.Alias]; ok {
				cached = tui.Text(st.Age)
			}
			rows = append(rows, []string{
				alias,
				tui.Text(util.MaxString(source.URL, 50)),
				tui.Text(strconv.Itoa(source.Priority)),
				tui.Text(status),
				cached,
			})
		}
		tui.Table(headers, rows)
	},
}

var sourceRemoveCmd = &cobra.Command{
	Use:     "remove <alias>",
	Aliases: []string{"rm"},
	Short:   "Remove a registry source",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger := env.NewLogger(cmd)
		cfg := loadProjectConfig(logger)
		if err := cfg.RemoveSource(args[0]); err != nil {
			logger.Fatal("%s", err)
		}
		printSuccess("Removed source %s", args[0])
	},
}

var sourceCacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear the registry index cache",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var sourceCacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cached index payloads per source",
	Run: func(cmd *cobra.Command, args []string) {
		logger := env.NewLogger(cmd)
		cfg := loadProjectConfig(logger)
		if !cfg.CacheConfig.Enabled {
			fmt.Println(tui.Muted("cache disabled"))
			return
		}
		store := registry.NewCacheStore(cacheDir(), cfg.CacheConfig.TTLSeconds)
		stats, err := store.Stats()
		if err != nil {
			logger.Fatal("%s", err)
		}
		if len(stats) == 0 {
			fmt.Println(tui.Muted("no cached data"))
			return
		}
		headers := []string{tui.Title("Source"), tui.Title("Age"), tui.Title("Size"), tui.Title("Last Accessed"), tui.Title("Status")}
		rows := [][]string{}
		for _, st := range stats {
			status := "fresh"
			if st.Expired {
				status = "expired"
			}
			rows = append(rows, []string{
				tui.Bold(st.Alias),
				tui.Text(st.Age),
				tui.Text(st.Size),
				tui.Muted(st.LastAccessed.Format("2006-01-02 15:04:05")),
				tui.Text(status),
			})
		}
		tui.Table(headers, rows)
	},
}

var sourceCacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cached index payloads",
	Run: func(cmd *cobra.Command, args []string) {
		logger := env.NewLogger(cmd)
		cfg := loadProjectConfig(logger)
		if !cfg.CacheConfig.Enabled {
			fmt.Println(tui.Muted("cache disabled"))
			return
		}
		alias, _ := cmd.Flags().GetString("source")
		store := registry.NewCacheStore(cacheDir(), cfg.CacheConfig.TTLSeconds)
		if err := store.Invalidate(alias); err != nil {
			logger.Fatal("%s", err)
		}
		if alias != "" {
			printSuccess("Cleared cached data for %s", alias)
		} else {
			printSuccess("Cleared all cached data")
		}
	},
}

func init() {
	rootCmd.AddCommand(sourceCmd)
	sourceCmd.AddCommand(sourceAddCmd)
	sourceCmd.AddCommand(sourceListCmd)
	sourceCmd.AddCommand(sourceRemoveCmd)
	sourceCmd.AddCommand(sourceCacheCmd)
	sourceCacheCmd.AddCommand(sourceCacheStatsCmd)
	sourceCacheCmd.AddCommand(sourceCacheClearCmd)

	sourceAddCmd.Flags().Int("priority", config.DefaultPriority, "Source priority (lower values are tried first)")
	sourceAddCmd.Flags().Bool("skip-connectivity-check", false, "Skip validating that the URL serves a registry index")
	sourceListCmd.Flags().Bool("refresh", false, "Invalidate cached indexes before listing")
	sourceListCmd.Flags().String("format", "", "Output format (json)")
	sourceCacheClearCmd.Flags().String("source", "", "Clear only the named source")
}
