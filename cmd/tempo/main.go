// -----------------------------------------------------------------------
// tempo - administration CLI for the shared schedule store
// -----------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/tempo/internal/common"
	"github.com/ternarybob/tempo/internal/interfaces"
	"github.com/ternarybob/tempo/internal/storage/mongo"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
	showStats    = flag.Bool("stats", false, "Print schedule store document counts")
	clearLocks   = flag.Bool("clear-locks", false, "Remove every lock held by this instance id")
	clearAll     = flag.Bool("clear-all", false, "Remove all jobs, triggers, calendars and paused group markers")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	common.InstallCrashHandler("")
	defer common.RecoverWithCrashFile()

	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Tempo version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Startup sequence:
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Initialize logger
	// 3. Print banner
	// 4. Connect the store and run the requested command

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("tempo.toml"); err == nil {
			configFiles = append(configFiles, "tempo.toml")
		} else if _, err := os.Stat("deployments/local/tempo.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/tempo.toml")
		}
	}

	var err error
	config, err = common.LoadConfig(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Debug().
		Str("db_name", config.Store.DBName).
		Str("collection_prefix", config.Store.CollectionPrefix).
		Str("instance_id", config.Store.InstanceID).
		Str("log_level", config.Logging.Level).
		Msg("Resolved configuration")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := mongo.NewStore(ctx, logger, &config.Store, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize schedule store")
		os.Exit(1)
	}
	defer func() {
		if err := store.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("Store shutdown failed")
		}
	}()

	switch {
	case *clearAll:
		runClearAll(ctx, store)
	case *clearLocks:
		// NewStore already removed this instance's locks during startup.
		logger.Info().Str("instance_id", config.Store.InstanceID).Msg("Cleared locks held by this instance")
	case *showStats:
		runStats(ctx, store)
	default:
		runStats(ctx, store)
	}
}

func runStats(ctx context.Context, store interfaces.JobStore) {
	jobs, err := store.GetNumberOfJobs(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to count jobs")
		os.Exit(1)
	}
	triggerCount, err := store.GetNumberOfTriggers(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to count triggers")
		os.Exit(1)
	}
	calendars, err := store.GetNumberOfCalendars(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to count calendars")
		os.Exit(1)
	}
	locks, err := store.GetNumberOfLocks(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to count locks")
		os.Exit(1)
	}

	pausedTriggerGroups, err := store.GetPausedTriggerGroups(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to list paused trigger groups")
		os.Exit(1)
	}
	pausedJobGroups, err := store.GetPausedJobGroups(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to list paused job groups")
		os.Exit(1)
	}

	fmt.Printf("Jobs:       %d\n", jobs)
	fmt.Printf("Triggers:   %d\n", triggerCount)
	fmt.Printf("Calendars:  %d\n", calendars)
	fmt.Printf("Locks:      %d\n", locks)
	fmt.Printf("Paused trigger groups: %v\n", pausedTriggerGroups)
	fmt.Printf("Paused job groups:     %v\n", pausedJobGroups)
}

func runClearAll(ctx context.Context, store interfaces.JobStore) {
	if err := store.ClearAllSchedulingData(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to clear scheduling data")
		os.Exit(1)
	}
	logger.Info().Msg("Cleared all scheduling data")
}
