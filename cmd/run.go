package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/teamwerk/akquise-pilot/internal/admission"
	"github.com/teamwerk/akquise-pilot/internal/ai"
	"github.com/teamwerk/akquise-pilot/internal/ai/gemini"
	"github.com/teamwerk/akquise-pilot/internal/index"
	"github.com/teamwerk/akquise-pilot/internal/logger"
	"github.com/teamwerk/akquise-pilot/internal/match"
	"github.com/teamwerk/akquise-pilot/internal/opportunity"
	"github.com/teamwerk/akquise-pilot/internal/policy"
	"github.com/teamwerk/akquise-pilot/internal/scoring"
	"github.com/teamwerk/akquise-pilot/internal/secrets"
	"github.com/teamwerk/akquise-pilot/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate pending opportunities and decide apply, review or reject",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("import", "i", "", "YAML file with sourced opportunities to ingest before the run")
	runCmd.Flags().Bool("public-sector-review", false, "park public-sector opportunities for review instead of rejecting when the pipeline is full")
	runCmd.Flags().Int("limit", 0, "maximum number of pending opportunities to evaluate (0 = all)")
}

// run is the daily batch entrypoint.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting akquise-pilot", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	st := openStore(ctx, config, logger)

	if file := cmd.Flag("import").Value.String(); file != "" {
		imported, err := opportunity.LoadFile(file)
		if err != nil {
			logger.Fatal("loading import file", zap.Error(err))
		}
		inserted, err := st.SaveOpportunities(ctx, imported)
		if err != nil {
			logger.Fatal("ingesting opportunities", zap.Error(err))
		}
		logger.Info("ingested opportunities",
			zap.String("file", file),
			zap.Int("total", len(imported)),
			zap.Int("new", inserted),
			zap.Int("duplicates", len(imported)-inserted),
		)
	}

	pool, err := st.LoadPool(ctx)
	if err != nil {
		logger.Fatal("loading candidate pool", zap.Error(err))
	}
	if len(pool.Active()) == 0 {
		logger.Warn("candidate pool is empty",
			zap.String("hint", "run 'akquise-pilot profiles sync' to load the team file"),
		)
	}

	client := newGeminiClient(ctx, config.AI, logger)

	engine, err := scoring.NewEngine(*config.Scoring)
	if err != nil {
		logger.Fatal("building scoring engine", zap.Error(err))
	}

	pol, err := policy.New(*config.Thresholds)
	if err != nil {
		logger.Fatal("building decision policy", zap.Error(err))
	}

	slots, err := st.Slots(*config.Admission)
	if err != nil {
		logger.Fatal("building admission controller", zap.Error(err))
	}

	history, err := st.ClientWinRates(ctx)
	if err != nil {
		logger.Fatal("loading client history", zap.Error(err))
	}
	priors := &scoring.Priors{
		ClientHistory: history,
		PoolSize:      len(pool.Active()),
	}

	var bump admission.BumpPolicy
	if cmd.Flag("public-sector-review").Value.String() == "true" {
		bump = admission.PublicSectorBump{}
	}

	var rates ai.RateSuggester
	if config.AI.Gemini.SuggestRates {
		rates = gemini.NewRateSuggester(client, logger, config.AI.Gemini.MaxLogLength)
	}

	orchestrator, err := match.New(match.Deps{
		Embedder:  client,
		Querier:   index.New(pool),
		Pool:      pool,
		Engine:    engine,
		Policy:    pol,
		Admission: slots,
		Bump:      bump,
		Rates:     rates,
		Priors:    priors,
		TopK:      config.Run.TopK,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("building orchestrator", zap.Error(err))
	}

	limit := config.Run.Limit
	if flagLimit, err := cmd.Flags().GetInt("limit"); err == nil && flagLimit > 0 {
		limit = flagLimit
	}

	pending, err := st.PendingOpportunities(ctx, limit)
	if err != nil {
		logger.Fatal("loading pending opportunities", zap.Error(err))
	}

	if len(pending) == 0 {
		logger.Info("exiting", zap.String("reason", "no pending opportunities"))
		return
	}

	logger.Info("evaluating opportunities",
		zap.Int("count", len(pending)),
		zap.Int("pool_size", len(pool.Active())),
	)

	batch := match.NewBatch(orchestrator, st, st, config.Run.MaxParallel, logger)
	if _, err := batch.Run(ctx, pending); err != nil {
		logger.Fatal("batch aborted", zap.Error(err))
	}
}

func openStore(_ context.Context, config *Config, logger *zap.Logger) *store.Store {
	dsn, err := secrets.Load(secrets.Source{
		Name:  "database dsn",
		File:  config.Database.DSNFile,
		Env:   "DATABASE_URL",
		Value: config.Database.DSN,
	})
	if err != nil {
		logger.Fatal("loading database dsn",
			zap.Error(err),
			zap.String("hint", "set DATABASE_URL or the database section in the configuration file"),
		)
	}

	st, err := store.Open(dsn, logger)
	if err != nil {
		logger.Fatal("opening store", zap.Error(err))
	}

	return st
}

func newGeminiClient(ctx context.Context, cfg *AIConfig, logger *zap.Logger) *gemini.Client {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		logger.Fatal("unsupported ai provider", zap.String("provider", cfg.Provider))
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		logger.Fatal("loading gemini api key",
			zap.Error(err),
			zap.String("hint", "set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY"),
		)
	}

	client, err := gemini.NewClient(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.EmbeddingModel)
	if err != nil {
		logger.Fatal("building gemini client", zap.Error(err))
	}

	return client
}
