package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/teamwerk/akquise-pilot/internal/logger"
	"github.com/teamwerk/akquise-pilot/internal/profile"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage candidate profiles",
}

var profilesSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the team file into the store, re-embedding changed profiles",
	Run: func(_ *cobra.Command, _ []string) {
		syncProfiles()
	},
}

func init() {
	profilesCmd.AddCommand(profilesSyncCmd)
	rootCmd.AddCommand(profilesCmd)

	profilesSyncCmd.Flags().StringP("team-file", "t", "", "team YAML file (overrides profiles-file from the config)")
	viper.BindPFlag("profiles-file", profilesSyncCmd.Flags().Lookup("team-file"))
}

func syncProfiles() {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config.ProfilesFile == "" {
		logger.Fatal("team file is not configured",
			zap.String("hint", "set profiles-file in the configuration file or pass --team-file"),
		)
	}

	candidates, err := profile.LoadTeamFile(config.ProfilesFile)
	if err != nil {
		logger.Fatal("loading team file", zap.Error(err))
	}

	st := openStore(ctx, config, logger)

	hashes, err := st.ProfileHashes(ctx)
	if err != nil {
		logger.Fatal("loading stored profile hashes", zap.Error(err))
	}

	stored, err := st.LoadPool(ctx)
	if err != nil {
		logger.Fatal("loading stored profiles", zap.Error(err))
	}

	client := newGeminiClient(ctx, config.AI, logger)

	embedded, unchanged := 0, 0
	for _, candidate := range candidates {
		if hashes[candidate.ID] == candidate.TextHash && candidate.TextHash != "" {
			// Text unchanged; keep the stored embedding.
			if prev := stored.ByID(candidate.ID); prev != nil {
				candidate.Embedding = prev.Embedding
			}
			unchanged++
		} else {
			vector, err := client.Embed(ctx, candidate.ProfileText)
			if err != nil {
				logger.Fatal("embedding profile",
					zap.Int("candidate_id", candidate.ID),
					zap.String("candidate", candidate.Name),
					zap.Error(err),
				)
			}
			candidate.Embedding = vector
			embedded++
		}

		if err := st.SaveProfile(ctx, candidate); err != nil {
			logger.Fatal("saving profile", zap.Error(err))
		}
	}

	logger.Info("profiles synced",
		zap.Int("total", len(candidates)),
		zap.Int("embedded", embedded),
		zap.Int("unchanged", unchanged),
	)
}
