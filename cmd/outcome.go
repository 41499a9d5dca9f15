package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/teamwerk/akquise-pilot/internal/logger"
	"github.com/teamwerk/akquise-pilot/internal/opportunity"
)

var outcomeCmd = &cobra.Command{
	Use:   "outcome <source> <external-id> <won|lost|withdrawn>",
	Short: "Record the final outcome of a submitted application and free its slot",
	Args:  cobra.ExactArgs(3),
	Run: func(_ *cobra.Command, args []string) {
		recordOutcome(args[0], args[1], args[2])
	},
}

func init() {
	rootCmd.AddCommand(outcomeCmd)
}

func recordOutcome(source, externalID, outcome string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	st := openStore(ctx, config, logger)

	if err := st.RecordApplicationOutcome(ctx, source, externalID, opportunity.Status(outcome)); err != nil {
		logger.Fatal("recording outcome", zap.Error(err))
	}

	logger.Info("outcome recorded",
		zap.String("opportunity", source+"/"+externalID),
		zap.String("outcome", outcome),
	)
}
