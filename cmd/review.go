package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/teamwerk/akquise-pilot/internal/logger"
	"github.com/teamwerk/akquise-pilot/internal/opportunity"
	"github.com/teamwerk/akquise-pilot/internal/store"
)

const (
	PromptApprove = "Approve and apply"
	PromptReject  = "Reject"
	PromptSkip    = "Skip for now"
	PromptBack    = "back"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Walk through the review queue and resolve parked opportunities",
	Run: func(_ *cobra.Command, _ []string) {
		review()
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func review() {
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

	caps := map[string]int{
		string(opportunity.PipelineFreelance): config.Admission.Freelance,
		string(opportunity.PipelineTender):    config.Admission.Tender,
	}

	for {
		entries, err := st.OpenReviews(ctx)
		if err != nil {
			logger.Fatal("loading review queue", zap.Error(err))
		}

		if len(entries) == 0 {
			logger.Info("exiting", zap.String("reason", "review queue is empty"))
			return
		}

		items := make([]string, 0, len(entries)+1)
		for _, entry := range entries {
			opp := entry.Opportunity
			items = append(items, fmt.Sprintf("%s/%s %s / %s / %s",
				opp.Source, opp.ExternalID, opp.Title, opp.ClientName, opp.Pipeline,
			))
		}

		queuePrompt := promptui.Select{
			Label: "Choose an opportunity and press ENTER",
			Items: append(items, PromptBack),
		}

		selected, label, err := queuePrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if label == PromptBack {
			return
		}

		entry := entries[selected]
		logger.Info("reviewing opportunity",
			zap.String("opportunity", entry.Opportunity.Source+"/"+entry.Opportunity.ExternalID),
			zap.String("title", entry.Opportunity.Title),
			zap.String("reason", entry.Reason),
		)

		verdictPrompt := promptui.Select{
			Label: "Verdict?",
			Items: []string{PromptApprove, PromptReject, PromptSkip},
		}

		_, verdict, err := verdictPrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		switch verdict {
		case PromptSkip:
			continue
		case PromptApprove, PromptReject:
			err := st.ResolveReview(ctx, entry.ID, verdict == PromptApprove, caps)
			if err != nil {
				if errors.Is(err, store.ErrPipelineFull) {
					logger.Warn("cannot approve", zap.Error(err))
					continue
				}
				logger.Fatal("resolving review entry", zap.Error(err))
			}
			logger.Info("review resolved",
				zap.String("opportunity", entry.Opportunity.Source+"/"+entry.Opportunity.ExternalID),
				zap.String("verdict", verdict),
			)
		}
	}
}
