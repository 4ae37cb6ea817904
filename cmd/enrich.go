package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadflow/enrich-cli/internal/model"
)

var (
	enrichOrg      string
	enrichName     string
	enrichLocation string
	enrichWebsite  string
	enrichPolicy   string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run the enrichment cascade for a single business",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("enrich"); err != nil {
			return err
		}

		lg, err := initLedger(ctx)
		if err != nil {
			return err
		}
		defer lg.Close()

		o, err := buildOrchestrator(lg, enrichPolicy)
		if err != nil {
			return err
		}

		outcome, err := o.Enrich(ctx, enrichOrg, model.EnrichmentRequest{
			EntityName: enrichName,
			Location:   enrichLocation,
			WebsiteURL: enrichWebsite,
		})
		if err != nil {
			return eris.Wrap(err, "enrich")
		}

		zap.L().Info("enrichment complete",
			zap.String("request_id", outcome.RequestID),
			zap.Bool("settled", outcome.Settled),
			zap.Int64("credits_remaining", outcome.Remaining),
			zap.Strings("degraded", outcome.Degraded),
		)

		// Print outcome JSON to stdout
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichOrg, "org", "", "organization ID (required)")
	enrichCmd.Flags().StringVar(&enrichName, "name", "", "business name (required)")
	enrichCmd.Flags().StringVar(&enrichLocation, "location", "", "city/state hint")
	enrichCmd.Flags().StringVar(&enrichWebsite, "website", "", "business website URL")
	enrichCmd.Flags().StringVar(&enrichPolicy, "policy", "", "enrichment policy YAML (default from config)")
	_ = enrichCmd.MarkFlagRequired("org")
	_ = enrichCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(enrichCmd)
}
