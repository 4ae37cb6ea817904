package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadflow/enrich-cli/internal/ledger"
)

var (
	creditsOrg    string
	creditsType   string
	creditsAmount int64
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Administer organization credit ledgers",
}

var creditsGrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Add credits to an organization",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("credits"); err != nil {
			return err
		}

		t := ledger.CreditType(creditsType)
		if !t.Valid() {
			return eris.Errorf("invalid credit type %q (want search or enrich)", creditsType)
		}
		if creditsAmount <= 0 {
			return eris.New("amount must be > 0")
		}

		lg, err := initLedger(ctx)
		if err != nil {
			return err
		}
		defer lg.Close()

		if err := lg.Grant(ctx, creditsOrg, t, creditsAmount); err != nil {
			return eris.Wrap(err, "grant credits")
		}

		zap.L().Info("credits granted",
			zap.String("org_id", creditsOrg),
			zap.String("type", creditsType),
			zap.Int64("amount", creditsAmount),
		)
		return nil
	},
}

var creditsBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show an organization's credit balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("credits"); err != nil {
			return err
		}

		lg, err := initLedger(ctx)
		if err != nil {
			return err
		}
		defer lg.Close()

		balance, err := lg.Balance(ctx, creditsOrg)
		if err != nil {
			return eris.Wrap(err, "balance lookup")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(balance)
	},
}

func init() {
	creditsGrantCmd.Flags().StringVar(&creditsOrg, "org", "", "organization ID (required)")
	creditsGrantCmd.Flags().StringVar(&creditsType, "type", "enrich", "credit type (search or enrich)")
	creditsGrantCmd.Flags().Int64Var(&creditsAmount, "amount", 0, "credits to add (required)")
	_ = creditsGrantCmd.MarkFlagRequired("org")
	_ = creditsGrantCmd.MarkFlagRequired("amount")

	creditsBalanceCmd.Flags().StringVar(&creditsOrg, "org", "", "organization ID (required)")
	_ = creditsBalanceCmd.MarkFlagRequired("org")

	creditsCmd.AddCommand(creditsGrantCmd)
	creditsCmd.AddCommand(creditsBalanceCmd)
	rootCmd.AddCommand(creditsCmd)
}
