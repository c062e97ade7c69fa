package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/basisfi/flashlend/config"
	"github.com/basisfi/flashlend/lender"
	"github.com/basisfi/flashlend/utils"
	"github.com/basisfi/flashlend/utils/math"
)

var quoteCmd = &cobra.Command{
	Use:   "quote [amount]",
	Short: "Quote the fee and loan ceiling for the configured custodian",
	Long: `Builds the custodian offline with the configured initial funding and
prints the fee and maximum loan it would quote. Amount is decimal wei;
it defaults to the full loan ceiling.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := utils.GetLogger()

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		svc, err := buildService(cfg, log)
		if err != nil {
			return err
		}
		if err := svc.seed(); err != nil {
			return err
		}

		asset := cfg.AssetAddress()
		max, err := svc.lender.MaxFlashLoan(asset)
		if err != nil {
			return err
		}
		fmt.Printf("reserves:     %s wei\n", svc.lender.Reserves())
		fmt.Printf("maxFlashLoan: %s wei\n", max)

		amount := max
		if len(args) == 1 {
			amount, err = math.ParseAmount(args[0])
			if err != nil {
				return fmt.Errorf("bad amount %q: %w", args[0], err)
			}
		}
		fee, err := svc.lender.FlashFee(asset, amount)
		if err != nil {
			return err
		}
		if fee.Cmp(lender.Unavailable) == 0 {
			fmt.Printf("flashFee(%s): unavailable, exceeds reserves\n", amount)
			return nil
		}
		fmt.Printf("flashFee(%s): %s wei at %d bps\n", amount, fee, cfg.FeeBps)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(quoteCmd)
}
