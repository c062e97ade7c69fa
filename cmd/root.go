package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/basisfi/flashlend/config"
	"github.com/basisfi/flashlend/utils"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "flashlend",
	Short: "A single-asset flash-loan custodian",
	Long: `A single-asset flash-loan custodian: it holds reserves of one fungible
asset and lends any portion of them atomically, accepting each loan only
if principal plus fee is back in custody before the borrower callback
returns.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initRun)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (JSON or YAML)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func initRun() {
	_ = config.LoadEnv()
	utils.InitLogger(debug)
}
