package cli

import (
	"github.com/spf13/cobra"
)

var ratesPNGPath string

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Print the current NBP mid rate of every configured currency",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Rates(cmd.Context(), cmd.OutOrStdout(), ratesPNGPath)
	},
}

func init() {
	ratesCmd.Flags().StringVar(&ratesPNGPath, "png", "", "Path to write a bar chart of the rates")
}
