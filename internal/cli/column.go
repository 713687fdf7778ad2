package cli

import (
	"github.com/spf13/cobra"
)

var (
	columnName  string
	columnTable string
)

var columnCmd = &cobra.Command{
	Use:   "column",
	Short: "Add or drop derived price columns",
}

var columnAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a numeric price column next to the reference price",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().AddColumn(cmd.Context(), columnTable, columnName)
	},
}

var columnDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop a derived price column",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().DropColumn(cmd.Context(), columnTable, columnName)
	},
}

func init() {
	columnCmd.PersistentFlags().StringVar(&columnName, "column", "", "Column name")
	columnCmd.PersistentFlags().StringVar(&columnTable, "table", "", "Table name (defaults to sync.table)")
	_ = columnCmd.MarkPersistentFlagRequired("column")

	columnCmd.AddCommand(columnAddCmd)
	columnCmd.AddCommand(columnDropCmd)
}
