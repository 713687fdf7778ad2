package cli

import (
	"github.com/spf13/cobra"
)

var exportTable string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a table to a spreadsheet under the export directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Export(cmd.Context(), exportTable)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportTable, "table", "", "Table to export (defaults to export.table)")
}
