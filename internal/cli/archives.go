package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/colthorp/esios-cli-go/internal/esios"
	"github.com/colthorp/esios-cli-go/internal/output"
)

func init() {
	archivesCmd := &cobra.Command{
		Use:   "archives",
		Short: "Archive operations (downloadable file bundles)",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the archive catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			items, err := client.Archives.List(cmd.Context())
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			return output.WriteCatalog(cmd.OutOrStdout(), items, format)
		},
	}
	listCmd.Flags().StringP("format", "f", output.FormatTable, "Output format: table, csv, json")

	downloadCmd := &cobra.Command{
		Use:   "download [id]",
		Short: "Download an archive for a date or date range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid archive id %q", args[0])
			}
			date, _ := cmd.Flags().GetString("date")
			start, _ := cmd.Flags().GetString("start")
			end, _ := cmd.Flags().GetString("end")
			outputDir, _ := cmd.Flags().GetString("output")
			if date == "" && (start == "" || end == "") {
				return fmt.Errorf("provide --date or both --start and --end")
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			files, err := client.Archives.Download(cmd.Context(), id, esios.DownloadOptions{
				Date:      date,
				Start:     start,
				End:       end,
				OutputDir: outputDir,
			})
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d file(s)\n", len(files))
			return nil
		},
	}
	downloadCmd.Flags().StringP("date", "d", "", "Single date (YYYY-MM-DD)")
	downloadCmd.Flags().StringP("start", "s", "", "Start date (YYYY-MM-DD)")
	downloadCmd.Flags().StringP("end", "e", "", "End date (YYYY-MM-DD)")
	downloadCmd.Flags().StringP("output", "o", "", "Copy files to this directory")

	archivesCmd.AddCommand(listCmd, downloadCmd)
	rootCmd.AddCommand(archivesCmd)
}
