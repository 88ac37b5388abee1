package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/colthorp/esios-cli-go/internal/core"
	"github.com/colthorp/esios-cli-go/internal/output"
)

func init() {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Cache management",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show cache path, file count, and total size",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newStore()
			if err != nil {
				return err
			}
			st := store.StoreStatus()
			format, _ := cmd.Flags().GetString("format")
			if format == output.FormatJSON {
				return output.WriteJSON(cmd.OutOrStdout(), st)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Path:   %s\n", st.Path)
			fmt.Fprintf(w, "Files:  %d\n", st.Files)
			fmt.Fprintf(w, "Size:   %.2f MB\n", st.SizeMB)
			if len(st.Endpoints) > 0 {
				fmt.Fprintln(w, "Breakdown:")
				names := make([]string, 0, len(st.Endpoints))
				for ep := range st.Endpoints {
					names = append(names, ep)
				}
				sort.Strings(names)
				for _, ep := range names {
					fmt.Fprintf(w, "  %s: %d file(s)\n", ep, st.Endpoints[ep])
				}
			}
			return nil
		},
	}
	statusCmd.Flags().StringP("format", "f", output.FormatTable, "Output format: table, json")

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newStore()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), store.Root())
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached files",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newStore()
			if err != nil {
				return err
			}
			all, _ := cmd.Flags().GetBool("all")
			endpoint, _ := cmd.Flags().GetString("endpoint")
			id, _ := cmd.Flags().GetInt("id")

			var count int
			switch {
			case all:
				count = store.Clear("", "")
			case id >= 0:
				count = store.Clear(endpoint, strconv.Itoa(id))
			default:
				count = store.Clear(endpoint, "")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached file(s).\n", count)
			return nil
		},
	}
	clearCmd.Flags().BoolP("all", "a", false, "Clear the entire cache")
	clearCmd.Flags().StringP("endpoint", "e", core.EndpointIndicators, "Endpoint: indicators, offer_indicators, archives")
	clearCmd.Flags().IntP("id", "i", -1, "Clear one indicator/archive id")

	geosCmd := &cobra.Command{
		Use:   "geos",
		Short: "Show the learned geo registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newStore()
			if err != nil {
				return err
			}
			geos := store.ReadGeos()
			format, _ := cmd.Flags().GetString("format")
			if format == output.FormatJSON {
				return output.WriteJSON(cmd.OutOrStdout(), geos)
			}
			ids := make([]string, 0, len(geos))
			for id := range geos {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool {
				a, _ := strconv.Atoi(ids[i])
				b, _ := strconv.Atoi(ids[j])
				return a < b
			})
			for _, id := range ids {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, geos[id])
			}
			return nil
		},
	}
	geosCmd.Flags().StringP("format", "f", output.FormatTable, "Output format: table, json")

	cacheCmd.AddCommand(statusCmd, pathCmd, clearCmd, geosCmd)
	rootCmd.AddCommand(cacheCmd)
}
