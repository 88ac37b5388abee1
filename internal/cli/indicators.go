package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/colthorp/esios-cli-go/internal/core"
	"github.com/colthorp/esios-cli-go/internal/esios"
	"github.com/colthorp/esios-cli-go/internal/frame"
	"github.com/colthorp/esios-cli-go/internal/output"
)

func init() {
	rootCmd.AddCommand(newIndicatorGroup(
		"indicators",
		"Indicator operations (prices, demand, generation)",
		func(c *esios.Client) *esios.IndicatorManager { return c.Indicators },
		true,
	))
	rootCmd.AddCommand(newIndicatorGroup(
		"offer-indicators",
		"Offer indicator operations (market bids and offers)",
		func(c *esios.Client) *esios.IndicatorManager { return c.OfferIndicators },
		false,
	))
}

// newIndicatorGroup builds the command tree shared by the indicators
// and offer-indicators endpoints.
func newIndicatorGroup(name, short string, pick func(*esios.Client) *esios.IndicatorManager, withCompare bool) *cobra.Command {
	group := &cobra.Command{Use: name, Short: short}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the endpoint catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			items, err := pick(client).List(cmd.Context())
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			return output.WriteCatalog(cmd.OutOrStdout(), items, format)
		},
	}
	listCmd.Flags().StringP("format", "f", output.FormatTable, "Output format: table, csv, json")

	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the catalogue by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			items, err := pick(client).Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No indicators matching %q\n", args[0])
				return nil
			}
			format, _ := cmd.Flags().GetString("format")
			return output.WriteCatalog(cmd.OutOrStdout(), items, format)
		},
	}
	searchCmd.Flags().StringP("format", "f", output.FormatTable, "Output format: table, csv, json")

	metaCmd := &cobra.Command{
		Use:   "meta [id]",
		Short: "Show metadata for one indicator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid indicator id %q", args[0])
			}
			client, err := newClient()
			if err != nil {
				return err
			}
			h, err := pick(client).Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			if format == output.FormatJSON {
				return output.WriteJSON(cmd.OutOrStdout(), h.Indicator)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "ID:          %d\n", h.Indicator.ID)
			fmt.Fprintf(w, "Name:        %s\n", h.Indicator.Name)
			fmt.Fprintf(w, "Short name:  %s\n", h.Indicator.ShortName)
			if h.Indicator.StepType != "" {
				fmt.Fprintf(w, "Step type:   %s\n", h.Indicator.StepType)
			}
			if len(h.Indicator.Geos) > 0 {
				fmt.Fprintln(w, "Geos:")
				for _, g := range h.Indicator.Geos {
					fmt.Fprintf(w, "  %d\t%s\n", g.GeoID, g.GeoName)
				}
			}
			if h.Indicator.Description != "" {
				fmt.Fprintf(w, "\n%s\n", h.Indicator.Description)
			}
			return nil
		},
	}
	metaCmd.Flags().StringP("format", "f", output.FormatTable, "Output format: table, json")

	historyCmd := &cobra.Command{
		Use:   "history [id]",
		Short: "Fetch historical values for a date range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid indicator id %q", args[0])
			}
			start, end, err := parseRangeFlags(cmd)
			if err != nil {
				return err
			}
			client, err := newClient()
			if err != nil {
				return err
			}
			h, err := pick(client).Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			var opts esios.HistoricalOptions
			geoRefs, _ := cmd.Flags().GetStringSlice("geo")
			for _, ref := range geoRefs {
				gid, err := h.ResolveGeo(ref)
				if err != nil {
					return err
				}
				opts.GeoIDs = append(opts.GeoIDs, gid)
			}
			opts.TimeAgg, _ = cmd.Flags().GetString("time-agg")
			opts.GeoAgg, _ = cmd.Flags().GetString("geo-agg")
			opts.TimeTrunc, _ = cmd.Flags().GetString("time-trunc")

			f, err := h.Historical(cmd.Context(), start, end, opts)
			if err != nil {
				return err
			}
			return writeFrameOutput(cmd, f)
		},
	}
	addHistoryFlags(historyCmd)
	historyCmd.Flags().StringSlice("geo", nil, "Filter by geo id or name (repeatable)")
	historyCmd.Flags().String("time-agg", "", "Server-side time aggregation (bypasses cache)")
	historyCmd.Flags().String("geo-agg", "", "Server-side geo aggregation (bypasses cache)")
	historyCmd.Flags().String("time-trunc", "", "Server-side time truncation")

	group.AddCommand(listCmd, searchCmd, metaCmd, historyCmd)

	if withCompare {
		compareCmd := &cobra.Command{
			Use:   "compare [ids...]",
			Short: "Fetch several indicators into one table",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				ids := make([]int, 0, len(args))
				for _, a := range args {
					id, err := strconv.Atoi(a)
					if err != nil {
						return fmt.Errorf("invalid indicator id %q", a)
					}
					ids = append(ids, id)
				}
				start, end, err := parseRangeFlags(cmd)
				if err != nil {
					return err
				}
				client, err := newClient()
				if err != nil {
					return err
				}
				f, err := pick(client).Compare(cmd.Context(), ids, start, end, esios.HistoricalOptions{})
				if err != nil {
					return err
				}
				return writeFrameOutput(cmd, f)
			},
		}
		addHistoryFlags(compareCmd)
		group.AddCommand(compareCmd)
	}

	return group
}

func addHistoryFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("start", "s", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringP("end", "e", "", "End date (YYYY-MM-DD)")
	cmd.Flags().StringP("format", "f", output.FormatTable, "Output format: table, csv, json, coljson")
	cmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
}

// parseRangeFlags reads --start/--end, accepting plain dates or
// datetimes in the display timezone.
func parseRangeFlags(cmd *cobra.Command) (time.Time, time.Time, error) {
	loc := core.GetTZ(timezone)
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")
	start, err := core.ParseDateArg(startStr, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := core.ParseDateArg(endStr, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s is before start date %s", endStr, startStr)
	}
	return start, end, nil
}

// writeFrameOutput renders a frame to stdout or to --output.
func writeFrameOutput(cmd *cobra.Command, f *frame.Frame) error {
	format, _ := cmd.Flags().GetString("format")
	path, _ := cmd.Flags().GetString("output")

	var w io.Writer = cmd.OutOrStdout()
	if path != "" {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}
	if err := output.WriteFrame(w, f, format); err != nil {
		return err
	}
	if path != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Written to %s\n", path)
	}
	return nil
}
