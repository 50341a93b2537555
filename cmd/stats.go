package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the stored profiles and the last load",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("format")

		env, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		st, err := env.Pipeline.Stats(ctx)
		if err != nil {
			return err
		}
		last, err := env.Pipeline.LastLoad(ctx)
		if err != nil {
			return err
		}

		if format != formatTable {
			return writeDocument(cmd.OutOrStdout(), format, map[string]any{
				"stats":     st,
				"last_load": last,
			})
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Total buildings:\t%d\n", st.TotalBuildings)
		fmt.Fprintf(tw, "VAV buildings:\t%d\n", st.VAVBuildings)
		fmt.Fprintf(tw, "Occupancy below 70%%:\t%d\n", st.LowOccupancyBuildings)
		fmt.Fprintf(tw, "Grade D or F:\t%d\n", st.PoorGradeBuildings)
		fmt.Fprintf(tw, "Average site EUI:\t%.1f\n", st.AverageEUI)
		fmt.Fprintf(tw, "Average occupancy:\t%.1f\n", st.AverageOccupancy)
		if last != nil {
			fmt.Fprintf(tw, "Last load:\t%s (%s)\n", last.LoadedAt.Format("2006-01-02 15:04:05"), last.ID)
			if len(last.MissingSources) > 0 {
				fmt.Fprintf(tw, "Missing sources:\t%v\n", last.MissingSources)
			}
		} else {
			fmt.Fprintln(tw, "Last load:\tnever")
		}
		return eris.Wrap(tw.Flush(), "flush table")
	},
}

var showCmd = &cobra.Command{
	Use:   "show <bbl>",
	Short: "Print the stored profile for a building",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("format")

		env, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		prof, err := env.Pipeline.Lookup(ctx, args[0])
		if err != nil {
			return err
		}
		if prof == nil {
			return eris.Errorf("no profile for bbl %s", args[0])
		}
		return writeDocument(cmd.OutOrStdout(), format, prof)
	},
}

func init() {
	statsCmd.Flags().String("format", formatTable, "output format (table|json|yaml)")
	showCmd.Flags().String("format", formatJSON, "output format (json|yaml)")
	rootCmd.AddCommand(statsCmd, showCmd)
}
