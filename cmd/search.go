package main

import (
	"github.com/spf13/cobra"

	"github.com/fmillerrzero/odcv-app/internal/store"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search stored buildings and print them ranked",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()

		var f store.Filter
		if flags.Changed("min-size") {
			v, _ := flags.GetFloat64("min-size")
			f.MinArea = &v
		}
		if flags.Changed("max-occupancy") {
			v, _ := flags.GetFloat64("max-occupancy")
			f.MaxOccupancy = &v
		}
		f.RequireVAV, _ = flags.GetBool("has-vav")
		f.Grade, _ = flags.GetString("grade")
		f.Limit, _ = flags.GetInt("limit")
		top, _ := flags.GetInt("top")
		format, _ := flags.GetString("format")

		env, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		scores, err := env.Pipeline.SearchRanked(ctx, f, top)
		if err != nil {
			return err
		}
		return writeScores(cmd.OutOrStdout(), format, scores)
	},
}

var opportunitiesCmd = &cobra.Command{
	Use:   "opportunities",
	Short: "Print the top VAV buildings at or below 80% occupancy",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("format")

		env, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		scores, err := env.Pipeline.TopOpportunities(ctx, limit)
		if err != nil {
			return err
		}
		return writeScores(cmd.OutOrStdout(), format, scores)
	},
}

func init() {
	searchCmd.Flags().Float64("min-size", 0, "minimum gross floor area (sq ft)")
	searchCmd.Flags().Float64("max-occupancy", 0, "maximum occupancy percent")
	searchCmd.Flags().Bool("has-vav", false, "require VAV distribution")
	searchCmd.Flags().String("grade", "", "energy grade letter")
	searchCmd.Flags().Int("limit", 0, "maximum matches to score in key order (default all)")
	searchCmd.Flags().Int("top", 50, "number of ranked results to print (0 for all)")
	searchCmd.Flags().String("format", formatTable, "output format (table|csv|yaml|json)")

	opportunitiesCmd.Flags().Int("limit", 10, "number of buildings (max 100)")
	opportunitiesCmd.Flags().String("format", formatTable, "output format (table|csv|yaml|json)")

	rootCmd.AddCommand(searchCmd, opportunitiesCmd)
}
