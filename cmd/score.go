package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/fmillerrzero/odcv-app/internal/model"
	"github.com/fmillerrzero/odcv-app/internal/store"
)

var scoreCmd = &cobra.Command{
	Use:   "score [bbl-or-address...]",
	Short: "Score one or more buildings by BBL or street address",
	Long: "With a single --bbl or --address, prints the full score. With positional arguments, " +
		"scores each as a BBL or address (skipping ones that cannot be found) and prints them ranked.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		key, _ := cmd.Flags().GetString("bbl")
		address, _ := cmd.Flags().GetString("address")
		borough, _ := cmd.Flags().GetString("borough")
		format, _ := cmd.Flags().GetString("format")

		if key == "" && address == "" && len(args) == 0 {
			return eris.New("score: pass --bbl, --address or one or more arguments")
		}

		env, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		if len(args) > 0 {
			scores, err := env.Pipeline.ScoreMany(ctx, args)
			if err != nil {
				return err
			}
			return writeScores(cmd.OutOrStdout(), format, scores)
		}

		var sc *model.OpportunityScore
		if key != "" {
			sc, err = env.Pipeline.ScoreKey(ctx, key)
		} else {
			sc, err = env.Pipeline.ScoreAddress(ctx, address, borough)
		}
		if err != nil {
			return err
		}
		if format == formatTable || format == formatCSV {
			return writeScores(cmd.OutOrStdout(), format, []model.OpportunityScore{*sc})
		}
		return writeDocument(cmd.OutOrStdout(), format, sc)
	},
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank every stored building by opportunity score",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("format")
		vavOnly, _ := cmd.Flags().GetBool("vav-only")

		env, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		scores, err := env.Pipeline.SearchRanked(ctx, store.Filter{RequireVAV: vavOnly, Limit: store.NoLimit}, limit)
		if err != nil {
			return err
		}
		return writeScores(cmd.OutOrStdout(), format, scores)
	},
}

func init() {
	scoreCmd.Flags().String("bbl", "", "10-digit borough/block/lot key")
	scoreCmd.Flags().String("address", "", "street address")
	scoreCmd.Flags().String("borough", "", "borough hint for --address")
	scoreCmd.Flags().String("format", formatJSON, "output format (table|csv|yaml|json)")

	rankCmd.Flags().Int("limit", 25, "number of buildings to print (0 for all)")
	rankCmd.Flags().Bool("vav-only", false, "rank only buildings with VAV distribution")
	rankCmd.Flags().String("format", formatTable, "output format (table|csv|yaml|json)")

	rootCmd.AddCommand(scoreCmd, rankCmd)
}
