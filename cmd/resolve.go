package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:     "resolve <address>",
	Aliases: []string{"geocode"},
	Short:   "Resolve a street address to its BBL",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		borough, _ := cmd.Flags().GetString("borough")
		format, _ := cmd.Flags().GetString("format")
		address := strings.Join(args, " ")

		// Resolution needs no store.
		loc, ok, err := initResolver().Resolve(ctx, address, borough)
		if err != nil {
			return eris.Wrap(err, "resolve")
		}
		if !ok {
			return eris.Errorf("address not found: %s", address)
		}
		return writeDocument(cmd.OutOrStdout(), format, loc)
	},
}

func init() {
	resolveCmd.Flags().String("borough", "", "borough hint")
	resolveCmd.Flags().String("format", formatJSON, "output format (json|yaml)")
	rootCmd.AddCommand(resolveCmd)
}
