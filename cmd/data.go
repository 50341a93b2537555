package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/fmillerrzero/odcv-app/internal/fetcher"
	"github.com/fmillerrzero/odcv-app/internal/pipeline"
	"github.com/fmillerrzero/odcv-app/internal/source"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report which configured dataset files are present",
	RunE: func(cmd *cobra.Command, _ []string) error {
		files := source.NewFileReader(cfg.Data).Files()

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "DATASET\tPATH\tSTATUS")
		for _, f := range files {
			status := "ok"
			if !f.Exists {
				status = "MISSING"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", pipeline.DatasetName(f), f.Path, status)
		}
		if err := tw.Flush(); err != nil {
			return eris.Wrap(err, "flush table")
		}

		missing := pipeline.MissingFiles(files)
		if len(missing) == 0 {
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "\nDownload the missing datasets from:")
		seen := map[source.Kind]bool{}
		for _, f := range missing {
			if seen[f.Kind] {
				continue
			}
			seen[f.Kind] = true
			fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", f.Kind, pipeline.DatasetPages[f.Kind])
		}

		missingParcels := 0
		for _, f := range missing {
			if f.Kind == source.KindParcel {
				missingParcels++
			}
		}
		if missingParcels == len(cfg.Data.ParcelFiles) {
			return eris.New("check: no PLUTO files found; load will fail")
		}
		return nil
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download datasets that have a configured URL",
	Long: "Downloads every dataset listed under data.download_urls into its configured path. " +
		"Files whose server reports them unchanged since the last fetch are left alone.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		dl := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{})
		results, err := pipeline.Fetch(ctx, source.NewFileReader(cfg.Data).Files(), cfg.Data.DownloadURLs, dl)
		if err != nil {
			return eris.Wrap(err, "fetch")
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "DATASET\tRESULT\tBYTES")
		failed := 0
		for _, r := range results {
			switch {
			case r.Error != "":
				failed++
				fmt.Fprintf(tw, "%s\tfailed: %s\t\n", r.Name, r.Error)
			case r.Skipped != "":
				fmt.Fprintf(tw, "%s\tskipped: %s\t\n", r.Name, r.Skipped)
			case r.Changed:
				fmt.Fprintf(tw, "%s\tdownloaded\t%d\n", r.Name, r.Bytes)
			default:
				fmt.Fprintf(tw, "%s\tunchanged\t\n", r.Name)
			}
		}
		if err := tw.Flush(); err != nil {
			return eris.Wrap(err, "flush table")
		}
		if failed > 0 {
			return eris.Errorf("fetch: %d downloads failed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd, fetchCmd)
}
