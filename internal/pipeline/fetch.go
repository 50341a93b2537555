package pipeline

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fmillerrzero/odcv-app/internal/fetcher"
	"github.com/fmillerrzero/odcv-app/internal/source"
)

// DatasetPages are the public pages each dataset is published on.
var DatasetPages = map[source.Kind]string{
	source.KindParcel: "https://www.nyc.gov/site/planning/data-maps/open-data/dwn-pluto-mappluto.page",
	source.KindEnergy: "https://www.nyc.gov/site/buildings/codes/benchmarking.page",
	source.KindAudit:  "https://data.cityofnewyork.us/Environment/LL87-Energy-Audit-Data/au6c-jqvf",
	source.KindGrades: "https://www.nyc.gov/site/buildings/codes/energy-grades.page",
}

// Downloader fetches a URL into a file unless the server reports it unchanged.
type Downloader interface {
	DownloadIfChanged(ctx context.Context, rawURL, path, etag string) (*fetcher.DownloadResult, error)
}

// FetchResult is the outcome for one dataset file.
type FetchResult struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	Path    string `json:"path"`
	Changed bool   `json:"changed"`
	Bytes   int64  `json:"bytes,omitempty"`
	Skipped string `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

const fetchConcurrency = 3

// DatasetName is the key a file is configured under in data.download_urls:
// the lower-case borough code for parcel files, the kind otherwise.
func DatasetName(f source.FileStatus) string {
	if f.Kind == source.KindParcel && f.Label != "" {
		return strings.ToLower(f.Label)
	}
	return string(f.Kind)
}

// Fetch refreshes every file that has a download URL. Files without one are
// reported as skipped. A failed download is recorded in its result and does
// not stop the others. The previous ETag of each file is kept next to it in
// a ".etag" file.
func Fetch(ctx context.Context, files []source.FileStatus, urls map[string]string, dl Downloader) ([]FetchResult, error) {
	log := zap.L().With(zap.String("component", "fetch"))

	lookup := make(map[string]string, len(urls))
	for k, v := range urls {
		lookup[strings.ToLower(k)] = v
	}

	results := make([]FetchResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)

	for i, f := range files {
		name := DatasetName(f)
		results[i] = FetchResult{Name: name, Path: f.Path, URL: lookup[name]}
		if results[i].URL == "" {
			results[i].Skipped = "no download url configured; see " + DatasetPages[f.Kind]
			continue
		}
		if f.Path == "" {
			results[i].Skipped = "no file path configured"
			continue
		}

		g.Go(func() error {
			r := &results[i]
			etagPath := r.Path + ".etag"
			prev := ""
			if b, err := os.ReadFile(etagPath); err == nil && fileExists(r.Path) {
				prev = strings.TrimSpace(string(b))
			}

			res, err := dl.DownloadIfChanged(gctx, r.URL, r.Path, prev)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn("fetch: download failed", zap.String("name", r.Name), zap.Error(err))
				r.Error = err.Error()
				return nil
			}

			r.Changed = res.Changed
			r.Bytes = res.Bytes
			if res.ETag != "" && res.ETag != prev {
				if err := os.WriteFile(etagPath, []byte(res.ETag), 0o644); err != nil {
					log.Warn("fetch: write etag", zap.String("path", etagPath), zap.Error(err))
				}
			}
			log.Info("fetch: dataset", zap.String("name", r.Name), zap.Bool("changed", r.Changed), zap.Int64("bytes", r.Bytes))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// MissingFiles returns the configured dataset files that are not on disk.
func MissingFiles(files []source.FileStatus) []source.FileStatus {
	var out []source.FileStatus
	for _, f := range files {
		if !f.Exists {
			out = append(out, f)
		}
	}
	return out
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
