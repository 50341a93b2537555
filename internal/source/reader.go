package source

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fmillerrzero/odcv-app/internal/config"
	"github.com/fmillerrzero/odcv-app/internal/fetcher"
)

// FileReader reads datasets from the paths in config.DataConfig. Relative
// paths are resolved against Dir. Files may be CSV, XLSX, shapefile or ZIP.
type FileReader struct {
	cfg config.DataConfig
}

// NewFileReader creates a FileReader.
func NewFileReader(cfg config.DataConfig) *FileReader {
	return &FileReader{cfg: cfg}
}

// FileStatus reports whether one configured file is on disk.
type FileStatus struct {
	Kind   Kind   `json:"kind"`
	Label  string `json:"label,omitempty"`
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// Files lists every configured dataset file, parcel boroughs in code order.
func (r *FileReader) Files() []FileStatus {
	var out []FileStatus
	labels := make([]string, 0, len(r.cfg.ParcelFiles))
	for label := range r.cfg.ParcelFiles {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		out = append(out, r.status(KindParcel, strings.ToUpper(label), r.cfg.ParcelFiles[label]))
	}
	out = append(out,
		r.status(KindEnergy, "", r.cfg.EnergyFile),
		r.status(KindAudit, "", r.cfg.AuditFile),
		r.status(KindGrades, "", r.cfg.GradesFile),
	)
	return out
}

func (r *FileReader) status(kind Kind, label, path string) FileStatus {
	full := r.resolve(path)
	st := FileStatus{Kind: kind, Label: label, Path: full}
	if full != "" {
		if _, err := os.Stat(full); err == nil {
			st.Exists = true
		}
	}
	return st
}

func (r *FileReader) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.cfg.Dir, path)
}

// Read implements Reader. Missing parcel boroughs are skipped with a
// warning; the parcel source is missing only when no borough file exists.
func (r *FileReader) Read(ctx context.Context, kind Kind) ([]Part, error) {
	log := zap.L().With(zap.String("component", "source"), zap.String("kind", string(kind)))

	var parts []Part
	for _, f := range r.Files() {
		if f.Kind != kind {
			continue
		}
		if !f.Exists {
			log.Warn("dataset file not found", zap.String("path", f.Path))
			continue
		}
		t, err := fetcher.ReadTableFile(ctx, f.Path, r.cfg.TempDir)
		if err != nil {
			return nil, eris.Wrapf(err, "source: read %s", kind)
		}
		log.Info("read dataset file", zap.String("path", f.Path), zap.Int("rows", t.Len()))
		parts = append(parts, Part{Label: f.Label, Table: t})
	}

	if len(parts) == 0 {
		return nil, eris.Wrapf(ErrSourceMissing, "%s", kind)
	}
	return parts, nil
}
