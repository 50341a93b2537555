package fetcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// tableExts lists the extensions ReadTableFile understands, in the order
// a ZIP archive's members are preferred.
var tableExts = []string{".csv", ".xlsx", ".shp"}

// ReadTableFile reads a dataset file, choosing the parser by extension.
// A .zip is extracted under tempDir and its first readable member is used.
func ReadTableFile(ctx context.Context, path, tempDir string) (*Table, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "table: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		t, err := ReadCSV(ctx, f)
		if err != nil {
			return nil, eris.Wrapf(err, "table: read %s", path)
		}
		t.Path = path
		return t, nil
	case ".xlsx":
		return ReadXLSXTable(path, XLSXOptions{})
	case ".shp":
		return ReadShapefile(path)
	case ".zip":
		return readZIPTable(ctx, path, tempDir)
	default:
		return nil, eris.Errorf("table: unsupported file type %q", ext)
	}
}

func readZIPTable(ctx context.Context, path, tempDir string) (*Table, error) {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "table: create temp dir")
	}
	dest, err := os.MkdirTemp(tempDir, "odcv-zip-*")
	if err != nil {
		return nil, eris.Wrap(err, "table: create extract dir")
	}
	defer os.RemoveAll(dest) //nolint:errcheck

	member, err := ExtractTableMember(path, dest, tableExts)
	if errors.Is(err, ErrNoTableMember) {
		return nil, eris.Errorf("table: no csv, xlsx or shp member in %s", path)
	}
	if err != nil {
		return nil, err
	}

	t, err := ReadTableFile(ctx, member, tempDir)
	if err != nil {
		return nil, err
	}
	t.Path = path
	return t, nil
}
