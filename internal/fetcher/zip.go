package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrNoTableMember is returned when an archive holds no member with a
// wanted extension.
var ErrNoTableMember = eris.New("zip: no table member")

// shapefileSidecars are extracted next to a chosen .shp member; go-shp
// reads attributes from the .dbf and offsets from the .shx.
var shapefileSidecars = []string{".dbf", ".shx", ".prj", ".cpg"}

// ExtractTableMember extracts the first archive member whose extension
// matches exts, trying the extensions in order. A .shp member brings its
// sidecar files along. Returns the extracted member's path.
func ExtractTableMember(zipPath, destDir string, exts []string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: open archive")
	}
	defer r.Close() //nolint:errcheck

	member := pickMember(r.File, exts)
	if member == nil {
		return "", eris.Wrapf(ErrNoTableMember, "%s", filepath.Base(zipPath))
	}

	out, err := extractZIPEntry(member, destDir)
	if err != nil {
		return "", err
	}

	if strings.EqualFold(path.Ext(member.Name), ".shp") {
		stem := strings.TrimSuffix(member.Name, path.Ext(member.Name))
		for _, f := range r.File {
			ext := path.Ext(f.Name)
			if !strings.EqualFold(strings.TrimSuffix(f.Name, ext), stem) || !hasExt(ext, shapefileSidecars) {
				continue
			}
			if _, err := extractZIPEntry(f, destDir); err != nil {
				return "", err
			}
		}
	}
	return out, nil
}

func pickMember(files []*zip.File, exts []string) *zip.File {
	for _, want := range exts {
		for _, f := range files {
			if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") {
				continue
			}
			if strings.EqualFold(path.Ext(f.Name), want) {
				return f
			}
		}
	}
	return nil
}

func hasExt(ext string, exts []string) bool {
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// extractZIPEntry writes one member under destDir, rejecting names that
// would land outside it.
func extractZIPEntry(f *zip.File, destDir string) (string, error) {
	dest := filepath.Join(destDir, filepath.FromSlash(f.Name))
	if !strings.HasPrefix(filepath.Clean(dest), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("zip: illegal path %q (zip slip attempt)", f.Name)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", eris.Wrap(err, "zip: create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrapf(err, "zip: open %s", f.Name)
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return "", eris.Wrap(err, "zip: create file")
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close() //nolint:errcheck
		return "", eris.Wrapf(err, "zip: write %s", f.Name)
	}
	return dest, eris.Wrap(out.Close(), "zip: close file")
}
