package fetcher

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
)

// ReadShapefile reads the attribute (.dbf) table of a shapefile. MapPLUTO is
// published this way; geometry is ignored.
func ReadShapefile(shpPath string) (*Table, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	t := &Table{
		Path:   shpPath,
		Header: make([]string, len(fields)),
	}
	for i, f := range fields {
		t.Header[i] = strings.TrimRight(f.String(), "\x00")
	}

	for reader.Next() {
		row := make([]string, len(fields))
		for i := range fields {
			row[i] = strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
		}
		t.Rows = append(t.Rows, row)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "shapefile: read %s", shpPath)
	}

	return t, nil
}
