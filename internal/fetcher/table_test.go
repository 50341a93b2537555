package fetcher

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTableFile_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ll87.csv")
	require.NoError(t, writeTestFile(path, "BBL,System Type\n1010130029,Variable Air Volume\n"))

	tbl, err := ReadTableFile(context.Background(), path, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, path, tbl.Path)
	assert.Equal(t, []string{"BBL", "System Type"}, tbl.Header)
	assert.Equal(t, 1, tbl.Len())
}

func TestReadTableFile_XLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {{"BBL", "Energy Grade"}, {"1010130029", "D"}},
	})

	tbl, err := ReadTableFile(context.Background(), path, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "Energy Grade", tbl.Header[1])
	assert.Equal(t, "D", tbl.Rows[0][1])
}

func TestReadTableFile_ZIPPrefersCSV(t *testing.T) {
	path := createTestZIP(t, map[string]string{
		"readme.txt.md": "ignored",
		"pluto/MN.csv":  "BBL,Address\n1010130029,1155 AVENUE OF THE AMERICAS\n",
	})

	tbl, err := ReadTableFile(context.Background(), path, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, path, tbl.Path)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "1010130029", tbl.Rows[0][0])
}

func TestReadTableFile_ZIPWithoutTable(t *testing.T) {
	path := createTestZIP(t, map[string]string{"notes.md": "x"})
	_, err := ReadTableFile(context.Background(), path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no csv, xlsx or shp member")
}

func TestReadTableFile_Unsupported(t *testing.T) {
	_, err := ReadTableFile(context.Background(), "data/pluto.parquet", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestReadTableFile_MissingCSV(t *testing.T) {
	_, err := ReadTableFile(context.Background(), filepath.Join(t.TempDir(), "none.csv"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table: open")
}

func TestReadShapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "MapPLUTO.shp")
	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("BBL", 10),
		shp.NumberField("BldgArea", 10),
	}))
	idx := w.Write(&shp.Point{X: -73.98, Y: 40.75})
	require.NoError(t, w.WriteAttribute(int(idx), 0, "1010130029"))
	require.NoError(t, w.WriteAttribute(int(idx), 1, 150000))
	w.Close()

	tbl, err := ReadTableFile(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"BBL", "BldgArea"}, tbl.Header)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "1010130029", tbl.Rows[0][0])
	assert.Equal(t, "150000", tbl.Rows[0][1])
}
