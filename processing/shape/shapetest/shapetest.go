// Package shapetest writes shapefile fixtures for tests
package shapetest

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
)

// Feature is a polygon shape, one ring per part, with attribute values in field order
type Feature struct {
	Rings      [][][2]float64
	Attributes []interface{}
}

// Write creates path (.shp) with its .shx and .dbf
func Write(t testing.TB, path string, fields []shp.Field, features []Feature) {
	t.Helper()
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	if len(fields) > 0 {
		require.NoError(t, w.SetFields(fields))
	}
	for _, f := range features {
		parts := make([][]shp.Point, len(f.Rings))
		for i, ring := range f.Rings {
			for _, p := range ring {
				parts[i] = append(parts[i], shp.Point{X: p[0], Y: p[1]})
			}
		}
		row := w.Write((*shp.Polygon)(shp.NewPolyLine(parts)))
		for i, v := range f.Attributes {
			require.NoError(t, w.WriteAttribute(int(row), i, v))
		}
	}
	w.Close()

	// the writer names the table <base>dbf instead of <base>.dbf
	base := strings.TrimSuffix(path, filepath.Ext(path))
	if _, err := os.Stat(base + "dbf"); err == nil {
		require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
	}
}

// Zip bundles the shapefile at shpPath into a zip archive next to it and returns its path
func Zip(t testing.TB, shpPath string) string {
	t.Helper()
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	zipPath := base + ".zip"
	out, err := os.Create(zipPath)
	require.NoError(t, err)
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, ext := range []string{".shp", ".shx", ".dbf", ".cpg"} {
		in, err := os.Open(base + ext)
		if os.IsNotExist(err) {
			continue
		}
		require.NoError(t, err)
		entry, err := zw.Create(filepath.Base(base) + ext)
		require.NoError(t, err)
		_, err = io.Copy(entry, in)
		in.Close()
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return zipPath
}
