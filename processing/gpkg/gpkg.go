// Package gpkg reads features from a feature table in a GeoPackage
package gpkg

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/gpkg"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/matthewnorman/geoscripts/processing"
)

type column struct {
	cid       int
	name      string
	ctype     string
	notnull   int
	dfltValue *string
	pk        int
}

type Table struct {
	Name    string
	columns []column
	gcolumn string
	srs     gpkg.SpatialReferenceSystem
}

// SRS returns the spatial reference system the table's geometries are stored in
func (t Table) SRS() gpkg.SpatialReferenceSystem {
	return t.srs
}

type SourceGeopackage struct {
	Table Table
	path  string
	db    *sql.DB
}

// Open opens the GeoPackage at path and selects the feature table named layer.
// Without a layer the first feature table is selected.
func Open(path string, layer string) (*SourceGeopackage, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &processing.IOError{Op: "open", Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &processing.IOError{Op: "open", Path: path, Err: errors.New("is a directory")}
	}
	db, err := sql.Open("sqlite3", readOnlyDSN(path))
	if err == nil {
		err = db.Ping()
	}
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, &processing.IOError{Op: "open", Path: path, Err: err}
	}
	source := &SourceGeopackage{path: path, db: db}

	tables, err := source.GetTableInfo()
	if err != nil {
		db.Close()
		return nil, &processing.IOError{Op: "read table info", Path: path, Err: err}
	}
	table, err := selectTable(tables, layer)
	if err != nil {
		db.Close()
		return nil, &processing.IOError{Op: "open", Path: path, Err: err}
	}
	source.Table = table
	return source, nil
}

// readOnlyDSN is a sqlite URI that opens path read-only, the input is never written to
func readOnlyDSN(path string) string {
	escaped := strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23").Replace(filepath.ToSlash(path))
	return "file:" + escaped + "?mode=ro"
}

func selectTable(tables []Table, layer string) (Table, error) {
	if len(tables) == 0 {
		return Table{}, errors.New("no feature tables found")
	}
	if layer == "" {
		return tables[0], nil
	}
	var names []string
	for _, t := range tables {
		if t.Name == layer {
			return t, nil
		}
		names = append(names, t.Name)
	}
	return Table{}, fmt.Errorf("no feature table %q, found: %s", layer, strings.Join(names, ", "))
}

// EPSG returns the EPSG code of the selected table's SRS, false for other organizations
func (source *SourceGeopackage) EPSG() (int, bool) {
	srs := source.Table.srs
	if !strings.EqualFold(srs.Organization, "EPSG") || srs.OrganizationCoordsysID <= 0 {
		return 0, false
	}
	return srs.OrganizationCoordsysID, true
}

func (source *SourceGeopackage) Close() error {
	return source.db.Close()
}

func (source *SourceGeopackage) ReadFeatures(fn func(processing.Feature) error) error {
	rows, err := source.db.Query(source.Table.selectSQL())
	if err != nil {
		return &processing.IOError{Op: "query", Path: source.path, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return &processing.IOError{Op: "read columns", Path: source.path, Err: err}
	}

	index := 0
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		valPtrs := make([]interface{}, len(cols))
		for i := 0; i < len(cols); i++ {
			valPtrs[i] = &vals[i]
		}

		if err = rows.Scan(valPtrs...); err != nil {
			return &processing.IOError{Op: "read row", Path: source.path, Err: err}
		}

		f, err := source.Table.toFeature(index, cols, vals)
		if err != nil {
			return err
		}
		if err = fn(f); err != nil {
			return err
		}
		index++
	}
	if err = rows.Err(); err != nil {
		return &processing.IOError{Op: "read rows", Path: source.path, Err: err}
	}
	return nil
}

func (t Table) toFeature(index int, cols []string, vals []interface{}) (processing.Feature, error) {
	properties := processing.NewProperties()
	var geometry geom.Geometry
	for i, colName := range cols {
		if colName == t.gcolumn {
			if vals[i] == nil {
				// NULL geometry, reported when the centroid is computed
				continue
			}
			blob, ok := vals[i].([]byte)
			if !ok {
				return nil, &processing.GeometryError{Index: index, Reason: fmt.Sprintf("unexpected type for geometry column %s: %T", colName, vals[i])}
			}
			decoded, err := gpkg.DecodeGeometry(blob)
			if err != nil {
				return nil, &processing.GeometryError{Index: index, Reason: "decoding the geometry", Err: err}
			}
			geometry = decoded.Geometry
			continue
		}
		v, err := processing.NewValue(vals[i])
		if err != nil {
			return nil, fmt.Errorf("feature %d, column %s: %w", index, colName, err)
		}
		properties.Set(colName, v)
	}
	return processing.NewFeature(index, geometry, properties), nil
}

// GetTableInfo lists the feature tables, in the order of gpkg_geometry_columns
func (source *SourceGeopackage) GetTableInfo() ([]Table, error) {
	query := `SELECT table_name, column_name, srs_id FROM gpkg_geometry_columns ORDER BY rowid;`
	rows, err := source.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("error during query: %v - %w", query, err)
	}
	defer rows.Close()
	var tables []Table

	for rows.Next() {
		var t Table
		err := rows.Scan(&t.Name, &t.gcolumn, &t.srs.ID)
		if err != nil {
			return nil, fmt.Errorf("error reading the source table information: %w", err)
		}
		tables = append(tables, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range tables {
		tables[i].columns, err = getTableColumns(source.db, tables[i].Name)
		if err != nil {
			return nil, err
		}
		tables[i].srs, err = getSpatialReferenceSystem(source.db, tables[i].srs.ID)
		if err != nil {
			return nil, err
		}
	}
	return tables, nil
}

// selectSQL build a SELECT statement based on the table and columns
// used for reading the source features
func (t Table) selectSQL() string {
	var csql []string
	for _, c := range t.columns {
		csql = append(csql, quoteIdentifier(c.name))
	}
	query := `SELECT ` + strings.Join(csql, `,`) + ` FROM ` + quoteIdentifier(t.Name) + `;`
	return query
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// getSpatialReferenceSystem extracts this based on the given SRS id
func getSpatialReferenceSystem(db *sql.DB, id int) (gpkg.SpatialReferenceSystem, error) {
	var srs gpkg.SpatialReferenceSystem
	query := `SELECT srs_name, srs_id, organization, organization_coordsys_id, definition, description FROM gpkg_spatial_ref_sys WHERE srs_id = ?;`

	row := db.QueryRow(query, id)
	var description *string
	err := row.Scan(&srs.Name, &srs.ID, &srs.Organization, &srs.OrganizationCoordsysID, &srs.Definition, &description)
	if errors.Is(err, sql.ErrNoRows) {
		return gpkg.SpatialReferenceSystem{ID: id}, nil
	}
	if err != nil {
		return srs, fmt.Errorf("error reading spatial reference system %d: %w", id, err)
	}
	if description != nil {
		srs.Description = *description
	}

	return srs, nil
}

// getTableColumns collects the column information of a given table
func getTableColumns(db *sql.DB, table string) ([]column, error) {
	var columns []column
	query := `PRAGMA table_info('%v');`
	rows, err := db.Query(fmt.Sprintf(query, strings.ReplaceAll(table, `'`, `''`)))
	if err != nil {
		return nil, fmt.Errorf("error during query: %v - %w", query, err)
	}
	defer rows.Close()

	for rows.Next() {
		var column column
		err := rows.Scan(&column.cid, &column.name, &column.ctype, &column.notnull, &column.dfltValue, &column.pk)
		if err != nil {
			return nil, fmt.Errorf("error getting the column information: %w", err)
		}
		columns = append(columns, column)
	}
	return columns, rows.Err()
}
