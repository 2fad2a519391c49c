package projection

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

const databaseName = "proj.db"

// databaseDirs are the usual install locations of PROJ's resource files
var databaseDirs = []string{
	"/usr/share/proj",
	"/usr/local/share/proj",
	"/opt/homebrew/share/proj",
	"/opt/local/share/proj",
}

var errNoDatabase = errors.New("PROJ database (proj.db) not found, set PROJ_DATA")

// DatabasePath locates proj.db, searching PROJ_DATA, PROJ_LIB, the conda prefix and the usual install locations
func DatabasePath() (string, error) {
	var dirs []string
	for _, env := range []string{"PROJ_DATA", "PROJ_LIB"} {
		if v := os.Getenv(env); v != "" {
			dirs = append(dirs, filepath.SplitList(v)...)
		}
	}
	if prefix := os.Getenv("CONDA_PREFIX"); prefix != "" {
		dirs = append(dirs, filepath.Join(prefix, "share", "proj"))
	}
	dirs = append(dirs, databaseDirs...)

	for _, dir := range dirs {
		path := filepath.Join(dir, databaseName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", errNoDatabase
}

// baseGeographicCRS returns the geographic CRS a projected CRS is defined on, e.g. EPSG:4269 for EPSG:2227.
// A geographic CRS is its own base.
func baseGeographicCRS(epsg int) (string, error) {
	path, err := DatabasePath()
	if err != nil {
		return "", err
	}
	db, err := sql.Open("sqlite3", "file:"+filepath.ToSlash(path)+"?mode=ro")
	if err != nil {
		return "", err
	}
	defer db.Close()

	code := strconv.Itoa(epsg)
	var authName, baseCode string
	err = db.QueryRow(`SELECT geodetic_crs_auth_name, geodetic_crs_code FROM projected_crs WHERE auth_name = 'EPSG' AND code = ?;`, code).
		Scan(&authName, &baseCode)
	if err == nil {
		return authName + ":" + baseCode, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("error reading %s: %w", path, err)
	}

	var crsType string
	err = db.QueryRow(`SELECT type FROM geodetic_crs WHERE auth_name = 'EPSG' AND code = ?;`, code).Scan(&crsType)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("EPSG:%d is not a projected or geographic CRS", epsg)
	case err != nil:
		return "", fmt.Errorf("error reading %s: %w", path, err)
	case crsType != "geographic 2D":
		return "", fmt.Errorf("EPSG:%d is a %s CRS", epsg, crsType)
	}
	return crsName(epsg), nil
}
