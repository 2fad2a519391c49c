// Package csvfile writes centroid records as comma separated rows
package csvfile

import (
	"bufio"
	"os"
	"strings"

	"github.com/matthewnorman/geoscripts/processing"
)

const (
	separator = ","
	newline   = "\n"
)

type TargetCSV struct {
	path   string
	file   *os.File
	writer *bufio.Writer
}

// Create creates or truncates the file at path
func Create(path string) (*TargetCSV, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, &processing.IOError{Op: "create", Path: path, Err: err}
	}
	return &TargetCSV{
		path:   path,
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (target *TargetCSV) WriteHeader(columns []string) error {
	return target.write(columns)
}

func (target *TargetCSV) WriteRecord(record processing.CentroidRecord) error {
	return target.write(record.Row())
}

func (target *TargetCSV) write(row []string) error {
	fields := make([]string, len(row))
	for i, field := range row {
		fields[i] = quote(field)
	}
	if _, err := target.writer.WriteString(strings.Join(fields, separator) + newline); err != nil {
		return &processing.IOError{Op: "write", Path: target.path, Err: err}
	}
	return nil
}

// quote quotes a field only when it contains the separator, a quote or a line break.
// Leading spaces are kept as they are.
func quote(field string) string {
	if !strings.ContainsAny(field, separator+"\"\r\n") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// Close flushes the buffered rows and closes the file. It is safe to call more than once.
func (target *TargetCSV) Close() error {
	if target.file == nil {
		return nil
	}
	flushErr := target.writer.Flush()
	closeErr := target.file.Close()
	target.file = nil
	if flushErr != nil {
		return &processing.IOError{Op: "write", Path: target.path, Err: flushErr}
	}
	if closeErr != nil {
		return &processing.IOError{Op: "close", Path: target.path, Err: closeErr}
	}
	return nil
}
