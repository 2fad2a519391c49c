package shape

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

const maxCodePageSize = 256

// readCodePage returns the contents of the .cpg that declares the character encoding of the .dbf,
// empty when there is none
func readCodePage(shpOrZip string) (string, error) {
	if strings.EqualFold(filepath.Ext(shpOrZip), ".zip") {
		return readZippedCodePage(shpOrZip)
	}
	base := strings.TrimSuffix(shpOrZip, filepath.Ext(shpOrZip))
	for _, ext := range []string{".cpg", ".CPG"} {
		data, err := os.ReadFile(base + ext)
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", nil
}

func readZippedCodePage(zipPath string) (string, error) {
	z, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", err
	}
	defer z.Close()

	var base string
	for _, f := range z.File {
		if strings.HasSuffix(f.Name, ".shp") {
			base = strings.TrimSuffix(f.Name, ".shp")
			break
		}
	}
	for _, f := range z.File {
		if !strings.EqualFold(f.Name, base+".cpg") {
			continue
		}
		r, err := f.Open()
		if err != nil {
			return "", err
		}
		data, err := io.ReadAll(io.LimitReader(r, maxCodePageSize))
		r.Close()
		return string(data), err
	}
	return "", nil
}

// codePageName maps the names ESRI software writes to .cpg files (1252, ANSI 1252, 88591, 8859_1)
// to IANA charset names
func codePageName(cpg string) string {
	name := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(cpg), "\ufeff"))
	upper := strings.ToUpper(name)
	upper = strings.TrimSpace(strings.TrimPrefix(upper, "ANSI"))
	upper = strings.TrimPrefix(upper, "CP")

	if rest, ok := strings.CutPrefix(upper, "8859"); ok && rest != "" && isDigits(strings.TrimLeft(rest, "_-")) {
		return "ISO-8859-" + strings.TrimLeft(rest, "_-")
	}
	if isDigits(upper) {
		if strings.HasPrefix(upper, "125") {
			return "windows-" + upper
		}
		return "IBM" + upper
	}
	return name
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// newDecoder returns the decoder for a .cpg, nil for UTF-8 or when the .cpg is empty
func newDecoder(cpg string) (*encoding.Decoder, error) {
	name := codePageName(cpg)
	if name == "" || strings.EqualFold(name, "UTF-8") || strings.EqualFold(name, "UTF8") {
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown code page %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported code page %q", name)
	}
	return enc.NewDecoder(), nil
}

// decodeText converts a DBF string to UTF-8. Bytes that are not valid in the encoding become U+FFFD.
func decodeText(decoder *encoding.Decoder, raw string) string {
	if decoder != nil {
		if s, err := decoder.String(raw); err == nil {
			return strings.ToValidUTF8(s, "\uFFFD")
		}
	}
	return strings.ToValidUTF8(raw, "\uFFFD")
}
