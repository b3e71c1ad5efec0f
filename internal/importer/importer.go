// Package importer reads bulk assignment files (CSV, XLSX, YAML, JSON)
// into admin write inputs.
package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/territory-cli/internal/region"
	"github.com/sells-group/territory-cli/internal/territory"
)

// Format is a supported input file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Options configures ReadFile.
type Options struct {
	Format Format // empty = detect from extension
	Sheet  string // XLSX sheet name; default first sheet
}

// DetectFormat maps a file extension to a Format.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", eris.Errorf("importer: cannot detect format of %q", path)
}

// ReadFile reads every assignment row in path.
func ReadFile(ctx context.Context, path string, opts Options) ([]territory.AssignmentInput, error) {
	format := opts.Format
	if format == "" {
		var err error
		if format, err = DetectFormat(path); err != nil {
			return nil, err
		}
	}

	if format == FormatXLSX {
		return ReadXLSX(path, opts.Sheet)
	}

	f, err := os.Open(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, eris.Wrap(err, "importer: open file")
	}
	defer f.Close() //nolint:errcheck

	switch format {
	case FormatCSV:
		return ReadCSV(ctx, f)
	case FormatYAML:
		return ReadYAML(f)
	case FormatJSON:
		return ReadJSON(ctx, f)
	}
	return nil, eris.Errorf("importer: unsupported format %q", format)
}

// columns locates the assignment fields in a header row.
type columns struct {
	typ, code, name, installer int
}

var headerAliases = map[string]string{
	"type":         "type",
	"region_type":  "type",
	"tier":         "type",
	"code":         "code",
	"region_code":  "code",
	"name":         "name",
	"region_name":  "name",
	"installer_id": "installer",
	"installer":    "installer",
}

func parseHeader(header []string) (columns, error) {
	c := columns{typ: -1, code: -1, name: -1, installer: -1}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.ReplaceAll(key, " ", "_")
		switch headerAliases[key] {
		case "type":
			c.typ = i
		case "code":
			c.code = i
		case "name":
			c.name = i
		case "installer":
			c.installer = i
		}
	}

	var missing []string
	if c.typ < 0 {
		missing = append(missing, "type")
	}
	if c.installer < 0 {
		missing = append(missing, "installer_id")
	}
	if c.code < 0 && c.name < 0 {
		missing = append(missing, "code or name")
	}
	if len(missing) > 0 {
		return c, eris.Errorf("importer: header missing %s", strings.Join(missing, ", "))
	}
	return c, nil
}

// input converts a data row. Blank rows return ok=false.
func (c columns) input(row []string) (territory.AssignmentInput, bool) {
	cell := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	in := territory.AssignmentInput{
		Type:        region.Type(strings.ToLower(cell(c.typ))),
		Code:        cell(c.code),
		Name:        cell(c.name),
		InstallerID: cell(c.installer),
	}
	if in.Type == "" && in.Code == "" && in.Name == "" && in.InstallerID == "" {
		return in, false
	}
	return in, true
}
