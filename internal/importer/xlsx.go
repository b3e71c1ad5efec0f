package importer

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/territory-cli/internal/territory"
)

// ReadXLSX reads assignments from one sheet of an XLSX workbook. The
// first row is the header. sheet selects a sheet by name; empty means
// the first sheet.
func ReadXLSX(path, sheet string) ([]territory.AssignmentInput, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	s, err := getSheet(f, sheet)
	if err != nil {
		return nil, err
	}
	if len(s.Rows) == 0 {
		return nil, eris.Errorf("xlsx: sheet %q is empty", s.Name)
	}

	cols, err := parseHeader(rowToStrings(s.Rows[0]))
	if err != nil {
		return nil, err
	}

	var out []territory.AssignmentInput
	for _, row := range s.Rows[1:] {
		if in, ok := cols.input(rowToStrings(row)); ok {
			out = append(out, in)
		}
	}
	return out, nil
}

func getSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
