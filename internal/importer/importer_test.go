package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/territory-cli/internal/region"
	"github.com/sells-group/territory-cli/internal/store"
	"github.com/sells-group/territory-cli/internal/territory"
)

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				cell := row.AddCell()
				cell.SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "assignments.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

var wantBasic = []territory.AssignmentInput{
	{Type: region.TypeState, Code: "TX", InstallerID: "inst-a"},
	{Type: region.TypeCity, Name: "Houston", InstallerID: "inst-b"},
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path     string
		expected Format
	}{
		{"a.csv", FormatCSV},
		{"a.TXT", FormatCSV},
		{"dir/a.xlsx", FormatXLSX},
		{"a.yaml", FormatYAML},
		{"a.YML", FormatYAML},
		{"a.json", FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := DetectFormat(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := DetectFormat("a.parquet")
	assert.Error(t, err)
}

func TestParseHeader(t *testing.T) {
	c, err := parseHeader([]string{"Region Type", "Name", "Installer"})
	require.NoError(t, err)
	assert.Equal(t, columns{typ: 0, code: -1, name: 1, installer: 2}, c)

	_, err = parseHeader([]string{"type", "notes"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "installer_id")
	assert.Contains(t, err.Error(), "code or name")
}

func TestReadCSV(t *testing.T) {
	doc := strings.Join([]string{
		"type,code,name,installer_id",
		"# comment rows are skipped",
		"State, TX ,,inst-a",
		"city,,Houston,inst-b",
		",,,",
	}, "\n")

	got, err := ReadCSV(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, wantBasic, got)
}

func TestReadCSV_ShortRowsKeepInvalidEntries(t *testing.T) {
	doc := "installer_id,type,code\ninst-a,zip\n"
	got, err := ReadCSV(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, territory.AssignmentInput{Type: region.TypeZIP, InstallerID: "inst-a"}, got[0])
}

func TestReadCSV_BadHeader(t *testing.T) {
	_, err := ReadCSV(context.Background(), strings.NewReader("a,b,c\n1,2,3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header missing")
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(context.Background(), strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no header row")
}

func TestReadCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ReadCSV(ctx, strings.NewReader("type,code,installer_id\nstate,tx,a\n"))
	require.Error(t, err)
}

func TestStreamCSV_Delimiter(t *testing.T) {
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader("a| b\nc|d \n"), CSVOptions{Delimiter: '|', TrimSpace: true})
	var rows [][]string
	for r := range rowCh {
		rows = append(rows, r)
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}}, rows)
}

func TestReadXLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"type", "code", "name", "installer_id"},
			{"state", "TX", "", "inst-a"},
			{"", "", "", ""},
			{"City", "", "Houston", "inst-b"},
		},
	})

	got, err := ReadXLSX(path, "")
	require.NoError(t, err)
	assert.Equal(t, wantBasic, got)
}

func TestReadXLSX_SheetName(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Notes":   {{"nothing to see"}},
		"Regions": {{"tier", "code", "installer"}, {"zip", "77001", "inst-z"}},
	})

	got, err := ReadXLSX(path, "Regions")
	require.NoError(t, err)
	assert.Equal(t, []territory.AssignmentInput{{Type: region.TypeZIP, Code: "77001", InstallerID: "inst-z"}}, got)

	_, err = ReadXLSX(path, "Missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReadXLSX_BadFile(t *testing.T) {
	path := writeTestFile(t, "broken.xlsx", "not a zip")
	_, err := ReadXLSX(path, "")
	require.Error(t, err)
}

func TestReadYAML(t *testing.T) {
	list := `
- type: state
  code: TX
  installer_id: inst-a
- type: city
  name: Houston
  installer_id: inst-b
`
	got, err := ReadYAML(strings.NewReader(list))
	require.NoError(t, err)
	assert.Equal(t, wantBasic, got)

	mapping := "assignments:\n" + indent(list)
	got, err = ReadYAML(strings.NewReader(mapping))
	require.NoError(t, err)
	assert.Equal(t, wantBasic, got)
}

func indent(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n") + "\n"
}

func TestReadYAML_EmptyAndInvalid(t *testing.T) {
	got, err := ReadYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ReadYAML(strings.NewReader("just a scalar"))
	require.Error(t, err)

	_, err = ReadYAML(strings.NewReader("- [unclosed"))
	require.Error(t, err)
}

func TestReadJSON(t *testing.T) {
	doc := `[
		{"type": "state", "code": "TX", "installer_id": "inst-a"},
		{"type": "city", "name": "Houston", "installer_id": "inst-b"}
	]`
	got, err := ReadJSON(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, wantBasic, got)

	_, err = ReadJSON(context.Background(), strings.NewReader(`{"type": "state"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected '['")
}

func TestReadFile(t *testing.T) {
	csvPath := writeTestFile(t, "a.csv", "type,code,installer_id\nstate,TX,inst-a\n")
	got, err := ReadFile(context.Background(), csvPath, Options{})
	require.NoError(t, err)
	assert.Equal(t, []territory.AssignmentInput{{Type: region.TypeState, Code: "TX", InstallerID: "inst-a"}}, got)

	yamlPath := writeTestFile(t, "a.data", "- {type: zip, code: '77001', installer_id: z}\n")
	got, err = ReadFile(context.Background(), yamlPath, Options{Format: FormatYAML})
	require.NoError(t, err)
	assert.Equal(t, []territory.AssignmentInput{{Type: region.TypeZIP, Code: "77001", InstallerID: "z"}}, got)

	_, err = ReadFile(context.Background(), yamlPath, Options{})
	assert.Error(t, err)

	_, err = ReadFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), Options{})
	assert.Error(t, err)
}

// Files read by the importer feed straight into Service.Import.
func TestReadFile_ImportsIntoService(t *testing.T) {
	path := writeTestFile(t, "a.csv", "type,name,installer_id\nstate,TX,inst-a\ncity,Houston,inst-b\nmoon,Tranquility,x\n")
	inputs, err := ReadFile(context.Background(), path, Options{})
	require.NoError(t, err)

	svc := territory.New(store.NewMemory())
	res, err := svc.Import(context.Background(), inputs)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Written)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, 3, res.Rejected[0].Row)
}
