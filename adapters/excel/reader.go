// Package excel reads space-program briefs out of spreadsheet files.
// Workbooks and CSVs are a common hand-off format for briefs, and the
// rows they carry are treated exactly like any other untrusted
// extraction source.
package excel

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"spaceplan/domain/brief"
)

// BriefReader handles reading Excel and CSV brief files
type BriefReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewBriefReader creates a reader that handles both Excel and CSV files
func NewBriefReader(filePath string) *BriefReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &BriefReader{filePath: filePath, fileType: fileType}
}

// Read parses the file into candidate program rows
func (r *BriefReader) Read() (*brief.Extraction, error) {
	log.Printf("[BriefReader] Reading %s brief: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("brief file not found: %s", r.filePath)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
	if err != nil {
		return nil, err
	}

	return rowsToExtraction(rows)
}

func (r *BriefReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	// First sheet, whatever it is named
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	log.Printf("[BriefReader] Read %d rows from sheet %s", len(rows), sheets[0])
	return rows, nil
}

func (r *BriefReader) readCSVRows() ([][]string, error) {
	f, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // briefs are rarely rectangular
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return rows, nil
}

// column indices discovered from the header row
type columnMap struct {
	name, area, count, group, note int
}

// rowsToExtraction maps sheet rows onto program candidates. A header
// row is detected by column names; without one, the layout defaults to
// name/area/count in the first three columns.
func rowsToExtraction(rows [][]string) (*brief.Extraction, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("brief file is empty")
	}

	cols := columnMap{name: 0, area: 1, count: 2, group: -1, note: -1}
	start := 0
	if mapped, ok := detectHeader(rows[0]); ok {
		cols = mapped
		start = 1
	}

	var programs []brief.RawProgram
	for i := start; i < len(rows); i++ {
		row := rows[i]
		name := cell(row, cols.name)
		if name == "" || strings.EqualFold(name, "total") || strings.EqualFold(name, "subtotal") {
			continue
		}
		area, err := parseCellNumber(cell(row, cols.area))
		if err != nil {
			// Row with a name but no parsable area still surfaces,
			// flagged downstream by the normalizer
			programs = append(programs, brief.RawProgram{Name: name, Confidence: 0})
			continue
		}

		p := brief.RawProgram{Name: name, Area: area, Count: 1, Confidence: 0.9}
		if n, err := strconv.Atoi(cell(row, cols.count)); err == nil && n > 0 {
			p.Count = n
		}
		p.GroupHint = cell(row, cols.group)
		p.Note = cell(row, cols.note)
		programs = append(programs, p)
	}

	if len(programs) == 0 {
		return nil, fmt.Errorf("no program rows found in %d sheet rows", len(rows))
	}
	return &brief.Extraction{Programs: programs}, nil
}

func detectHeader(row []string) (columnMap, bool) {
	cols := columnMap{name: -1, area: -1, count: -1, group: -1, note: -1}
	for i, raw := range row {
		switch normalizeHeader(raw) {
		case "name", "space", "room", "area name", "program":
			cols.name = i
		case "area", "m2", "sqm", "area per unit", "size":
			cols.area = i
		case "count", "qty", "quantity", "units", "no":
			cols.count = i
		case "group", "zone", "category", "department":
			cols.group = i
		case "note", "notes", "comment", "remarks":
			cols.note = i
		}
	}
	return cols, cols.name >= 0 && cols.area >= 0
}

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, ".:")
	return s
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseCellNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty cell")
	}
	s = strings.NewReplacer(" ", "", "m²", "", "m2", "", "sqm", "", ",", ".").Replace(strings.ToLower(s))
	return strconv.ParseFloat(s, 64)
}
