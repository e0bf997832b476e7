package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"moodweather/internal/domain"

	"github.com/xuri/excelize/v2"
)

// Header column order shared by CSV and XLSX
var Header = []string{"Date", "Time", "Emojis", "Intensity", "Note", "Weather", "Temperature"}

// Row flat string form of a record (UTC date and time)
func Row(r *domain.MoodRecord) []string {
	ts := r.Timestamp.UTC()
	note := ""
	if r.Note != nil {
		note = *r.Note
	}
	weather, temp := "", ""
	if r.ExternalWeather != nil {
		weather = r.ExternalWeather.Condition
		temp = strconv.FormatFloat(r.ExternalWeather.Temp, 'f', -1, 64)
	}
	return []string{
		ts.Format("2006-01-02"),
		ts.Format("15:04:05"),
		strings.Join(r.Emojis, ", "),
		strconv.Itoa(r.Intensity),
		escapeFormula(note),
		escapeFormula(weather),
		temp,
	}
}

// escapeFormula free text a spreadsheet would evaluate is prefixed with '
func escapeFormula(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

// WriteCSV header plus one row per record, in the given order
func WriteCSV(w io.Writer, records []*domain.MoodRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(Row(r)); err != nil {
			return fmt.Errorf("failed to write csv row %s: %w", r.EntryID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

const sheetName = "Moods"

var columnWidths = []float64{
	12, // Date
	10, // Time
	24, // Emojis
	10, // Intensity
	50, // Note
	14, // Weather
	12, // Temperature
}

// GenerateXLSX workbook with a styled, frozen header row
func GenerateXLSX(records []*domain.MoodRecord) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open; Close runs after it

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#FFF4D6"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range Header {
		if err := setCellValue(f, col+1, 1, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, name, name, columnWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}
	if err := f.SetCellStyle(sheetName, "A1", "G1", headerStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}

	for i, r := range records {
		row := i + 2
		values := Row(r)
		for col, v := range values {
			var value any = v
			switch {
			case col == 3:
				value = r.Intensity
			case col == 6 && r.ExternalWeather != nil:
				value = r.ExternalWeather.Temp
			}
			if v == "" {
				continue
			}
			if err := setCellValue(f, col+1, row, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell at row %d, col %d: %w", row, col+1, err)
			}
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func setCellValue(f *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheetName, cell, value)
}
