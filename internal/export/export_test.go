package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"moodweather/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRecords() []*domain.MoodRecord {
	note := "rain, then sun"
	return []*domain.MoodRecord{
		{
			EntryID:   "e-2",
			Timestamp: time.Date(2026, 10, 16, 18, 45, 10, 0, time.UTC),
			Emojis:    []string{domain.EmojiRainy, domain.EmojiSunny},
			Intensity: 55,
			Note:      &note,
			ExternalWeather: &domain.ExternalWeather{
				Temp:      14.5,
				Condition: "Rain",
			},
		},
		{
			EntryID:   "e-1",
			Timestamp: time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC),
			Emojis:    []string{domain.EmojiCloudy},
			Intensity: 30,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRecords()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{"2026-10-16", "18:45:10", "rainy, sunny", "55", "rain, then sun", "Rain", "14.5"}, rows[1])
	assert.Equal(t, []string{"2026-10-15", "07:00:00", "cloudy", "30", "", "", ""}, rows[2])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "Date,Time,Emojis,Intensity,Note,Weather,Temperature\n", buf.String())
}

func TestGenerateXLSX(t *testing.T) {
	data, err := GenerateXLSX(sampleRecords())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetName}, f.GetSheetList())
	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, "rainy, sunny", rows[1][2])
	assert.Equal(t, "55", rows[1][3])
	assert.Equal(t, "14.5", rows[1][6])
	assert.Equal(t, "cloudy", rows[2][2])
}

func TestRow_EscapesFormulaCells(t *testing.T) {
	cases := map[string]string{
		"=HYPERLINK(\"http://x\")": "'=HYPERLINK(\"http://x\")",
		"+1+1":                     "'+1+1",
		"-2+3":                     "'-2+3",
		"@SUM(A1)":                 "'@SUM(A1)",
		"calm day = good day":      "calm day = good day",
	}
	for note, want := range cases {
		n := note
		r := &domain.MoodRecord{
			Timestamp:       time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC),
			Emojis:          []string{domain.EmojiCloudy},
			Intensity:       30,
			Note:            &n,
			ExternalWeather: &domain.ExternalWeather{Temp: -3.5, Condition: "=cmd"},
		}
		row := Row(r)
		assert.Equal(t, want, row[4], note)
		assert.Equal(t, "'=cmd", row[5])
		assert.Equal(t, "-3.5", row[6], "numbers are left alone")
	}
}

func TestGenerateXLSX_NoteIsNotAFormula(t *testing.T) {
	note := "=1+1"
	data, err := GenerateXLSX([]*domain.MoodRecord{{
		Timestamp: time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC),
		Emojis:    []string{domain.EmojiCloudy},
		Intensity: 30,
		Note:      &note,
	}})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	formula, err := f.GetCellFormula(sheetName, "E2")
	require.NoError(t, err)
	assert.Empty(t, formula)
	value, err := f.GetCellValue(sheetName, "E2")
	require.NoError(t, err)
	assert.Equal(t, "'=1+1", value)
}
