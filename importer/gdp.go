package importer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	gdpSheetName = "Sheet 3"
	// gdpHeaderRow is the 0-based index of the header row in the Eurostat
	// GDP workbook; the eight rows above it are titles and footnote keys.
	gdpHeaderRow = 8
)

// The Eurostat table spells out the reunification footnote in the country
// label; the register and ISO tables just say Germany.
var gdpCountryRename = map[string]string{
	"Germany (until 1990 former territory of the FRG)": "Germany",
}

// LoadGDP reads the Eurostat GDP workbook and returns country name → GDP for
// the requested reference year. Cells that hold Eurostat's ":" placeholder
// (not available) are skipped.
func LoadGDP(path, year string) (map[string]float64, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open GDP file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(gdpSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read GDP sheet %q: %w", gdpSheetName, err)
	}
	if len(rows) <= gdpHeaderRow+1 {
		return nil, fmt.Errorf("GDP sheet too short: expected headers at row %d", gdpHeaderRow+1)
	}

	headers := rows[gdpHeaderRow]
	timeCol, yearCol := -1, -1
	for i, h := range headers {
		switch strings.TrimSpace(h) {
		case "TIME":
			timeCol = i
		case year:
			yearCol = i
		}
	}
	if timeCol == -1 || yearCol == -1 {
		return nil, fmt.Errorf("GDP sheet is missing TIME or %s column", year)
	}

	gdp := make(map[string]float64)
	for _, row := range rows[gdpHeaderRow+1:] {
		country := cell(row, timeCol)
		raw := cell(row, yearCol)
		if country == "" || raw == "" || raw == ":" {
			continue
		}
		if renamed, ok := gdpCountryRename[country]; ok {
			country = renamed
		}
		value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
		if err != nil {
			continue // footnote or other non-numeric cell
		}
		gdp[country] = value
	}
	if len(gdp) == 0 {
		return nil, fmt.Errorf("no GDP figures found for year %s", year)
	}
	return gdp, nil
}
