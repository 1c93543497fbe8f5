// Package importer loads the raw data sources the pipeline works from: the
// ESMA STS register spreadsheet, static ISO code tables, EU GDP figures, ECB
// exchange rates and the European map boundary data.
package importer

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// RegisterHeaderRow is the 0-based row index of the column headers in the
// ESMA register spreadsheet; the ten rows above it are title matter.
const RegisterHeaderRow = 10

// RawRow is one register row as read from the spreadsheet, before any
// cleaning. All cells are kept as strings; empty means the cell was blank.
type RawRow struct {
	USI                string
	SecuritisationName string
	NotificationDate   string
	OriginatorCountry  string
	ISINCode           string
	PrivateOrPublic    string
	UnderlyingAssets   string
	ABCPStatus         string
}

// registerColumns maps RawRow fields to keywords looked for in the header
// row. The ABCP column header varies in its internal whitespace across
// register editions, so columns are matched by keyword rather than by the
// full header text.
type registerColumns struct {
	usi, name, date, originator, isin, private, assets, abcp int
}

// LoadRegister reads the register spreadsheet and returns its data rows in
// file order (most recent first).
func LoadRegister(path string) ([]RawRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open register file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("no sheets found in register file")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read register sheet: %w", err)
	}
	if len(rows) <= RegisterHeaderRow+1 {
		return nil, fmt.Errorf("register file too short: expected headers at row %d", RegisterHeaderRow+1)
	}

	cols, err := findRegisterColumns(rows[RegisterHeaderRow])
	if err != nil {
		return nil, err
	}

	var out []RawRow
	for _, row := range rows[RegisterHeaderRow+1:] {
		r := RawRow{
			USI:                cell(row, cols.usi),
			SecuritisationName: cell(row, cols.name),
			NotificationDate:   cell(row, cols.date),
			OriginatorCountry:  cell(row, cols.originator),
			ISINCode:           cell(row, cols.isin),
			PrivateOrPublic:    cell(row, cols.private),
			UnderlyingAssets:   cell(row, cols.assets),
			ABCPStatus:         cell(row, cols.abcp),
		}
		if r.USI == "" && r.SecuritisationName == "" && r.NotificationDate == "" {
			continue // trailing blank rows
		}
		out = append(out, r)
	}
	return out, nil
}

func findRegisterColumns(headers []string) (registerColumns, error) {
	cols := registerColumns{usi: -1, name: -1, date: -1, originator: -1, isin: -1, private: -1, assets: -1, abcp: -1}
	for i, h := range headers {
		key := strings.ToLower(strings.Join(strings.Fields(h), " "))
		switch {
		case strings.Contains(key, "unique securitisation identifier"):
			cols.usi = i
		case strings.Contains(key, "securitisation name"):
			cols.name = i
		case strings.Contains(key, "notification date"):
			cols.date = i
		case strings.Contains(key, "originator country"):
			cols.originator = i
		case strings.Contains(key, "isin"):
			cols.isin = i
		case strings.Contains(key, "private or public"):
			cols.private = i
		case strings.Contains(key, "underlying assets"):
			cols.assets = i
		case strings.Contains(key, "abcp"):
			cols.abcp = i
		}
	}
	if cols.usi == -1 {
		return cols, fmt.Errorf("required column 'Unique Securitisation Identifier' not found in register headers")
	}
	if cols.date == -1 {
		return cols, fmt.Errorf("required column 'Notification date' not found in register headers")
	}
	return cols, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
