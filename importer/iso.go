package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// ISOCodes holds the two-way mapping between ISO 3166-1 alpha-2 codes and
// full country names. Loaded once at startup and treated as read-only.
type ISOCodes struct {
	CodeToName map[string]string
	NameToCode map[string]string
}

// LoadISOCodes reads the two-column (code, name) CSV table. Some editions of
// the table ship in Latin-1, so invalid UTF-8 input is re-decoded through
// ISO 8859-1 before parsing.
func LoadISOCodes(path string) (*ISOCodes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ISO code table: %w", err)
	}
	if !utf8.Valid(data) {
		decoded, _, derr := transform.Bytes(charmap.ISO8859_1.NewDecoder(), data)
		if derr != nil {
			return nil, fmt.Errorf("failed to decode ISO code table as Latin-1: %w", derr)
		}
		data = decoded
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	codes := &ISOCodes{
		CodeToName: make(map[string]string),
		NameToCode: make(map[string]string),
	}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse ISO code table: %w", err)
		}
		if len(record) < 2 || record[0] == "Code" || record[0] == "" {
			continue // header or blank line
		}
		code, name := record[0], record[1]
		codes.CodeToName[code] = name
		codes.NameToCode[name] = code
	}
	if len(codes.CodeToName) == 0 {
		return nil, fmt.Errorf("ISO code table %s contained no entries", path)
	}
	return codes, nil
}
