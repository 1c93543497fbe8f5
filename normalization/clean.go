package normalization

import (
	"log"
	"strings"

	"stsdash/combo"
	"stsdash/importer"
	"stsdash/quality"
)

// Substitution tables for known data-entry inconsistencies in the register.
// Residual values not covered here pass through unchanged; the tables are
// grown as new variants appear in the source, not guessed at.
var (
	// assetClassReplace canonicalises underlying-asset labels after they
	// have been lowercased and trimmed.
	assetClassReplace = map[string]string{
		"auto loans /leases": "auto loans / leases",
		"auto loans/leases":  "auto loans / leases",
		"auto  loans/leases": "auto loans / leases",
		"auto loans/ leases": "auto loans / leases",
		"auto loans":         "auto loans / leases",
		"sme loans":          "SME loans",
	}

	// abcpReplace folds the spelling variants of the ABCP column into the
	// canonical "Non ABCP" label. The other two canonical labels, "ABCP
	// transaction" and "ABCP Programme", appear verbatim in the data.
	abcpReplace = map[string]string{
		"Non-ABCP":             "Non ABCP",
		"Non-ABCP transaction": "Non ABCP",
		"Non-aBCP":             "Non ABCP",
		"non-ABCP":             "Non ABCP",
	}

	statusReplace = map[string]string{
		"Publc": "Public",
	}

	// ocReplace corrects the two known-bad originator-country values. It is
	// applied to whole scalar cells before multi-country splitting: the
	// split path only sees two-character candidates plus these entries.
	ocReplace = map[string]string{
		"Italy": "IT",
		"UK":    "GB",
	}

	// isinCellReplace corrects a mistyped ISIN cell (one digit too many).
	isinCellReplace = map[string]string{
		"FR00013450061": "FR0013450061",
	}
)

// isinNotAvailable is the register's way of saying there is no ISIN.
const isinNotAvailable = "NO"

// Cleaner applies the register cleaning rules. The ISO code table is
// injected so the derived full-name column can be computed.
type Cleaner struct {
	ISO *importer.ISOCodes
}

// NewCleaner returns a Cleaner using the given ISO code table.
func NewCleaner(iso *importer.ISOCodes) *Cleaner {
	return &Cleaner{ISO: iso}
}

// Clean runs the full cleaning battery: deduplication by USI, per-field
// substitutions, multi-value promotion and the derived full-name column.
// The fix order is load-bearing: scalar country substitutions must run
// before multi-country splitting, and ISIN promotion runs last so it sees
// corrected cells.
func (c *Cleaner) Clean(rows []Row) []Row {
	rows = dedupeByUSI(rows)
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		r = fixCategoricals(r)
		r = fixOriginatorCountry(r, c.ISO.NameToCode)
		r = fixISINs(r)
		r.OriginatorCountryFull = combo.Replace(r.OriginatorCountry, c.ISO.CodeToName)
		out = append(out, r)
	}
	return out
}

// dedupeByUSI removes rows repeating an already-seen USI. Register files are
// ordered most-recent-first, so keeping the first occurrence keeps the
// latest notification. Rows without a USI are kept as-is.
func dedupeByUSI(rows []Row) []Row {
	seen := make(map[string]bool, len(rows))
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.USI != "" {
			if seen[r.USI] {
				continue
			}
			seen[r.USI] = true
		}
		out = append(out, r)
	}
	return out
}

// fixCategoricals applies the exact-match substitution tables to the scalar
// categorical fields.
func fixCategoricals(r Row) Row {
	r.PrivateOrPublic = strings.TrimSpace(r.PrivateOrPublic)
	if fixed, ok := statusReplace[r.PrivateOrPublic]; ok {
		r.PrivateOrPublic = fixed
	}

	r.UnderlyingAssets = strings.ToLower(strings.TrimSpace(r.UnderlyingAssets))
	if fixed, ok := assetClassReplace[r.UnderlyingAssets]; ok {
		r.UnderlyingAssets = fixed
	}

	r.ABCPStatus = strings.TrimSpace(r.ABCPStatus)
	if fixed, ok := abcpReplace[r.ABCPStatus]; ok {
		r.ABCPStatus = fixed
	}

	r.OriginatorCountry = combo.Replace(r.OriginatorCountry, ocReplace)

	if isin, ok := r.ISINCode.ScalarValue(); ok {
		if isin == isinNotAvailable {
			r.ISINCode = combo.None[string]()
		} else if fixed, ok := isinCellReplace[isin]; ok {
			r.ISINCode = combo.Of(fixed)
		}
	}
	return r
}

// fixOriginatorCountry resolves cells listing several originator countries
// into a Combo of two-letter codes. The delimiter is whichever of ";", ","
// or newline appears, checked in that order, and each part resolves to its
// last two characters - a heuristic tuned to this dataset's formatting, not
// a general rule. Full country names are resolved through the ISO table
// first so entries like "Germany" do not fall into the heuristic.
func fixOriginatorCountry(r Row, nameToCode map[string]string) Row {
	cell, ok := r.OriginatorCountry.ScalarValue()
	if !ok || len(cell) <= 2 {
		// Missing (private securitisations) or already a bare code.
		return r
	}

	var parts []string
	switch {
	case strings.Contains(cell, ";"):
		parts = strings.Split(cell, ";")
	case strings.Contains(cell, ","):
		parts = strings.Split(cell, ",")
	default:
		parts = strings.Split(cell, "\n")
	}

	codes := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if code, ok := nameToCode[p]; ok {
			codes = append(codes, code)
			continue
		}
		if code, ok := ocReplace[p]; ok {
			codes = append(codes, code)
			continue
		}
		runes := []rune(p)
		code := string(runes[max(0, len(runes)-2):])
		if fixed, ok := ocReplace[code]; ok {
			code = fixed
		}
		codes = append(codes, code)
	}
	if len(codes) > 0 {
		r.OriginatorCountry = combo.NewCombo(codes...)
	}
	return r
}

// fixISINs promotes the ISIN cell to a Combo of identifier tokens. A cell
// shorter than 12 characters cannot hold a valid ISIN ("NA" and friends);
// the row is kept with the field missing. Tokens failing the check-digit
// test are logged and retained: the validator is advisory.
func fixISINs(r Row) Row {
	cell, ok := r.ISINCode.ScalarValue()
	if !ok {
		return r
	}
	if len(cell) < 12 {
		log.Printf("Invalid ISIN: %s (too short)", cell)
		r.ISINCode = combo.None[string]()
		return r
	}
	tokens := splitISINTokens(cell)
	for _, tok := range tokens {
		if !quality.ValidateISIN(tok) {
			log.Printf("Invalid ISIN: %s (failed check digit test)", tok)
		}
	}
	r.ISINCode = combo.NewCombo(tokens...)
	return r
}

// splitISINTokens splits a multi-ISIN cell on the register's delimiter set
// and strips stray delimiter characters from each token.
func splitISINTokens(cell string) []string {
	var parts []string
	switch {
	case strings.Contains(cell, ";"):
		parts = strings.Split(cell, ";")
	case strings.Contains(cell, ","):
		parts = strings.Split(cell, ",")
	case strings.Contains(cell, "\n"):
		parts = strings.Split(cell, "\n")
	default:
		parts = strings.Fields(cell)
	}
	var out []string
	for _, p := range parts {
		for _, f := range strings.Fields(p) {
			f = strings.Trim(f, ";,\t \n")
			if f != "" {
				out = append(out, f)
			}
		}
	}
	return out
}
