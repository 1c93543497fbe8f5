// Package enrichment resolves the register's security identifiers against
// ESMA's FIRDS reference data and the GLEIF entity database, then applies
// the resolved issuer attributes back onto the register rows.
package enrichment

import "stsdash/combo"

// Record is one security's reference data, keyed by its ISIN. Currency,
// issuer LEI, competent authority and nominal amount come from FIRDS; the
// issuer name and country are attached afterwards from GLEIF.
type Record struct {
	Currency           string
	IssuerLEI          string
	CompetentAuthority string
	NominalAmount      combo.Amount
	IssuerName         string
	IssuerCountry      string
}

// Entity is one issuer's legal record as returned by the GLEIF lookup.
type Entity struct {
	LEI          string
	LegalName    string
	Jurisdiction string
}

// ManualRecords covers known gaps in the upstream reference data. One
// issuer (Darrowby No. 5 plc) never appeared in FIRDS, probably an error in
// ESMA's data or in what Euronext Dublin sent to it, so its two notes are
// filled in by hand. Merged over the scan results after reconciliation,
// overrides winning on conflict.
var ManualRecords = map[string]Record{
	"XS2104129486": {
		IssuerLEI:          "6354003OBLBBE5CKB866",
		Currency:           "GBP",
		CompetentAuthority: "IE",
		NominalAmount:      combo.Amount{Currency: "GBP", Value: 600000000},
	},
	"XS2104129569": {
		IssuerLEI:          "6354003OBLBBE5CKB866",
		Currency:           "GBP",
		CompetentAuthority: "IE",
		NominalAmount:      combo.Amount{Currency: "GBP", Value: 66667000},
	},
}
