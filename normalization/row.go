// Package normalization turns raw register rows into cleaned, typed rows:
// it corrects known data-entry inconsistencies, promotes delimited
// multi-value cells to combos and provides the flatten transform used for
// grouped counting.
package normalization

import (
	"log"
	"time"

	"stsdash/combo"
	"stsdash/importer"
)

// Row is one notified STS securitisation after cleaning. The issuer-side
// fields stay missing until enrichment fills them from reference data.
type Row struct {
	USI                string             `json:"usi"`
	SecuritisationName string             `json:"securitisation_name"`
	NotificationDate   time.Time          `json:"notification_date"`
	PrivateOrPublic    string             `json:"private_or_public"`
	OriginatorCountry  combo.Value[string] `json:"originator_country"`
	// OriginatorCountryFull is display-only: the country codes expanded to
	// full names.
	OriginatorCountryFull combo.Value[string] `json:"originator_country_full"`
	ISINCode              combo.Value[string] `json:"isin_code"`
	UnderlyingAssets      string              `json:"underlying_assets"`
	ABCPStatus            string              `json:"abcp_status"`

	IssuerLEI          combo.Value[string]       `json:"issuer_lei"`
	IssuerName         combo.Value[string]       `json:"issuer_name"`
	IssuerCountry      combo.Value[string]       `json:"issuer_country"`
	IssuerCountryFull  combo.Value[string]       `json:"issuer_country_full"`
	Currency           combo.Value[string]       `json:"currency"`
	NominalAmount      combo.Value[combo.Amount] `json:"nominal_amount"`
	CompetentAuthority combo.Value[string]       `json:"competent_authority"`
}

// knownBadDates maps date literals that cannot be parsed to the date the
// filer meant. One October 2019 notification was keyed as "31/1012019".
var knownBadDates = map[string]time.Time{
	"31/1012019": time.Date(2019, time.October, 31, 0, 0, 0, 0, time.UTC),
}

// dateLayouts covers the formats seen in register cells across editions.
var dateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
	"2-1-06",
	"01-02-06",
	"2006-01-02 15:04:05",
}

// FromRaw converts raw spreadsheet rows to typed rows. Scalar string fields
// are carried over as-is (cleaning happens in Clean); dates are parsed here,
// with known-bad literals corrected first. Unparseable dates are logged and
// left as the zero time.
func FromRaw(raw []importer.RawRow) []Row {
	rows := make([]Row, 0, len(raw))
	for _, r := range raw {
		row := Row{
			USI:                r.USI,
			SecuritisationName: r.SecuritisationName,
			NotificationDate:   parseDate(r.NotificationDate),
			PrivateOrPublic:    r.PrivateOrPublic,
			UnderlyingAssets:   r.UnderlyingAssets,
			ABCPStatus:         r.ABCPStatus,
			OriginatorCountry:  scalarOrMissing(r.OriginatorCountry),
			ISINCode:           scalarOrMissing(r.ISINCode),
		}
		rows = append(rows, row)
	}
	return rows
}

func scalarOrMissing(cell string) combo.Value[string] {
	if cell == "" {
		return combo.None[string]()
	}
	return combo.Of(cell)
}

func parseDate(cell string) time.Time {
	if cell == "" {
		return time.Time{}
	}
	if fixed, ok := knownBadDates[cell]; ok {
		return fixed
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return t
		}
	}
	log.Printf("Unparseable notification date %q; leaving unset", cell)
	return time.Time{}
}

// ZeroTime is the start of the STS regime; Between uses it as the default
// window start.
var ZeroTime = time.Date(2018, time.December, 31, 0, 0, 0, 0, time.UTC)

// Between returns the rows whose notification date falls inside [from, to],
// inclusive. A zero from defaults to ZeroTime; a zero to defaults to today.
func Between(rows []Row, from, to time.Time) []Row {
	if from.IsZero() {
		from = ZeroTime
	}
	if to.IsZero() {
		to = time.Now()
	}
	var out []Row
	for _, r := range rows {
		if r.NotificationDate.IsZero() {
			continue
		}
		if r.NotificationDate.Before(from) || r.NotificationDate.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out
}
