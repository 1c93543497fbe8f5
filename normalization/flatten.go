package normalization

import "stsdash/combo"

// Column identifies a string-valued row field that flattening and grouped
// counting can address.
type Column int

const (
	ColOriginatorCountry Column = iota
	ColOriginatorCountryFull
	ColISINCode
	ColIssuerCountry
	ColIssuerCountryFull
	ColCurrency
)

// Get returns the addressed field of r.
func (c Column) Get(r *Row) combo.Value[string] {
	switch c {
	case ColOriginatorCountry:
		return r.OriginatorCountry
	case ColOriginatorCountryFull:
		return r.OriginatorCountryFull
	case ColISINCode:
		return r.ISINCode
	case ColIssuerCountry:
		return r.IssuerCountry
	case ColIssuerCountryFull:
		return r.IssuerCountryFull
	case ColCurrency:
		return r.Currency
	}
	return combo.None[string]()
}

// Set replaces the addressed field of r.
func (c Column) Set(r *Row, v combo.Value[string]) {
	switch c {
	case ColOriginatorCountry:
		r.OriginatorCountry = v
	case ColOriginatorCountryFull:
		r.OriginatorCountryFull = v
	case ColISINCode:
		r.ISINCode = v
	case ColIssuerCountry:
		r.IssuerCountry = v
	case ColIssuerCountryFull:
		r.IssuerCountryFull = v
	case ColCurrency:
		r.Currency = v
	}
}

// FlattenBy expands every row whose value in col is a Combo into one row per
// member: each derived row is a copy with col holding a single member and
// the USI cleared to mark it as a derived duplicate. Rows with a scalar or
// missing value in col pass through untouched, USI intact.
//
// The cleared USI gives downstream counting its dual accounting: derived
// rows are excluded from "count distinct securitisations" but included in
// "count per category", which keeps every other column (date, asset class)
// correctly aligned for cross-tabulation. The input is never mutated.
func FlattenBy(rows []Row, col Column) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		v := col.Get(&r)
		if !v.IsMulti() {
			out = append(out, r)
			continue
		}
		for _, m := range v.Members() {
			derived := r
			col.Set(&derived, combo.Of(m))
			derived.USI = ""
			out = append(out, derived)
		}
	}
	return out
}
