package enrichment

import (
	"context"
	"log"
	"strings"

	"stsdash/combo"
	"stsdash/importer"
	"stsdash/normalization"
	"stsdash/quality"
)

// Enricher joins reference data onto register rows. The ISO table is used
// for the derived issuer-country display column; Overrides default to
// ManualRecords.
type Enricher struct {
	FIRDS     *FIRDSClient
	GLEIF     *GleifClient
	ISO       *importer.ISOCodes
	Overrides map[string]Record
}

// NewEnricher wires an Enricher with the manual override table.
func NewEnricher(firds *FIRDSClient, gleif *GleifClient, iso *importer.ISOCodes) *Enricher {
	return &Enricher{FIRDS: firds, GLEIF: gleif, ISO: iso, Overrides: ManualRecords}
}

// AddIssuerData resolves every ISIN appearing in rows against the FIRDS
// files, attaches GLEIF issuer data and applies the result row by row.
// Unresolved ISINs are reported in one batched warning and their rows keep
// missing issuer fields; they do not fail the run. The input slice is not
// mutated.
func (e *Enricher) AddIssuerData(ctx context.Context, rows []normalization.Row) ([]normalization.Row, error) {
	isinSeries := make([]combo.Value[string], len(rows))
	for i := range rows {
		isinSeries[i] = rows[i].ISINCode
	}
	isins := combo.DistinctMembers(isinSeries)

	data := make(map[string]Record, len(isins))
	if len(isins) > 0 {
		log.Printf("Resolving %d ISINs against FIRDS reference data", len(isins))
		files, err := e.FIRDS.XMLFiles(ctx, false)
		if err != nil {
			return nil, err
		}
		hits, missing, err := e.FIRDS.SearchAll(files, isins)
		if err != nil {
			return nil, err
		}
		data = hits
		if len(missing) > 0 {
			log.Printf("The following ISINs are missing from the FIRDS data: %s", strings.Join(missing, ", "))
		}
	}

	// Hand-maintained records cover known upstream gaps; they win over
	// anything the scan produced.
	for isin, rec := range e.Overrides {
		data[isin] = rec
	}

	if err := e.attachIssuers(ctx, data); err != nil {
		return nil, err
	}

	out := make([]normalization.Row, len(rows))
	for i, r := range rows {
		applyIssuerData(&r, data)
		r.IssuerCountryFull = combo.Replace(r.IssuerCountry, e.ISO.CodeToName)
		out[i] = r
	}
	return out, nil
}

// attachIssuers resolves the distinct issuer LEIs found during
// reconciliation and writes legal name and jurisdiction back onto every
// record sharing each LEI.
func (e *Enricher) attachIssuers(ctx context.Context, data map[string]Record) error {
	leiToISINs := make(map[string][]string)
	for isin, rec := range data {
		if rec.IssuerLEI == "" {
			continue
		}
		if !quality.ValidateLEI(rec.IssuerLEI) {
			log.Printf("Invalid issuer LEI %s for %s (failed mod 97 check)", rec.IssuerLEI, isin)
		}
		leiToISINs[rec.IssuerLEI] = append(leiToISINs[rec.IssuerLEI], isin)
	}
	if len(leiToISINs) == 0 {
		return nil
	}

	leis := make([]string, 0, len(leiToISINs))
	for lei := range leiToISINs {
		leis = append(leis, lei)
	}
	log.Printf("Looking up %d issuers on GLEIF", len(leis))
	entities, err := e.GLEIF.Lookup(ctx, leis)
	if err != nil {
		return err
	}

	for _, entity := range entities {
		jurisdiction := entity.Jurisdiction
		if len(jurisdiction) > 2 {
			log.Printf("Found long issuer country code %s; truncating to first two characters", jurisdiction)
			jurisdiction = jurisdiction[:2]
		}
		for _, isin := range leiToISINs[entity.LEI] {
			rec := data[isin]
			rec.IssuerName = entity.LegalName
			rec.IssuerCountry = jurisdiction
			data[isin] = rec
		}
	}
	return nil
}

// applyIssuerData writes the reference attributes for a row's ISINs onto
// its issuer columns.
//
// A missing ISIN leaves the row untouched. A scalar ISIN without reference
// data is logged and left unset, deliberately the same policy as a Combo
// with no resolvable member: reconciliation already reported it as missing
// and the dashboard treats absent issuer data as "unknown".
//
// For a Combo, each column takes the distinct values across the resolved
// members: one distinct value collapses to a scalar, several become a new
// Combo, none leaves the column unset with a warning naming the row.
func applyIssuerData(r *normalization.Row, data map[string]Record) {
	if r.ISINCode.IsMissing() {
		return
	}

	if isin, ok := r.ISINCode.ScalarValue(); ok {
		rec, found := data[isin]
		if !found {
			log.Printf("No reference data for %s (ISIN %s)", r.SecuritisationName, isin)
			return
		}
		setScalarColumns(r, rec)
		return
	}

	// Multiple ISINs: members without reference data are skipped, which is
	// fine as long as at least one member resolved.
	var resolved []Record
	for _, isin := range r.ISINCode.Members() {
		if rec, found := data[isin]; found {
			resolved = append(resolved, rec)
		}
	}

	r.IssuerLEI = collapseColumn(r, "Issuer LEI", resolved, func(rec Record) (string, bool) {
		return rec.IssuerLEI, rec.IssuerLEI != ""
	})
	r.IssuerName = collapseColumn(r, "Issuer Name", resolved, func(rec Record) (string, bool) {
		return rec.IssuerName, rec.IssuerName != ""
	})
	r.IssuerCountry = collapseColumn(r, "Issuer Country", resolved, func(rec Record) (string, bool) {
		return rec.IssuerCountry, rec.IssuerCountry != ""
	})
	r.Currency = collapseColumn(r, "Currency", resolved, func(rec Record) (string, bool) {
		return rec.Currency, rec.Currency != ""
	})
	r.CompetentAuthority = collapseColumn(r, "Competent Authority", resolved, func(rec Record) (string, bool) {
		return rec.CompetentAuthority, rec.CompetentAuthority != ""
	})
	r.NominalAmount = collapseAmounts(r, resolved)
}

func setScalarColumns(r *normalization.Row, rec Record) {
	if rec.IssuerLEI != "" {
		r.IssuerLEI = combo.Of(rec.IssuerLEI)
	}
	if rec.IssuerName != "" {
		r.IssuerName = combo.Of(rec.IssuerName)
	}
	if rec.IssuerCountry != "" {
		r.IssuerCountry = combo.Of(rec.IssuerCountry)
	}
	if rec.Currency != "" {
		r.Currency = combo.Of(rec.Currency)
	}
	if rec.CompetentAuthority != "" {
		r.CompetentAuthority = combo.Of(rec.CompetentAuthority)
	}
	if rec.NominalAmount.Currency != "" {
		r.NominalAmount = combo.Of(rec.NominalAmount)
	}
}

// collapseColumn gathers the distinct values one attribute takes across the
// resolved records and collapses them per the enrichment rule.
func collapseColumn(r *normalization.Row, column string, resolved []Record, get func(Record) (string, bool)) combo.Value[string] {
	distinct := make(map[string]struct{})
	for _, rec := range resolved {
		if v, ok := get(rec); ok {
			distinct[v] = struct{}{}
		}
	}
	switch len(distinct) {
	case 0:
		log.Printf("Could not find %s for %s", column, r.SecuritisationName)
		return combo.None[string]()
	case 1:
		for v := range distinct {
			return combo.Of(v)
		}
	}
	values := make([]string, 0, len(distinct))
	for v := range distinct {
		values = append(values, v)
	}
	return combo.NewCombo(values...)
}

func collapseAmounts(r *normalization.Row, resolved []Record) combo.Value[combo.Amount] {
	distinct := make(map[combo.Amount]struct{})
	for _, rec := range resolved {
		if rec.NominalAmount.Currency != "" {
			distinct[rec.NominalAmount] = struct{}{}
		}
	}
	switch len(distinct) {
	case 0:
		log.Printf("Could not find Nominal Amount for %s", r.SecuritisationName)
		return combo.None[combo.Amount]()
	case 1:
		for v := range distinct {
			return combo.Of(v)
		}
	}
	values := make([]combo.Amount, 0, len(distinct))
	for v := range distinct {
		values = append(values, v)
	}
	return combo.NewCombo(values...)
}
