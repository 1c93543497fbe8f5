package enrichment

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stsdash/combo"
	"stsdash/importer"
	"stsdash/normalization"
)

func testISO() *importer.ISOCodes {
	return &importer.ISOCodes{
		CodeToName: map[string]string{"IE": "Ireland", "GB": "United Kingdom", "FR": "France"},
		NameToCode: map[string]string{"Ireland": "IE", "United Kingdom": "GB", "France": "FR"},
	}
}

func TestApplyIssuerDataScalar(t *testing.T) {
	data := map[string]Record{
		"XS0000000001": {
			Currency:           "EUR",
			IssuerLEI:          "LEIAAAAAAAAAAAAAAA01",
			CompetentAuthority: "IE",
			IssuerName:         "Some DAC",
			IssuerCountry:      "IE",
			NominalAmount:      combo.Amount{Currency: "EUR", Value: 5},
		},
	}
	r := normalization.Row{USI: "STS-1", ISINCode: combo.Of("XS0000000001")}
	applyIssuerData(&r, data)

	assert.True(t, combo.Of("EUR").Equal(r.Currency))
	assert.True(t, combo.Of("LEIAAAAAAAAAAAAAAA01").Equal(r.IssuerLEI))
	assert.True(t, combo.Of("IE").Equal(r.CompetentAuthority))
	assert.True(t, combo.Of("Some DAC").Equal(r.IssuerName))
	assert.True(t, combo.Of("IE").Equal(r.IssuerCountry))
	assert.True(t, combo.Of(combo.Amount{Currency: "EUR", Value: 5}).Equal(r.NominalAmount))
}

func TestApplyIssuerDataScalarUnresolvedLeavesRowUnset(t *testing.T) {
	r := normalization.Row{USI: "STS-1", SecuritisationName: "Orphan", ISINCode: combo.Of("XS0000000009")}
	applyIssuerData(&r, map[string]Record{})

	assert.True(t, r.Currency.IsMissing())
	assert.True(t, r.IssuerLEI.IsMissing())
	assert.Equal(t, "STS-1", r.USI)
}

func TestApplyIssuerDataMissingISINUntouched(t *testing.T) {
	r := normalization.Row{USI: "STS-1"}
	applyIssuerData(&r, map[string]Record{"XS1": {Currency: "EUR"}})
	assert.True(t, r.Currency.IsMissing())
}

// A Combo of three ISINs where two resolve to the same jurisdiction and one
// is unresolved collapses to a scalar, not a Combo.
func TestApplyIssuerDataCollapseToScalar(t *testing.T) {
	data := map[string]Record{
		"XS0000000001": {Currency: "EUR", IssuerLEI: "LEI1", CompetentAuthority: "IE", IssuerCountry: "IE"},
		"XS0000000002": {Currency: "EUR", IssuerLEI: "LEI1", CompetentAuthority: "IE", IssuerCountry: "IE"},
	}
	r := normalization.Row{
		USI:      "STS-1",
		ISINCode: combo.NewCombo("XS0000000001", "XS0000000002", "XS0000000003"),
	}
	applyIssuerData(&r, data)

	assert.True(t, combo.Of("IE").Equal(r.IssuerCountry))
	assert.False(t, r.IssuerCountry.IsMulti())
	assert.True(t, combo.Of("EUR").Equal(r.Currency))
}

func TestApplyIssuerDataDivergentValuesBecomeCombo(t *testing.T) {
	data := map[string]Record{
		"XS0000000001": {Currency: "EUR", IssuerLEI: "LEI1", CompetentAuthority: "IE",
			NominalAmount: combo.Amount{Currency: "EUR", Value: 100}},
		"XS0000000002": {Currency: "GBP", IssuerLEI: "LEI2", CompetentAuthority: "GB",
			NominalAmount: combo.Amount{Currency: "GBP", Value: 200}},
	}
	r := normalization.Row{
		USI:      "STS-1",
		ISINCode: combo.NewCombo("XS0000000001", "XS0000000002"),
	}
	applyIssuerData(&r, data)

	assert.True(t, combo.NewCombo("EUR", "GBP").Equal(r.Currency))
	assert.True(t, combo.NewCombo("LEI1", "LEI2").Equal(r.IssuerLEI))
	assert.True(t, combo.NewCombo(
		combo.Amount{Currency: "EUR", Value: 100},
		combo.Amount{Currency: "GBP", Value: 200},
	).Equal(r.NominalAmount))
}

func TestApplyIssuerDataNoResolvableMembers(t *testing.T) {
	r := normalization.Row{
		USI:                "STS-1",
		SecuritisationName: "Orphan Deal",
		ISINCode:           combo.NewCombo("XS0000000008", "XS0000000009"),
	}
	applyIssuerData(&r, map[string]Record{})

	assert.True(t, r.Currency.IsMissing())
	assert.True(t, r.IssuerCountry.IsMissing())
	assert.True(t, r.NominalAmount.IsMissing())
}

func TestAddIssuerDataEndToEnd(t *testing.T) {
	firds := newTestFIRDS(t)
	writeRefFile(t, firds.DataDir, "ref.xml",
		refFixture{ISIN: "XS0000000001", Currency: "EUR", IssuerLEI: "LEIAAAAAAAAAAAAAAA01", Amount: 1000000, RCA: "IE"},
		refFixture{ISIN: "XS0000000002", Currency: "EUR", IssuerLEI: "LEIAAAAAAAAAAAAAAA01", Amount: 500000, RCA: "IE"},
	)

	var requests [][]string
	gleif := newTestGleif(t, &requests)

	e := NewEnricher(firds, gleif, testISO())
	rows := []normalization.Row{
		{USI: "STS-1", ISINCode: combo.NewCombo("XS0000000001", "XS0000000002")},
		{USI: "STS-2", ISINCode: combo.Of("XS2104129486")}, // manual override record
		{USI: "STS-3"},                                     // no ISIN, passes through
	}

	out, err := e.AddIssuerData(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, out, 3)

	// Row 1: both members share issuer and jurisdiction, amounts differ.
	assert.True(t, combo.Of("LEIAAAAAAAAAAAAAAA01").Equal(out[0].IssuerLEI))
	assert.True(t, combo.Of("IE").Equal(out[0].IssuerCountry))
	assert.True(t, combo.Of("Ireland").Equal(out[0].IssuerCountryFull))
	assert.True(t, out[0].NominalAmount.IsMulti())

	// Row 2 resolves through the manual override table, then GLEIF.
	assert.True(t, combo.Of("GBP").Equal(out[1].Currency))
	assert.True(t, combo.Of("IE").Equal(out[1].CompetentAuthority))
	assert.True(t, combo.Of("Issuer 6354003OBLBBE5CKB866").Equal(out[1].IssuerName))

	// Row 3 untouched.
	assert.True(t, out[2].Currency.IsMissing())

	// Input rows were not mutated.
	assert.True(t, rows[0].IssuerLEI.IsMissing())
}

func TestAddIssuerDataTruncatesLongJurisdiction(t *testing.T) {
	firds := newTestFIRDS(t)
	writeRefFile(t, firds.DataDir, "ref.xml",
		refFixture{ISIN: "XS0000000001", Currency: "EUR", IssuerLEI: "LEIAAAAAAAAAAAAAAA01", Amount: 1, RCA: "IE"},
	)

	gleif := newTestGleifWithJurisdiction(t, "IE-L") // sub-national code
	e := NewEnricher(firds, gleif, testISO())
	e.Overrides = nil

	rows := []normalization.Row{{USI: "STS-1", ISINCode: combo.Of("XS0000000001")}}
	out, err := e.AddIssuerData(context.Background(), rows)
	require.NoError(t, err)
	assert.True(t, combo.Of("IE").Equal(out[0].IssuerCountry))
}

func newTestGleifWithJurisdiction(t *testing.T, jurisdiction string) *GleifClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lei := r.URL.Query().Get("lei")
		fmt.Fprintf(w,
			`[{"LEI":{"$":"%s"},"Entity":{"LegalName":{"$":"Issuer %s"},"LegalJurisdiction":{"$":"%s"}}}]`,
			lei, lei, jurisdiction)
	}))
	t.Cleanup(srv.Close)
	g := NewGleifClient(srv.URL+"?lei=", srv.Client(), time.Minute)
	g.limiter.SetLimit(1000)
	return g
}
