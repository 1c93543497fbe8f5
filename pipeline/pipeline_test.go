package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"stsdash/combo"
	"stsdash/database"
	"stsdash/enrichment"
	"stsdash/importer"
	"stsdash/internal/config"
)

// writeRegister creates a register spreadsheet with the real header layout:
// ten rows of title matter, headers, then data.
func writeRegister(t *testing.T, dir string, rows [][]string) string {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"Unique Securitisation Identifier", "Securitisation Name", "Notification date to ESMA",
		"Originator Country", "ISIN code", "Private or Public", "Underlying assets", "ABCP  status",
	}
	require.NoError(t, f.SetSheetRow(sheet, "A11", &headers))
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", 12+i)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(dir, RegisterFile)
	require.NoError(t, f.SaveAs(path))
	return path
}

func writeISOTable(t *testing.T, dir string) {
	t.Helper()
	csv := "Code,Name\nDE,Germany\nGB,United Kingdom\nIE,Ireland\nFR,France\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ISOFile), []byte(csv), 0o644))
}

func writeFIRDSFixture(t *testing.T, dir string) {
	t.Helper()
	xml := `<?xml version="1.0" encoding="UTF-8"?>
<BizData xmlns="urn:iso:std:iso:20022:tech:xsd:head.003.001.01">
<Pyld><Document xmlns="urn:iso:std:iso:20022:tech:xsd:auth.017.001.02">
<FinInstrmRptgRefDataRpt>
<RefData>
<FinInstrmGnlAttrbts><Id>XS1234567896</Id><NtnlCcy>EUR</NtnlCcy></FinInstrmGnlAttrbts>
<Issr>LEIAAAAAAAAAAAAAAA01</Issr>
<DebtInstrmAttrbts><TtlIssdNmnlAmt>1000000</TtlIssdNmnlAmt></DebtInstrmAttrbts>
<TechAttrbts><RlvntCmptntAuthrty>IE</RlvntCmptntAuthrty></TechAttrbts>
</RefData>
</FinInstrmRptgRefDataRpt></Document></Pyld></BizData>`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "firds", "fulins.xml"), []byte(xml), 0o644))
}

func newTestEnricher(t *testing.T, dataDir string) *enrichment.Enricher {
	t.Helper()
	firdsDir := filepath.Join(dataDir, "firds")
	firds, err := enrichment.NewFIRDSClient(enrichment.DefaultFIRDSQueryURL, firdsDir, nil)
	require.NoError(t, err)
	writeFIRDSFixture(t, dataDir)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lei := r.URL.Query().Get("lei")
		fmt.Fprintf(w,
			`[{"LEI":{"$":"%s"},"Entity":{"LegalName":{"$":"Test DAC"},"LegalJurisdiction":{"$":"IE"}}}]`,
			lei)
	}))
	t.Cleanup(srv.Close)
	gleif := enrichment.NewGleifClient(srv.URL+"?lei=", srv.Client(), time.Minute)

	iso, err := importer.LoadISOCodes(filepath.Join(dataDir, ISOFile))
	require.NoError(t, err)
	e := enrichment.NewEnricher(firds, gleif, iso)
	e.Overrides = nil
	return e
}

func newTestBuilder(t *testing.T) (*Builder, string) {
	t.Helper()
	dir := t.TempDir()
	writeISOTable(t, dir)

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.DataDir = dir
	cfg.SnapshotDBPath = filepath.Join(dir, "snapshots.db")

	b := NewBuilder(cfg, nil, newTestEnricher(t, dir))
	return b, dir
}

func TestBuildRowsEndToEnd(t *testing.T) {
	b, dir := newTestBuilder(t)
	b.RegisterPath = writeRegister(t, dir, [][]string{
		{"STS-1", "Deal One", "15/01/2020", "UK, Germany", "XS1234567896", "Public", "Auto loans", "Non-ABCP transaction"},
		{"STS-2", "Deal Two", "20/01/2020", "FR", "", "Publc", "trade receivables", "ABCP transaction"},
	})

	rows, err := b.BuildRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "STS-1", first.USI)
	assert.True(t, combo.NewCombo("GB", "DE").Equal(first.OriginatorCountry))
	assert.Equal(t, "auto loans / leases", first.UnderlyingAssets)
	assert.Equal(t, "Non ABCP", first.ABCPStatus)
	// Issuer data joined from the reference fixture and GLEIF.
	assert.True(t, combo.Of("EUR").Equal(first.Currency))
	assert.True(t, combo.Of("Test DAC").Equal(first.IssuerName))
	assert.True(t, combo.Of("IE").Equal(first.IssuerCountry))
	assert.True(t, combo.Of("Ireland").Equal(first.IssuerCountryFull))

	second := rows[1]
	assert.Equal(t, "Public", second.PrivateOrPublic)
	assert.True(t, second.ISINCode.IsMissing())
	assert.True(t, second.Currency.IsMissing())
}

func TestBuildRowsAppliesWindow(t *testing.T) {
	b, dir := newTestBuilder(t)
	b.RegisterPath = writeRegister(t, dir, [][]string{
		{"STS-1", "Early", "15/01/2020", "DE", "", "Public", "auto loans / leases", "Non ABCP"},
		{"STS-2", "Late", "15/06/2020", "DE", "", "Public", "auto loans / leases", "Non ABCP"},
	})
	b.To = time.Date(2020, time.March, 31, 0, 0, 0, 0, time.UTC)

	rows, err := b.BuildRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "STS-1", rows[0].USI)
}

func TestLoadBuildsThenServesSnapshot(t *testing.T) {
	b, dir := newTestBuilder(t)
	registerPath := writeRegister(t, dir, [][]string{
		{"STS-1", "Deal One", "15/01/2020", "DE", "", "Public", "auto loans / leases", "Non ABCP"},
	})
	b.RegisterPath = registerPath

	store, err := database.OpenSnapshotStore(b.Config.SnapshotDBPath)
	require.NoError(t, err)
	defer store.Close()

	ds, err := b.Load(context.Background(), store, false)
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)
	require.NotNil(t, ds.ISO)
	assert.Equal(t, "Germany", ds.ISO.CodeToName["DE"])

	// Remove the register; a second Load must come from the snapshot.
	require.NoError(t, os.Remove(registerPath))
	ds2, err := b.Load(context.Background(), store, false)
	require.NoError(t, err)
	assert.Len(t, ds2.Rows, 1)
	assert.Equal(t, "STS-1", ds2.Rows[0].USI)

	// A forced load rebuilds and fails without the register.
	_, err = b.Load(context.Background(), store, true)
	assert.Error(t, err)
}
