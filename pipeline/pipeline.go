// Package pipeline orchestrates the dataset build: fetch the ESMA register,
// clean it, reconcile against FIRDS, resolve issuers on GLEIF and persist
// the result as a snapshot for the dashboard to serve.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"stsdash/database"
	"stsdash/enrichment"
	"stsdash/importer"
	"stsdash/internal/config"
	"stsdash/normalization"
)

// Reference-data file names under the data dir. The register is fetched; the
// rest ship with the deployment.
const (
	RegisterFile = "securitisations_designated_as_sts.xlsx"
	ISOFile      = "wikipedia-iso-country-codes.csv"
	GDPFile      = "gdp_main_aggregates.xlsx"
	GeoFile      = "europe.geojson"
)

// FXFiles maps each non-EUR reporting currency to its ECB reference-rate
// series file under the data dir.
var FXFiles = map[string]string{
	"GBP": "gbp_eur_rates.xml",
	"USD": "usd_eur_rates.xml",
	"SEK": "sek_eur_rates.xml",
	"CHF": "chf_eur_rates.xml",
}

// Builder runs the dataset build. RegisterPath, when set, points at an
// already-downloaded register file and skips the fetch.
type Builder struct {
	Config       *config.Config
	Client       *http.Client
	Enricher     *enrichment.Enricher
	RegisterPath string

	// Window passed to Between; zero values take the defaults.
	From, To time.Time
}

// Dataset is a built, enriched dataset plus the reference tables the
// dashboard aggregates against.
type Dataset struct {
	Rows    []normalization.Row
	BuiltAt time.Time

	ISO     *importer.ISOCodes
	GDP     map[string]float64
	FXRates map[string]float64
	FXDate  time.Time
	Map     *importer.MapData
}

// NewBuilder wires a Builder from config.
func NewBuilder(cfg *config.Config, client *http.Client, enricher *enrichment.Enricher) *Builder {
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &Builder{Config: cfg, Client: client, Enricher: enricher}
}

// FetchRegister locates the current register spreadsheet on the ESMA page
// and downloads it into the data dir, returning the local path. An existing
// download is reused unless force is set.
func (b *Builder) FetchRegister(ctx context.Context, force bool) (string, error) {
	dest := filepath.Join(b.Config.DataDir, RegisterFile)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.Config.RegisterPageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build register page request: %w", err)
	}
	resp, err := b.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch register page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("register page: unexpected status %s", resp.Status)
	}

	url, err := importer.FindRegisterURL(resp.Body)
	if err != nil {
		return "", err
	}
	return importer.FetchFile(ctx, b.Client, dest, url, force)
}

// BuildRows produces the cleaned, enriched row set from the register.
func (b *Builder) BuildRows(ctx context.Context) ([]normalization.Row, error) {
	registerPath := b.RegisterPath
	if registerPath == "" {
		p, err := b.FetchRegister(ctx, false)
		if err != nil {
			return nil, err
		}
		registerPath = p
	}

	raw, err := importer.LoadRegister(registerPath)
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded %d register rows from %s", len(raw), registerPath)

	iso, err := importer.LoadISOCodes(filepath.Join(b.Config.DataDir, ISOFile))
	if err != nil {
		return nil, err
	}

	rows := normalization.NewCleaner(iso).Clean(normalization.FromRaw(raw))
	rows = normalization.Between(rows, b.From, b.To)

	if b.Enricher == nil {
		log.Printf("No enricher configured; skipping issuer enrichment")
		return rows, nil
	}
	return b.Enricher.AddIssuerData(ctx, rows)
}

// Load returns the dataset to serve: the latest snapshot if one exists, or a
// fresh build (persisted to store) otherwise. Force always rebuilds.
// Reference tables are loaded from the data dir either way.
func (b *Builder) Load(ctx context.Context, store *database.SnapshotStore, force bool) (*Dataset, error) {
	var rows []normalization.Row
	var builtAt time.Time

	if !force {
		snap, err := store.Latest()
		switch {
		case err == nil:
			log.Printf("Loaded snapshot %s built at %s", snap.ID, snap.BuiltAt.Format(time.RFC3339))
			rows, builtAt = snap.Rows, snap.BuiltAt
		case errors.Is(err, database.ErrNoSnapshot):
			log.Printf("No snapshot found; building dataset from sources")
		default:
			return nil, err
		}
	}

	if rows == nil {
		built, err := b.BuildRows(ctx)
		if err != nil {
			return nil, err
		}
		id, err := store.Save(built)
		if err != nil {
			return nil, err
		}
		log.Printf("Saved snapshot %s (%d rows)", id, len(built))
		rows, builtAt = built, time.Now().UTC()
	}

	ds := &Dataset{Rows: rows, BuiltAt: builtAt}
	if err := b.loadReference(ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// loadReference fills the aggregation tables. GDP, FX and map data are
// optional: a missing file is logged and its views degrade, it does not stop
// the dashboard.
func (b *Builder) loadReference(ds *Dataset) error {
	iso, err := importer.LoadISOCodes(filepath.Join(b.Config.DataDir, ISOFile))
	if err != nil {
		return err
	}
	ds.ISO = iso

	if gdp, err := importer.LoadGDP(filepath.Join(b.Config.DataDir, GDPFile), "2019"); err != nil {
		log.Printf("GDP data unavailable: %v", err)
	} else {
		ds.GDP = gdp
	}

	fxPaths := make(map[string]string, len(FXFiles))
	for ccy, name := range FXFiles {
		fxPaths[ccy] = filepath.Join(b.Config.DataDir, name)
	}
	if rates, date, err := importer.LoadFXRates(fxPaths, time.Time{}); err != nil {
		log.Printf("FX rates unavailable: %v", err)
	} else {
		ds.FXRates, ds.FXDate = rates, date
	}

	if m, err := importer.LoadMapData(filepath.Join(b.Config.DataDir, GeoFile)); err != nil {
		log.Printf("Map data unavailable: %v", err)
	} else {
		ds.Map = m
	}
	return nil
}
