// Command build_snapshot builds the enriched dataset from the live sources
// and stores it as a snapshot, so the server can start without touching the
// network.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"stsdash/database"
	"stsdash/enrichment"
	"stsdash/importer"
	"stsdash/internal/config"
	"stsdash/pipeline"
)

func main() {
	configPath := flag.String("config", "", "path to JSON config file")
	toDate := flag.String("to", "", "window end date (YYYY-MM-DD, default today)")
	keep := flag.Int("keep", 5, "snapshots to keep after pruning")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := database.OpenSnapshotStore(cfg.SnapshotDBPath)
	if err != nil {
		log.Fatalf("Failed to open snapshot store: %v", err)
	}
	defer store.Close()

	client := &http.Client{Timeout: cfg.HTTPTimeout}
	firds, err := enrichment.NewFIRDSClient(cfg.FIRDSQueryURL, cfg.DataDir+"/firds", client)
	if err != nil {
		log.Fatalf("Failed to set up FIRDS client: %v", err)
	}
	gleif := enrichment.NewGleifClient(cfg.GleifURL, client, 24*time.Hour)
	gleif.BatchSize = cfg.GleifBatchSize

	iso, err := importer.LoadISOCodes(cfg.DataDir + "/" + pipeline.ISOFile)
	if err != nil {
		log.Fatalf("Failed to load ISO code table: %v", err)
	}

	builder := pipeline.NewBuilder(cfg, client, enrichment.NewEnricher(firds, gleif, iso))
	if *toDate != "" {
		to, err := time.Parse("2006-01-02", *toDate)
		if err != nil {
			log.Fatalf("Invalid -to date %q: %v", *toDate, err)
		}
		builder.To = to
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rows, err := builder.BuildRows(ctx)
	if err != nil {
		log.Fatalf("Build failed: %v", err)
	}

	id, err := store.Save(rows)
	if err != nil {
		log.Fatalf("Failed to save snapshot: %v", err)
	}
	log.Printf("Saved snapshot %s with %d rows", id, len(rows))

	if err := store.Prune(*keep); err != nil {
		log.Fatalf("Failed to prune old snapshots: %v", err)
	}
}
