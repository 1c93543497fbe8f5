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
	"stsdash/server"
)

func main() {
	configPath := flag.String("config", "", "path to JSON config file")
	rebuild := flag.Bool("rebuild", false, "rebuild the dataset even if a snapshot exists")
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

	builder, err := newBuilder(cfg)
	if err != nil {
		log.Fatalf("Failed to wire pipeline: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dataset, err := builder.Load(ctx, store, *rebuild)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}
	log.Printf("Serving %d rows built at %s", len(dataset.Rows), dataset.BuiltAt.Format(time.RFC3339))

	srv := server.New(cfg, dataset)
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func newBuilder(cfg *config.Config) (*pipeline.Builder, error) {
	client := &http.Client{Timeout: cfg.HTTPTimeout}

	firds, err := enrichment.NewFIRDSClient(cfg.FIRDSQueryURL, cfg.DataDir+"/firds", client)
	if err != nil {
		return nil, err
	}
	gleif := enrichment.NewGleifClient(cfg.GleifURL, client, 24*time.Hour)
	gleif.BatchSize = cfg.GleifBatchSize

	iso, err := importer.LoadISOCodes(cfg.DataDir + "/" + pipeline.ISOFile)
	if err != nil {
		return nil, err
	}

	enricher := enrichment.NewEnricher(firds, gleif, iso)
	return pipeline.NewBuilder(cfg, client, enricher), nil
}
