// Package main is a one-time CLI for loading a product catalog CSV into
// MongoDB (SPEC_FULL component C1a).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/fashion-reco/reco-engine/internal/catalog"
	"github.com/fashion-reco/reco-engine/internal/config"
	"github.com/fashion-reco/reco-engine/internal/logging"
	"github.com/fashion-reco/reco-engine/internal/storage/mongostore"
)

func main() {
	path := flag.String("file", "", "path to the product catalog CSV")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "catalog-loader: -file is required")
		os.Exit(1)
	}

	cfg := config.Load()
	log := logging.Default("catalog-loader")

	ctx := context.Background()
	store, err := mongostore.NewStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.WithError(err).Error("connecting to MongoDB failed")
		os.Exit(1)
	}
	defer store.Close(ctx)

	f, err := os.Open(*path)
	if err != nil {
		log.WithError(err).Error("opening catalog file failed")
		os.Exit(1)
	}
	defer f.Close()

	count, err := catalog.LoadCSV(ctx, store, f)
	if err != nil {
		log.WithError(err).Error("loading catalog failed", "loaded_so_far", count)
		os.Exit(1)
	}

	log.Info("catalog loaded", "rows", count)
}
