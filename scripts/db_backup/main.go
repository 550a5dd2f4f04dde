package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/garnizeh/cddrecords/internal/config"
	"github.com/garnizeh/cddrecords/internal/db"
	"github.com/garnizeh/cddrecords/internal/routing"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config YAML file")
		outDir     = flag.String("out", ".", "Directory receiving the snapshots")
	)
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	// the document store is backed up with mongodump
	cfg.Stores.Document.Enabled = false

	reg, err := routing.Open(ctx, cfg, nil, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Store init error: %v\n", err)
		os.Exit(1)
	}
	defer reg.Close(ctx)

	stamp := time.Now().UTC().Format("20060102T150405Z")
	for _, g := range reg.Groups() {
		d, err := reg.Relational(g)
		if err != nil {
			continue
		}
		dst := fmt.Sprintf("%s/%s-%s.db", *outDir, g, stamp)
		if err := db.Backup(ctx, d, dst); err != nil {
			if errors.Is(err, db.ErrBackupUnsupported) {
				fmt.Printf("Skipping %s store: %v\n", g, err)
				continue
			}
			fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Backed up %s store to %s\n", g, dst)
	}

	fmt.Println("Database backup completed.")
}
