package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/garnizeh/cddrecords/internal/config"
	"github.com/garnizeh/cddrecords/internal/repository/document"
	"github.com/garnizeh/cddrecords/internal/routing"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	reg, err := routing.Open(ctx, cfg, nil, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Store init error: %v\n", err)
		os.Exit(1)
	}
	defer reg.Close(ctx)

	// migrations for every bound relational store, schema seeds for current
	if err := reg.Migrate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Migration runner error: %v\n", err)
		os.Exit(1)
	}

	if reg.DocumentEnabled() {
		docs, err := document.New(reg, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Document store error: %v\n", err)
			os.Exit(1)
		}
		if err := docs.EnsureIndexes(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Index creation error: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("Stores initialized successfully.")
}
