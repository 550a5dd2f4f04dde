package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/garnizeh/cddrecords/internal/config"
	"github.com/garnizeh/cddrecords/internal/db"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config YAML file")
		group      = flag.String("group", config.GroupCurrent, "Store group to restore (current or legacy)")
		src        = flag.String("from", "", "Snapshot written by db_backup")
	)
	flag.Parse()

	if *src == "" {
		fmt.Fprintln(os.Stderr, "Restore error: -from is required")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	var store config.DBConfig
	switch *group {
	case config.GroupCurrent:
		store = cfg.Stores.Current
	case config.GroupLegacy:
		store = cfg.Stores.Legacy
	default:
		fmt.Fprintf(os.Stderr, "Restore error: unknown group %q\n", *group)
		os.Exit(1)
	}
	if store.Driver != string(db.DriverSQLite) {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", db.ErrBackupUnsupported)
		os.Exit(1)
	}

	if err := db.Restore(*src, store.DSN); err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Database restore completed.")
}
