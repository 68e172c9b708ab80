package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/healthportal/internal/config"
	"github.com/healthportal/internal/db"
	"github.com/healthportal/internal/service"
)

func main() {
	cfg := config.Load()

	var driver, dsn, file string
	flag.StringVar(&driver, "driver", cfg.DBDriver, "database driver (sqlite or postgres)")
	flag.StringVar(&dsn, "dsn", cfg.DatabaseURL, "database path or DSN")
	flag.StringVar(&file, "file", "", "xlsx workbook with province, district and sub-district columns")
	flag.Parse()

	if file == "" {
		fmt.Fprintln(os.Stderr, "-file is required")
		os.Exit(2)
	}

	f, err := os.Open(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open workbook: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	rows, err := service.ParseLocationSheet(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse workbook: %v\n", err)
		os.Exit(1)
	}

	gdb, err := db.Open(db.Options{Driver: driver, DSN: dsn})
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer db.Close(gdb)
	if err := db.Migrate(gdb); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	created, err := service.NewLocationService(gdb).Import(rows)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import locations: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("done: %d rows read, %d locations created\n", len(rows), created)
}
