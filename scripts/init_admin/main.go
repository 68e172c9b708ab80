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

	var (
		driver      string
		dsn         string
		username    string
		password    string
		name        string
		province    string
		district    string
		subDistrict string
	)
	flag.StringVar(&driver, "driver", cfg.DBDriver, "database driver (sqlite or postgres)")
	flag.StringVar(&dsn, "dsn", cfg.DatabaseURL, "database path or DSN")
	flag.StringVar(&username, "username", "admin", "admin username")
	flag.StringVar(&password, "password", os.Getenv("ADMIN_PASSWORD"), "admin password, at least 8 characters")
	flag.StringVar(&name, "name", "Administrator", "display name")
	flag.StringVar(&province, "province", "", "province of the admin's home location")
	flag.StringVar(&district, "district", "", "district of the admin's home location")
	flag.StringVar(&subDistrict, "subdistrict", "", "sub-district of the admin's home location")
	flag.Parse()

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

	locations := service.NewLocationService(gdb)
	loc, err := locations.FindOrCreate(service.LocationRow{Province: province, District: district, SubDistrict: subDistrict})
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve location: %v\n", err)
		os.Exit(1)
	}

	auth := service.NewAuthService(gdb, locations)
	user, err := auth.CreateAdmin(username, password, name, loc.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create admin: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("admin %q created (id %d) at %s\n", user.Username, user.ID, loc.Label())
}
