package main

import (
	"log"

	"streamdoc-engine/internal/config"
	"streamdoc-engine/internal/model"
	"streamdoc-engine/pkg/database"
)

func main() {
	cfg := config.Load()

	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	log.Println("Running migrations...")
	err = gormDB.AutoMigrate(
		&model.Stream{},
		&model.Cell{},
	)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migrations complete")
}
