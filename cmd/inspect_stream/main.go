package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"streamdoc-engine/internal/config"
	"streamdoc-engine/internal/repository/implementation"
	"streamdoc-engine/internal/repository/specification"
	"streamdoc-engine/pkg/database"
	"streamdoc-engine/pkg/markup"
)

// Prints a stream's cells in document order with their hydrated content,
// for eyeballing reconciliation problems straight from the database.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: inspect_stream <stream-id>")
	}
	streamId, err := uuid.Parse(os.Args[1])
	if err != nil {
		log.Fatalf("invalid stream id: %v", err)
	}

	cfg := config.Load()
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	cellRepo := implementation.NewCellRepository(gormDB)
	cells, err := cellRepo.FindAll(context.Background(),
		specification.ByStreamID{StreamID: streamId},
		specification.OrderBy{Field: "cell_order"},
	)
	if err != nil {
		log.Fatalf("failed to load cells: %v", err)
	}

	header := color.New(color.FgCyan, color.Bold)
	meta := color.New(color.FgYellow)
	warn := color.New(color.FgRed)

	header.Printf("Stream %s — %d cells\n\n", streamId, len(cells))

	expectedOrder := 0
	for _, cell := range cells {
		meta.Printf("[%d] %s  type=%s", cell.Order, cell.Id, cell.Type)
		if cell.BlockName != "" {
			meta.Printf("  block=%s", cell.BlockName)
		}
		fmt.Println()

		if cell.Order != expectedOrder {
			warn.Printf("    !! order gap: expected %d\n", expectedOrder)
		}
		expectedOrder = cell.Order + 1

		kind, inline := markup.HydrateCell(cell.Content)
		fmt.Printf("    kind=%s\n", kind)
		fmt.Printf("    %s\n\n", markup.SerializeMarkdown(inline))
	}
}
