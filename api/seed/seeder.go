package seed

import (
	"context"
	"fmt"
	"log/slog"

	"SongBracket/api/catalog"
	"SongBracket/api/models"
)

var demoSongs = []models.Song{
	{Title: "Paper Lanterns", OriginalSong: "Lanterns"},
	{Title: "Midnight Ferry", OriginalSong: "Ferry Song"},
	{Title: "Glass Harbor", OriginalSong: "Harbor Lights"},
	{Title: "Copper Sky", OriginalSong: "Sky Blue"},
	{Title: "Wild Clover", OriginalSong: "Clover Field"},
	{Title: "Northbound", OriginalSong: "Southbound"},
	{Title: "Velvet Static", OriginalSong: "Static"},
	{Title: "Salt and Cedar", OriginalSong: "Cedar Grove"},
	{Title: "Low Tide Waltz", OriginalSong: "Tide Waltz"},
	{Title: "Orchard Radio", OriginalSong: "Radio Days"},
	{Title: "Slow Comet", OriginalSong: "Comet"},
	{Title: "Borrowed Summer", OriginalSong: "Summer Again"},
}

// Load inserts the demo catalog when it is empty, or always when force is
// set. It returns how many songs were created.
func Load(ctx context.Context, store *catalog.Store, force bool, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !force {
		count, err := store.Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("count songs: %w", err)
		}
		if count > 0 {
			logger.Info("catalog already populated, skipping seed",
				"event", "seed_skipped",
				"module", "seed",
				"songs", count,
			)
			return 0, nil
		}
	}

	created := 0
	for _, tmpl := range demoSongs {
		song := tmpl
		if err := store.Create(ctx, &song); err != nil {
			return created, fmt.Errorf("seed song %q: %w", tmpl.Title, err)
		}
		created++
	}
	logger.Info("seeded demo songs",
		"event", "seed_completed",
		"module", "seed",
		"songs", created,
	)
	return created, nil
}
