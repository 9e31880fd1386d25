package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"eventhub/internal/crawler"
	"eventhub/internal/geo"
	"eventhub/internal/ingest"
	"eventhub/internal/pipeline"
	"eventhub/pkg/database"
	"eventhub/pkg/utils"
)

func main() {
	limit := flag.Int("limit", 0, "max detail pages per slug (0 = no limit)")
	flag.Parse()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	srvCfg := utils.LoadServerConfig()
	geoCfg := utils.LoadGeoConfig()

	orch := pipeline.New(
		crawler.BySlug(nil),
		ingest.NewEngine(db),
		geo.New(geo.Config{
			Enabled:       geoCfg.Enabled,
			Provider:      geoCfg.Provider,
			AllowFallback: geoCfg.AllowFallback,
			NominatimURL:  geoCfg.NominatimURL,
			PhotonURL:     geoCfg.PhotonURL,
		}),
		pipeline.NewReportStore(srvCfg.ReportDir),
		nil,
	)

	slugs := flag.Args()
	if len(slugs) == 0 {
		slugs = orch.Slugs()
	}

	summary, err := orch.RunBatch(context.Background(), slugs, *limit)
	if err != nil {
		log.Fatalf("batch run failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(summary)
}
