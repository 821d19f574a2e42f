package main

import (
	"flag"
	"log"
	"strings"
	"time"

	"exam_router/pkg/api"
	"exam_router/pkg/engine"
	"exam_router/pkg/osm"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	corsOrigin := flag.String("cors-origin", "*", "CORS allowed origin (empty = same-origin)")
	workers := flag.Int("workers", 0, "Concurrent per-centre Dijkstra runs (0 = one per centre)")
	overpass := flag.String("overpass", "", "Comma-separated Overpass endpoints (empty = defaults)")
	fetchTimeout := flag.Duration("fetch-timeout", 60*time.Second, "Map fetch timeout")
	flag.Parse()

	client := osm.NewClient()
	client.HTTPClient.Timeout = *fetchTimeout
	if *overpass != "" {
		client.Endpoints = strings.Split(*overpass, ",")
	}

	eng := engine.New(engine.Config{
		Source:  client,
		Workers: *workers,
	})

	cfg := api.DefaultConfig(*addr)
	cfg.CORSOrigin = *corsOrigin

	srv := api.NewServer(cfg, api.NewHandlers(eng))
	if err := api.ListenAndServe(srv); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
