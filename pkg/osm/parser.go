package osm

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/paulmach/osm"
)

// NodeCoord is a raw map vertex: an externally assigned id with its position.
type NodeCoord struct {
	ID  int64
	Lat float64
	Lon float64
}

// Way is one routable road chain parsed from a map way.
type Way struct {
	NodeIDs  []int64
	SpeedKmh float64
	Oneway   bool
}

// ParseResult holds the routable subset of an Overpass payload.
type ParseResult struct {
	Nodes map[int64]NodeCoord
	Ways  []Way
}

// defaultSpeeds maps highway categories to assumed speeds in km/h.
// A parseable maxspeed tag on the way overrides these.
var defaultSpeeds = map[string]float64{
	"motorway":      100,
	"trunk":         90,
	"primary":       80,
	"secondary":     60,
	"tertiary":      50,
	"unclassified":  40,
	"residential":   30,
	"service":       20,
	"living_street": 20,
}

const fallbackSpeedKmh = 30.0

// DefaultSpeed returns the assumed speed in km/h for a highway category.
func DefaultSpeed(highway string) float64 {
	if s, ok := defaultSpeeds[highway]; ok {
		return s
	}
	return fallbackSpeedKmh
}

// waySpeed resolves the speed for a way. Malformed maxspeed values are
// silently ignored in favour of the category default.
func waySpeed(tags osm.Tags) float64 {
	speed := DefaultSpeed(tags.Find("highway"))
	if raw := tags.Find("maxspeed"); raw != "" {
		if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil && v > 0 {
			speed = v
		}
	}
	return speed
}

// isOneway reports whether the way only carries traffic in node order.
func isOneway(tags osm.Tags) bool {
	switch tags.Find("oneway") {
	case "yes", "true", "1":
		return true
	}
	return false
}

// Parse decodes an Overpass out:json payload into nodes and routable ways.
// Ways without a highway tag or with fewer than two nodes are skipped. The
// payload is decoded in one pass, not element by element: a decode failure
// anywhere in it makes Parse return an error. An empty payload yields an
// empty result.
func Parse(payload []byte) (*ParseResult, error) {
	result := &ParseResult{Nodes: make(map[int64]NodeCoord)}
	if len(payload) == 0 {
		return result, nil
	}

	var data osm.OSM
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("decode overpass payload: %w", err)
	}

	for _, n := range data.Nodes {
		result.Nodes[int64(n.ID)] = NodeCoord{
			ID:  int64(n.ID),
			Lat: n.Lat,
			Lon: n.Lon,
		}
	}

	skippedWays := 0
	for _, w := range data.Ways {
		// A way is routable only when it carries a highway tag.
		if w.Tags.Find("highway") == "" {
			skippedWays++
			continue
		}
		if len(w.Nodes) < 2 {
			skippedWays++
			continue
		}

		nodeIDs := make([]int64, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = int64(wn.ID)
		}

		result.Ways = append(result.Ways, Way{
			NodeIDs:  nodeIDs,
			SpeedKmh: waySpeed(w.Tags),
			Oneway:   isOneway(w.Tags),
		})
	}

	log.Printf("Parsed %d nodes and %d routable ways (%d ways skipped)",
		len(result.Nodes), len(result.Ways), skippedWays)

	return result, nil
}
