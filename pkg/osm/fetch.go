package osm

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/paulmach/orb"
)

// Detail selects how much of the road network a build request pulls in.
type Detail string

const (
	DetailLow    Detail = "low"    // major roads only
	DetailMedium Detail = "medium" // most roads
	DetailHigh   Detail = "high"   // all drivable roads
)

// ParseDetail normalises a detail string; anything unrecognised is medium.
func ParseDetail(s string) Detail {
	switch Detail(s) {
	case DetailLow, DetailHigh:
		return Detail(s)
	}
	return DetailMedium
}

// highwayFilter returns the regex alternation of highway categories for
// this detail level, as interpolated into the Overpass query.
func (d Detail) highwayFilter() string {
	switch d {
	case DetailLow:
		return "primary|secondary|tertiary"
	case DetailHigh:
		return "motorway|trunk|primary|secondary|tertiary|residential|living_street|service|unclassified"
	default:
		return "primary|secondary|tertiary|residential|living_street|service|unclassified"
	}
}

// Source supplies a raw map payload for a bounding box. The HTTP client
// below is the production implementation; tests substitute fixtures.
type Source interface {
	Fetch(ctx context.Context, bound orb.Bound, detail Detail) ([]byte, error)
}

// defaultEndpoints are tried in order until one answers with 200.
var defaultEndpoints = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
}

// Client fetches map data from the Overpass API.
type Client struct {
	Endpoints  []string
	HTTPClient *http.Client
	UserAgent  string
}

// NewClient returns a Client with the default mirror list and timeout.
func NewClient() *Client {
	return &Client{
		Endpoints:  defaultEndpoints,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		UserAgent:  "exam-router/1.0",
	}
}

// BuildQuery renders the Overpass QL query for a bounding box and detail
// level. The recursion step (._;>;) pulls in every node referenced by the
// matched ways.
func BuildQuery(bound orb.Bound, detail Detail) string {
	return fmt.Sprintf(
		"[out:json][timeout:60][bbox:%.6f,%.6f,%.6f,%.6f];way[highway~\"^(%s)$\"];(._;>;);out body;",
		bound.Min.Lat(), bound.Min.Lon(), bound.Max.Lat(), bound.Max.Lon(),
		detail.highwayFilter(),
	)
}

// Fetch downloads the Overpass payload, falling back through mirrors.
// Returns an error only when every endpoint fails.
func (c *Client) Fetch(ctx context.Context, bound orb.Bound, detail Detail) ([]byte, error) {
	query := BuildQuery(bound, detail)
	log.Printf("Fetching OSM data (detail=%s)", detail)

	var lastErr error
	for _, endpoint := range c.Endpoints {
		reqURL := endpoint + "?data=" + url.QueryEscape(query)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			lastErr = err
			continue
		}
		req.Header.Set("User-Agent", c.UserAgent)

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			log.Printf("Overpass endpoint %s failed: %v, trying next", endpoint, err)
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			log.Printf("Overpass endpoint %s returned HTTP %d, trying next", endpoint, resp.StatusCode)
			lastErr = fmt.Errorf("overpass: HTTP %d from %s", resp.StatusCode, endpoint)
			continue
		}

		log.Printf("Fetched %d bytes from %s", len(body), endpoint)
		return body, nil
	}

	return nil, fmt.Errorf("all overpass endpoints failed: %w", lastErr)
}
