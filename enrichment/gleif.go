package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultGleifURL is the GLEIF batch lookup endpoint; LEIs are appended as
// a comma-separated list.
const DefaultGleifURL = "https://leilookup.gleif.org/api/v2/leirecords?lei="

// gleifBatchSize is the lookup service's maximum identifiers per request.
const gleifBatchSize = 200

// GleifClient resolves issuer LEIs to legal names and jurisdictions.
// Requests are batched, rate limited and cached.
type GleifClient struct {
	BaseURL   string
	Client    *http.Client
	BatchSize int
	limiter   *rate.Limiter
	cache     *entityCache
}

// NewGleifClient returns a client issuing at most one batch request per
// second and caching resolved entities for the given TTL.
func NewGleifClient(baseURL string, client *http.Client, cacheTTL time.Duration) *GleifClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &GleifClient{
		BaseURL:   baseURL,
		Client:    client,
		BatchSize: gleifBatchSize,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
		cache:     newEntityCache(cacheTTL),
	}
}

// GLEIF wraps every value in an object with a "$" key.
type gleifValue struct {
	Value string `json:"$"`
}

type gleifRecord struct {
	LEI    gleifValue `json:"LEI"`
	Entity struct {
		LegalName         gleifValue `json:"LegalName"`
		LegalJurisdiction gleifValue `json:"LegalJurisdiction"`
	} `json:"Entity"`
}

// Lookup resolves the given LEIs, chunking them into batch requests of at
// most BatchSize identifiers. Entities already cached are served without a
// request. Returns whatever the service knows about; LEIs it does not
// recognise are simply absent from the result.
func (g *GleifClient) Lookup(ctx context.Context, leis []string) ([]Entity, error) {
	var out []Entity
	var toFetch []string
	for _, lei := range leis {
		if e, ok := g.cache.get(lei); ok {
			out = append(out, e)
			continue
		}
		toFetch = append(toFetch, lei)
	}

	batch := g.BatchSize
	if batch <= 0 {
		batch = gleifBatchSize
	}
	for i := 0; i < len(toFetch); i += batch {
		end := i + batch
		if end > len(toFetch) {
			end = len(toFetch)
		}
		entities, err := g.lookupBatch(ctx, toFetch[i:end])
		if err != nil {
			return nil, err
		}
		for _, e := range entities {
			g.cache.put(e)
		}
		out = append(out, entities...)
	}
	return out, nil
}

func (g *GleifClient) lookupBatch(ctx context.Context, leis []string) ([]Entity, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := g.BaseURL + strings.Join(leis, ",")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build GLEIF request: %w", err)
	}
	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GLEIF lookup failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GLEIF lookup: unexpected status %s", resp.Status)
	}

	var records []gleifRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to parse GLEIF response: %w", err)
	}

	entities := make([]Entity, 0, len(records))
	for _, rec := range records {
		entities = append(entities, Entity{
			LEI:          rec.LEI.Value,
			LegalName:    rec.Entity.LegalName.Value,
			Jurisdiction: rec.Entity.LegalJurisdiction.Value,
		})
	}
	return entities, nil
}
