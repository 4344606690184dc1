package pokeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jo-hoe/pokescan/internal/backend/cache"
	"github.com/jo-hoe/pokescan/internal/common"
)

const (
	defaultBaseURL   = "https://pokeapi.co/api/v2"
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "pokescan/1.0 (Go/net-http)"
)

// Config holds the client settings injected at construction.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// CacheTTL bounds how long lookups are memoized. Zero keeps entries until
	// capacity eviction; upstream data is near-immutable, so long TTLs are fine.
	CacheTTL time.Duration
}

// Client fetches species records from the reference-data service. Successful
// lookups and definitive misses are memoized by the exact pre-normalization
// input string; transport failures are never cached.
type Client struct {
	config     Config
	httpClient *http.Client
	store      cache.Store
}

// cacheEntry wraps a memoized result so a definitive "no such species" can be
// cached alongside hits.
type cacheEntry struct {
	Miss    bool     `json:"miss,omitempty"`
	Pokemon *Pokemon `json:"pokemon,omitempty"`
}

func NewClient(config Config, store cache.Store) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		store:      store,
	}
}

// Slug normalizes a species name into the URL-safe lookup key. Names may
// arrive from sources other than the identifier (e.g. direct search), so the
// client normalizes defensively even for already-clean input.
func Slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(s, " ", "-")
}

// Lookup returns the species record for the given name. The returned error is
// a typed application error: RecordNotFound when the provider has no entry
// for the derived slug, UpstreamUnavailable on transport or service failure.
func (c *Client) Lookup(ctx context.Context, name string) (*Pokemon, error) {
	if entry, ok := c.cachedEntry(ctx, name); ok {
		if entry.Miss {
			return nil, notFoundError(Slug(name))
		}
		return entry.Pokemon, nil
	}

	slug := Slug(name)
	pokemon, err := c.fetch(ctx, slug)
	if err != nil {
		if common.IsKind(err, common.KindRecordNotFound) {
			// Definitive miss, safe to memoize.
			c.storeEntry(ctx, name, cacheEntry{Miss: true})
		}
		return nil, err
	}

	c.storeEntry(ctx, name, cacheEntry{Pokemon: pokemon})
	return pokemon, nil
}

func (c *Client) fetch(ctx context.Context, slug string) (*Pokemon, error) {
	requestURL := fmt.Sprintf("%s/pokemon/%s", c.config.BaseURL, url.PathEscape(slug))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, common.WrapError(common.KindUpstreamUnavailable, "species data service unavailable", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("pokeapi: request failed", "slug", slug, "error", err)
		return nil, common.WrapError(common.KindUpstreamUnavailable, "species data service unavailable", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, notFoundError(slug)
	case resp.StatusCode != http.StatusOK:
		slog.Error("pokeapi: unexpected status", "slug", slug, "status", resp.StatusCode)
		return nil, common.NewError(common.KindUpstreamUnavailable,
			fmt.Sprintf("species data service returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.WrapError(common.KindUpstreamUnavailable, "species data service unavailable", err)
	}

	pokemon, err := parsePokemon(body)
	if err != nil {
		slog.Error("pokeapi: failed to parse response", "slug", slug, "error", err)
		return nil, common.WrapError(common.KindUpstreamUnavailable, "species data service returned an unreadable response", err)
	}
	return pokemon, nil
}

// rawPokemon mirrors the provider's nested response shape before it is
// reshaped into the flat Pokemon record.
type rawPokemon struct {
	ID        int           `json:"id"`
	Name      string        `json:"name"`
	Height    int           `json:"height"`
	Weight    int           `json:"weight"`
	Types     []TypeSlot    `json:"types"`
	Stats     []StatValue   `json:"stats"`
	Abilities []AbilitySlot `json:"abilities"`
	Sprites   struct {
		FrontDefault string         `json:"front_default"`
		FrontShiny   string         `json:"front_shiny"`
		Other        map[string]any `json:"other"`
	} `json:"sprites"`
	Species NamedResource `json:"species"`
}

func parsePokemon(body []byte) (*Pokemon, error) {
	var raw rawPokemon
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	if raw.ID == 0 || raw.Name == "" {
		return nil, fmt.Errorf("response is missing id or name")
	}

	return &Pokemon{
		ID:        raw.ID,
		Name:      raw.Name,
		Height:    raw.Height,
		Weight:    raw.Weight,
		Types:     raw.Types,
		Stats:     raw.Stats,
		Abilities: raw.Abilities,
		Sprites: Sprites{
			FrontDefault: raw.Sprites.FrontDefault,
			FrontShiny:   raw.Sprites.FrontShiny,
			Other:        raw.Sprites.Other,
		},
		SpeciesURL: raw.Species.URL,
	}, nil
}

func (c *Client) cachedEntry(ctx context.Context, key string) (cacheEntry, bool) {
	if c.store == nil {
		return cacheEntry{}, false
	}
	data, found, err := c.store.Get(ctx, cacheKey(key))
	if err != nil {
		// A broken cache must not break lookups.
		slog.Warn("pokeapi: cache read failed", "error", err)
		return cacheEntry{}, false
	}
	if !found {
		return cacheEntry{}, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		slog.Warn("pokeapi: dropping undecodable cache entry", "error", err)
		_ = c.store.Delete(ctx, cacheKey(key))
		return cacheEntry{}, false
	}
	return entry, true
}

func (c *Client) storeEntry(ctx context.Context, key string, entry cacheEntry) {
	if c.store == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, cacheKey(key), data, c.config.CacheTTL); err != nil {
		slog.Warn("pokeapi: cache write failed", "error", err)
	}
}

func cacheKey(input string) string {
	return "pokeapi:pokemon:" + input
}

func notFoundError(slug string) *common.Error {
	err := common.NewError(common.KindRecordNotFound,
		fmt.Sprintf("no species record found for %q", slug))
	err.Name = slug
	return err
}
