package core

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jo-hoe/pokescan/internal/backend/pokeapi"
	"github.com/jo-hoe/pokescan/internal/common"
)

// Stage failure policy for Scan. Enhancement must never block the pipeline;
// everything after it surfaces a typed failure.
//
//	stage      | on failure
//	-----------+------------------------------------------------------------
//	media type | InvalidInput (before any external call)
//	normalize  | absorbed - proceed with the original bytes
//	identify   | UpstreamUnavailable (transport), NotRecognized (no name)
//	lookup     | UpstreamUnavailable (transport), RecordNotFound (no record)

// Normalizer enhances image bytes best-effort; it never fails.
type Normalizer interface {
	Normalize(imageBytes []byte) []byte
}

// Identifier turns image bytes into a canonical species name. An empty name
// with a nil error means the image was not recognized.
type Identifier interface {
	Identify(ctx context.Context, imageBytes []byte) (string, error)
}

// Fetcher turns a canonical species name into a species record.
type Fetcher interface {
	Lookup(ctx context.Context, name string) (*pokeapi.Pokemon, error)
}

// ScanService composes the identification pipeline: normalize, identify,
// fetch. Stages run strictly sequentially; each depends on the previous
// stage's output. One external call attempt per stage per request, no
// retries.
type ScanService struct {
	normalizer Normalizer
	identifier Identifier
	fetcher    Fetcher

	identifyTimeout time.Duration
	lookupTimeout   time.Duration
}

func NewScanService(normalizer Normalizer, identifier Identifier, fetcher Fetcher, identifyTimeout, lookupTimeout time.Duration) *ScanService {
	return &ScanService{
		normalizer:      normalizer,
		identifier:      identifier,
		fetcher:         fetcher,
		identifyTimeout: identifyTimeout,
		lookupTimeout:   lookupTimeout,
	}
}

// Scan identifies the species on an image and returns its record. No state
// is persisted here; cancelling mid-pipeline is always safe.
func (s *ScanService) Scan(ctx context.Context, imageBytes []byte, mediaType string) (*pokeapi.Pokemon, error) {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "image/") {
		return nil, common.NewError(common.KindInvalidInput, "file must be an image")
	}
	if len(imageBytes) == 0 {
		return nil, common.NewError(common.KindInvalidInput, "file is empty")
	}

	normalized := s.normalizer.Normalize(imageBytes)

	name, err := s.identify(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if name == "" {
		slog.Info("scan: no species recognized")
		return nil, common.NewError(common.KindNotRecognized, "could not identify a species in the image")
	}
	slog.Info("scan: species identified", "name", name)

	return s.lookup(ctx, name)
}

// Search resolves a species record directly by name, skipping the image
// stages. Used for manual lookups.
func (s *ScanService) Search(ctx context.Context, name string) (*pokeapi.Pokemon, error) {
	if strings.TrimSpace(name) == "" {
		return nil, common.NewError(common.KindInvalidInput, "species name must not be empty")
	}
	return s.lookup(ctx, name)
}

func (s *ScanService) identify(ctx context.Context, imageBytes []byte) (string, error) {
	if s.identifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.identifyTimeout)
		defer cancel()
	}
	return s.identifier.Identify(ctx, imageBytes)
}

func (s *ScanService) lookup(ctx context.Context, name string) (*pokeapi.Pokemon, error) {
	if s.lookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.lookupTimeout)
		defer cancel()
	}
	return s.fetcher.Lookup(ctx, name)
}
