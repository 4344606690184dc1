package core

import (
	"context"
	"errors"
	"testing"

	"github.com/jo-hoe/pokescan/internal/backend/pokeapi"
	"github.com/jo-hoe/pokescan/internal/common"
)

type fakeNormalizer struct {
	called bool
	output []byte
}

func (f *fakeNormalizer) Normalize(imageBytes []byte) []byte {
	f.called = true
	if f.output != nil {
		return f.output
	}
	return imageBytes
}

type fakeIdentifier struct {
	called bool
	input  []byte
	name   string
	err    error
}

func (f *fakeIdentifier) Identify(ctx context.Context, imageBytes []byte) (string, error) {
	f.called = true
	f.input = imageBytes
	return f.name, f.err
}

type fakeFetcher struct {
	called bool
	name   string
	record *pokeapi.Pokemon
	err    error
}

func (f *fakeFetcher) Lookup(ctx context.Context, name string) (*pokeapi.Pokemon, error) {
	f.called = true
	f.name = name
	return f.record, f.err
}

func pikachu() *pokeapi.Pokemon {
	return &pokeapi.Pokemon{ID: 25, Name: "pikachu", Height: 4, Weight: 60}
}

func TestScan_Success(t *testing.T) {
	normalizer := &fakeNormalizer{output: []byte("normalized")}
	identifier := &fakeIdentifier{name: "pikachu"}
	fetcher := &fakeFetcher{record: pikachu()}
	service := NewScanService(normalizer, identifier, fetcher, 0, 0)

	record, err := service.Scan(context.Background(), []byte("raw-image"), "image/jpeg")

	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if record.Name != "pikachu" || record.ID != 25 {
		t.Errorf("unexpected record %+v", record)
	}
	if !normalizer.called {
		t.Error("expected normalizer to run")
	}
	if string(identifier.input) != "normalized" {
		t.Error("expected identifier to receive normalized bytes")
	}
	if fetcher.name != "pikachu" {
		t.Errorf("expected fetcher to receive identified name, got %q", fetcher.name)
	}
}

func TestScan_RejectsNonImageBeforeAnyExternalCall(t *testing.T) {
	tests := []struct {
		name      string
		mediaType string
	}{
		{"pdf", "application/pdf"},
		{"text", "text/plain"},
		{"empty media type", ""},
		{"image suffix only", "video/image-sequence"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identifier := &fakeIdentifier{name: "pikachu"}
			fetcher := &fakeFetcher{record: pikachu()}
			service := NewScanService(&fakeNormalizer{}, identifier, fetcher, 0, 0)

			_, err := service.Scan(context.Background(), []byte("data"), tt.mediaType)

			if !common.IsKind(err, common.KindInvalidInput) {
				t.Fatalf("expected InvalidInput, got %v", err)
			}
			if identifier.called || fetcher.called {
				t.Error("no external call may happen for invalid input")
			}
		})
	}
}

func TestScan_NotRecognized_SkipsFetcher(t *testing.T) {
	identifier := &fakeIdentifier{name: ""}
	fetcher := &fakeFetcher{record: pikachu()}
	service := NewScanService(&fakeNormalizer{}, identifier, fetcher, 0, 0)

	_, err := service.Scan(context.Background(), []byte("data"), "image/png")

	if !common.IsKind(err, common.KindNotRecognized) {
		t.Fatalf("expected NotRecognized, got %v", err)
	}
	if fetcher.called {
		t.Error("fetcher must never run when identification returned no name")
	}
}

func TestScan_IdentifierOutageIsNotNotRecognized(t *testing.T) {
	outage := common.NewError(common.KindUpstreamUnavailable, "classification service unavailable")
	identifier := &fakeIdentifier{err: outage}
	fetcher := &fakeFetcher{}
	service := NewScanService(&fakeNormalizer{}, identifier, fetcher, 0, 0)

	_, err := service.Scan(context.Background(), []byte("data"), "image/png")

	if !common.IsKind(err, common.KindUpstreamUnavailable) {
		t.Fatalf("expected UpstreamUnavailable, got %v", err)
	}
	if common.IsKind(err, common.KindNotRecognized) {
		t.Error("provider outage must stay distinguishable from NotRecognized")
	}
	if fetcher.called {
		t.Error("fetcher must not run after an identifier failure")
	}
}

func TestScan_RecordNotFound_CarriesAttemptedName(t *testing.T) {
	notFound := common.NewError(common.KindRecordNotFound, `no species record found for "garblemon"`)
	notFound.Name = "garblemon"
	identifier := &fakeIdentifier{name: "garblemon"}
	service := NewScanService(&fakeNormalizer{}, identifier, &fakeFetcher{err: notFound}, 0, 0)

	_, err := service.Scan(context.Background(), []byte("data"), "image/png")

	appErr, ok := common.AsAppError(err)
	if !ok || appErr.Kind != common.KindRecordNotFound {
		t.Fatalf("expected RecordNotFound, got %v", err)
	}
	if appErr.Name != "garblemon" {
		t.Errorf("expected attempted name to be carried, got %q", appErr.Name)
	}
}

func TestScan_NormalizerFailureIsAbsorbed(t *testing.T) {
	// A normalizer that "fails" by returning input unchanged must not stop
	// the pipeline.
	identifier := &fakeIdentifier{name: "pikachu"}
	service := NewScanService(&fakeNormalizer{}, identifier, &fakeFetcher{record: pikachu()}, 0, 0)

	record, err := service.Scan(context.Background(), []byte("raw"), "image/jpeg")

	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if record == nil {
		t.Fatal("expected a record")
	}
	if string(identifier.input) != "raw" {
		t.Error("expected identifier to receive the original bytes")
	}
}

func TestSearch(t *testing.T) {
	fetcher := &fakeFetcher{record: pikachu()}
	service := NewScanService(&fakeNormalizer{}, &fakeIdentifier{}, fetcher, 0, 0)

	record, err := service.Search(context.Background(), "pikachu")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if record.ID != 25 {
		t.Errorf("unexpected record %+v", record)
	}

	if _, err := service.Search(context.Background(), "   "); !common.IsKind(err, common.KindInvalidInput) {
		t.Errorf("expected InvalidInput for blank name, got %v", err)
	}
}

func TestScan_EmptyUpload(t *testing.T) {
	identifier := &fakeIdentifier{}
	service := NewScanService(&fakeNormalizer{}, identifier, &fakeFetcher{}, 0, 0)

	_, err := service.Scan(context.Background(), nil, "image/jpeg")

	if !common.IsKind(err, common.KindInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
	if identifier.called {
		t.Error("no external call may happen for an empty upload")
	}
}

func TestScan_GenericFetcherErrorPassesThrough(t *testing.T) {
	identifier := &fakeIdentifier{name: "pikachu"}
	fetcher := &fakeFetcher{err: errors.New("boom")}
	service := NewScanService(&fakeNormalizer{}, identifier, fetcher, 0, 0)

	_, err := service.Scan(context.Background(), []byte("data"), "image/png")
	if err == nil {
		t.Fatal("expected error to propagate")
	}
}
