package series

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/andrewclelland/analyse-ml-fire-projections/internal/domain"
)

// ErrNotExist is returned by an ObjectStore when a key has no object.
var ErrNotExist = errors.New("object does not exist")

// ObjectStore reads and overwrites whole objects by key.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// Store persists one archive per (region, source) pair as a CSV object.
type Store struct {
	objects ObjectStore
}

// NewStore creates a Store over the given object backend.
func NewStore(objects ObjectStore) *Store {
	return &Store{objects: objects}
}

// Key returns the object key of an archive, e.g.
// "archives/alaspen/access_ssp126_climate_2015_2100_alaspen.csv".
func Key(region, source string) string {
	return path.Join("archives", region, fmt.Sprintf("%s_%s.csv", source, region))
}

// Load reads the archive for a region and source. A missing object yields an
// empty archive; malformed content yields an error wrapping ErrArchiveCorrupt.
func (s *Store) Load(ctx context.Context, region, source string) (*domain.Archive, error) {
	key := Key(region, source)
	data, err := s.objects.Get(ctx, key)
	if errors.Is(err, ErrNotExist) {
		return &domain.Archive{Region: region, Source: source}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	a, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	a.Region = region
	a.Source = source
	return a, nil
}

// Persist writes the full archive, sorted by month, replacing prior content.
func (s *Store) Persist(ctx context.Context, a *domain.Archive) error {
	if a.Region == "" || a.Source == "" {
		return errors.New("persist: archive has no region or source")
	}
	sorted := a
	if !a.IsSorted() {
		sorted = Merge(a, nil, domain.KeepFirst)
	}
	data, err := Encode(sorted)
	if err != nil {
		return fmt.Errorf("persist %s/%s: %w", a.Region, a.Source, err)
	}
	key := Key(a.Region, a.Source)
	if err := s.objects.Put(ctx, key, data); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}
