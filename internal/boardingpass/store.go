package boardingpass

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/southwestptfs/flightdeck/internal/apperr"
)

// Store is a byte store for rendered passes keyed by (flight, confirmation).
// Get returns apperr.ErrArtifactNotFound when nothing is cached.
type Store interface {
	Exists(ctx context.Context, flightID, code string) (bool, error)
	Get(ctx context.Context, flightID, code string) ([]byte, error)
	Put(ctx context.Context, flightID, code string, data []byte) error
	Delete(ctx context.Context, flightID, code string) error
	DeleteFlight(ctx context.Context, flightID string) error
}

var safeKey = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// FSStore keeps passes at <Root>/<flightID>/<code>.png.
type FSStore struct {
	Root string
}

// NewFSStore returns a store rooted at root.
func NewFSStore(root string) *FSStore { return &FSStore{Root: root} }

func (s *FSStore) dir(flightID string) (string, error) {
	if !safeKey.MatchString(flightID) {
		return "", fmt.Errorf("invalid flight id %q", flightID)
	}
	return filepath.Join(s.Root, flightID), nil
}

func (s *FSStore) path(flightID, code string) (string, error) {
	dir, err := s.dir(flightID)
	if err != nil {
		return "", err
	}
	if !safeKey.MatchString(code) {
		return "", fmt.Errorf("invalid confirmation code %q", code)
	}
	return filepath.Join(dir, code+".png"), nil
}

// Exists reports whether a pass is cached.
func (s *FSStore) Exists(_ context.Context, flightID, code string) (bool, error) {
	p, err := s.path(flightID, code)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Get reads a cached pass.
func (s *FSStore) Get(_ context.Context, flightID, code string) ([]byte, error) {
	p, err := s.path(flightID, code)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.ErrArtifactNotFound
	}
	return b, err
}

// Put writes a pass atomically: the bytes land in a temp file in the same
// directory and are renamed into place, so readers never see a partial
// image.
func (s *FSStore) Put(_ context.Context, flightID, code string, data []byte) (err error) {
	p, err := s.path(flightID, code)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, code+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("rename to %s: %w", p, err)
	}
	return nil
}

// Delete removes one cached pass. Deleting a missing pass is not an error.
func (s *FSStore) Delete(_ context.Context, flightID, code string) error {
	p, err := s.path(flightID, code)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// DeleteFlight removes every cached pass of a flight.
func (s *FSStore) DeleteFlight(_ context.Context, flightID string) error {
	dir, err := s.dir(flightID)
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}
