package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/matzehuels/azdiagram/pkg/errors"
)

// FileStore keeps the generations of each diagram in one JSON file.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a file store. If baseDir is empty it defaults to
// the user cache directory under azdiagram/history.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("get cache dir: %w", err)
		}
		baseDir = filepath.Join(dir, "azdiagram", "history")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// Path returns the store directory.
func (s *FileStore) Path() string { return s.baseDir }

func (s *FileStore) historyPath(name string) string {
	return filepath.Join(s.baseDir, name+".json")
}

// load returns the generations of name, oldest first.
func (s *FileStore) load(name string) ([]Generation, error) {
	if err := errors.ValidateDiagramName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.historyPath(name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	var gens []Generation
	if err := json.Unmarshal(data, &gens); err != nil {
		return nil, fmt.Errorf("parse history %s: %w", name, err)
	}
	return gens, nil
}

func (s *FileStore) Record(_ context.Context, g *Generation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	gens, err := s.load(g.Name)
	if err != nil {
		return err
	}
	next := 1
	if n := len(gens); n > 0 {
		next = gens[n-1].Seq + 1
	}
	g.assign(next)
	gens = append(gens, *g)

	data, err := json.MarshalIndent(gens, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	tmp, err := os.CreateTemp(s.baseDir, ".history-*")
	if err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write history: %w", err)
	}
	return os.Rename(tmp.Name(), s.historyPath(g.Name))
}

func (s *FileStore) Latest(_ context.Context, name string) (*Generation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gens, err := s.load(name)
	if err != nil || len(gens) == 0 {
		return nil, err
	}
	g := gens[len(gens)-1]
	return &g, nil
}

func (s *FileStore) Get(_ context.Context, name string, seq int) (*Generation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gens, err := s.load(name)
	if err != nil {
		return nil, err
	}
	for _, g := range gens {
		if g.Seq == seq {
			return &g, nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileStore) List(_ context.Context, name string, limit int) ([]Generation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gens, err := s.load(name)
	if err != nil {
		return nil, err
	}
	slices.Reverse(gens)
	return gens[:min(len(gens), listLimit(limit))], nil
}

func (s *FileStore) Close() error { return nil }

var _ Store = (*FileStore)(nil)
