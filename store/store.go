// Package store loads classifier containers from a models directory and
// keeps the most recently used ones in memory.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"osteosex/ml"
)

var extensions = []string{".yaml", ".yml", ".json"}

// Info describes a container file available in the models directory.
type Info struct {
	Name     string      `json:"name"`
	Datatype ml.Datatype `json:"datatype,omitempty"`
	Methods  []ml.Method `json:"methods,omitempty"`
	Loaded   bool        `json:"loaded"`
}

// ModelStore hands out validated, read-only containers. Containers are
// shared between callers and must not be modified.
type ModelStore struct {
	dir    string
	cache  *lru.Cache[string, *ml.Container]
	logger *zap.Logger

	loadMu sync.Mutex
	// genMu guards gens, bumped on every eviction so a load that raced
	// with a file change is not cached.
	genMu   sync.Mutex
	gens    map[string]uint64
	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates a store over dir caching at most size containers.
func New(dir string, size int, logger *zap.Logger) (*ModelStore, error) {
	if dir == "" {
		return nil, errors.New("models directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New[string, *ml.Container](size)
	if err != nil {
		return nil, err
	}
	return &ModelStore{
		dir:    dir,
		cache:  cache,
		gens:   make(map[string]uint64),
		logger: logger.Named("store"),
		done:   make(chan struct{}),
	}, nil
}

// Get returns the container called name, loading it on first use.
func (s *ModelStore) Get(name string) (*ml.Container, error) {
	if c, ok := s.cache.Get(name); ok {
		return c, nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if c, ok := s.cache.Get(name); ok {
		return c, nil
	}

	gen := s.generation(name)
	c, err := s.load(name)
	if err != nil {
		return nil, err
	}
	s.add(name, gen, c)
	return c, nil
}

func (s *ModelStore) load(name string) (*ml.Container, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	c, err := ml.LoadContainer(path)
	if err != nil {
		s.logger.Error("load container failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	c.Name = name
	s.logger.Info("container loaded",
		zap.String("name", name),
		zap.String("datatype", string(c.Datatype)),
		zap.Int("classifiers", len(c.Models)))
	return c, nil
}

func (s *ModelStore) generation(name string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[name]
}

// add caches c unless name was evicted after gen was read.
func (s *ModelStore) add(name string, gen uint64, c *ml.Container) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.gens[name] != gen {
		s.logger.Debug("container changed while loading, not cached", zap.String("name", name))
		return
	}
	s.cache.Add(name, c)
}

// List reports every container file in the models directory without
// loading the ones that are not cached.
func (s *ModelStore) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	infos := make([]Info, 0, len(entries))
	for _, entry := range entries {
		name, ok := containerName(entry.Name())
		if entry.IsDir() || !ok || seen[name] {
			continue
		}
		seen[name] = true
		info := Info{Name: name}
		if c, ok := s.cache.Peek(name); ok {
			info.Loaded = true
			info.Datatype = c.Datatype
			info.Methods = c.Methods()
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Evict drops a cached container so the next Get reloads it.
func (s *ModelStore) Evict(name string) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.gens[name]++
	if s.cache.Remove(name) {
		s.logger.Info("container evicted", zap.String("name", name))
	}
}

// Watch evicts cached containers whenever their file changes on disk.
func (s *ModelStore) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return err
	}
	s.watcher = watcher

	s.wg.Add(1)
	go s.watchLoop()
	s.logger.Info("watching models directory", zap.String("dir", s.dir))
	return nil
}

func (s *ModelStore) watchLoop() {
	defer s.wg.Done()
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if name, ok := containerName(filepath.Base(event.Name)); ok {
				s.Evict(name)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("models watcher error", zap.Error(err))
		case <-s.done:
			return
		}
	}
}

// Close stops the watcher.
func (s *ModelStore) Close() error {
	select {
	case <-s.done:
		return nil
	default:
		close(s.done)
	}
	var err error
	if s.watcher != nil {
		err = s.watcher.Close()
	}
	s.wg.Wait()
	return err
}

func (s *ModelStore) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid container name %q: %w", name, ml.ErrLookup)
	}
	for _, ext := range extensions {
		path := filepath.Join(s.dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("container %q not found in %s: %w", name, s.dir, ml.ErrLookup)
}

func containerName(file string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(file))
	for _, known := range extensions {
		if ext == known {
			return strings.TrimSuffix(file, filepath.Ext(file)), true
		}
	}
	return "", false
}
