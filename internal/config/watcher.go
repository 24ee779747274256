package config

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Store holds the live configuration and reloads it when the file
// changes. Only a subset of fields is safe to change at runtime (webhook
// secret, rate limits); the rest takes effect on restart.
type Store struct {
	path string

	mu  sync.RWMutex
	cfg Config
}

func NewStore(path string, initial Config) *Store {
	return &Store{path: path, cfg: initial}
}

func (s *Store) Current() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Store) reload() {
	cfg, err := Load(s.path)
	if err != nil {
		log.Printf("[config] reload failed, keeping previous: %v", err)
		return
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	log.Printf("[config] reloaded from %s", s.path)
}

// Watch reloads on file change, with a slow polling ticker as a safety
// net for filesystems where fsnotify misses events.
func (s *Store) Watch(ctx context.Context) {
	if s.path == "" {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("[config] fsnotify unavailable (%v), polling only", err)
		watcher = nil
	} else if err := watcher.Add(s.path); err != nil {
		log.Printf("[config] cannot watch %s (%v), polling only", s.path, err)
		watcher.Close()
		watcher = nil
	}

	go func() {
		if watcher != nil {
			defer watcher.Close()
		}
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()

		for {
			if watcher != nil {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-watcher.Events:
					if !ok {
						return
					}
					if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
						// Editors often write in bursts; let the file settle.
						time.Sleep(100 * time.Millisecond)
						s.reload()
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return
					}
					log.Printf("[config] watch error: %v", err)
				case <-ticker.C:
					s.reload()
				}
			} else {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.reload()
				}
			}
		}
	}()
}
