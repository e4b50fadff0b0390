package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gameradar/dealwatch/internal/model"
)

// Reserved top-level keys in the cache document. Everything else is a deal
// id mapping to its posted entry.
const (
	weekendKey = "weekend_anunciados"
	legacyKey  = "juegos_anunciados"
)

// FileStore keeps the cache in a single JSON document, loaded at open and
// written atomically on Save. On disk the document is a flat object: deal
// ids map to posted entries, with the weekend map (epoch seconds) under its
// own key. The legacy form, a bare list of announced titles, is migrated on
// load.
type FileStore struct {
	path     string
	posted   map[string]Entry
	weekends map[string]time.Time
	dirty    bool
}

// OpenFile loads the JSON cache at path. A missing or unreadable document
// yields an empty cache, never an error: losing suppression history only
// risks a duplicate announcement, while refusing to start kills every
// subsequent pass.
func OpenFile(path string) (*FileStore, error) {
	if path == "" {
		path = "dealwatch-cache.json"
	}
	s := &FileStore{
		path:     path,
		posted:   make(map[string]Entry),
		weekends: make(map[string]time.Time),
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		zap.L().Warn("cache: unreadable, starting empty",
			zap.String("path", path), zap.Error(err))
		return s, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		zap.L().Warn("cache: corrupted, starting empty",
			zap.String("path", path), zap.Error(err))
		// Keep the bad bytes around for inspection; best effort.
		_ = os.Rename(path, path+".corrupt")
		return s, nil
	}

	for key, val := range doc {
		switch key {
		case weekendKey:
			var epochs map[string]int64
			if err := json.Unmarshal(val, &epochs); err != nil {
				zap.L().Warn("cache: bad weekend map, dropping", zap.Error(err))
				continue
			}
			for id, sec := range epochs {
				s.weekends[id] = time.Unix(sec, 0).UTC()
			}
		case legacyKey:
			var titles []string
			if err := json.Unmarshal(val, &titles); err != nil {
				zap.L().Warn("cache: bad legacy list, dropping", zap.Error(err))
				continue
			}
			// The legacy list carried bare titles with no timestamps.
			// Stamp them with the migration time so pruning eventually
			// retires them.
			now := time.Now().UTC()
			for _, title := range titles {
				if _, exists := s.posted[title]; !exists {
					s.posted[title] = Entry{Title: title, PostedAt: now}
				}
			}
			zap.L().Info("cache: migrated legacy document",
				zap.Int("titles", len(titles)), zap.String("path", path))
			s.dirty = true
		default:
			var e Entry
			if err := json.Unmarshal(val, &e); err != nil {
				zap.L().Warn("cache: bad entry, dropping",
					zap.String("id", key), zap.Error(err))
				continue
			}
			s.posted[key] = e
		}
	}
	return s, nil
}

func (s *FileStore) IsPosted(_ context.Context, id string) (bool, error) {
	_, ok := s.posted[id]
	return ok, nil
}

func (s *FileStore) MarkPosted(_ context.Context, d *model.Deal) error {
	s.posted[d.ID()] = Entry{
		Title:    d.Title,
		Source:   string(d.Source),
		Kind:     string(d.Kind),
		PostedAt: time.Now().UTC(),
	}
	s.dirty = true
	return nil
}

func (s *FileStore) WeekendActive(_ context.Context, id string, now time.Time) (bool, error) {
	expires, ok := s.weekends[id]
	return ok && now.Before(expires), nil
}

func (s *FileStore) MarkWeekend(_ context.Context, id string, expiresAt time.Time) error {
	s.weekends[id] = expiresAt.UTC()
	s.dirty = true
	return nil
}

func (s *FileStore) Prune(_ context.Context, cutoff, now time.Time) (int, error) {
	n := 0
	for id, e := range s.posted {
		if e.PostedAt.Before(cutoff) {
			delete(s.posted, id)
			n++
		}
	}
	for id, expires := range s.weekends {
		if expires.Before(now) {
			delete(s.weekends, id)
			n++
		}
	}
	if n > 0 {
		s.dirty = true
	}
	return n, nil
}

func (s *FileStore) Stats(_ context.Context) (*Stats, error) {
	return &Stats{
		Driver:   "file",
		Posted:   len(s.posted),
		Weekends: len(s.weekends),
	}, nil
}

// Save writes the document atomically: temp file in the same directory,
// then rename over the target.
func (s *FileStore) Save(_ context.Context) error {
	if !s.dirty {
		return nil
	}

	doc := make(map[string]any, len(s.posted)+1)
	for id, e := range s.posted {
		doc[id] = e
	}
	epochs := make(map[string]int64, len(s.weekends))
	for id, expires := range s.weekends {
		epochs[id] = expires.Unix()
	}
	doc[weekendKey] = epochs

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "cache: marshal document")
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return eris.Wrap(err, "cache: create temp file")
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return eris.Wrap(err, "cache: write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return eris.Wrap(err, "cache: close temp file")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return eris.Wrapf(err, "cache: rename into %s", s.path)
	}

	s.dirty = false
	return nil
}

func (s *FileStore) Close() error {
	return s.Save(context.Background())
}
