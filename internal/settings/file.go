package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"open-launcher/internal/config"
	"open-launcher/internal/launcherr"
)

// FileStore keeps settings in one YAML document: identity -> field -> value.
type FileStore struct {
	path string

	mu      sync.Mutex
	session overlay
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) readAll() (map[string]map[string]string, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]map[string]string{}, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}
	doc := map[string]map[string]string{}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	return doc, nil
}

func (s *FileStore) Load(ctx context.Context, identity string) (Settings, error) {
	if err := ctx.Err(); err != nil {
		return Settings{}, err
	}
	s.mu.Lock()
	doc, err := s.readAll()
	s.mu.Unlock()
	if err != nil {
		return Settings{}, launcherr.Wrap(launcherr.CodeSettingsLoad, "load settings", err)
	}
	values := map[string]string{}
	for k, v := range doc[identity] {
		values[k] = v
	}
	s.session.apply(identity, values)
	return decode(values)
}

func (s *FileStore) SetValue(ctx context.Context, keyName, field, value string, persistent bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !persistent {
		s.session.set(keyName, field, value)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.writeLocked(keyName, field, func(string) string { return value }); err != nil {
		return err
	}
	s.session.clear(keyName, field)
	return nil
}

func (s *FileStore) AppendValue(ctx context.Context, keyName, field, suffix string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.writeLocked(keyName, field, func(old string) string { return old + suffix })
	if err != nil {
		return "", err
	}
	s.session.clear(keyName, field)
	return v, nil
}

// writeLocked rewrites one field from its persisted value. s.mu must be held.
func (s *FileStore) writeLocked(keyName, field string, next func(string) string) (string, error) {
	doc, err := s.readAll()
	if err != nil {
		return "", err
	}
	m := doc[keyName]
	if m == nil {
		m = map[string]string{}
		doc[keyName] = m
	}
	v := next(m[field])
	m[field] = v

	b, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal settings: %w", err)
	}
	if err := config.ReplaceFile(s.path, b); err != nil {
		return "", fmt.Errorf("write settings: %w", err)
	}
	return v, nil
}

func (s *FileStore) Close() error { return nil }
