// Package sessioncache keeps the sl-cli session between invocations in a
// file sealed with the local key.
package sessioncache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yndnr/servicelayer-go/internal/cli/config"
	"github.com/yndnr/servicelayer-go/internal/infra/sealbox"
	"github.com/yndnr/servicelayer-go/pkg/servicelayer"
)

// Store is a servicelayer.SessionStore backed by one file per profile.
type Store struct {
	path string
	aad  string
	box  *sealbox.Box
}

var _ servicelayer.SessionStore = (*Store)(nil)

// New returns a Store for profile under dir. An empty profile name uses
// "default".
func New(dir, profile string, box *sealbox.Box) *Store {
	if profile == "" {
		profile = "default"
	}
	name := strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(profile)
	return &Store{
		path: filepath.Join(dir, name+".session"),
		aad:  "session:" + profile,
		box:  box,
	}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load returns the cached session, or nil when there is none.
func (s *Store) Load(context.Context) (*servicelayer.Session, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session cache: %w", err)
	}

	plain, err := s.box.Open(strings.TrimSpace(string(data)), []byte(s.aad))
	if err != nil {
		return nil, fmt.Errorf("open session cache: %w", err)
	}
	var sess servicelayer.Session
	if err := json.Unmarshal(plain, &sess); err != nil {
		return nil, fmt.Errorf("decode session cache: %w", err)
	}
	return &sess, nil
}

// Save seals s into the cache file. A nil session clears it.
func (s *Store) Save(ctx context.Context, sess *servicelayer.Session) error {
	if sess == nil {
		return s.Clear(ctx)
	}
	plain, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	sealed, err := s.box.Seal(plain, []byte(s.aad))
	if err != nil {
		return err
	}
	return config.WriteFileAtomic(s.path, []byte(sealed+"\n"))
}

// Clear removes the cache file.
func (s *Store) Clear(context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear session cache: %w", err)
	}
	return nil
}
