package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// MemoryBackend is an in-memory Backend for tests and ephemeral runs.
type MemoryBackend struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

// Seed pre-populates a value, mimicking previously persisted state.
func (b *MemoryBackend) Seed(key, value string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = value
}

func (b *MemoryBackend) Get(key string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.values[key]
	return v, ok
}

func (b *MemoryBackend) Set(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = value
	return nil
}

// FileBackend persists preferences to a YAML file via viper. Writes are
// last-writer-wins with no locking across processes, matching how the
// rest of the app treats its config files.
type FileBackend struct {
	mu   sync.Mutex
	path string
	v    *viper.Viper
}

// DefaultPrefsPath returns ~/.config/killthenoise/preferences.yaml.
func DefaultPrefsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "preferences.yaml")
	}
	return filepath.Join(home, ".config", "killthenoise", "preferences.yaml")
}

// NewFileBackend opens (or lazily creates) the preferences file at path.
// A missing file is not an error; it is treated as empty storage.
func NewFileBackend(path string) (*FileBackend, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("reading preferences %s: %w", path, err)
			}
		}
	}

	return &FileBackend{path: path, v: v}, nil
}

func (b *FileBackend) Get(key string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.v.IsSet(key) {
		return "", false
	}
	return b.v.GetString(key), true
}

func (b *FileBackend) Set(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.v.Set(key, value)

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating preferences directory %s: %w", dir, err)
	}
	if err := b.v.WriteConfigAs(b.path); err != nil {
		return fmt.Errorf("writing preferences to %s: %w", b.path, err)
	}
	return nil
}
