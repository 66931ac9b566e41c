package save

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
)

const DefaultEnvFile = ".env"

var ErrInvalidKey = errors.New("invalid settings key")

// EnvStore is a flat KEY=VALUE settings file. Values are read once by Load,
// Set writes through to disk and keeps every other line of the file untouched.
type EnvStore struct {
	fs   afero.Fs
	path string

	m      *sync.Mutex
	values map[string]string
}

func NewEnvStore(fs afero.Fs, path string) *EnvStore {
	if path == "" {
		path = DefaultEnvFile
	}

	return &EnvStore{
		fs:     fs,
		path:   path,
		m:      &sync.Mutex{},
		values: map[string]string{},
	}
}

func (s *EnvStore) Path() string {
	return s.path
}

// Load reads the settings file. A missing file is treated as empty.
func (s *EnvStore) Load() error {
	s.m.Lock()
	defer s.m.Unlock()

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.values = map[string]string{}
			return nil
		}
		return fmt.Errorf("failed to read settings file %s: %w", s.path, err)
	}

	values, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to parse settings file %s: %w", s.path, err)
	}

	s.values = values
	return nil
}

func (s *EnvStore) Get(key string) string {
	v, _ := s.Lookup(key)
	return v
}

func (s *EnvStore) Lookup(key string) (string, bool) {
	s.m.Lock()
	defer s.m.Unlock()

	v, ok := s.values[key]
	return v, ok
}

// Set upserts key=value in the settings file and the in-memory view.
func (s *EnvStore) Set(key, value string) error {
	if err := validateEntry(key, value); err != nil {
		return err
	}

	s.m.Lock()
	defer s.m.Unlock()

	perm := os.FileMode(0o600)
	data, err := afero.ReadFile(s.fs, s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		data = nil
	case err != nil:
		return fmt.Errorf("failed to read settings file %s: %w", s.path, err)
	default:
		if stat, err := s.fs.Stat(s.path); err == nil {
			perm = stat.Mode().Perm()
		}
	}

	if err := afero.WriteFile(s.fs, s.path, UpsertLine(data, key, value), perm); err != nil {
		return fmt.Errorf("failed to write settings file %s: %w", s.path, err)
	}

	s.values[key] = value
	return nil
}

// UpsertLine replaces the first line starting with "key=" or appends "key=value\n".
// All other lines, including their line endings, are returned unchanged and in order.
func UpsertLine(content []byte, key, value string) []byte {
	entry := key + "=" + value
	prefix := key + "="

	lines := strings.SplitAfter(string(content), "\n")
	for i, line := range lines {
		body := strings.TrimRight(line, "\r\n")
		if !strings.HasPrefix(body, prefix) {
			continue
		}

		lines[i] = entry + line[len(body):]
		return []byte(strings.Join(lines, ""))
	}

	var b strings.Builder
	b.Grow(len(content) + len(entry) + 2)
	b.Write(content)
	if len(content) > 0 && !bytes.HasSuffix(content, []byte("\n")) {
		b.WriteString("\n")
	}
	b.WriteString(entry)
	b.WriteString("\n")

	return []byte(b.String())
}

func validateEntry(key, value string) error {
	if key == "" || strings.ContainsAny(key, "= \t\r\n#") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("value for %s must not contain line breaks", key)
	}

	return nil
}
