package backend

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gozephyr/storekit/errors"
	"github.com/gozephyr/storekit/ttl"
)

// FileConfig holds file-based storage configuration
type FileConfig struct {
	// Directory is the base directory for storing entry files
	Directory string

	// FileExtension is the extension for data files
	FileExtension string

	// CompressionEnabled enables gzip compression of entry files
	CompressionEnabled bool

	// CompressionLevel sets the gzip compression level (1-9)
	CompressionLevel int
}

// DefaultFileConfig returns a FileConfig with sensible defaults
func DefaultFileConfig() *FileConfig {
	return &FileConfig{
		Directory:        "storekit",
		FileExtension:    ".entry",
		CompressionLevel: gzip.DefaultCompression,
	}
}

// fileEntry is the on-disk representation of an entry
type fileEntry struct {
	Value   json.RawMessage `json:"value"`
	Expires time.Time       `json:"expires,omitempty"`
}

// fileBackend implements Backend on the filesystem, one file per key.
// Durable without a database; suited to single-host deployments.
type fileBackend struct {
	config    *FileConfig
	ttlConfig ttl.Config
	mu        sync.RWMutex

	janitorStop chan struct{}
	janitorDone chan struct{}
	closeOnce   sync.Once
}

// NewFile creates a new file-based backend rooted at config.Directory
func NewFile(config *FileConfig, opts ...Option) (Backend, error) {
	if config == nil {
		config = DefaultFileConfig()
	}

	options := NewOptions()
	if err := options.Apply(opts...); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(config.Directory, 0o755); err != nil {
		return nil, errors.NewStoreError(errors.ErrorTypeBackend, "NewFile", nil, errors.ErrBackendUnavailable)
	}

	f := &fileBackend{
		config:      config,
		ttlConfig:   options.TTLConfig,
		janitorStop: make(chan struct{}),
		janitorDone: make(chan struct{}),
	}

	if options.JanitorInterval > 0 {
		go f.janitor(options.JanitorInterval)
	} else {
		close(f.janitorDone)
	}
	return f, nil
}

// path maps a key to its file. Keys are base64-encoded so any key is a safe
// filename.
func (f *fileBackend) path(key string) string {
	name := base64.URLEncoding.EncodeToString([]byte(key))
	return filepath.Join(f.config.Directory, name+f.config.FileExtension)
}

// keyFromFile reverses path for directory listings
func (f *fileBackend) keyFromFile(name string) (string, bool) {
	name = strings.TrimSuffix(name, f.config.FileExtension)
	decoded, err := base64.URLEncoding.DecodeString(name)
	if err != nil {
		return "", false
	}
	return string(decoded), true
}

// readEntry loads and decodes one entry file. Read failures come back as the
// raw os error for the caller to map; corrupt content is ErrDeserialization.
func (f *fileBackend) readEntry(path string) (*fileEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if f.config.CompressionEnabled {
		reader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errors.NewStoreError(errors.ErrorTypeValidation, "readEntry", nil, errors.ErrDeserialization)
		}
		defer reader.Close()
		if data, err = io.ReadAll(reader); err != nil {
			return nil, errors.NewStoreError(errors.ErrorTypeValidation, "readEntry", nil, errors.ErrDeserialization)
		}
	}

	entry := &fileEntry{}
	if err := json.Unmarshal(data, entry); err != nil {
		return nil, errors.NewStoreError(errors.ErrorTypeValidation, "readEntry", nil, errors.ErrDeserialization)
	}
	return entry, nil
}

// writeEntry encodes and atomically writes one entry file
func (f *fileBackend) writeEntry(path string, entry *fileEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.NewStoreError(errors.ErrorTypeValidation, "writeEntry", nil, errors.ErrSerialization)
	}

	if f.config.CompressionEnabled {
		var buf bytes.Buffer
		writer, err := gzip.NewWriterLevel(&buf, f.config.CompressionLevel)
		if err != nil {
			return errors.NewStoreError(errors.ErrorTypeValidation, "writeEntry", nil, errors.ErrSerialization)
		}
		if _, err := writer.Write(data); err != nil {
			return errors.NewStoreError(errors.ErrorTypeValidation, "writeEntry", nil, errors.ErrSerialization)
		}
		if err := writer.Close(); err != nil {
			return errors.NewStoreError(errors.ErrorTypeValidation, "writeEntry", nil, errors.ErrSerialization)
		}
		data = buf.Bytes()
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return errors.NewStoreError(errors.ErrorTypeBackend, "writeEntry", nil, errors.ErrBackendUnavailable)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return errors.NewStoreError(errors.ErrorTypeBackend, "writeEntry", nil, errors.ErrBackendUnavailable)
	}
	return nil
}

// Get retrieves a value
func (f *fileBackend) Get(ctx context.Context, key string) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	f.mu.RLock()
	entry, err := f.readEntry(f.path(key))
	f.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		if stderrors.Is(err, errors.ErrDeserialization) {
			return nil, false, err
		}
		return nil, false, errors.NewStoreError(errors.ErrorTypeBackend, "Get", key, errors.ErrBackendUnavailable)
	}

	if !entry.Expires.IsZero() && ttl.IsExpired(entry.Expires) {
		_ = f.Delete(ctx, key)
		return nil, false, nil
	}

	value, err := Decode(entry.Value)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set stores a value
func (f *fileBackend) Set(ctx context.Context, key string, value any, ttlDuration time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := Encode(value)
	if err != nil {
		return err
	}

	entry := &fileEntry{Value: data}

	f.mu.Lock()
	defer f.mu.Unlock()

	if ttlDuration == KeepTTL {
		if existing, err := f.readEntry(f.path(key)); err == nil && !ttl.IsExpired(existing.Expires) {
			entry.Expires = existing.Expires
		}
	} else {
		entry.Expires = ttl.ExpirationTime(ttlDuration, f.ttlConfig)
	}
	return f.writeEntry(f.path(key), entry)
}

// Delete removes a value
func (f *fileBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return errors.NewStoreError(errors.ErrorTypeBackend, "Delete", key, errors.ErrBackendUnavailable)
	}
	return nil
}

// Has reports whether an unexpired entry file exists
func (f *fileBackend) Has(ctx context.Context, key string) (bool, error) {
	_, found, err := f.Get(ctx, key)
	return found, err
}

// Keys returns all unexpired keys
func (f *fileBackend) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	files, err := os.ReadDir(f.config.Directory)
	if err != nil {
		return nil, errors.NewStoreError(errors.ErrorTypeBackend, "Keys", nil, errors.ErrBackendUnavailable)
	}

	var keys []string
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), f.config.FileExtension) {
			continue
		}
		key, ok := f.keyFromFile(file.Name())
		if !ok {
			continue
		}
		entry, err := f.readEntry(filepath.Join(f.config.Directory, file.Name()))
		if err != nil {
			continue
		}
		if !entry.Expires.IsZero() && ttl.IsExpired(entry.Expires) {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Len returns the number of unexpired entries
func (f *fileBackend) Len(ctx context.Context) (int, error) {
	keys, err := f.Keys(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Clear removes all entry files
func (f *fileBackend) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	files, err := os.ReadDir(f.config.Directory)
	if err != nil {
		return errors.NewStoreError(errors.ErrorTypeBackend, "Clear", nil, errors.ErrBackendUnavailable)
	}
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), f.config.FileExtension) {
			continue
		}
		if err := os.Remove(filepath.Join(f.config.Directory, file.Name())); err != nil {
			return errors.NewStoreError(errors.ErrorTypeBackend, "Clear", nil, errors.ErrBackendUnavailable)
		}
	}
	return nil
}

// Close stops the janitor
func (f *fileBackend) Close(ctx context.Context) error {
	f.closeOnce.Do(func() {
		close(f.janitorStop)
	})
	<-f.janitorDone
	return nil
}

// janitor periodically removes expired entry files
func (f *fileBackend) janitor(interval time.Duration) {
	defer close(f.janitorDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.sweep()
		case <-f.janitorStop:
			return
		}
	}
}

// sweep removes all expired entry files
func (f *fileBackend) sweep() {
	f.mu.Lock()
	defer f.mu.Unlock()

	files, err := os.ReadDir(f.config.Directory)
	if err != nil {
		return
	}
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), f.config.FileExtension) {
			continue
		}
		path := filepath.Join(f.config.Directory, file.Name())
		entry, err := f.readEntry(path)
		if err != nil {
			continue
		}
		if !entry.Expires.IsZero() && ttl.IsExpired(entry.Expires) {
			_ = os.Remove(path)
		}
	}
}
