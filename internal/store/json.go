package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/klauspost/compress/zstd"

	"github.com/Aman-CERP/bm25vec/internal/bm25"
	vecerrors "github.com/Aman-CERP/bm25vec/internal/errors"
)

const (
	jsonExt     = ".json"
	zstdExt     = ".json.zst"
	lockExt     = ".lock"
	lockRetry   = 50 * time.Millisecond
	lockTimeout = 10 * time.Second
)

// zstdMagic prefixes every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// JSONStore keeps one file per model in a directory. Writes go to a temp
// file that is renamed into place, under an exclusive per-model flock;
// reads take a shared lock.
type JSONStore struct {
	dir      string
	compress bool

	mu     sync.Mutex
	closed bool
}

// Verify interface implementation at compile time
var _ StateStore = (*JSONStore)(nil)

// stateFile is the on-disk envelope.
type stateFile struct {
	SavedAt  time.Time      `json:"saved_at"`
	Snapshot *bm25.Snapshot `json:"snapshot"`
}

// NewJSONStore returns a store rooted at dir, creating it if needed.
// When compress is true new files are written zstd-compressed; existing
// files are read in either form.
func NewJSONStore(dir string, compress bool) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, vecerrors.New(vecerrors.ErrCodeFilePermission,
			fmt.Sprintf("failed to create state directory %s", dir), err)
	}
	return &JSONStore{dir: dir, compress: compress}, nil
}

// Dir returns the state directory.
func (s *JSONStore) Dir() string { return s.dir }

// Save implements StateStore.
func (s *JSONStore) Save(ctx context.Context, name string, snap *bm25.Snapshot) error {
	if err := s.check(name); err != nil {
		return err
	}

	lock, err := s.lock(ctx, name, true)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	data, err := json.Marshal(stateFile{SavedAt: time.Now().UTC(), Snapshot: snap})
	if err != nil {
		return vecerrors.New(vecerrors.ErrCodeSaveFailed, "failed to encode model", err)
	}
	target := s.path(name, s.compress)
	if s.compress {
		data = encodeZstd(data)
	}

	if err := writeAtomic(target, data); err != nil {
		return vecerrors.New(vecerrors.ErrCodeSaveFailed, fmt.Sprintf("failed to write %s", target), err)
	}
	// Only one encoding of a model may exist.
	_ = os.Remove(s.path(name, !s.compress))

	slog.Info("state_saved",
		slog.String("backend", string(BackendJSON)),
		slog.String("model", name),
		slog.String("path", target),
		slog.Int("bytes", len(data)))
	return nil
}

// Load implements StateStore.
func (s *JSONStore) Load(ctx context.Context, name string) (*bm25.Snapshot, error) {
	if err := s.check(name); err != nil {
		return nil, err
	}

	lock, err := s.lock(ctx, name, false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Unlock() }()

	path, ok := s.existing(name)
	if !ok {
		return nil, modelNotFound(name)
	}
	state, err := readStateFile(path)
	if err != nil {
		return nil, err
	}

	slog.Debug("state_loaded",
		slog.String("backend", string(BackendJSON)),
		slog.String("model", name),
		slog.Int("features", countFeatures(state.Snapshot)))
	return state.Snapshot, nil
}

// List implements StateStore.
func (s *JSONStore) List(ctx context.Context) ([]ModelInfo, error) {
	if err := s.check(DefaultModelName); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, vecerrors.IOError(fmt.Sprintf("failed to read %s", s.dir), err)
	}

	seen := make(map[string]bool)
	infos := make([]ModelInfo, 0)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := modelNameFromFile(e.Name())
		if !ok || seen[name] {
			continue
		}
		seen[name] = true

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		state, err := readStateFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			slog.Warn("state_unreadable",
				slog.String("file", e.Name()),
				slog.String("error", err.Error()))
			continue
		}
		infos = append(infos, ModelInfo{
			Name:     name,
			Features: countFeatures(state.Snapshot),
			NumDocs:  state.Snapshot.NumDocs,
			IDF:      state.Snapshot.IDF,
			SavedAt:  state.SavedAt,
			Backend:  BackendJSON,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Delete implements StateStore.
func (s *JSONStore) Delete(ctx context.Context, name string) error {
	if err := s.check(name); err != nil {
		return err
	}
	lock, err := s.lock(ctx, name, true)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	for _, compressed := range []bool{false, true} {
		if err := os.Remove(s.path(name, compressed)); err != nil && !os.IsNotExist(err) {
			return vecerrors.New(vecerrors.ErrCodeFilePermission, fmt.Sprintf("failed to delete model %q", name), err)
		}
	}
	return nil
}

// Close implements StateStore.
func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *JSONStore) check(name string) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return vecerrors.InternalError("store is closed", nil)
	}
	return ValidateModelName(name)
}

func (s *JSONStore) path(name string, compressed bool) string {
	if compressed {
		return filepath.Join(s.dir, name+zstdExt)
	}
	return filepath.Join(s.dir, name+jsonExt)
}

// existing returns the path of the stored model, preferring the encoding
// new files are written in.
func (s *JSONStore) existing(name string) (string, bool) {
	for _, compressed := range []bool{s.compress, !s.compress} {
		p := s.path(name, compressed)
		if fileExists(p) {
			return p, true
		}
	}
	return "", false
}

// lock acquires the per-model lock, retrying until ctx is done or
// lockTimeout elapses.
func (s *JSONStore) lock(ctx context.Context, name string, exclusive bool) (*flock.Flock, error) {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	fl := flock.New(filepath.Join(s.dir, "."+name+lockExt))
	var (
		ok  bool
		err error
	)
	if exclusive {
		ok, err = fl.TryLockContext(ctx, lockRetry)
	} else {
		ok, err = fl.TryRLockContext(ctx, lockRetry)
	}
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return nil, vecerrors.New(vecerrors.ErrCodeFilePermission, "failed to acquire state lock", err)
	}
	if !ok {
		return nil, vecerrors.New(vecerrors.ErrCodeStateLocked,
			fmt.Sprintf("model %q is locked by another process", name), err).
			WithSuggestion("Wait for the other bm25vec process to finish")
	}
	return fl, nil
}

func readStateFile(path string) (*stateFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, vecerrors.IOError(fmt.Sprintf("state file %s not found", path), err)
		}
		return nil, vecerrors.New(vecerrors.ErrCodeFilePermission, fmt.Sprintf("failed to read %s", path), err)
	}
	if bytes.HasPrefix(data, zstdMagic) {
		if data, err = decodeZstd(data); err != nil {
			return nil, vecerrors.New(vecerrors.ErrCodeFileCorrupt, fmt.Sprintf("failed to decompress %s", path), err)
		}
	}

	var state stateFile
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, vecerrors.New(vecerrors.ErrCodeCorruptState, fmt.Sprintf("failed to decode %s", path), err)
	}
	if state.Snapshot == nil {
		return nil, vecerrors.New(vecerrors.ErrCodeCorruptState, fmt.Sprintf("%s holds no model", path), nil)
	}
	return &state, nil
}

// writeAtomic writes data to a temp file in the target directory and
// renames it over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

func modelNameFromFile(file string) (string, bool) {
	for _, ext := range []string{zstdExt, jsonExt} {
		if strings.HasSuffix(file, ext) {
			name := strings.TrimSuffix(file, ext)
			return name, ValidateModelName(name) == nil
		}
	}
	return "", false
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func encodeZstd(data []byte) []byte {
	enc, _ := zstdEncoderPool.Get().(*zstd.Encoder)
	if enc == nil {
		enc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	}
	defer zstdEncoderPool.Put(enc)
	return enc.EncodeAll(data, make([]byte, 0, len(data)/4))
}

func decodeZstd(data []byte) ([]byte, error) {
	dec, _ := zstdDecoderPool.Get().(*zstd.Decoder)
	if dec == nil {
		var err error
		if dec, err = zstd.NewReader(nil); err != nil {
			return nil, err
		}
	}
	defer zstdDecoderPool.Put(dec)
	return dec.DecodeAll(data, nil)
}
