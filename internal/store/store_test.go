package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/bm25vec/internal/bm25"
	vecerrors "github.com/Aman-CERP/bm25vec/internal/errors"
)

var corpus = []string{"the cat sat", "the cat sat on the mat", "dogs bark"}

func fitModel(t *testing.T, mutate func(o *bm25.Options)) *bm25.Model {
	t.Helper()
	opts := bm25.DefaultOptions()
	if mutate != nil {
		mutate(&opts)
	}
	v, err := bm25.New(opts)
	require.NoError(t, err)
	return v.Fit(corpus)
}

type backendCase struct {
	name string
	open func(t *testing.T) StateStore
}

func backends() []backendCase {
	return []backendCase{
		{"json", func(t *testing.T) StateStore {
			s, err := NewJSONStore(t.TempDir(), false)
			require.NoError(t, err)
			return s
		}},
		{"json-zstd", func(t *testing.T) StateStore {
			s, err := NewJSONStore(t.TempDir(), true)
			require.NoError(t, err)
			return s
		}},
		{"sqlite-memory", func(t *testing.T) StateStore {
			s, err := NewSQLiteStore("")
			require.NoError(t, err)
			return s
		}},
		{"sqlite-file", func(t *testing.T) StateStore {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "models.db"))
			require.NoError(t, err)
			return s
		}},
	}
}

func TestStateStore_RoundTripIsLossless(t *testing.T) {
	models := map[string]*bm25.Model{
		"default": fitModel(t, nil),
		"classic": fitModel(t, func(o *bm25.Options) {
			o.IDF = bm25.ClassicIDF{}
			o.Normalize = true
			o.MinN, o.MaxN = 1, 2
			o.StopWords = []string{"on"}
		}),
		"fixed": fitModel(t, func(o *bm25.Options) {
			o.Vocabulary = map[string]int{"cat": 0, "sat": 4}
		}),
	}

	for _, bc := range backends() {
		for name, m := range models {
			t.Run(bc.name+"/"+name, func(t *testing.T) {
				// Given: a store holding a fitted model
				s := bc.open(t)
				defer func() { _ = s.Close() }()
				ctx := context.Background()
				require.NoError(t, s.Save(ctx, name, m.Snapshot()))

				// When: the model is loaded back
				snap, err := s.Load(ctx, name)
				require.NoError(t, err)
				restored, err := bm25.FromSnapshot(snap, nil)
				require.NoError(t, err)

				// Then: every frozen value and score is identical
				assert.Equal(t, m.IDFWeights(), restored.IDFWeights())
				assert.Equal(t, m.DocumentFrequency(), restored.DocumentFrequency())
				assert.Equal(t, m.DocLengths(), restored.DocLengths())
				assert.Equal(t, m.AvgDocLength(), restored.AvgDocLength())
				assert.Equal(t, m.MaxScore(), restored.MaxScore())
				assert.Equal(t, m.Vocabulary().Map(), restored.Vocabulary().Map())
				assert.Equal(t, m.Transform(corpus), restored.Transform(corpus))
			})
		}
	}
}

func TestStateStore_SaveReplaces(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			s := bc.open(t)
			defer func() { _ = s.Close() }()
			ctx := context.Background()

			require.NoError(t, s.Save(ctx, "m", fitModel(t, nil).Snapshot()))
			second := fitModel(t, func(o *bm25.Options) { o.MaxFeatures = 2 })
			require.NoError(t, s.Save(ctx, "m", second.Snapshot()))

			snap, err := s.Load(ctx, "m")
			require.NoError(t, err)
			assert.Len(t, snap.Vocabulary, 2)
			assert.Len(t, snap.IDFWeights, 2)
		})
	}
}

func TestStateStore_ListAndDelete(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			s := bc.open(t)
			defer func() { _ = s.Close() }()
			ctx := context.Background()
			m := fitModel(t, nil)

			infos, err := s.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, infos)

			require.NoError(t, s.Save(ctx, "beta", m.Snapshot()))
			require.NoError(t, s.Save(ctx, "alpha", m.Snapshot()))

			infos, err = s.List(ctx)
			require.NoError(t, err)
			require.Len(t, infos, 2)
			assert.Equal(t, "alpha", infos[0].Name)
			assert.Equal(t, "beta", infos[1].Name)
			assert.Equal(t, 7, infos[0].Features)
			assert.Equal(t, 3, infos[0].NumDocs)
			assert.Equal(t, bm25.IDFSmooth, infos[0].IDF)
			assert.WithinDuration(t, time.Now(), infos[0].SavedAt, time.Minute)

			require.NoError(t, s.Delete(ctx, "alpha"))
			require.NoError(t, s.Delete(ctx, "alpha"))

			_, err = s.Load(ctx, "alpha")
			assert.Equal(t, vecerrors.ErrCodeModelNotFound, vecerrors.GetCode(err))

			infos, err = s.List(ctx)
			require.NoError(t, err)
			assert.Len(t, infos, 1)
		})
	}
}

func TestStateStore_MissingAndInvalidNames(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			s := bc.open(t)
			defer func() { _ = s.Close() }()
			ctx := context.Background()

			_, err := s.Load(ctx, "nothing")
			assert.Equal(t, vecerrors.ErrCodeModelNotFound, vecerrors.GetCode(err))

			for _, bad := range []string{"", "../escape", "has space", "dot.name"} {
				err := s.Save(ctx, bad, fitModel(t, nil).Snapshot())
				assert.Equal(t, vecerrors.ErrCodeInvalidInput, vecerrors.GetCode(err), "name %q", bad)
			}
		})
	}
}

func TestStateStore_ClosedRejectsCalls(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			s := bc.open(t)
			require.NoError(t, s.Close())
			require.NoError(t, s.Close())

			_, err := s.Load(context.Background(), "m")
			assert.Equal(t, vecerrors.ErrCodeInternal, vecerrors.GetCode(err))
		})
	}
}

func TestJSONStore_CompressedFilesAreZstd(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStore(dir, true)
	require.NoError(t, err)

	require.NoError(t, s.Save(context.Background(), "m", fitModel(t, nil).Snapshot()))

	data, err := os.ReadFile(filepath.Join(dir, "m.json.zst"))
	require.NoError(t, err)
	assert.Equal(t, zstdMagic, data[:4])
	assert.NoFileExists(t, filepath.Join(dir, "m.json"))
}

func TestJSONStore_ReadsEitherEncoding(t *testing.T) {
	// Given: a model written uncompressed
	dir := t.TempDir()
	plain, err := NewJSONStore(dir, false)
	require.NoError(t, err)
	require.NoError(t, plain.Save(context.Background(), "m", fitModel(t, nil).Snapshot()))

	// When: a compressing store opens the same directory
	zst, err := NewJSONStore(dir, true)
	require.NoError(t, err)
	snap, err := zst.Load(context.Background(), "m")

	// Then: the plain file is still readable
	require.NoError(t, err)
	assert.Equal(t, 3, snap.NumDocs)

	// And: re-saving switches encoding without leaving a duplicate
	require.NoError(t, zst.Save(context.Background(), "m", snap))
	assert.FileExists(t, filepath.Join(dir, "m.json.zst"))
	assert.NoFileExists(t, filepath.Join(dir, "m.json"))
}

func TestJSONStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStore(dir, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "m.json"), []byte("{not json"), 0644))

	_, err = s.Load(context.Background(), "m")

	assert.Equal(t, vecerrors.ErrCodeCorruptState, vecerrors.GetCode(err))
	assert.True(t, vecerrors.IsFatal(err))

	// Unreadable files are skipped by List.
	infos, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestJSONStore_LockedByAnotherProcess(t *testing.T) {
	// Given: another holder of the model's exclusive lock
	dir := t.TempDir()
	s, err := NewJSONStore(dir, false)
	require.NoError(t, err)
	holder := flock.New(filepath.Join(dir, ".m.lock"))
	locked, err := holder.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer func() { _ = holder.Unlock() }()

	// When: saving with a short deadline
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	err = s.Save(ctx, "m", fitModel(t, nil).Snapshot())

	// Then: the save reports the lock instead of blocking
	assert.Equal(t, vecerrors.ErrCodeStateLocked, vecerrors.GetCode(err))
	assert.NoFileExists(t, filepath.Join(dir, "m.json"))
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.db")
	m := fitModel(t, nil)

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), "m", m.Snapshot()))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	snap, err := reopened.Load(context.Background(), "m")
	require.NoError(t, err)
	assert.Equal(t, m.IDFWeights(), snap.IDFWeights)
}

func TestSQLiteStore_RejectsCorruptDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.db")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a database file, just some text padding"), 0644))

	_, err := NewSQLiteStore(path)

	assert.Equal(t, vecerrors.ErrCodeCorruptState, vecerrors.GetCode(err))
}
