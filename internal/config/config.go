package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/bm25vec/internal/bm25"
	vecerrors "github.com/Aman-CERP/bm25vec/internal/errors"
	"github.com/Aman-CERP/bm25vec/internal/matrix"
	"github.com/Aman-CERP/bm25vec/internal/store"
	"github.com/Aman-CERP/bm25vec/internal/text"
)

// CurrentVersion is the config schema version written by WriteYAML.
const CurrentVersion = 1

// ProjectConfigNames are the project config files Load looks for, in order.
var ProjectConfigNames = []string{".bm25vec.yaml", ".bm25vec.yml"}

// Config represents the complete bm25vec configuration.
type Config struct {
	Version     int               `yaml:"version" json:"version"`
	Vectorizer  VectorizerConfig  `yaml:"vectorizer" json:"vectorizer"`
	BM25        BM25Config        `yaml:"bm25" json:"bm25"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	Storage     StorageConfig     `yaml:"storage" json:"storage"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging"`
}

// VectorizerConfig configures vocabulary construction.
type VectorizerConfig struct {
	// Tokenizer is one of word, code, unicode.
	Tokenizer string `yaml:"tokenizer" json:"tokenizer"`

	// NgramRange is [min, max], both >= 1.
	NgramRange []int `yaml:"ngram_range" json:"ngram_range"`

	// StopWords are removed after n-gram expansion, in addition to the preset.
	StopWords []string `yaml:"stop_words,omitempty" json:"stop_words,omitempty"`

	// StopWordsPreset is one of none, english, code.
	StopWordsPreset string `yaml:"stop_words_preset" json:"stop_words_preset"`

	// MinDF and MaxDF bound document frequency. An integer is a document
	// count, a float is a fraction of the corpus.
	MinDF DFBound `yaml:"min_df" json:"min_df"`
	MaxDF DFBound `yaml:"max_df" json:"max_df"`

	// MaxFeatures keeps only the most frequent features (0 = no cap).
	MaxFeatures int `yaml:"max_features" json:"max_features"`

	// Binary counts a feature at most once per document.
	Binary bool `yaml:"binary" json:"binary"`

	// Vocabulary fixes the feature columns; no vocabulary is learned.
	Vocabulary map[string]int `yaml:"vocabulary,omitempty" json:"vocabulary,omitempty"`
}

// BM25Config configures scoring.
type BM25Config struct {
	// K1 is the term saturation factor (> 0).
	K1 float64 `yaml:"k1" json:"k1"`

	// B is the length normalization factor, in [0,1].
	B float64 `yaml:"b" json:"b"`

	// IDF is smooth or classic.
	IDF string `yaml:"idf" json:"idf"`

	// Normalize divides scores by the largest fit-corpus score.
	Normalize bool `yaml:"normalize" json:"normalize"`

	// Epsilon floors scores and the average document length.
	Epsilon float64 `yaml:"epsilon" json:"epsilon"`
}

// PerformanceConfig tunes parallelism and caching.
type PerformanceConfig struct {
	// Workers is the number of concurrent analysis chunks (0 = GOMAXPROCS).
	Workers int `yaml:"workers" json:"workers"`

	// ChunkSize is the number of documents per chunk.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`

	// CacheSize is the number of analysed queries the search engine keeps.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// StorageConfig selects where fitted models are kept.
type StorageConfig struct {
	// Backend is json or sqlite.
	Backend string `yaml:"backend" json:"backend"`

	// Path is the state directory.
	Path string `yaml:"path" json:"path"`

	// Compress writes JSON state zstd-compressed.
	Compress bool `yaml:"compress" json:"compress"`
}

// LoggingConfig configures the log file.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level" json:"level"`

	// File is the log path; empty uses ~/.bm25vec/logs/bm25vec.log.
	File string `yaml:"file" json:"file"`

	// MaxSizeMB is the size at which the log rotates.
	MaxSizeMB int `yaml:"max_size_mb" json:"max_size_mb"`

	// MaxFiles is the number of rotated files kept.
	MaxFiles int `yaml:"max_files" json:"max_files"`
}

// DFBound is a min_df/max_df value whose YAML tag decides its meaning:
// 2 is a document count, 2.0 or 0.5 is a fraction, null is unset.
type DFBound struct {
	matrix.Bound
}

// CountBound returns a document-count bound.
func CountBound(n int) DFBound { return DFBound{matrix.CountBound(n)} }

// FractionBound returns a fraction-of-corpus bound.
func FractionBound(f float64) DFBound { return DFBound{matrix.FractionBound(f)} }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *DFBound) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: document frequency bound must be a number", node.Line)
	}
	switch node.ShortTag() {
	case "!!int":
		var n int
		if err := node.Decode(&n); err != nil {
			return err
		}
		d.Bound = matrix.CountBound(n)
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		d.Bound = matrix.FractionBound(f)
	default:
		return fmt.Errorf("line %d: document frequency bound must be an integer count or a float fraction, got %q",
			node.Line, node.Value)
	}
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler. Keys absent from node keep
// their current values. yaml.v3 skips a field's unmarshaler for null, so an
// explicit null min_df or max_df is cleared here.
func (v *VectorizerConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain VectorizerConfig
	if err := node.Decode((*plain)(v)); err != nil {
		return err
	}
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i+1].ShortTag() != "!!null" {
			continue
		}
		switch node.Content[i].Value {
		case "min_df":
			v.MinDF = DFBound{}
		case "max_df":
			v.MaxDF = DFBound{}
		}
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler. Fractions always carry a decimal
// point so they read back as fractions.
func (d DFBound) MarshalYAML() (interface{}, error) {
	switch d.Kind() {
	case matrix.BoundCount:
		return int(d.Value()), nil
	case matrix.BoundFraction:
		s := strconv.FormatFloat(d.Value(), 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: s}, nil
	default:
		return nil, nil
	}
}

// MarshalJSON implements json.Marshaler.
func (d DFBound) MarshalJSON() ([]byte, error) {
	switch d.Kind() {
	case matrix.BoundCount:
		return json.Marshal(int(d.Value()))
	case matrix.BoundFraction:
		return json.Marshal(d.Value())
	default:
		return []byte("null"), nil
	}
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Vectorizer: VectorizerConfig{
			Tokenizer:       text.TokenizerWord,
			NgramRange:      []int{1, 1},
			StopWordsPreset: "none",
		},
		BM25: BM25Config{
			K1:      bm25.DefaultK1,
			B:       bm25.DefaultB,
			IDF:     bm25.IDFSmooth,
			Epsilon: bm25.DefaultEpsilon,
		},
		Performance: PerformanceConfig{
			Workers:   runtime.NumCPU(),
			ChunkSize: matrix.DefaultChunkSize,
			CacheSize: 1000,
		},
		Storage: StorageConfig{
			Backend: string(store.BackendJSON),
			Path:    filepath.Join(DataDir(), "models"),
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// DataDir returns ~/.bm25vec, where models and logs live by default.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".bm25vec")
	}
	return filepath.Join(home, ".bm25vec")
}

// GetUserConfigPath returns the path to the user's global config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/bm25vec/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "bm25vec", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "bm25vec", "config.yaml")
	}
	return filepath.Join(home, ".config", "bm25vec", "config.yaml")
}

// ProjectConfigPath returns the project config file in dir, or "" if dir
// has none.
func ProjectConfigPath(dir string) string {
	for _, name := range ProjectConfigNames {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

// Load builds the configuration for dir. Precedence, lowest first:
// defaults, user config, project config in dir, environment.
func Load(dir string) (*Config, error) {
	project := ""
	if dir != "" {
		project = ProjectConfigPath(dir)
	}
	return load(project)
}

// LoadPath is Load with an explicit config file in place of the project
// config. The file must exist.
func LoadPath(path string) (*Config, error) {
	if !fileExists(path) {
		return nil, vecerrors.New(vecerrors.ErrCodeConfigNotFound,
			fmt.Sprintf("config file %s not found", path), nil)
	}
	return load(path)
}

func load(project string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.LoadFile(GetUserConfigPath()); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	if project != "" {
		if err := cfg.LoadFile(project); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFile applies the YAML file at path on top of c. Keys absent from the
// file keep their current values, so explicit zeros and false are honoured.
// A missing file is not an error.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return vecerrors.New(vecerrors.ErrCodeConfigPermission,
			fmt.Sprintf("failed to read config file %s", path), err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return vecerrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithSuggestion("Check the YAML syntax, or run 'bm25vec config show' to see a valid file")
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("BM25VEC_K1"); v != "" {
		k1, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return vecerrors.ConfigError("BM25VEC_K1 must be a number", err)
		}
		c.BM25.K1 = k1
	}
	if v := os.Getenv("BM25VEC_B"); v != "" {
		b, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return vecerrors.ConfigError("BM25VEC_B must be a number", err)
		}
		c.BM25.B = b
	}
	if v := os.Getenv("BM25VEC_IDF"); v != "" {
		c.BM25.IDF = v
	}
	if v := os.Getenv("BM25VEC_TOKENIZER"); v != "" {
		c.Vectorizer.Tokenizer = v
	}
	if v := os.Getenv("BM25VEC_WORKERS"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return vecerrors.ConfigError("BM25VEC_WORKERS must be an integer", err)
		}
		c.Performance.Workers = n
	}
	if v := os.Getenv("BM25VEC_STORE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("BM25VEC_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate checks the configuration and returns the first problem found
// as a configuration error.
func (c *Config) Validate() error {
	if len(c.Vectorizer.NgramRange) != 2 {
		return vecerrors.ConfigErrorf("vectorizer.ngram_range must be [min, max], got %v", c.Vectorizer.NgramRange)
	}
	if _, err := c.ToOptions(); err != nil {
		return err
	}

	if c.Performance.Workers < 0 {
		return vecerrors.ConfigErrorf("performance.workers must be non-negative, got %d", c.Performance.Workers)
	}
	if c.Performance.ChunkSize < 0 {
		return vecerrors.ConfigErrorf("performance.chunk_size must be non-negative, got %d", c.Performance.ChunkSize)
	}
	if c.Performance.CacheSize < 0 {
		return vecerrors.ConfigErrorf("performance.cache_size must be non-negative, got %d", c.Performance.CacheSize)
	}

	if _, err := store.ParseBackend(c.Storage.Backend); err != nil {
		return vecerrors.ConfigError("invalid storage.backend", err)
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return vecerrors.ConfigErrorf("storage.path must not be empty")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return vecerrors.ConfigErrorf("invalid logging.level: %s (valid options: debug, info, warn, error)", c.Logging.Level)
	}
	if c.Logging.MaxSizeMB <= 0 {
		return vecerrors.ConfigErrorf("logging.max_size_mb must be positive, got %d", c.Logging.MaxSizeMB)
	}
	if c.Logging.MaxFiles < 1 {
		return vecerrors.ConfigErrorf("logging.max_files must be at least 1, got %d", c.Logging.MaxFiles)
	}
	return nil
}

// ToOptions converts the vectorizer, bm25 and performance sections into
// validated vectorizer options.
func (c *Config) ToOptions() (bm25.Options, error) {
	v := c.Vectorizer
	if len(v.NgramRange) != 2 {
		return bm25.Options{}, vecerrors.ConfigErrorf("vectorizer.ngram_range must be [min, max], got %v", v.NgramRange)
	}

	tok, err := text.NewTokenizer(v.Tokenizer)
	if err != nil {
		return bm25.Options{}, vecerrors.ConfigError("invalid vectorizer.tokenizer", err)
	}
	idf, err := bm25.IDFByName(c.BM25.IDF)
	if err != nil {
		return bm25.Options{}, vecerrors.ConfigError("invalid bm25.idf", err)
	}
	stop, err := text.StopWordPreset(v.StopWordsPreset)
	if err != nil {
		return bm25.Options{}, vecerrors.ConfigError("invalid vectorizer.stop_words_preset", err)
	}
	stop = append(stop, v.StopWords...)

	opts := bm25.Options{
		K1:          c.BM25.K1,
		B:           c.BM25.B,
		Tokenizer:   tok,
		MinN:        v.NgramRange[0],
		MaxN:        v.NgramRange[1],
		StopWords:   stop,
		MinDF:       v.MinDF.Bound,
		MaxDF:       v.MaxDF.Bound,
		MaxFeatures: v.MaxFeatures,
		Binary:      v.Binary,
		Vocabulary:  v.Vocabulary,
		IDF:         idf,
		Normalize:   c.BM25.Normalize,
		Epsilon:     c.BM25.Epsilon,
		Workers:     c.Performance.Workers,
		ChunkSize:   c.Performance.ChunkSize,
	}
	if err := opts.Validate(); err != nil {
		return bm25.Options{}, err
	}
	return opts, nil
}

// StoreOptions returns the options for opening the configured state store.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Backend:  store.Backend(strings.ToLower(c.Storage.Backend)),
		Dir:      c.Storage.Path,
		Compress: c.Storage.Compress,
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
