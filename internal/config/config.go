package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/photo-moments/internal/moments"
)

//go:embed prices.yaml
var pricesYAML []byte

type Config struct {
	PhotoPrism PhotoPrismConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	Embedding  EmbeddingConfig
	Database   DatabaseConfig
	Prices     PricesConfig
}

type PhotoPrismConfig struct {
	Domain       string // public domain for generating photo links (e.g., https://photos.example.com)
	DatabaseURL  string // MariaDB DSN for direct database access (e.g., photoprism:photoprism@tcp(mariadb:3306)/photoprism)
	OriginalsDir string // path to PhotoPrism's originals directory for reading image bytes
}

// PhotoURL returns an OSC 8 hyperlink for terminal emulators (iTerm2, etc.)
// Displays the UID but makes it clickable to open the photo in PhotoPrism
// Returns empty string if Domain is not set
func (c *PhotoPrismConfig) PhotoURL(uid string) string {
	if c.Domain == "" {
		return ""
	}
	url := c.Domain + "/library/browse?view=cards&order=oldest&q=uid:" + uid
	// OSC 8 hyperlink format: \e]8;;URL\e\\TEXT\e]8;;\e\\
	return "\x1b]8;;" + url + "\x1b\\" + uid + "\x1b]8;;\x1b\\"
}

type OpenAIConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey string
}

type EmbeddingConfig struct {
	URL string // defaults to http://localhost:8000
	Dim int    // defaults to 768
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type PricesConfig struct {
	Models map[string]ModelPricing `yaml:"models"`
}

type ModelPricing struct {
	Standard RequestPricing `yaml:"standard"`
	Batch    RequestPricing `yaml:"batch"`
}

type RequestPricing struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func Load() *Config {
	var prices PricesConfig
	if err := yaml.Unmarshal(pricesYAML, &prices); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded prices.yaml: " + err.Error())
	}

	return &Config{
		PhotoPrism: PhotoPrismConfig{
			Domain:       os.Getenv("PHOTOPRISM_DOMAIN"),
			DatabaseURL:  os.Getenv("PHOTOPRISM_DATABASE_URL"),
			OriginalsDir: os.Getenv("PHOTOPRISM_ORIGINALS_DIR"),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
			Dim: envInt("EMBEDDING_DIM", 768),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Prices: prices,
	}
}

// GetModelPricing returns pricing for a specific model, with fallback defaults
func (c *Config) GetModelPricing(modelName string) ModelPricing {
	if pricing, ok := c.Prices.Models[modelName]; ok {
		return pricing
	}
	// Return zero pricing if model not found
	return ModelPricing{}
}

// criteriaFile mirrors the criteria YAML. Pointers distinguish omitted
// fields from explicit zeros, and durations are human-readable strings
// ("30s", "10m") rather than raw nanoseconds.
type criteriaFile struct {
	VisualSimilarityThreshold *float64 `yaml:"visual_similarity_threshold"`
	TimeGapThreshold          *string  `yaml:"time_gap_threshold"`
	LocationRadiusMeters      *float64 `yaml:"location_radius_meters"`
	MaxClusterSize            *int     `yaml:"max_cluster_size"`
	BurstWindow               *string  `yaml:"burst_window"`
	SubClusterSimilarity      *float64 `yaml:"sub_cluster_similarity"`
}

// LoadCriteria reads clustering criteria from a YAML file. Fields the file
// omits keep their defaults; an empty path returns the defaults unchanged.
func LoadCriteria(path string) (moments.Criteria, error) {
	crit := moments.DefaultCriteria()
	if path == "" {
		return crit, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return crit, fmt.Errorf("read criteria file: %w", err)
	}

	var file criteriaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return crit, fmt.Errorf("parse criteria file %s: %w", path, err)
	}

	if file.VisualSimilarityThreshold != nil {
		crit.VisualSimilarityThreshold = *file.VisualSimilarityThreshold
	}
	if file.TimeGapThreshold != nil {
		d, err := time.ParseDuration(*file.TimeGapThreshold)
		if err != nil {
			return crit, fmt.Errorf("invalid time_gap_threshold %q: %w", *file.TimeGapThreshold, err)
		}
		crit.TimeGapThreshold = d
	}
	if file.LocationRadiusMeters != nil {
		crit.LocationRadiusMeters = *file.LocationRadiusMeters
	}
	if file.MaxClusterSize != nil {
		crit.MaxClusterSize = *file.MaxClusterSize
	}
	if file.BurstWindow != nil {
		d, err := time.ParseDuration(*file.BurstWindow)
		if err != nil {
			return crit, fmt.Errorf("invalid burst_window %q: %w", *file.BurstWindow, err)
		}
		crit.BurstWindow = d
	}
	if file.SubClusterSimilarity != nil {
		crit.SubClusterSimilarity = *file.SubClusterSimilarity
	}

	if err := crit.Validate(); err != nil {
		return crit, fmt.Errorf("criteria file %s: %w", path, err)
	}
	return crit, nil
}
