package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPhotoURL_EmptyDomain(t *testing.T) {
	cfg := PhotoPrismConfig{
		Domain: "",
	}

	result := cfg.PhotoURL("photo123")

	if result != "" {
		t.Errorf("expected empty string for empty domain, got '%s'", result)
	}
}

func TestPhotoURL_ContainsUID(t *testing.T) {
	cfg := PhotoPrismConfig{
		Domain: "https://photos.example.com",
	}

	uid := "pt8abc123xyz"
	result := cfg.PhotoURL(uid)

	// The visible text should be just the UID
	// OSC 8 format: \e]8;;URL\e\\TEXT\e]8;;\e\\
	// So the UID should appear between the two escape sequences
	found := false
	for i := range len(result) - len(uid) {
		if result[i:i+len(uid)] == uid {
			found = true
			break
		}
	}

	if !found {
		t.Errorf("expected result to contain UID '%s'", uid)
	}
}

func TestPhotoURL_CorrectFormat(t *testing.T) {
	cfg := PhotoPrismConfig{
		Domain: "https://photos.example.com",
	}

	result := cfg.PhotoURL("test123")

	// Verify OSC 8 start sequence exists: \x1b]8;;
	startSeq := "\x1b]8;;"
	if len(result) < len(startSeq) || result[:len(startSeq)] != startSeq {
		t.Error("expected result to start with OSC 8 sequence '\\x1b]8;;'")
	}

	// Verify end sequence exists: \x1b]8;;\x1b\\
	endSeq := "\x1b]8;;\x1b\\"
	if len(result) < len(endSeq) || result[len(result)-len(endSeq):] != endSeq {
		t.Error("expected result to end with OSC 8 close sequence")
	}
}

func TestGetModelPricing_KnownModel(t *testing.T) {
	cfg := Load() // Load actual config with embedded prices

	pricing := cfg.GetModelPricing("gpt-4.1-mini")

	// Verify expected values from prices.yaml
	if pricing.Standard.Input != 0.40 {
		t.Errorf("expected standard input price 0.40, got %f", pricing.Standard.Input)
	}

	if pricing.Standard.Output != 1.60 {
		t.Errorf("expected standard output price 1.60, got %f", pricing.Standard.Output)
	}

	// Batch pricing should be 50% of standard
	if pricing.Batch.Input != 0.20 {
		t.Errorf("expected batch input price 0.20, got %f", pricing.Batch.Input)
	}
}

func TestGetModelPricing_GeminiModel(t *testing.T) {
	cfg := Load()

	pricing := cfg.GetModelPricing("gemini-2.5-flash")

	if pricing.Standard.Input != 0.30 {
		t.Errorf("expected gemini standard input 0.30, got %f", pricing.Standard.Input)
	}

	if pricing.Standard.Output != 2.50 {
		t.Errorf("expected gemini standard output 2.50, got %f", pricing.Standard.Output)
	}
}

func TestGetModelPricing_UnknownModel(t *testing.T) {
	cfg := Load()

	pricing := cfg.GetModelPricing("unknown-model-xyz")

	// Unknown model should return zero pricing
	if pricing.Standard.Input != 0 || pricing.Standard.Output != 0 {
		t.Errorf("expected zero pricing for unknown model, got input=%f output=%f",
			pricing.Standard.Input, pricing.Standard.Output)
	}
}

func TestLoad_DefaultEmbeddingDim(t *testing.T) {
	// Clear any existing EMBEDDING_DIM
	os.Unsetenv("EMBEDDING_DIM")

	cfg := Load()

	if cfg.Embedding.Dim != 768 {
		t.Errorf("expected default embedding dim 768, got %d", cfg.Embedding.Dim)
	}
}

func TestLoad_CustomEmbeddingDim(t *testing.T) {
	t.Setenv("EMBEDDING_DIM", "512")

	cfg := Load()

	if cfg.Embedding.Dim != 512 {
		t.Errorf("expected embedding dim 512, got %d", cfg.Embedding.Dim)
	}
}

func TestLoad_InvalidEmbeddingDim(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"non-numeric", "invalid"},
		{"negative", "-100"},
		{"zero", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("EMBEDDING_DIM", tt.value)

			cfg := Load()

			if cfg.Embedding.Dim != 768 {
				t.Errorf("expected default embedding dim 768 for %s input, got %d", tt.name, cfg.Embedding.Dim)
			}
		})
	}
}

func TestLoad_PhotoPrismConfig(t *testing.T) {
	t.Setenv("PHOTOPRISM_DOMAIN", "https://public.photos.com")
	t.Setenv("PHOTOPRISM_DATABASE_URL", "photoprism:photoprism@tcp(mariadb:3306)/photoprism")
	t.Setenv("PHOTOPRISM_ORIGINALS_DIR", "/photoprism/originals")

	cfg := Load()

	if cfg.PhotoPrism.Domain != "https://public.photos.com" {
		t.Errorf("expected domain 'https://public.photos.com', got '%s'", cfg.PhotoPrism.Domain)
	}

	if cfg.PhotoPrism.DatabaseURL != "photoprism:photoprism@tcp(mariadb:3306)/photoprism" {
		t.Errorf("unexpected database URL '%s'", cfg.PhotoPrism.DatabaseURL)
	}

	if cfg.PhotoPrism.OriginalsDir != "/photoprism/originals" {
		t.Errorf("expected originals dir '/photoprism/originals', got '%s'", cfg.PhotoPrism.OriginalsDir)
	}
}

func TestLoad_DatabaseConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/moments")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "10")

	cfg := Load()

	if cfg.Database.URL != "postgres://localhost/moments" {
		t.Errorf("unexpected database URL '%s'", cfg.Database.URL)
	}

	if cfg.Database.MaxOpenConns != 10 {
		t.Errorf("expected max open conns 10, got %d", cfg.Database.MaxOpenConns)
	}

	if cfg.Database.MaxIdleConns != 5 {
		t.Errorf("expected default max idle conns 5, got %d", cfg.Database.MaxIdleConns)
	}
}

func TestLoad_APITokens(t *testing.T) {
	t.Setenv("OPENAI_TOKEN", "sk-test-token-123")
	t.Setenv("GEMINI_API_KEY", "gemini-api-key-456")

	cfg := Load()

	if cfg.OpenAI.Token != "sk-test-token-123" {
		t.Errorf("expected OpenAI token 'sk-test-token-123', got '%s'", cfg.OpenAI.Token)
	}

	if cfg.Gemini.APIKey != "gemini-api-key-456" {
		t.Errorf("expected Gemini API key 'gemini-api-key-456', got '%s'", cfg.Gemini.APIKey)
	}
}

func TestLoad_EmptyEnvVars(t *testing.T) {
	os.Unsetenv("PHOTOPRISM_DATABASE_URL")
	os.Unsetenv("OPENAI_TOKEN")
	os.Unsetenv("GEMINI_API_KEY")

	cfg := Load()

	// Should not panic, should return empty strings
	if cfg.PhotoPrism.DatabaseURL != "" {
		t.Errorf("expected empty PhotoPrism database URL, got '%s'", cfg.PhotoPrism.DatabaseURL)
	}

	if cfg.OpenAI.Token != "" {
		t.Errorf("expected empty OpenAI token, got '%s'", cfg.OpenAI.Token)
	}
}

func TestLoadCriteria_EmptyPath(t *testing.T) {
	crit, err := LoadCriteria("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if crit.VisualSimilarityThreshold != 0.50 {
		t.Errorf("expected default threshold 0.50, got %f", crit.VisualSimilarityThreshold)
	}

	if crit.TimeGapThreshold != 30*time.Second {
		t.Errorf("expected default time gap 30s, got %s", crit.TimeGapThreshold)
	}
}

func TestLoadCriteria_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "criteria.yaml")
	content := "visual_similarity_threshold: 0.75\ntime_gap_threshold: 2m\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write criteria file: %v", err)
	}

	crit, err := LoadCriteria(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if crit.VisualSimilarityThreshold != 0.75 {
		t.Errorf("expected threshold 0.75, got %f", crit.VisualSimilarityThreshold)
	}

	if crit.TimeGapThreshold != 2*time.Minute {
		t.Errorf("expected time gap 2m, got %s", crit.TimeGapThreshold)
	}

	// Omitted fields keep defaults
	if crit.MaxClusterSize != 20 {
		t.Errorf("expected default max cluster size 20, got %d", crit.MaxClusterSize)
	}

	if crit.BurstWindow != 10*time.Second {
		t.Errorf("expected default burst window 10s, got %s", crit.BurstWindow)
	}
}

func TestLoadCriteria_InvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "criteria.yaml")
	if err := os.WriteFile(path, []byte("burst_window: sometimes\n"), 0644); err != nil {
		t.Fatalf("failed to write criteria file: %v", err)
	}

	if _, err := LoadCriteria(path); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestLoadCriteria_OutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "criteria.yaml")
	if err := os.WriteFile(path, []byte("visual_similarity_threshold: 1.5\n"), 0644); err != nil {
		t.Fatalf("failed to write criteria file: %v", err)
	}

	if _, err := LoadCriteria(path); err == nil {
		t.Error("expected error for out-of-range threshold")
	}
}

func TestLoadCriteria_MissingFile(t *testing.T) {
	if _, err := LoadCriteria("/nonexistent/criteria.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
