package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 8080},
		Model:     ModelConfig{Provider: ProviderConfig{BaseURL: "http://localhost:8000/v1"}},
		Embedding: EmbeddingConfig{Provider: ProviderConfig{BaseURL: "http://localhost:8001/v1"}},
		Airlines:  AirlinesConfig{DatasetPath: "data/airlines.xlsx"},
	}
	cfg.Model.Adapters = map[string]string{DefaultAdapter: "lora_model"}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_Database(t *testing.T) {
	tests := []struct {
		name    string
		db      DatabaseConfig
		wantErr string
	}{
		{"none", DatabaseConfig{Driver: DriverNone}, ""},
		{"redis without addrs", DatabaseConfig{Driver: DriverRedis}, "database.addrs is required"},
		{"valkey with addrs", DatabaseConfig{Driver: DriverValkey, Addrs: []string{"localhost:6379"}}, ""},
		{"badger without path", DatabaseConfig{Driver: DriverBadger}, "database.path is required"},
		{"badger with path", DatabaseConfig{Driver: DriverBadger, Path: "/tmp/cache"}, ""},
		{"unknown", DatabaseConfig{Driver: "mongo"}, `unknown database.driver "mongo"`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Database = tc.db

			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestValidate_DefaultAdapterRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Model.Adapters = map[string]string{"hotel_filter": "lora_model/hotel"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error when default adapter is missing")
	}
	expected := `model.adapters must register the "default" adapter`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_Threshold(t *testing.T) {
	cfg := validConfig()
	threshold := 1.5
	cfg.Airlines.Threshold = &threshold

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for threshold out of range")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Database.Driver != DriverNone {
		t.Errorf("expected driver %q, got %q", DriverNone, cfg.Database.Driver)
	}
	if cfg.Model.MaxNewTokens != 256 {
		t.Errorf("expected max_new_tokens 256, got %d", cfg.Model.MaxNewTokens)
	}
	if cfg.Model.MaxCachedAdapters != 8 {
		t.Errorf("expected max_cached_adapters 8, got %d", cfg.Model.MaxCachedAdapters)
	}
	if cfg.Embedding.Model != "sentence-transformers/LaBSE" {
		t.Errorf("unexpected embedding model %q", cfg.Embedding.Model)
	}
	if cfg.Airlines.TopK != 1 {
		t.Errorf("expected top_k 1, got %d", cfg.Airlines.TopK)
	}
	if cfg.Airlines.LookupThreshold() != 0.2 {
		t.Errorf("expected threshold 0.2, got %g", cfg.Airlines.LookupThreshold())
	}
	if cfg.Airlines.CodeColumn != "airline_code" {
		t.Errorf("unexpected code column %q", cfg.Airlines.CodeColumn)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	threshold := 0.5
	cfg := Config{
		Model:    ModelConfig{MaxNewTokens: 512},
		Airlines: AirlinesConfig{Threshold: &threshold, TopK: 3},
	}
	cfg.ApplyDefaults()

	if cfg.Model.MaxNewTokens != 512 {
		t.Errorf("expected 512, got %d", cfg.Model.MaxNewTokens)
	}
	if cfg.Airlines.LookupThreshold() != 0.5 || cfg.Airlines.TopK != 3 {
		t.Errorf("explicit airline settings were overridden: %+v", cfg.Airlines)
	}
}

func TestParse_ExpandsEnvVars(t *testing.T) {
	t.Setenv("FLIGHTQ_TEST_MODEL_URL", "http://vllm:8000/v1")

	data := []byte(`
http:
  port: 8080
model:
  provider:
    base_url: ${FLIGHTQ_TEST_MODEL_URL}
    api_key: ${FLIGHTQ_TEST_MISSING:-none}
  adapters:
    default: lora_model
embedding:
  provider:
    base_url: http://tei:8080/v1
airlines:
  dataset_path: data/airlines.xlsx
`)

	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model.Provider.BaseURL != "http://vllm:8000/v1" {
		t.Errorf("unexpected base url %q", cfg.Model.Provider.BaseURL)
	}
	if cfg.Model.Provider.APIKey != "none" {
		t.Errorf("expected default api key, got %q", cfg.Model.Provider.APIKey)
	}
	if cfg.Model.Adapters[DefaultAdapter] != "lora_model" {
		t.Errorf("unexpected adapters %v", cfg.Model.Adapters)
	}
}

func TestParse_ZeroThresholdIsKept(t *testing.T) {
	base := `
http:
  port: 8080
model:
  provider:
    base_url: http://vllm:8000/v1
  adapters:
    default: lora_model
embedding:
  provider:
    base_url: http://tei:8080/v1
airlines:
  dataset_path: data/airlines.xlsx
`
	cfg, err := Parse([]byte(base + "  threshold: 0\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.Airlines.LookupThreshold(); got != 0 {
		t.Errorf("explicit threshold 0 replaced with %g", got)
	}

	cfg, err = Parse([]byte(base))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.Airlines.LookupThreshold(); got != DefaultAirlineThreshold {
		t.Errorf("missing threshold should default to %g, got %g", DefaultAirlineThreshold, got)
	}
}

func TestResolveAdapterRoot_Explicit(t *testing.T) {
	cfg := validConfig()
	cfg.Model.AdapterRoot = "/srv/flightq"

	if got := cfg.ResolveAdapterRoot(); got != "/srv/flightq" {
		t.Errorf("expected explicit root, got %q", got)
	}
}
