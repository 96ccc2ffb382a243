package domain

import (
	"context"
)

// TextExtractor extracts label text from a captured image. An empty result
// means "no ingredients found", never an error.
type TextExtractor interface {
	ExtractText(ctx context.Context, imageRef string) (string, error)
}

// AdvisoryModel runs the structured reasoning calls. All three return raw
// model text; parsing and default substitution happen in the core.
type AdvisoryModel interface {
	Advise(ctx context.Context, profileSummary, extractedText, facts string) (string, error)
	ExtractIngredients(ctx context.Context, extractedText string) (string, error)
	ClassifyNova(ctx context.Context, extractedText string) (string, error)
}

// ObjectStorage uploads oversized captures and serves the trusted
// medical-facts document.
type ObjectStorage interface {
	Upload(ctx context.Context, data []byte) (string, error)
	FetchFacts(ctx context.Context, key string) (string, error)
}

// HistoryStore is key-value persistence for per-session scan history.
// The analysis service, not the store, enforces the ten-record cap and
// newest-first order.
type HistoryStore interface {
	Get(ctx context.Context, sessionID string) ([]ScanRecord, error)
	Put(ctx context.Context, sessionID string, records []ScanRecord) error
	Close() error
}

// ProfileStore owns the user medical profile. Update applies shallow merge
// semantics: set fields overwrite, unset fields are retained.
type ProfileStore interface {
	Get(ctx context.Context, sessionID string) (*UserProfile, error)
	Update(ctx context.Context, sessionID string, partial *UserProfile) (*UserProfile, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatabaseConfig() *DatabaseConfig
	GetModelConfig() *ModelAPIConfig
	GetStorageConfig() *StorageConfig
	GetCacheConfig() *CacheConfig
	Validate() error
	IsDevelopment() bool
}
