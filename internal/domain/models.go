package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Core Data Models

// FoodItem represents a single detected ingredient with its processing
// classification. Items are immutable after construction and held in
// detection/confidence order; the first item is treated as the scan's
// primary label for history display.
type FoodItem struct {
	Name           string       `json:"name"`
	ConfidenceRate float64      `json:"rate"`
	NovaCategory   NovaCategory `json:"nova_category"`
	Reason         string       `json:"reason,omitempty"`
}

// NutritionSummary represents estimated nutrition facts for a scan.
// Every field always carries a value: unknown or invalid upstream data is
// replaced by a bounded heuristic fallback so downstream insight rules can
// evaluate thresholds unconditionally.
type NutritionSummary struct {
	Calories int             `json:"calories"`
	Protein  int             `json:"protein"`
	Carbs    int             `json:"carbs"`
	Sugar    int             `json:"sugar"`
	Fat      int             `json:"fat"`
	Sodium   int             `json:"sodium,omitempty"`
	Source   NutritionSource `json:"source"`
}

// RawNutritionFacts is the loosely typed nutrition record produced by the
// extraction model. Fields may arrive as numbers or numeric strings, or be
// missing entirely; the aggregator decides field by field.
type RawNutritionFacts struct {
	Calories json.RawMessage `json:"calories_kcal,omitempty"`
	Protein  json.RawMessage `json:"protein_g,omitempty"`
	Carbs    json.RawMessage `json:"carbs_g,omitempty"`
	Sugar    json.RawMessage `json:"sugar_g,omitempty"`
	Fat      json.RawMessage `json:"fat_g,omitempty"`
	Sodium   json.RawMessage `json:"sodium_mg,omitempty"`
}

// FoodNutrition is one entry of the static ingredient lookup table used by
// the table-sum aggregation strategy.
type FoodNutrition struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Sugar    float64 `json:"sugar"`
	Fat      float64 `json:"fat"`
}

// MedicalCondition represents one diagnosed condition and the dietary
// restrictions it implies.
type MedicalCondition struct {
	Name                string   `json:"name"`
	Description         string   `json:"description,omitempty"`
	DietaryRestrictions []string `json:"dietary_restrictions,omitempty"`
}

// UserProfile represents the locally stored medical profile the pipeline
// reads per analysis. The core never mutates it; zero numeric values mean
// "unset".
type UserProfile struct {
	Age               int                `json:"age"`
	HeightCm          float64            `json:"height_cm"`
	WeightKg          float64            `json:"weight_kg"`
	MedicalConditions []MedicalCondition `json:"medical_conditions"`
	Allergies         []string           `json:"allergies"`
	Medications       []string           `json:"medications"`
}

// BMI returns the profile's body mass index, or 0 when height or weight is
// unset.
func (p *UserProfile) BMI() float64 {
	if p.HeightCm <= 0 || p.WeightKg <= 0 {
		return 0
	}
	m := p.HeightCm / 100
	return p.WeightKg / (m * m)
}

// Summary returns the short plain-text profile rendering sent to the
// advisory model.
func (p *UserProfile) Summary() string {
	names := make([]string, 0, len(p.MedicalConditions))
	for _, c := range p.MedicalConditions {
		names = append(names, c.Name)
	}
	return "- Conditions: " + orNone(strings.Join(names, ", ")) + "\n" +
		"- Medications: " + orNone(strings.Join(p.Medications, ", ")) + "\n" +
		"- Allergies: " + orNone(strings.Join(p.Allergies, ", "))
}

func orNone(s string) string {
	if s == "" {
		return "none specified"
	}
	return s
}

// AdvisoryIssue represents one risk finding, either produced by the
// advisory model or synthesized locally for an allergen match (severity
// fixed to high, related field fixed to "Allergy").
type AdvisoryIssue struct {
	Severity   Severity `json:"severity"`
	Ingredient string   `json:"ingredient"`
	Related    string   `json:"related_medication_or_condition"`
	Mechanism  string   `json:"mechanism"`
	Advice     string   `json:"advice"`
}

// AdvisoryReport is the structured output of the advisory model call, or
// the neutral default substituted when its response cannot be parsed.
type AdvisoryReport struct {
	Verdict Verdict         `json:"overall_recommendation"`
	Issues  []AdvisoryIssue `json:"issues"`
	Notes   string          `json:"notes"`
}

// ExtractionReport is the structured output of the ingredient/nutrition
// extraction model call.
type ExtractionReport struct {
	Ingredients     []string           `json:"ingredients"`
	Nutrition       *RawNutritionFacts `json:"nutrition"`
	Recommendations []string           `json:"personalized_recommendations"`
	Notes           string             `json:"notes"`
}

// NovaReportItem is one classified ingredient in the NOVA model response.
type NovaReportItem struct {
	Name       string       `json:"name"`
	Category   NovaCategory `json:"nova_category"`
	Confidence float64      `json:"confidence"`
	Reason     string       `json:"reason"`
}

// NovaReport is the structured output of the NOVA classification model
// call.
type NovaReport struct {
	Items   []NovaReportItem `json:"items"`
	Overall NovaCategory     `json:"overall_nova"`
	Notes   string           `json:"notes"`
}

// NovaOverview summarizes the scan-level processing classification and
// where it came from.
type NovaOverview struct {
	OverallCategory NovaCategory `json:"overall_category"`
	Source          string       `json:"source"`
}

// AnalysisResult is the final object assembled for one scan, persisted to
// history and returned to the caller.
type AnalysisResult struct {
	FoodItems          []FoodItem       `json:"food_items"`
	NovaOverview       NovaOverview     `json:"nova_overview"`
	Nutrition          NutritionSummary `json:"nutrition"`
	Verdict            Verdict          `json:"verdict"`
	Issues             []AdvisoryIssue  `json:"issues"`
	Insights           []string         `json:"insights"`
	Recommendations    []string         `json:"personalized_recommendations"`
	IngredientInsights []FoodItem       `json:"ingredient_insights,omitempty"`
	Notes              string           `json:"notes,omitempty"`
	Timestamp          time.Time        `json:"timestamp"`
}

// ScanRecord is one entry of the bounded recent-scan history. The history
// keeps at most ten records, newest first.
type ScanRecord struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Date          time.Time      `json:"date"`
	Result        AnalysisResult `json:"analysis_result"`
	ExtractedText string         `json:"extracted_text,omitempty"`
}

// Request/Response Models

// AnalyzeRequest represents an incoming scan analysis request. Callers
// supply extracted label text directly, or an image for server-side
// extraction, plus optional pre-extracted structured model outputs.
type AnalyzeRequest struct {
	SessionID     string            `json:"session_id"`
	ExtractedText string            `json:"extracted_text,omitempty"`
	ImageDataURI  string            `json:"image_data_uri,omitempty"`
	Extraction    *ExtractionReport `json:"extraction,omitempty"`
	Nova          *NovaReport       `json:"nova,omitempty"`
	Advisory      *AdvisoryReport   `json:"advisory,omitempty"`
}

// AnalyzeResponse wraps the result returned to the caller.
type AnalyzeResponse struct {
	ScanID         string          `json:"scan_id"`
	Result         *AnalysisResult `json:"result"`
	ProcessingTime time.Duration   `json:"processing_time"`
}

// Configuration Models

// Config represents the main application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	History  HistoryConfig  `mapstructure:"history"`
	Model    ModelAPIConfig `mapstructure:"model"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig represents PostgreSQL connection configuration for the
// profile repository and the Postgres history backend.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// HistoryConfig selects the scan-history backend.
type HistoryConfig struct {
	Backend    string `mapstructure:"backend"` // sqlite, postgres or memory
	SQLitePath string `mapstructure:"sqlite_path"`
}

// ModelAPIConfig represents the OpenAI-compatible model endpoint
// configuration shared by the vision and reasoning clients.
type ModelAPIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	VisionModel    string        `mapstructure:"vision_model"`
	ReasoningModel string        `mapstructure:"reasoning_model"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RateLimit      int           `mapstructure:"rate_limit"` // requests per second
}

// StorageConfig represents object storage configuration for oversized
// image upload and the trusted medical-facts document.
type StorageConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Bucket          string        `mapstructure:"bucket"`
	APIKey          string        `mapstructure:"api_key"`
	FactsKey        string        `mapstructure:"facts_key"`
	Timeout         time.Duration `mapstructure:"timeout"`
	InlineThreshold int64         `mapstructure:"inline_threshold"` // bytes
}

// CacheConfig represents Redis cache configuration
type CacheConfig struct {
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
	MemorySize  int           `mapstructure:"memory_size"` // in-memory LRU entries
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
