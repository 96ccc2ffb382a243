package external

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vigil-scan-server/internal/domain"
)

// StorageClient implements domain.ObjectStorage over a simple signed-URL
// HTTP object store. It handles two concerns: uploading captures too large
// for inline model submission, and serving the trusted medical-facts
// document.
type StorageClient struct {
	config     domain.StorageConfig
	httpClient *http.Client
	log        *logrus.Logger
}

// NewStorageClient creates a storage client.
func NewStorageClient(config domain.StorageConfig, logger *logrus.Logger) *StorageClient {
	return &StorageClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		log: logger,
	}
}

// Upload stores the bytes under a fresh key and returns the object's URL.
func (s *StorageClient) Upload(ctx context.Context, data []byte) (string, error) {
	key := fmt.Sprintf("captures/%s.bin", uuid.New().String())
	url := s.objectURL(key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if s.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload failed with status %d", resp.StatusCode)
	}

	s.log.WithFields(logrus.Fields{
		"key":   key,
		"bytes": len(data),
	}).Debug("Uploaded capture to object storage")

	return url, nil
}

// FetchFacts retrieves the medical-facts document and normalizes it into
// one text blob.
func (s *StorageClient) FetchFacts(ctx context.Context, key string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.objectURL(key), nil)
	if err != nil {
		return "", fmt.Errorf("creating facts request: %w", err)
	}
	if s.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching facts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("facts document %s: %w", key, domain.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching facts failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading facts body: %w", err)
	}

	return NormalizeFactsDocument(body), nil
}

func (s *StorageClient) objectURL(key string) string {
	base := strings.TrimSuffix(s.config.BaseURL, "/")
	return fmt.Sprintf("%s/%s/%s", base, s.config.Bucket, key)
}

// NormalizeFactsDocument flattens the medical-facts document into one text
// blob. The store serves three shapes: a raw JSON string, an array of
// {text} entries, or an object with a facts array of {text} entries.
// Anything else is treated as plain text.
func NormalizeFactsDocument(raw []byte) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return strings.TrimSpace(asString)
	}

	var asArray []factEntry
	if err := json.Unmarshal(raw, &asArray); err == nil {
		return joinFacts(asArray)
	}

	var asObject struct {
		Facts []factEntry `json:"facts"`
	}
	if err := json.Unmarshal(raw, &asObject); err == nil && len(asObject.Facts) > 0 {
		return joinFacts(asObject.Facts)
	}

	return trimmed
}

type factEntry struct {
	Text string `json:"text"`
}

func joinFacts(entries []factEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		if t := strings.TrimSpace(e.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// DecodeDataURI extracts the binary payload of a base64 data URI.
func DecodeDataURI(uri string) ([]byte, error) {
	idx := strings.Index(uri, ",")
	if idx < 0 {
		return nil, fmt.Errorf("malformed data URI")
	}
	meta, payload := uri[:idx], uri[idx+1:]
	if !strings.Contains(meta, "base64") {
		return nil, fmt.Errorf("unsupported data URI encoding")
	}
	return base64.StdEncoding.DecodeString(payload)
}
