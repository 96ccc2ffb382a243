// Package external contains clients for the services the analysis
// pipeline depends on: the OpenAI-compatible model endpoint, object
// storage, and the response cache. The resilient wrapper in this package
// is what the rest of the server consumes.
package external

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/vigil-scan-server/internal/domain"
)

const visionPrompt = "Extract all text from this food label image. Return only the text found on the label, nothing else."

const advisorySystemPrompt = "You are an expert clinical pharmacist and dietician. " +
	"Base your answer ONLY on the 'Retrieved medical facts' provided. " +
	"If the facts do not mention an interaction, explicitly say " +
	"\"No known interaction found in retrieved references\". " +
	"Do NOT invent ingredients or interactions."

// ModelClient talks to an OpenAI-compatible chat completion endpoint for
// both the vision (label text extraction) and reasoning (advisory,
// ingredient extraction, NOVA classification) calls. Oversized inline
// images are uploaded to object storage and submitted by URL instead.
type ModelClient struct {
	client          *openai.Client
	config          domain.ModelAPIConfig
	storage         domain.ObjectStorage
	inlineThreshold int64
	rateLimiter     *rate.Limiter
	log             *logrus.Logger
}

// NewModelClient creates a model client. storage may be nil; oversized
// images are then submitted inline anyway and the endpoint may reject
// them.
func NewModelClient(config domain.ModelAPIConfig, storage domain.ObjectStorage, inlineThreshold int64, logger *logrus.Logger) *ModelClient {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &ModelClient{
		client:          openai.NewClientWithConfig(clientConfig),
		config:          config,
		storage:         storage,
		inlineThreshold: inlineThreshold,
		rateLimiter:     rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		log:             logger,
	}
}

// ExtractText runs the vision model over a captured label image. imageRef
// is a data URI or a hosted URL. An empty response is returned as-is;
// "no text found" is the caller's business, not an error.
func (m *ModelClient) ExtractText(ctx context.Context, imageRef string) (string, error) {
	if err := m.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	ref, err := m.resolveImageRef(ctx, imageRef)
	if err != nil {
		return "", err
	}

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: m.config.VisionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: ref},
					},
					{
						Type: openai.ChatMessagePartTypeText,
						Text: visionPrompt,
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("vision extraction failed: %w", err)
	}

	text := firstChoice(resp)
	m.log.WithFields(logrus.Fields{
		"model":       m.config.VisionModel,
		"text_length": len(text),
	}).Debug("Extracted label text")

	return text, nil
}

// Advise runs the advisory reasoning call. The raw model text is returned;
// the core parses it and substitutes the neutral default on failure.
func (m *ModelClient) Advise(ctx context.Context, profileSummary, extractedText, facts string) (string, error) {
	if facts == "" {
		facts = "No retrieved medical facts available."
	}

	prompt := fmt.Sprintf(`
Patient profile:
%s

Product ingredients text (from label OCR):
%s

Retrieved medical facts (from trusted knowledge base):
%s

Task:
1. Identify any HIGH, MEDIUM, or LOW risk issues between the patient's profile and the product.
2. Explain briefly why (mechanism if possible).
3. Output STRICT JSON with this schema:

{
  "overall_recommendation": "safe" | "caution" | "avoid",
  "issues": [
    {
      "severity": "high" | "medium" | "low",
      "ingredient": "string",
      "related_medication_or_condition": "string",
      "mechanism": "string",
      "advice": "string"
    }
  ],
  "notes": "short plain-language explanation for the user"
}
`, profileSummary, extractedText, facts)

	return m.complete(ctx, advisorySystemPrompt, prompt)
}

// ExtractIngredients runs the ingredient/nutrition extraction call.
func (m *ModelClient) ExtractIngredients(ctx context.Context, extractedText string) (string, error) {
	prompt := fmt.Sprintf(`
Food label text:
%s

Task: extract the individual ingredients and any nutrition facts from the
label text above. Output STRICT JSON with this schema:

{
  "ingredients": ["string"],
  "nutrition": {
    "calories_kcal": number,
    "protein_g": number,
    "carbs_g": number,
    "sugar_g": number,
    "fat_g": number,
    "sodium_mg": number
  },
  "personalized_recommendations": ["string"],
  "notes": "string"
}

Omit nutrition fields that are not stated on the label.
`, extractedText)

	return m.complete(ctx, "You are a food label analysis assistant. Output only JSON.", prompt)
}

// ClassifyNova runs the NOVA classification call.
func (m *ModelClient) ClassifyNova(ctx context.Context, extractedText string) (string, error) {
	prompt := fmt.Sprintf(`
Food label text:
%s

Task: classify each identified ingredient into its NOVA food processing
category (1 = unprocessed or minimally processed, 2 = processed culinary
ingredient, 3 = processed food, 4 = ultra-processed food). Output STRICT
JSON with this schema:

{
  "items": [
    {"name": "string", "nova_category": 1, "confidence": 0.9, "reason": "string"}
  ],
  "overall_nova": 1,
  "notes": "string"
}
`, extractedText)

	return m.complete(ctx, "You are a food processing classification assistant. Output only JSON.", prompt)
}

// complete issues one reasoning-model chat completion.
func (m *ModelClient) complete(ctx context.Context, system, user string) (string, error) {
	if err := m.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: m.config.ReasoningModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}

	return firstChoice(resp), nil
}

// resolveImageRef decides whether the image goes to the model inline or
// through object storage. Data URIs above the inline threshold are
// decoded, uploaded, and replaced by the signed URL.
func (m *ModelClient) resolveImageRef(ctx context.Context, imageRef string) (string, error) {
	if !strings.HasPrefix(imageRef, "data:") {
		return imageRef, nil
	}
	if int64(len(imageRef)) <= m.inlineThreshold || m.storage == nil {
		return imageRef, nil
	}

	data, err := DecodeDataURI(imageRef)
	if err != nil {
		return "", fmt.Errorf("decoding image data URI: %w", err)
	}

	url, err := m.storage.Upload(ctx, data)
	if err != nil {
		return "", fmt.Errorf("uploading oversized image: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"inline_bytes": len(imageRef),
		"upload_bytes": len(data),
	}).Debug("Oversized capture routed through object storage")

	return url, nil
}

func firstChoice(resp openai.ChatCompletionResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Message.Content
}
