package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"catalog-ingest/internal/domain"
)

const extractionPrompt = `You are cataloguing spare parts for marine engines and boat equipment.
Look at the product photo and respond with ONLY a JSON object of this exact shape:
{"title": string, "description": string, "price": number, "categoryName": string}
Title is a short product name. Description is two or three factual sentences.
Price is an estimated retail price in euros; use 0 when unsure.`

// buildPrompt appends the category instruction. When the caller knows the
// catalog's categories the model picks from that list, so the returned name
// matches the store instead of a free guess.
func buildPrompt(categories []domain.Category) string {
	category := "CategoryName is your best guess at a product category."
	if len(categories) > 0 {
		names := make([]string, len(categories))
		for i, c := range categories {
			names[i] = c.Name
		}
		category = "Pick the most appropriate categoryName from this list: " + strings.Join(names, ", ") + "."
	}
	return extractionPrompt + "\n" + category + "\nDo not wrap the JSON in markdown fences and do not add comments."
}

// Extractor asks a multimodal model to describe a part photo as structured
// catalog metadata.
type Extractor struct {
	client *api.Client
	model  string
}

func NewExtractor(rawURL, model string, timeout time.Duration) (*Extractor, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse vision url: %w", err)
	}
	return &Extractor{
		client: api.NewClient(base, &http.Client{Timeout: timeout}),
		model:  model,
	}, nil
}

// Extract runs the vision model over the image and matches the returned
// category name against the known categories. A response that cannot be
// parsed as the expected JSON object yields ErrMetadataParse.
func (e *Extractor) Extract(ctx context.Context, imageData []byte, categories []domain.Category) (domain.ExtractedMetadata, error) {
	stream := false
	req := &api.ChatRequest{
		Model: e.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: buildPrompt(categories),
				Images:  []api.ImageData{imageData},
			},
		},
		Stream: &stream,
	}

	var content string
	err := e.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content += resp.Message.Content
		return nil
	})
	if err != nil {
		return domain.ExtractedMetadata{}, fmt.Errorf("vision request failed: %w", err)
	}

	meta, err := parseMetadata(content)
	if err != nil {
		return domain.ExtractedMetadata{}, err
	}

	if cat, ok := MatchCategory(categories, meta.CategoryName); ok {
		meta.CategoryID = cat.ID
	}
	return meta, nil
}

// parseMetadata strips markdown fences the model sometimes adds, slices the
// outermost JSON object and decodes it.
func parseMetadata(content string) (domain.ExtractedMetadata, error) {
	s := strings.ReplaceAll(content, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)

	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			s = s[i : j+1]
		}
	}

	var meta domain.ExtractedMetadata
	if err := json.Unmarshal([]byte(s), &meta); err != nil {
		return domain.ExtractedMetadata{}, fmt.Errorf("%w: %v", domain.ErrMetadataParse, err)
	}
	if meta.Title == "" {
		return domain.ExtractedMetadata{}, fmt.Errorf("%w: response has no title", domain.ErrMetadataParse)
	}
	return meta, nil
}
