package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("suggestion service is not configured")

// ErrUnavailable wraps any failure of the remote service.
var ErrUnavailable = errors.New("suggestion service unavailable")

// ProductIdea is what the remote model proposes for a new catalog entry.
type ProductIdea struct {
	Category string          `json:"category"`
	Emoji    string          `json:"emoji"`
	Price    decimal.Decimal `json:"price"`
	Pitch    string          `json:"pitch,omitempty"`
}

type AIClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewAIClient returns a client that always reports ErrDisabled when apiKey
// is empty.
func NewAIClient(endpoint, apiKey string, timeout time.Duration) *AIClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &AIClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   strings.TrimSpace(apiKey),
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *AIClient) Enabled() bool {
	return c != nil && c.apiKey != "" && c.endpoint != ""
}

// IdeaFor asks the model how to list a product called name. The answer's
// category is constrained to categories when the list is not empty.
func (c *AIClient) IdeaFor(ctx context.Context, name string, categories []string) (ProductIdea, error) {
	if !c.Enabled() {
		return ProductIdea{}, ErrDisabled
	}

	body, err := json.Marshal(map[string]any{
		"name":       name,
		"categories": categories,
		"locale":     "fr-FR",
	})
	if err != nil {
		return ProductIdea{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/product-ideas", bytes.NewReader(body))
	if err != nil {
		return ProductIdea{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return ProductIdea{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ProductIdea{}, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var idea ProductIdea
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&idea); err != nil {
		return ProductIdea{}, fmt.Errorf("%w: decoding answer: %v", ErrUnavailable, err)
	}
	if len(categories) > 0 && !containsFold(categories, idea.Category) {
		idea.Category = categories[len(categories)-1]
	}
	if idea.Price.IsNegative() {
		idea.Price = decimal.Zero
	}
	return idea, nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
