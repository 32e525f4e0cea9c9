package generator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Eotel/live-graphic-recorder/internal/generator"
)

const defaultRequestTimeout = 90 * time.Second

// HTTPClient talks to the generation gateway over JSON. One client serves
// all three generation concerns since the gateway exposes them as sibling
// endpoints behind the same base URL and API key.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultRequestTimeout},
	}
}

type analyzeRequest struct {
	Lines []generator.TranscriptLine `json:"lines"`
}

func (c *HTTPClient) Analyze(ctx context.Context, lines []generator.TranscriptLine) (*generator.AnalysisResult, error) {
	var out generator.AnalysisResult
	if err := c.postJSON(ctx, "/v1/analyze", analyzeRequest{Lines: lines}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type imageResponse struct {
	ImageBase64 string `json:"imageBase64"`
}

func (c *HTTPClient) GenerateImage(ctx context.Context, req generator.ImageRequest) ([]byte, error) {
	var out imageResponse
	if err := c.postJSON(ctx, "/v1/images", req, &out); err != nil {
		return nil, err
	}
	img, err := base64.StdEncoding.DecodeString(out.ImageBase64)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	if len(img) == 0 {
		return nil, fmt.Errorf("generator returned empty image")
	}
	return img, nil
}

func (c *HTTPClient) Summarize(ctx context.Context, req generator.MetaSummaryRequest) (*generator.MetaSummaryResult, error) {
	var out generator.MetaSummaryResult
	if err := c.postJSON(ctx, "/v1/meta-summaries", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) postJSON(ctx context.Context, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !isHTTPSuccessStatus(resp.StatusCode) {
		return fmt.Errorf("generator %s returned status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
