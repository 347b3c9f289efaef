package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// HTTPClient calls a remote recognition service. It posts the image as multipart form data
// to <baseURL>/ocr and expects {"text": [...], "textScore": [...]} back.
type HTTPClient struct {
	baseURL  string
	language string
	minScore float64
	client   *http.Client
}

// NewHTTPClient returns a client for the service at baseURL. An empty baseURL makes the
// client unavailable.
func NewHTTPClient(baseURL, language string, minScore float64, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		minScore: minScore,
		client:   &http.Client{Timeout: timeout},
	}
}

// Available reports whether a service URL is configured.
func (c *HTTPClient) Available() bool {
	return c.baseURL != ""
}

// Recognize uploads the image and returns the recognized fragments.
func (c *HTTPClient) Recognize(ctx context.Context, imagePath string) (*Result, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}
	body, contentType, err := c.encode(imagePath)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ocr", body)
	if err != nil {
		return nil, fmt.Errorf("build ocr request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ocr service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode ocr response: %w", err)
	}
	return &out, nil
}

func (c *HTTPClient) encode(imagePath string) (io.Reader, string, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", filepath.Base(imagePath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if c.language != "" {
		_ = w.WriteField("language", c.language)
	}
	if c.minScore > 0 {
		_ = w.WriteField("min_score", strconv.FormatFloat(c.minScore, 'f', -1, 64))
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
