package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/server"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// reprocessResponse is the shape of POST /api/v1/documents/{id}/reprocess.
type reprocessResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	params := url.Values{}
	params.Set("query", query.Query)
	if query.OwnerID != "" {
		params.Set("owner", query.OwnerID)
	}
	if query.Page > 0 {
		params.Set("page", strconv.Itoa(query.Page))
	}
	if query.Size > 0 {
		params.Set("size", strconv.Itoa(query.Size))
	}
	var response models.SearchResponse
	if err := getJSON(serverURL+"/api/v1/documents/search?"+params.Encode(), &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func searchDocumentViaHTTP(serverURL, id, query string) ([]models.PageHit, error) {
	endpoint := fmt.Sprintf("%s/api/v1/documents/%s/search?%s",
		serverURL, url.PathEscape(id), url.Values{"query": {query}}.Encode())
	var body struct {
		Items []models.PageHit `json:"items"`
	}
	if err := getJSON(endpoint, &body); err != nil {
		return nil, err
	}
	return body.Items, nil
}

func reprocessViaHTTP(serverURL, id string) (*reprocessResponse, error) {
	var res reprocessResponse
	if err := postJSON(serverURL+"/api/v1/documents/"+url.PathEscape(id)+"/reprocess", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func queueAllViaHTTP(serverURL string, force bool) (int, error) {
	var res struct {
		Queued int `json:"queued"`
	}
	if err := postJSON(serverURL+"/api/v1/documents/queue-all", map[string]bool{"force": force}, &res); err != nil {
		return 0, err
	}
	return res.Queued, nil
}

func statusViaHTTP(serverURL string) (*server.StatusResponse, error) {
	var s server.StatusResponse
	if err := getJSON(serverURL+"/api/v1/status", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func getJSON(endpoint string, out any) error {
	resp, err := httpClient.Get(endpoint)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return decodeResponse(resp, out)
}

func postJSON(endpoint string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	resp, err := httpClient.Post(endpoint, "application/json", body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, bytes.TrimSpace(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
