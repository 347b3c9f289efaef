package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/folio/internal/config"
)

func TestJoin(t *testing.T) {
	tests := []struct {
		in   *Result
		want string
	}{
		{nil, ""},
		{&Result{}, ""},
		{&Result{Text: []string{"  Hello", "world ", ""}}, "Hello world"},
		{&Result{Text: []string{"   "}}, ""},
	}
	for _, tt := range tests {
		if got := Join(tt.in); got != tt.want {
			t.Errorf("Join(%+v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.png")
	if err := os.WriteFile(path, []byte("\x89PNG fake"), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHTTPClient_Recognize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ocr" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, _, err := r.FormFile("image"); err != nil {
			http.Error(w, "missing image", http.StatusBadRequest)
			return
		}
		if r.FormValue("language") != "eng" {
			http.Error(w, "bad language", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"text":      []string{"Scanned", "receipt"},
			"textScore": []float64{0.9, 0.8},
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", "eng", 0.5, 0)
	if !c.Available() {
		t.Fatal("client with URL should be available")
	}
	res, err := c.Recognize(context.Background(), writeImage(t))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if Join(res) != "Scanned receipt" {
		t.Errorf("text = %q", Join(res))
	}
	if len(res.Scores) != 2 {
		t.Errorf("scores = %v", res.Scores)
	}
}

func TestHTTPClient_serverError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := NewHTTPClient(srv.URL, "", 0, 0)
	if _, err := c.Recognize(context.Background(), writeImage(t)); err == nil {
		t.Error("expected error on 503")
	}
}

func TestHTTPClient_unavailable(t *testing.T) {
	c := NewHTTPClient("", "eng", 0, 0)
	if c.Available() {
		t.Error("client without URL should be unavailable")
	}
	if _, err := c.Recognize(context.Background(), "x.png"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestNew(t *testing.T) {
	off := false
	svc, err := New(config.OCRConfig{Enabled: &off, URL: "http://ml:3003"})
	if err != nil {
		t.Fatal(err)
	}
	if svc.Available() {
		t.Error("disabled config should give an unavailable service")
	}

	svc, err = New(config.OCRConfig{URL: "http://ml:3003"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := svc.(*HTTPClient); !ok || !svc.Available() {
		t.Errorf("default provider should be an available HTTP client, got %T", svc)
	}

	if _, err := New(config.OCRConfig{Provider: "cloud"}); err == nil {
		t.Error("unknown provider should fail")
	}
}
