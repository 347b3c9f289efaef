// Package models defines core data structures for assets, PDF documents, pages, and search results.
package models

import (
	"path/filepath"
	"strings"
	"time"
)

// DocumentStatus is the processing state of a PDF document.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusReady, StatusFailed:
		return true
	}
	return false
}

// TextSource records where a page's text came from.
type TextSource string

const (
	TextSourceEmbedded TextSource = "embedded"
	TextSourceOCR      TextSource = "ocr"
	TextSourceNone     TextSource = "none"
)

// Asset is an uploaded file known to the store.
type Asset struct {
	ID               string     `json:"id"`
	OwnerID          string     `json:"owner_id"`
	OriginalPath     string     `json:"original_path"`
	OriginalFileName string     `json:"original_file_name"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// IsPDF reports whether the asset's file name has a .pdf extension.
func (a *Asset) IsPDF() bool {
	name := a.OriginalFileName
	if name == "" {
		name = a.OriginalPath
	}
	return IsPDFPath(name)
}

// IsPDFPath reports whether path has a .pdf extension (case-insensitive).
func IsPDFPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// Metadata is the document-level information read from a PDF's tags.
type Metadata struct {
	PageCount    int        `json:"page_count"`
	Title        *string    `json:"title"`
	Author       *string    `json:"author"`
	Subject      *string    `json:"subject"`
	Creator      *string    `json:"creator"`
	Producer     *string    `json:"producer"`
	CreationDate *time.Time `json:"creation_date"`
}

// Document is the processed state of one PDF asset.
// LastError is set only when Status is failed; ProcessedAt only when Status is ready.
type Document struct {
	ID string `json:"id"`
	Metadata
	ProcessedAt *time.Time     `json:"processed_at"`
	Status      DocumentStatus `json:"status"`
	LastError   *string        `json:"last_error"`
	OwnerID     string         `json:"owner_id,omitempty"`
	FileName    string         `json:"file_name,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Page is the extracted text and geometry of one 1-indexed page.
type Page struct {
	ID         string     `json:"id"`
	DocumentID string     `json:"document_id"`
	PageNumber int        `json:"page_number"`
	Text       string     `json:"text"`
	TextSource TextSource `json:"text_source"`
	Width      *float64   `json:"width"`
	Height     *float64   `json:"height"`
}
