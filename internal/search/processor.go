package search

import (
	"strings"

	"github.com/hyperjump/folio/internal/config"
	"github.com/hyperjump/folio/internal/models"
)

// ProcessQuery trims the query text and applies paging defaults from cfg.
func ProcessQuery(query *models.SearchQuery, cfg *config.SearchConfig) error {
	query.Query = strings.TrimSpace(query.Query)
	return query.Validate(cfg.DefaultPageSize, cfg.MaxPageSize)
}
