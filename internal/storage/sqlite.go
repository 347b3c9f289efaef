package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/folio/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS assets (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL DEFAULT '',
		original_path TEXT NOT NULL,
		original_file_name TEXT NOT NULL,
		deleted_at DATETIME,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assets_owner ON assets(owner_id);

	CREATE TABLE IF NOT EXISTS pdf_documents (
		asset_id TEXT PRIMARY KEY,
		page_count INTEGER NOT NULL DEFAULT 0,
		title TEXT,
		author TEXT,
		subject TEXT,
		creator TEXT,
		producer TEXT,
		creation_date DATETIME,
		processed_at DATETIME,
		status TEXT NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'processing', 'ready', 'failed')),
		last_error TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (asset_id) REFERENCES assets(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_pdf_documents_status ON pdf_documents(status);

	CREATE TABLE IF NOT EXISTS pdf_pages (
		id TEXT PRIMARY KEY,
		asset_id TEXT NOT NULL,
		page_number INTEGER NOT NULL,
		text TEXT NOT NULL,
		text_source TEXT NOT NULL CHECK (text_source IN ('embedded', 'ocr', 'none')),
		width REAL,
		height REAL,
		UNIQUE (asset_id, page_number),
		FOREIGN KEY (asset_id) REFERENCES pdf_documents(asset_id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS pdf_search (
		asset_id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		FOREIGN KEY (asset_id) REFERENCES pdf_documents(asset_id) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

// PageID returns the stable id of a page row, so reprocessing an unchanged file
// rewrites identical rows.
func PageID(documentID string, pageNumber int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s/%d", documentID, pageNumber))).String()
}

// UpsertAsset inserts an asset or updates its path, name, and owner. A previously deleted
// asset with the same id is restored.
func (s *SQLiteStorage) UpsertAsset(ctx context.Context, asset *models.Asset) error {
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = s.now()
	}
	asset.DeletedAt = nil
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assets (id, owner_id, original_path, original_file_name, deleted_at, created_at)
		 VALUES (?, ?, ?, ?, NULL, ?)
		 ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			original_path = excluded.original_path,
			original_file_name = excluded.original_file_name,
			deleted_at = NULL`,
		asset.ID, asset.OwnerID, asset.OriginalPath, asset.OriginalFileName, asset.CreatedAt,
	)
	return err
}

// GetAsset returns an asset by id, including soft-deleted ones.
func (s *SQLiteStorage) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	var a models.Asset
	var deletedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, original_path, original_file_name, deleted_at, created_at
		 FROM assets WHERE id = ?`, id,
	).Scan(&a.ID, &a.OwnerID, &a.OriginalPath, &a.OriginalFileName, &deletedAt, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	a.DeletedAt = timePtr(deletedAt)
	return &a, nil
}

// MarkAssetDeleted soft-deletes an asset. Its document stays in the database but is
// hidden from listings and search.
func (s *SQLiteStorage) MarkAssetDeleted(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE assets SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, s.now(), id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListPDFAssetIDs returns ids of live assets with a .pdf file name, oldest first.
func (s *SQLiteStorage) ListPDFAssetIDs(ctx context.Context, force bool) ([]string, error) {
	q := `SELECT a.id FROM assets a
		WHERE a.deleted_at IS NULL AND lower(a.original_file_name) LIKE '%.pdf'`
	if !force {
		q += ` AND NOT EXISTS (SELECT 1 FROM pdf_documents d WHERE d.asset_id = a.id)`
	}
	q += ` ORDER BY a.created_at, a.id`
	return s.queryIDs(ctx, q)
}

// MarkPending creates the document row as pending, or resets a ready or failed one.
func (s *SQLiteStorage) MarkPending(ctx context.Context, id string) (bool, error) {
	now := s.now()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO pdf_documents (asset_id, status, created_at, updated_at)
		 VALUES (?, 'pending', ?, ?)
		 ON CONFLICT(asset_id) DO UPDATE SET
			status = 'pending', last_error = NULL, processed_at = NULL, updated_at = excluded.updated_at
		 WHERE pdf_documents.status NOT IN ('pending', 'processing')`,
		id, now, now,
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// MarkReprocess moves a ready or failed document back to pending.
func (s *SQLiteStorage) MarkReprocess(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE pdf_documents
		 SET status = 'pending', last_error = NULL, processed_at = NULL, updated_at = ?
		 WHERE asset_id = ? AND status IN ('ready', 'failed')`,
		s.now(), id,
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// MarkProcessing sets the document to processing and clears any previous error.
func (s *SQLiteStorage) MarkProcessing(ctx context.Context, id string) error {
	now := s.now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pdf_documents (asset_id, status, created_at, updated_at)
		 VALUES (?, 'processing', ?, ?)
		 ON CONFLICT(asset_id) DO UPDATE SET
			status = 'processing', last_error = NULL, processed_at = NULL, updated_at = excluded.updated_at`,
		id, now, now,
	)
	return err
}

// MarkFailed records a failure. message should already be bounded by the caller.
func (s *SQLiteStorage) MarkFailed(ctx context.Context, id, message string) error {
	now := s.now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pdf_documents (asset_id, status, last_error, created_at, updated_at)
		 VALUES (?, 'failed', ?, ?, ?)
		 ON CONFLICT(asset_id) DO UPDATE SET
			status = 'failed', last_error = excluded.last_error, processed_at = NULL,
			updated_at = excluded.updated_at`,
		id, message, now, now,
	)
	return err
}

// Complete writes the result of a successful run in one transaction.
func (s *SQLiteStorage) Complete(ctx context.Context, id string, meta models.Metadata, pages []*models.Page, searchText string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := s.now()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pdf_documents (asset_id, page_count, title, author, subject, creator, producer,
			creation_date, processed_at, status, last_error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'ready', NULL, ?, ?)
		 ON CONFLICT(asset_id) DO UPDATE SET
			page_count = excluded.page_count, title = excluded.title, author = excluded.author,
			subject = excluded.subject, creator = excluded.creator, producer = excluded.producer,
			creation_date = excluded.creation_date, processed_at = excluded.processed_at,
			status = 'ready', last_error = NULL, updated_at = excluded.updated_at`,
		id, meta.PageCount, nullString(meta.Title), nullString(meta.Author), nullString(meta.Subject),
		nullString(meta.Creator), nullString(meta.Producer), nullTime(meta.CreationDate), now, now, now,
	); err != nil {
		return fmt.Errorf("update document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM pdf_pages WHERE asset_id = ?`, id); err != nil {
		return fmt.Errorf("delete pages: %w", err)
	}
	if len(pages) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO pdf_pages (id, asset_id, page_number, text, text_source, width, height)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, p := range pages {
			p.DocumentID = id
			p.ID = PageID(id, p.PageNumber)
			if _, err := stmt.ExecContext(ctx, p.ID, id, p.PageNumber, p.Text, string(p.TextSource),
				nullFloat(p.Width), nullFloat(p.Height)); err != nil {
				return fmt.Errorf("insert page %d: %w", p.PageNumber, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pdf_search (asset_id, text) VALUES (?, ?)
		 ON CONFLICT(asset_id) DO UPDATE SET text = excluded.text`,
		id, searchText,
	); err != nil {
		return fmt.Errorf("upsert search text: %w", err)
	}
	return tx.Commit()
}

const documentColumns = `d.asset_id, d.page_count, d.title, d.author, d.subject, d.creator, d.producer,
	d.creation_date, d.processed_at, d.status, d.last_error, d.created_at, d.updated_at,
	a.owner_id, a.original_file_name`

const documentFrom = ` FROM pdf_documents d JOIN assets a ON a.id = d.asset_id WHERE a.deleted_at IS NULL`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var d models.Document
	var title, author, subject, creator, producer, lastError sql.NullString
	var creationDate, processedAt sql.NullTime
	var status string
	if err := row.Scan(&d.ID, &d.PageCount, &title, &author, &subject, &creator, &producer,
		&creationDate, &processedAt, &status, &lastError, &d.CreatedAt, &d.UpdatedAt,
		&d.OwnerID, &d.FileName); err != nil {
		return nil, err
	}
	d.Title = stringPtr(title)
	d.Author = stringPtr(author)
	d.Subject = stringPtr(subject)
	d.Creator = stringPtr(creator)
	d.Producer = stringPtr(producer)
	d.CreationDate = timePtr(creationDate)
	d.ProcessedAt = timePtr(processedAt)
	d.Status = models.DocumentStatus(status)
	d.LastError = stringPtr(lastError)
	return &d, nil
}

// GetDocument returns a document whose asset is not deleted.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+documentFrom+` AND d.asset_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetDocumentsByIDs returns the live documents among ids, in the order of ids.
func (s *SQLiteStorage) GetDocumentsByIDs(ctx context.Context, ids []string) ([]*models.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+documentFrom+` AND d.asset_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]*models.Document, len(ids))
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		byID[doc.ID] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	docs := make([]*models.Document, 0, len(byID))
	for _, id := range ids {
		if doc, ok := byID[id]; ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// ListDocuments returns one page of documents, newest first. page is 1-indexed.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, filter DocumentFilter, page, size int) (*models.DocumentList, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	q := `SELECT ` + documentColumns + documentFrom
	var args []any
	if filter.Status != "" {
		q += ` AND d.status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.OwnerID != "" {
		q += ` AND a.owner_id = ?`
		args = append(args, filter.OwnerID)
	}
	q += ` ORDER BY d.created_at DESC, d.asset_id LIMIT ? OFFSET ?`
	// One extra row tells whether another page exists.
	args = append(args, size+1, (page-1)*size)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := &models.DocumentList{Items: []*models.Document{}}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(list.Items) > size {
		list.Items = list.Items[:size]
		next := page + 1
		list.NextPage = &next
	}
	return list, nil
}

// ListDocumentIDs returns ids of live documents in any of statuses, oldest first.
func (s *SQLiteStorage) ListDocumentIDs(ctx context.Context, statuses ...models.DocumentStatus) ([]string, error) {
	q := `SELECT d.asset_id` + documentFrom
	var args []any
	if len(statuses) > 0 {
		q += ` AND d.status IN (` + strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",") + `)`
		for _, st := range statuses {
			args = append(args, string(st))
		}
	}
	q += ` ORDER BY d.created_at, d.asset_id`
	return s.queryIDs(ctx, q, args...)
}

func (s *SQLiteStorage) queryIDs(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const pageColumns = `p.id, p.asset_id, p.page_number, p.text, p.text_source, p.width, p.height`

const pageFrom = ` FROM pdf_pages p JOIN assets a ON a.id = p.asset_id WHERE a.deleted_at IS NULL`

func scanPage(row rowScanner) (*models.Page, error) {
	var p models.Page
	var source string
	var width, height sql.NullFloat64
	if err := row.Scan(&p.ID, &p.DocumentID, &p.PageNumber, &p.Text, &source, &width, &height); err != nil {
		return nil, err
	}
	p.TextSource = models.TextSource(source)
	p.Width = floatPtr(width)
	p.Height = floatPtr(height)
	return &p, nil
}

// GetPages returns all pages of a live document ordered by page number.
func (s *SQLiteStorage) GetPages(ctx context.Context, id string) ([]*models.Page, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pageColumns+pageFrom+` AND p.asset_id = ? ORDER BY p.page_number`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	pages := []*models.Page{}
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// GetPage returns one page of a live document. Pages of deleted assets are not found.
func (s *SQLiteStorage) GetPage(ctx context.Context, id string, pageNumber int) (*models.Page, error) {
	p, err := scanPage(s.db.QueryRowContext(ctx,
		`SELECT `+pageColumns+pageFrom+` AND p.asset_id = ? AND p.page_number = ?`, id, pageNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page %d of %s: %w", pageNumber, id, ErrNotFound)
	}
	return p, err
}

// GetSearchText returns the tokenized search text of a document.
func (s *SQLiteStorage) GetSearchText(ctx context.Context, id string) (string, error) {
	var text string
	err := s.db.QueryRowContext(ctx, `SELECT text FROM pdf_search WHERE asset_id = ?`, id).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("search text of %s: %w", id, ErrNotFound)
	}
	return text, err
}

// CountDocuments returns the number of live documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*)`+documentFrom).Scan(&count)
	return count, err
}

// CountPages returns the total number of stored pages.
func (s *SQLiteStorage) CountPages(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pdf_pages`).Scan(&count)
	return count, err
}

// CountByStatus returns the number of live documents per status. Every status has an entry.
func (s *SQLiteStorage) CountByStatus(ctx context.Context) (map[models.DocumentStatus]int64, error) {
	counts := map[models.DocumentStatus]int64{
		models.StatusPending: 0, models.StatusProcessing: 0, models.StatusReady: 0, models.StatusFailed: 0,
	}
	rows, err := s.db.QueryContext(ctx, `SELECT d.status, COUNT(*)`+documentFrom+` GROUP BY d.status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[models.DocumentStatus(status)] = n
	}
	return counts, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
