package extract

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/hyperjump/folio/internal/models"
)

// Tags is the raw tag set read from a PDF. Values are best-effort: any key may be missing,
// and values may be strings, numbers or times.
type Tags map[string]any

// Tag keys produced by PDFTagReader.
const (
	TagPageCount  = "PageCount"
	TagTitle      = "Title"
	TagAuthor     = "Author"
	TagSubject    = "Subject"
	TagCreator    = "Creator"
	TagProducer   = "Producer"
	TagKeywords   = "Keywords"
	TagCreateDate = "CreateDate"
	TagModifyDate = "ModifyDate"
)

// infoKeys maps Info dictionary entries to tag keys.
var infoKeys = map[string]string{
	"Title":        TagTitle,
	"Author":       TagAuthor,
	"Subject":      TagSubject,
	"Creator":      TagCreator,
	"Producer":     TagProducer,
	"Keywords":     TagKeywords,
	"CreationDate": TagCreateDate,
	"ModDate":      TagModifyDate,
}

// PDFTagReader reads the Info dictionary and page count from a PDF file.
// Files the primary parser rejects still get a page count from pdfcpu when possible.
type PDFTagReader struct{}

// NewPDFTagReader returns a tag reader.
func NewPDFTagReader() *PDFTagReader {
	return &PDFTagReader{}
}

// ReadTags returns the tags of the PDF at path. It fails only when no parser can open the file.
func (t *PDFTagReader) ReadTags(ctx context.Context, path string) (Tags, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tags, err := readInfo(path)
	if err == nil {
		return tags, nil
	}
	n, fallbackErr := api.PageCountFile(path)
	if fallbackErr != nil {
		return nil, fmt.Errorf("read pdf tags: %w", err)
	}
	return Tags{TagPageCount: n}, nil
}

func readInfo(path string) (tags Tags, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse %s: %v", path, r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tags = Tags{TagPageCount: r.NumPage()}
	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return tags, nil
	}
	for key, tag := range infoKeys {
		v := info.Key(key)
		if v.IsNull() {
			continue
		}
		if s := strings.TrimSpace(v.Text()); s != "" {
			tags[tag] = s
		}
	}
	return tags, nil
}

// ReadMetadata coerces raw tags into document metadata.
// Unusable page counts become 0 and unparseable dates become nil.
func ReadMetadata(tags Tags) models.Metadata {
	return models.Metadata{
		PageCount:    coercePageCount(tags[TagPageCount]),
		Title:        coerceString(tags[TagTitle]),
		Author:       coerceString(tags[TagAuthor]),
		Subject:      coerceString(tags[TagSubject]),
		Creator:      coerceString(tags[TagCreator]),
		Producer:     coerceString(tags[TagProducer]),
		CreationDate: CoerceDate(tags[TagCreateDate]),
	}
}

func coercePageCount(v any) int {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int64:
		n = x
	case int32:
		n = int64(x)
	case float64:
		if x != float64(int64(x)) {
			return 0
		}
		n = int64(x)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0
		}
		n = parsed
	default:
		return 0
	}
	if n < 0 {
		return 0
	}
	return int(n)
}

func coerceString(v any) *string {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case fmt.Stringer:
		s = x.String()
	case nil:
		return nil
	default:
		s = fmt.Sprint(x)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

var pdfDatePattern = regexp.MustCompile(`^D:(\d{4})(\d{2})?(\d{2})?(\d{2})?(\d{2})?(\d{2})?(Z|[+-]\d{2}'?\d{2}'?)?`)

// dateLayouts are tried in order after the PDF date syntax.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006:01:02 15:04:05Z07:00",
	"2006:01:02 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CoerceDate normalizes a date-like tag value to a UTC time, or nil when it cannot be parsed.
func CoerceDate(v any) *time.Time {
	var t time.Time
	switch x := v.(type) {
	case time.Time:
		t = x
	case *time.Time:
		if x == nil {
			return nil
		}
		t = *x
	case string:
		parsed, ok := parseDateString(strings.TrimSpace(x))
		if !ok {
			return nil
		}
		t = parsed
	default:
		return nil
	}
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}

func parseDateString(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if m := pdfDatePattern.FindStringSubmatch(s); m != nil {
		return parsePDFDate(m)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parsePDFDate builds a time from D:YYYYMMDDHHmmSSOHH'mm' submatches. Missing parts default to
// the start of their range.
func parsePDFDate(m []string) (time.Time, bool) {
	num := func(s string, def int) int {
		if s == "" {
			return def
		}
		n, _ := strconv.Atoi(s)
		return n
	}
	year, month, day := num(m[1], 0), num(m[2], 1), num(m[3], 1)
	hour, minute, sec := num(m[4], 0), num(m[5], 0), num(m[6], 0)
	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || sec > 60 {
		return time.Time{}, false
	}
	loc := time.UTC
	if tz := strings.ReplaceAll(m[7], "'", ""); tz != "" && tz != "Z" {
		sign := 1
		if tz[0] == '-' {
			sign = -1
		}
		offset := sign * (num(tz[1:3], 0)*3600 + num(tz[3:], 0)*60)
		loc = time.FixedZone("", offset)
	}
	return time.Date(year, time.Month(month), day, hour, minute, sec, 0, loc), true
}
