package storage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	CatalogStore     = "movies"
	MaxSearchResults = 10
	codeWidth        = 4
)

type MediaMeta struct {
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Duration int    `json:"duration,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	FileName string `json:"file_name,omitempty"`
}

type VideoEntry struct {
	Code          string    `json:"-"`
	FileID        string    `json:"file_id"`
	Meta          MediaMeta `json:"meta"`
	Title         string    `json:"title"`
	AddedAt       time.Time `json:"added_at"`
	AddedBy       int64     `json:"added_by"`
	Views         int       `json:"views"`
	IsSeries      bool      `json:"is_series,omitempty"`
	SeriesID      string    `json:"series_id,omitempty"`
	EpisodeNumber int       `json:"episode_number,omitempty"`
}

// Catalog maps public codes to uploaded videos.
type Catalog struct {
	store *Store[VideoEntry]
}

func NewCatalog(b Backend, log *zap.SugaredLogger) *Catalog {
	return &Catalog{store: NewStore[VideoEntry](CatalogStore, b, log)}
}

// NormalizeCode turns user input such as "12" or "0012" into the stored form "0012".
func NormalizeCode(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 9 {
		return "", false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return "", false
	}
	return formatCode(n), true
}

func formatCode(n int) string {
	return fmt.Sprintf("%0*d", codeWidth, n)
}

// nextCode is max(numeric codes)+1, so codes freed by deletion below the max are not reused.
func nextCode(m map[string]VideoEntry) string {
	hi := 0
	for k := range m {
		if n, err := strconv.Atoi(k); err == nil && n > hi {
			hi = n
		}
	}
	n := hi + 1
	for {
		code := formatCode(n)
		if _, taken := m[code]; !taken {
			return code
		}
		n++
	}
}

func (c *Catalog) Insert(ctx context.Context, e VideoEntry) (string, error) {
	var code string
	err := c.store.Update(ctx, func(m map[string]VideoEntry) error {
		code = nextCode(m)
		e.Code = ""
		m[code] = e
		return nil
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// InsertSeries stores all episodes in one write and returns their codes in order.
func (c *Catalog) InsertSeries(ctx context.Context, episodes []VideoEntry) ([]string, error) {
	codes := make([]string, 0, len(episodes))
	err := c.store.Update(ctx, func(m map[string]VideoEntry) error {
		for _, e := range episodes {
			code := nextCode(m)
			e.Code = ""
			m[code] = e
			codes = append(codes, code)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (c *Catalog) Get(ctx context.Context, code string) (VideoEntry, error) {
	m := c.store.Snapshot(ctx)
	e, ok := m[code]
	if !ok {
		return VideoEntry{}, ErrNotFound
	}
	e.Code = code
	return e, nil
}

// Delete reports whether the code existed.
func (c *Catalog) Delete(ctx context.Context, code string) (bool, error) {
	found := false
	err := c.store.Update(ctx, func(m map[string]VideoEntry) error {
		if _, ok := m[code]; !ok {
			return errUnchanged
		}
		found = true
		delete(m, code)
		return nil
	})
	return found, err
}

func (c *Catalog) IncrementViews(ctx context.Context, code string) error {
	return c.store.Update(ctx, func(m map[string]VideoEntry) error {
		e, ok := m[code]
		if !ok {
			return ErrNotFound
		}
		e.Views++
		m[code] = e
		return nil
	})
}

// List returns every entry in code order.
func (c *Catalog) List(ctx context.Context) []VideoEntry {
	return sorted(c.store.Snapshot(ctx))
}

// FindByTitle matches query case-insensitively against titles, in code order. Codes
// only grow, so this is also insertion order.
func (c *Catalog) FindByTitle(ctx context.Context, query string, limit int) []VideoEntry {
	if limit <= 0 || limit > MaxSearchResults {
		limit = MaxSearchResults
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []VideoEntry
	for _, e := range c.List(ctx) {
		if !strings.Contains(strings.ToLower(e.Title), q) {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out
}

// AllBySeriesID returns the episodes of one series ordered by episode number.
func (c *Catalog) AllBySeriesID(ctx context.Context, seriesID string) []VideoEntry {
	if seriesID == "" {
		return nil
	}
	var out []VideoEntry
	for _, e := range c.List(ctx) {
		if e.IsSeries && e.SeriesID == seriesID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EpisodeNumber < out[j].EpisodeNumber })
	return out
}

func sorted(m map[string]VideoEntry) []VideoEntry {
	out := make([]VideoEntry, 0, len(m))
	for code, e := range m {
		e.Code = code
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, errA := strconv.Atoi(out[i].Code)
		b, errB := strconv.Atoi(out[j].Code)
		switch {
		case errA == nil && errB == nil && a != b:
			return a < b
		case errA == nil && errB != nil:
			return true
		case errA != nil && errB == nil:
			return false
		}
		if !out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].AddedAt.Before(out[j].AddedAt)
		}
		return out[i].Code < out[j].Code
	})
	return out
}
