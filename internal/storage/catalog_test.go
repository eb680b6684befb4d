package storage

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T) (*Catalog, *FileBackend) {
	t.Helper()
	b := NewFileBackend(t.TempDir())
	return NewCatalog(b, nil), b
}

func movie(title string) VideoEntry {
	return VideoEntry{
		FileID:  "file-" + title,
		Title:   title,
		AddedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		AddedBy: 1,
		Meta:    MediaMeta{Width: 1280, Height: 720, Duration: 5400, MimeType: "video/mp4"},
	}
}

func TestCatalogInsertGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)

	in := movie("Matrix")
	code, err := c.Insert(ctx, in)
	require.NoError(t, err)
	require.Equal(t, "0001", code)

	got, err := c.Get(ctx, code)
	require.NoError(t, err)
	in.Code = code
	require.Equal(t, in, got)
}

func TestCatalogCodeIsMaxPlusOne(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)

	for i := 0; i < 3; i++ {
		_, err := c.Insert(ctx, movie(fmt.Sprintf("m%d", i)))
		require.NoError(t, err)
	}
	ok, err := c.Delete(ctx, "0002")
	require.NoError(t, err)
	require.True(t, ok)

	code, err := c.Insert(ctx, movie("next"))
	require.NoError(t, err)
	require.Equal(t, "0004", code, "gap left by deletion is not reused")
}

func TestCatalogNewCodeNeverCollides(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)

	for i := 0; i < 5; i++ {
		_, err := c.Insert(ctx, movie(fmt.Sprintf("m%d", i)))
		require.NoError(t, err)
	}
	for _, code := range []string{"0005", "0004", "0002"} {
		_, err := c.Delete(ctx, code)
		require.NoError(t, err)

		existing := map[string]bool{}
		for _, e := range c.List(ctx) {
			existing[e.Code] = true
		}
		next, err := c.Insert(ctx, movie("again"))
		require.NoError(t, err)
		require.False(t, existing[next], "code %s already present", next)
	}
}

func TestCatalogDeleteMissing(t *testing.T) {
	c, _ := newCatalog(t)

	ok, err := c.Delete(context.Background(), "0042")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCatalogFindByTitle(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)

	for _, title := range []string{"The Matrix", "Avatar", "Matrix Reloaded", "matrix revolutions", "Up"} {
		_, err := c.Insert(ctx, movie(title))
		require.NoError(t, err)
	}

	got := c.FindByTitle(ctx, "MATRIX", 0)
	require.Len(t, got, 3)
	assert.Equal(t, "The Matrix", got[0].Title)
	assert.Equal(t, "Matrix Reloaded", got[1].Title)
	assert.Equal(t, "matrix revolutions", got[2].Title)

	require.Len(t, c.FindByTitle(ctx, "matrix", 2), 2)
	require.Empty(t, c.FindByTitle(ctx, "titanic", 10))
}

func TestCatalogFindByTitleFollowsInsertionOrderAfterDelete(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)

	var codes []string
	for _, title := range []string{"Matrix 1", "Matrix 2", "Matrix 3"} {
		code, err := c.Insert(ctx, movie(title))
		require.NoError(t, err)
		codes = append(codes, code)
	}
	_, err := c.Delete(ctx, codes[2])
	require.NoError(t, err)
	_, err = c.Insert(ctx, movie("Matrix 4"))
	require.NoError(t, err)

	var titles []string
	for _, e := range c.FindByTitle(ctx, "matrix", 0) {
		titles = append(titles, e.Title)
	}
	assert.Equal(t, []string{"Matrix 1", "Matrix 2", "Matrix 4"}, titles)
}

func TestCatalogFindByTitleCapsAtTen(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)
	for i := 0; i < 15; i++ {
		_, err := c.Insert(ctx, movie(fmt.Sprintf("Film %d", i)))
		require.NoError(t, err)
	}

	got := c.FindByTitle(ctx, "film", 50)
	require.Len(t, got, MaxSearchResults)
	assert.Equal(t, "0001", got[0].Code)
	assert.Equal(t, "0010", got[9].Code)
}

func TestCatalogSeries(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)
	_, err := c.Insert(ctx, movie("standalone"))
	require.NoError(t, err)

	eps := make([]VideoEntry, 0, 3)
	for i := 1; i <= 3; i++ {
		e := movie(fmt.Sprintf("Show - %d-qism", i))
		e.IsSeries = true
		e.SeriesID = "s-1"
		e.EpisodeNumber = i
		eps = append(eps, e)
	}
	codes, err := c.InsertSeries(ctx, eps)
	require.NoError(t, err)
	require.Equal(t, []string{"0002", "0003", "0004"}, codes)

	got := c.AllBySeriesID(ctx, "s-1")
	require.Len(t, got, 3)
	for i, e := range got {
		assert.Equal(t, i+1, e.EpisodeNumber)
		assert.Equal(t, "s-1", e.SeriesID)
	}
	require.Empty(t, c.AllBySeriesID(ctx, "missing"))
}

func TestCatalogIncrementViews(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)
	code, err := c.Insert(ctx, movie("x"))
	require.NoError(t, err)

	require.NoError(t, c.IncrementViews(ctx, code))
	require.NoError(t, c.IncrementViews(ctx, code))
	e, err := c.Get(ctx, code)
	require.NoError(t, err)
	require.Equal(t, 2, e.Views)

	require.ErrorIs(t, c.IncrementViews(ctx, "9999"), ErrNotFound)
}

func TestCatalogConcurrentInsertsKeepEveryEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Insert(ctx, movie(fmt.Sprintf("m%d", i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	require.Len(t, c.List(ctx), 40)
}

func TestCatalogFileLayout(t *testing.T) {
	ctx := context.Background()
	c, b := newCatalog(t)
	_, err := c.Insert(ctx, movie("Matrix"))
	require.NoError(t, err)

	raw, err := os.ReadFile(b.Path(CatalogStore))
	require.NoError(t, err)
	s := string(raw)
	assert.True(t, strings.HasPrefix(s, "{\n  \"0001\": {"), s)
	assert.Contains(t, s, `"file_id": "file-Matrix"`)
}

func TestNormalizeCode(t *testing.T) {
	cases := map[string]struct {
		want string
		ok   bool
	}{
		"1":     {"0001", true},
		"0012":  {"0012", true},
		" 42 ":  {"0042", true},
		"12345": {"12345", true},
		"0":     {"", false},
		"abc":   {"", false},
		"12a":   {"", false},
		"":      {"", false},
		"-5":    {"", false},
	}
	for in, tc := range cases {
		got, ok := NormalizeCode(in)
		assert.Equal(t, tc.ok, ok, in)
		assert.Equal(t, tc.want, got, in)
	}
}
