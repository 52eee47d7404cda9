package export

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/LouYuanbo1/profilecrawler/internal/domain/entity"
	"github.com/LouYuanbo1/profilecrawler/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var exportedAt = time.Date(2026, 10, 17, 14, 30, 5, 0, time.UTC)

func sampleRecords() []entity.Record {
	return []entity.Record{
		{
			PublicID:   "zoe",
			FullName:   "Zoe Martin",
			Headline:   "Engineer",
			ProfileURL: entity.ProfileURL("zoe"),
			Source:     entity.SourceSearch,
			ScrapedAt:  exportedAt,
		},
		{
			PublicID:    "bob",
			FullName:    "Bob Durand",
			Email:       "bob@example.com",
			Phone:       "+33 6 00 00 00 00",
			Website:     "https://bob.dev",
			ProfileURL:  entity.ProfileURL("bob"),
			Experiences: []entity.Position{{Title: "CTO", Company: "Acme"}},
			Skills:      []string{"Go", "SQL"},
			About:       strings.Repeat("a", 600),
			Source:      entity.SourceProfile,
			SearchQuery: "cto",
			ScrapedAt:   exportedAt,
		},
		{
			PublicID:   "alice",
			FullName:   "Alice Bernard",
			ProfileURL: entity.ProfileURL("alice"),
			Source:     entity.SourceAPI,
			ScrapedAt:  exportedAt,
		},
	}
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "linkedin_data_engineer_paris_20261017_143005", BaseName("Data Engineer", "Paris", exportedAt))
	assert.Equal(t, "linkedin_cc_île-de-france_20261017_143005", BaseName("C++/C#", "Île-de-France", exportedAt))
	assert.Len(t, []rune(BaseName(strings.Repeat("x", 200), "", exportedAt)), maxBaseName)
}

func TestRowsSortEmailFirstThenName(t *testing.T) {
	data := rows(sampleRecords())
	require.Len(t, data, 3)
	assert.Equal(t, "Bob Durand", data[0][colName])
	assert.Equal(t, "Alice Bernard", data[1][colName])
	assert.Equal(t, "Zoe Martin", data[2][colName])

	bob := data[0]
	assert.Equal(t, "CTO @ Acme", bob[columnIndex("Experience")])
	assert.Equal(t, "Go, SQL", bob[columnIndex("Top Skills")])
	assert.Len(t, bob[columnIndex("About")], 500)
	assert.Equal(t, "2026-10-17T14:30:05Z", bob[columnIndex("Scraped At")])
}

func TestExportCSV(t *testing.T) {
	dir := t.TempDir()
	paths, err := Export(context.Background(), sampleRecords(), Options{
		OutputDir: dir,
		Format:    param.FormatCSV,
		Keywords:  "cto",
		Now:       exportedAt,
	})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join(dir, "linkedin_cto__20261017_143005.csv"), paths[0])

	raw, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(raw), utf8BOM))

	lines, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(raw), utf8BOM))).ReadAll()
	require.NoError(t, err)
	require.Len(t, lines, 4)
	assert.Equal(t, header(), lines[0])
	assert.Equal(t, "bob@example.com", lines[1][colEmail])
	assert.Equal(t, "profile", lines[1][colSource])
}

func TestExportExcel(t *testing.T) {
	paths, err := Export(context.Background(), sampleRecords(), Options{
		OutputDir: t.TempDir(),
		Format:    param.FormatBoth,
		Keywords:  "cto",
		Location:  "Paris",
		Now:       exportedAt,
	})
	require.NoError(t, err)
	require.Len(t, paths, 2)
	require.True(t, strings.HasSuffix(paths[1], ".xlsx"))

	f, err := excelize.OpenFile(paths[1])
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, ProfilesSheet}, f.GetSheetList())
	assert.Equal(t, ProfilesSheet, f.GetSheetName(f.GetActiveSheetIndex()))

	got, err := f.GetRows(ProfilesSheet)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "Full Name", got[0][0])
	assert.Equal(t, "Bob Durand", got[1][0])

	urlCell := cellName(colURL, 2)
	ok, link, err := f.GetCellHyperLink(ProfilesSheet, urlCell)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, entity.ProfileURL("bob"), link)

	total, err := f.GetCellValue(SummarySheet, "B7")
	require.NoError(t, err)
	assert.Equal(t, "3", total)
	withEmail, err := f.GetCellValue(SummarySheet, "B8")
	require.NoError(t, err)
	assert.Equal(t, "1 (33%)", withEmail)
}

func TestExportNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := Export(context.Background(), nil, Options{OutputDir: dir, Format: param.FormatBoth})
	require.NoError(t, err)
	assert.Empty(t, paths)
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	_, err := Export(context.Background(), sampleRecords(), Options{OutputDir: t.TempDir(), Format: "pdf"})
	assert.Error(t, err)
}
