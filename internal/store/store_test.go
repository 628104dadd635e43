package store

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-eval-reader/internal/evals"
	"github.com/a3tai/pdf-eval-reader/internal/pdf"
	"github.com/a3tai/pdf-eval-reader/internal/rating"
)

const native = pdf.BackendNative

func openStore(t *testing.T) *Store {
	t.Helper()
	var logs bytes.Buffer
	s, err := Open(filepath.Join(t.TempDir(), "data", "evals.db"), slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord() evals.Record {
	return evals.Record{
		FrontMatter: evals.FrontMatter{Course: "CS4XX-01", Instructor: "Jane Doe", Year: "2020", Semester: "Spring"},
		RatingTable: evals.RatingTable{Mean: "4.10", StdDeviation: "0.95", Count: "27",
			Poor: 1, BelowAverage: 2, Average: 7, Good: 7, Excellent: 10},
	}
}

func TestLookupSave(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	file := pdf.FileInfo{Path: "/reports/a.pdf", Name: "a.pdf", Size: 1024, ModTime: time.Unix(1700000000, 5)}

	_, ok, err := s.Lookup(ctx, native, file)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(ctx, native, file, sampleRecord()))

	got, ok, err := s.Lookup(ctx, native, file)
	require.NoError(t, err)
	require.True(t, ok)
	want := sampleRecord()
	want.Source = file.Path
	assert.Equal(t, want, got)

	changed := file
	changed.ModTime = file.ModTime.Add(time.Second)
	_, ok, err = s.Lookup(ctx, native, changed)
	require.NoError(t, err)
	assert.False(t, ok, "a modified file is not served from the cache")

	changed = file
	changed.Size++
	_, ok, err = s.Lookup(ctx, native, changed)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLookup_PerBackend(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	file := pdf.FileInfo{Path: "/reports/a.pdf", Size: 10, ModTime: time.Unix(100, 0)}

	require.NoError(t, s.Save(ctx, native, file, sampleRecord()))

	_, ok, err := s.Lookup(ctx, pdf.BackendPdftotext, file)
	require.NoError(t, err)
	assert.False(t, ok, "records of another backend are not reused")

	other := sampleRecord()
	other.Instructor = "J. Doe"
	require.NoError(t, s.Save(ctx, pdf.BackendPdftotext, file, other))

	got, ok, err := s.Lookup(ctx, native, file)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", got.Instructor)

	got, ok, err = s.Lookup(ctx, pdf.BackendPdftotext, file)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "J. Doe", got.Instructor)
}

func TestSave_Replaces(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	file := pdf.FileInfo{Path: "/reports/a.pdf", Size: 10, ModTime: time.Unix(100, 0)}

	require.NoError(t, s.Save(ctx, native, file, sampleRecord()))

	file.Size = 20
	updated := sampleRecord()
	updated.Course = "CS500"
	require.NoError(t, s.Save(ctx, native, file, updated))

	got, ok, err := s.Lookup(ctx, native, file)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "CS500", got.Course)
}

func TestRuns(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	first, err := s.BeginRun(ctx, "/reports/2020")
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, native, pdf.FileInfo{Path: "/reports/2020/a.pdf", Size: 1, ModTime: time.Unix(1, 0)}, sampleRecord()))
	require.NoError(t, s.FinishRun(ctx, first, 1, &rating.Summary{Top1Percent: 37.04, Top2Percent: 62.96, Mean: 4.0}))

	second, err := s.BeginRun(ctx, "/reports/2021")
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, second, 0, nil))

	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, "/reports/2021", runs[0].Directory)
	assert.Nil(t, runs[0].Summary)
	require.NotNil(t, runs[0].FinishedAt)

	assert.Equal(t, first, runs[1].ID)
	assert.Equal(t, 1, runs[1].Documents)
	require.NotNil(t, runs[1].Summary)
	assert.InDelta(t, 37.04, runs[1].Summary.Top1Percent, 1e-9)

	limited, err := s.Runs(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestFinishRun_Unknown(t *testing.T) {
	s := openStore(t)
	err := s.FinishRun(context.Background(), uuid.New(), 0, nil)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evals.db")
	ctx := context.Background()
	file := pdf.FileInfo{Path: "/reports/a.pdf", Size: 1, ModTime: time.Unix(1, 0)}

	s, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, native, file, sampleRecord()))
	require.NoError(t, s.Close())

	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()
	_, ok, err := s.Lookup(ctx, native, file)
	require.NoError(t, err)
	assert.True(t, ok)
}
