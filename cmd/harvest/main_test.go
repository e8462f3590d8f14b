package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ligustah/paperharvest/internal/catalog"
)

// monthSearcher returns two papers for the month named in the query.
type monthSearcher struct {
	baseURL string
}

func (s monthSearcher) Search(ctx context.Context, q catalog.Query) ([]catalog.Item, error) {
	i := strings.Index(q.Expression, "[")
	day, err := time.Parse("20060102", q.Expression[i+1:i+9])
	if err != nil {
		return nil, err
	}

	var items []catalog.Item
	for n := 1; n <= 2; n++ {
		id := fmt.Sprintf("%s.%05d", day.Format("0601"), n)
		items = append(items, catalog.Item{
			ID:        id,
			Title:     fmt.Sprintf("Paper %d of %s", n, day.Format("January")),
			Published: day.Add(time.Duration(n) * time.Hour),
			PDFURL:    s.baseURL + "/pdf/" + id,
		})
	}
	return items, nil
}

// syncBuffer is written to by concurrent loggers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// capture redirects CLI output for the duration of a test.
func capture(t *testing.T) (*syncBuffer, *syncBuffer) {
	t.Helper()
	out, errOut := &syncBuffer{}, &syncBuffer{}
	oldOut, oldErr := stdout, stderr
	stdout, stderr = out, errOut
	t.Cleanup(func() { stdout, stderr = oldOut, oldErr })
	return out, errOut
}

func useSearcher(t *testing.T, s catalog.Searcher) {
	t.Helper()
	old := newSearcher
	newSearcher = func() (catalog.Searcher, error) { return s, nil }
	t.Cleanup(func() { newSearcher = old })
}

// paperServer serves a PDF for every path except those listed in missing.
func paperServer(t *testing.T, missing ...string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, m := range missing {
			if strings.HasSuffix(r.URL.Path, m) {
				http.NotFound(w, r)
				return
			}
		}
		w.Write([]byte("%PDF-1.5 " + r.URL.Path))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRunCommand(t *testing.T) {
	server := paperServer(t)
	useSearcher(t, monthSearcher{baseURL: server.URL})
	out, _ := capture(t)

	dir := t.TempDir()
	dest := filepath.Join(dir, "papers")

	code := run([]string{"run",
		"-start", "2022-01-01",
		"-end", "2022-03-31",
		"-dest", dest,
		"-ledger", filepath.Join(dir, "ledger.db"),
		"-log-format", "json",
		"-env-file", "",
	})
	require.Equal(t, ExitSuccess, code)

	assert.Contains(t, out.String(), "Month: 2022-01, Papers: 2, Location: "+filepath.Join(dest, "2022-01"))
	assert.Contains(t, out.String(), "Month: 2022-03, Papers: 2")
	assert.Contains(t, out.String(), "Total: 6 papers in 3 months | 6 downloaded, 0 skipped, 0 failed")

	data, err := os.ReadFile(filepath.Join(dest, "2022-02", "Paper 1 of February.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.5 /pdf/2202.00001", string(data))

	out.Reset()
	code = run([]string{"run",
		"-start", "2022-01-01",
		"-end", "2022-03-31",
		"-dest", dest,
		"-ledger", filepath.Join(dir, "ledger.db"),
		"-env-file", "",
	})
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out.String(), "0 downloaded, 6 skipped, 0 failed")

	out.Reset()
	code = run([]string{"report", "-ledger", filepath.Join(dir, "ledger.db")})
	require.Equal(t, ExitSuccess, code)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 3, "header and two runs")
	assert.Contains(t, lines[0], "RUN")
	assert.Contains(t, lines[1], "2022-01-01..2022-03-31")
}

func TestRunCommandFailedDownloads(t *testing.T) {
	server := paperServer(t, "2201.00002")
	useSearcher(t, monthSearcher{baseURL: server.URL})
	out, errOut := capture(t)

	dir := t.TempDir()
	ledgerPath := filepath.Join(dir, "ledger.db")

	code := run([]string{"run",
		"-start", "2022-01-10",
		"-end", "2022-01-20",
		"-dest", filepath.Join(dir, "papers"),
		"-ledger", ledgerPath,
		"-env-file", "",
	})
	require.Equal(t, ExitDownloadsFailed, code)
	assert.Contains(t, out.String(), "1 downloaded, 0 skipped, 1 failed")
	assert.Contains(t, errOut.String(), `Failed: "Paper 2 of January"`)

	var runID string
	for _, line := range strings.Split(out.String(), "\n") {
		if id, ok := strings.CutPrefix(line, "Run: "); ok {
			runID = id
		}
	}
	require.NotEmpty(t, runID)

	out.Reset()
	code = run([]string{"report", "-ledger", ledgerPath, "-run", runID, "-status", "failed"})
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out.String(), "2201.00002")
	assert.NotContains(t, out.String(), "2201.00001")
}

func TestRunCommandInvalidArgs(t *testing.T) {
	useSearcher(t, monthSearcher{})
	capture(t)

	tests := map[string][]string{
		"missing range":  {"run", "-env-file", ""},
		"inverted range": {"run", "-start", "2022-03-01", "-end", "2022-01-01", "-env-file", ""},
		"bad date":       {"run", "-start", "2022/01/01", "-end", "2022-01-31", "-env-file", ""},
		"bad size":       {"run", "-start", "2022-01-01", "-end", "2022-01-31", "-max-file-size", "huge", "-env-file", ""},
		"unknown flag":   {"run", "-bogus"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, ExitInvalidArgs, run(args))
		})
	}
}

func TestRunCommandUncreatableDestination(t *testing.T) {
	useSearcher(t, monthSearcher{})
	capture(t)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	code := run([]string{"run",
		"-start", "2022-01-01",
		"-end", "2022-01-31",
		"-dest", filepath.Join(file, "papers"),
		"-env-file", "",
	})
	assert.Equal(t, ExitStorageError, code)
}

func TestWindowsCommand(t *testing.T) {
	out, _ := capture(t)

	code := run([]string{"windows", "-start", "2022-01-15", "-end", "2022-03-10", "-max-per-month", "50"})
	require.Equal(t, ExitSuccess, code)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "2022-01 [2022-01-15, 2022-01-31]  max 50")
	assert.Contains(t, lines[1], "submittedDate:[202202010000 TO 202202282359]")
	assert.Contains(t, lines[2], "2022-03 [2022-03-01, 2022-03-10]")
}

func TestWindowsCommandInvalid(t *testing.T) {
	capture(t)

	assert.Equal(t, ExitInvalidArgs, run([]string{"windows", "-start", "2022-01-01"}))
	assert.Equal(t, ExitInvalidArgs, run([]string{"windows", "-start", "2022-02-01", "-end", "2022-01-01"}))
}

func TestReportCommandInvalid(t *testing.T) {
	capture(t)
	ledgerPath := filepath.Join(t.TempDir(), "ledger.db")

	assert.Equal(t, ExitInvalidArgs, run([]string{"report"}))
	assert.Equal(t, ExitInvalidArgs, run([]string{"report", "-ledger", ledgerPath, "-status", "lost"}))
	assert.Equal(t, ExitInvalidArgs, run([]string{"report", "-ledger", ledgerPath, "-run", "missing"}))
}

func TestUnknownCommand(t *testing.T) {
	_, errOut := capture(t)

	assert.Equal(t, ExitInvalidArgs, run([]string{"frobnicate"}))
	assert.Contains(t, errOut.String(), "Unknown command: frobnicate")
	assert.Equal(t, ExitInvalidArgs, run(nil))
	assert.Equal(t, ExitSuccess, run([]string{"help"}))
}

func TestTrailingRange(t *testing.T) {
	now := time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)

	start, end := trailingRange(now, 1)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), end)

	start, _ = trailingRange(now, 4)
	assert.Equal(t, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), start)

	windows, err := catalog.Months(start, end, 10)
	require.NoError(t, err)
	assert.Len(t, windows, 4)
}
