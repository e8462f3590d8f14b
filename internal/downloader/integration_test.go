//go:build integration

package downloader

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	_ "gocloud.dev/blob/s3blob"

	"github.com/ligustah/paperharvest/internal/catalog"
	harvesthttp "github.com/ligustah/paperharvest/internal/http"
	"github.com/ligustah/paperharvest/internal/storage"
	"github.com/ligustah/paperharvest/internal/testutils"
)

func TestBatchIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var papers []testutils.Paper
	for i := 0; i < 12; i++ {
		papers = append(papers, testutils.Paper{
			ID:   fmt.Sprintf("2203.%05d", i),
			Data: testutils.GeneratePDF(t, int64(64*1024+i)),
		})
	}
	server := testutils.StartPaperServer(t, papers)

	t.Log("Starting Minio container...")
	minio := testutils.StartMinioContainer(t, ctx, "papers")
	defer func() {
		if err := minio.Close(ctx); err != nil {
			t.Logf("failed to terminate minio container: %v", err)
		}
	}()

	store, err := storage.Open(ctx, minio.BucketURL)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	published := time.Date(2022, 3, 7, 0, 0, 0, 0, time.UTC)
	items := make([]catalog.Item, 0, len(papers)+1)
	for i, p := range papers {
		items = append(items, catalog.Item{
			ID:        p.ID,
			Title:     fmt.Sprintf("Paper %d: a study", i),
			Published: published,
			PDFURL:    server.PDFURL(p.ID),
		})
	}
	items = append(items, catalog.Item{
		ID:        "2203.99999",
		Title:     "Withdrawn",
		Published: published,
		PDFURL:    server.PDFURL("2203.99999"),
	})

	d := New(harvesthttp.NewClient(harvesthttp.DefaultOptions()), store, Options{Workers: 4}, zerolog.Nop())

	t.Run("first run", func(t *testing.T) {
		report := d.Batch(ctx, items)
		if report.Downloaded != len(papers) || report.Failed != 1 {
			t.Fatalf("expected %d downloaded and 1 failed, got %+v", len(papers), report)
		}

		for i, p := range papers {
			r, err := store.Bucket().NewReader(ctx, Key(items[i]), nil)
			if err != nil {
				t.Fatalf("open %s: %v", Key(items[i]), err)
			}
			testutils.CompareReaderToData(t, r, p.Data)
			r.Close()
		}
	})

	t.Run("second run resumes", func(t *testing.T) {
		report := d.Batch(ctx, items)
		if report.Skipped != len(papers) || report.Failed != 1 {
			t.Fatalf("expected %d skipped and 1 failed, got %+v", len(papers), report)
		}
		for _, p := range papers {
			if hits := server.Hits(p.ID); hits != 1 {
				t.Errorf("%s fetched %d times", p.ID, hits)
			}
		}
	})

	keys, err := store.Keys(ctx, storage.MonthPrefix("2022-03"))
	if err != nil {
		t.Fatalf("list keys: %v", err)
	}
	if len(keys) != len(papers) {
		t.Errorf("expected %d stored papers, got %d", len(papers), len(keys))
	}
}
