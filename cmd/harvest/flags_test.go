package main

import (
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFlags(t *testing.T, args ...string) (int, error) {
	t.Helper()
	var f configFlags
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	f.register(fs, false)
	require.NoError(t, fs.Parse(append([]string{"-env-file", ""}, args...)))

	cfg, err := f.load()
	return cfg.Catalog.RetryCount(), err
}

func TestCatalogRetriesFlag(t *testing.T) {
	t.Setenv("HARVEST_CATALOG_RETRIES", "5")

	retries, err := loadFlags(t)
	require.NoError(t, err)
	assert.Equal(t, 5, retries)

	retries, err = loadFlags(t, "-catalog-retries", "0")
	require.NoError(t, err)
	assert.Equal(t, 0, retries)

	_, err = loadFlags(t, "-catalog-retries", "-1")
	assert.Error(t, err)
}

func TestMaxPerMonthFlagBounded(t *testing.T) {
	_, err := loadFlags(t, "-max-per-month", "30001")
	assert.ErrorContains(t, err, "max_per_month")
}
