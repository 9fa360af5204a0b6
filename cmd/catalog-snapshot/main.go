// Command catalog-snapshot downloads the complete app catalog from the
// storefront and writes it as a compressed snapshot file. The api-server
// can then run with the file catalog source and never touch the bulk
// listing endpoint.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/dealscout/dealscout/internal/catalog"
	"github.com/dealscout/dealscout/internal/client/storefront"
)

func main() {
	var (
		storeURL string
		outPath  string
		timeout  time.Duration
	)

	flag.StringVar(&storeURL, "storefront-url", "", "storefront base URL (or DEALSCOUT_STOREFRONT_URL env)")
	flag.StringVar(&outPath, "out", "catalog.json.gz", "output snapshot path, must end in .gz")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "overall fetch timeout")
	flag.Parse()

	if storeURL == "" {
		storeURL = os.Getenv("DEALSCOUT_STOREFRONT_URL")
	}
	if storeURL == "" {
		slog.Error("storefront URL is required: set --storefront-url or DEALSCOUT_STOREFRONT_URL")
		os.Exit(1)
	}
	if !strings.HasSuffix(outPath, ".gz") {
		slog.Error("snapshot output must end in .gz", slog.String("out", outPath))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, storeURL, outPath, timeout); err != nil {
		slog.Error("catalog snapshot failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog snapshot completed successfully")
}

func run(ctx context.Context, storeURL, outPath string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := storefront.NewClient(storefront.Config{
		BaseURL: storeURL,
		Timeout: timeout,
	})

	slog.Info("fetching catalog", slog.String("url", storeURL))

	entries, err := client.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "fetch catalog")
	}

	slog.Info("catalog fetched", slog.Int("entries", len(entries)))

	// Write to a temp file in the target directory, then rename, so a
	// crashed run never leaves a truncated snapshot behind.
	tmp, err := os.CreateTemp(filepath.Dir(outPath), filepath.Base(outPath)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := catalog.WriteSnapshot(tmp, entries); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "encode snapshot")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close snapshot")
	}
	if err := os.Rename(tmp.Name(), outPath); err != nil {
		return errors.Wrap(err, "replace snapshot")
	}

	slog.Info("snapshot written", slog.String("path", outPath))
	return nil
}
