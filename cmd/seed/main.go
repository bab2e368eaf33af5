// Package main seeds an S3 bucket with generated text files for scan testing.
// Roughly a third of the files carry planted sensitive values (SSNs, credit
// cards, emails, phone numbers, AWS keys); the rest are clean filler.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/oversec/bucketscan/internal/config"
	"github.com/oversec/bucketscan/internal/storage"
	"github.com/oversec/bucketscan/pkg/logger"
)

const largeConcurrency = 50

// Luhn-valid test card numbers (standard network test values).
var testCards = []string{
	"4111-1111-1111-1111",
	"5500-0055-5555-5559",
	"4012-8888-8888-1881",
}

var fillerLines = []string{
	"order shipped to warehouse 7, awaiting confirmation",
	"nightly batch completed without errors",
	"cache warmed in 412ms, 18231 entries",
	"retrying upstream call, attempt 2 of 5",
	"user session rotated, no action required",
}

func main() {
	_ = godotenv.Load()

	var (
		bucket = flag.String("bucket", "", "target bucket (required)")
		prefix = flag.String("prefix", "seed/", "key prefix for uploaded files")
		n      = flag.Int("n", 500, "number of files to upload")
		large  = flag.Bool("large", false, fmt.Sprintf("upload with a %d-way parallel pool", largeConcurrency))
	)
	flag.Parse()

	if *bucket == "" {
		fmt.Fprintln(os.Stderr, "seed: -bucket is required")
		flag.Usage()
		os.Exit(2)
	}

	log := logger.NewLogger()

	cfg, err := config.NewConfig(log)
	if err != nil {
		log.Error("failed to load config", logger.Error(err))
		os.Exit(1)
	}

	awsCfg, err := storage.NewAWSConfig(cfg)
	if err != nil {
		log.Error("failed to build AWS config", logger.Error(err))
		os.Exit(1)
	}
	store := storage.NewService(awsCfg, cfg, log)

	ctx := context.Background()
	if err := store.EnsureBucket(ctx, *bucket); err != nil {
		log.Error("failed to ensure bucket", logger.Error(err))
		os.Exit(1)
	}

	concurrency := 8
	if *large {
		concurrency = largeConcurrency
	}

	log.Info("seeding bucket",
		slog.String("bucket", *bucket),
		slog.String("prefix", *prefix),
		slog.Int("files", *n),
		slog.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := 0; i < *n; i++ {
		g.Go(func() error {
			key := fmt.Sprintf("%sfile-%05d.txt", *prefix, i)
			return store.Put(gctx, *bucket, key, generateFile(i), "text/plain")
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("seed failed", logger.Error(err))
		os.Exit(1)
	}

	log.Info("seed completed", slog.Int("files", *n))
}

// generateFile builds deterministic content for file i. Files where i%3 == 0
// carry planted sensitive values so a scan over the prefix has a predictable
// hit rate.
func generateFile(i int) []byte {
	rng := rand.New(rand.NewSource(int64(i)))

	var b strings.Builder
	fmt.Fprintf(&b, "record batch %d\n", i)
	for j := 0; j < 20; j++ {
		b.WriteString(fillerLines[rng.Intn(len(fillerLines))])
		b.WriteByte('\n')
	}

	if i%3 == 0 {
		fmt.Fprintf(&b, "ssn: %03d-%02d-%04d\n", 100+rng.Intn(800), 10+rng.Intn(89), 1000+rng.Intn(8999))
		fmt.Fprintf(&b, "card on file: %s\n", testCards[rng.Intn(len(testCards))])
		fmt.Fprintf(&b, "contact: user%d@example.com\n", i)
		fmt.Fprintf(&b, "callback: (555) %03d-%04d\n", 100+rng.Intn(899), 1000+rng.Intn(8999))
		if i%9 == 0 {
			fmt.Fprintf(&b, "aws_access_key_id = AKIA%016d\n", i)
		}
	}

	return []byte(b.String())
}
