// upload-poster publishes the event poster to the S3 bucket the API reads
// it from. Run once per event:
//
//	upload-poster --file public/poster.jpg --key event/poster.jpg
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"event-tickets/internal/assets"
	"event-tickets/internal/client"
	"event-tickets/internal/config"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var filePath, key string
	var timeout time.Duration

	flagSet := pflag.NewFlagSet("upload-poster", pflag.ContinueOnError)
	flagSet.StringVarP(&filePath, "file", "f", "public/poster.jpg", "poster image to upload")
	flagSet.StringVarP(&key, "key", "k", "", "object key (default: ASSETS_POSTER_OBJECT_KEY or the file name)")
	flagSet.DurationVar(&timeout, "timeout", time.Minute, "upload timeout")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	_ = godotenv.Load()

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if key == "" {
		key = cfg.Assets.PosterObjectKey
	}
	if key == "" {
		key = filepath.Base(filePath)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("poster not found at %s: %w", filePath, err)
	}

	s3Client, err := client.NewS3Client(cfg.S3)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	bucket := assets.NewBucket(s3Client, cfg.S3.Bucket)
	if err := bucket.EnsureBucket(ctx); err != nil {
		return err
	}

	fmt.Printf("Uploading %s to %s/%s ...\n", filePath, cfg.S3.Bucket, key)
	if err := bucket.Put(ctx, key, bytes.NewReader(content), int64(len(content)), assets.ContentTypeFor(filePath)); err != nil {
		return err
	}

	fmt.Println("Upload successful.")
	fmt.Printf("Set ASSETS_POSTER_OBJECT_KEY=%s for the API.\n", key)
	return nil
}
