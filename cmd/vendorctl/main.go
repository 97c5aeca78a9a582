// Command vendorctl backs up, restores and inspects vendorhub data files.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/okian/vendorhub/internal/backup"
	"github.com/okian/vendorhub/internal/config"
	"github.com/okian/vendorhub/pkg/logger"
)

const (
	httpTimeout    = 5 * time.Minute
	filePermission = 0o600
)

var errUsage = errors.New("usage: vendorctl <backup|restore|inspect> [flags]")

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, logger.Get())
	stop()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer, log logger.Logger) error {
	if len(args) == 0 {
		return errUsage
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	switch args[0] {
	case "backup":
		return runBackup(ctx, cfg, args[1:], stdout, log)
	case "restore":
		return runRestore(ctx, cfg, args[1:], log)
	case "inspect":
		return runInspect(ctx, cfg, args[1:], stdout)
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
}

// s3Flags registers the MinIO flags shared by backup and restore.
func s3Flags(fs *flag.FlagSet) *backup.MinioConfig {
	c := &backup.MinioConfig{}
	fs.StringVar(&c.Endpoint, "s3-endpoint", os.Getenv("VENDORHUB_S3_ENDPOINT"), "S3-compatible endpoint (host:port)")
	fs.StringVar(&c.Bucket, "s3-bucket", os.Getenv("VENDORHUB_S3_BUCKET"), "Bucket for snapshots; empty uses local files")
	fs.StringVar(&c.Prefix, "s3-prefix", "backups", "Object key prefix")
	fs.StringVar(&c.AccessKey, "s3-access-key", os.Getenv("VENDORHUB_S3_ACCESS_KEY"), "Access key")
	fs.StringVar(&c.SecretKey, "s3-secret-key", os.Getenv("VENDORHUB_S3_SECRET_KEY"), "Secret key")
	fs.BoolVar(&c.Secure, "s3-secure", false, "Use TLS")
	return c
}

func runBackup(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer, log logger.Logger) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	dataPath := fs.String("data", cfg.DataPath, "Data file of a stopped server")
	url := fs.String("url", "", "Base URL of a running server; takes precedence over -data")
	out := fs.String("o", "", "Output file, or - for stdout (default: generated name)")
	s3 := s3Flags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	produce := func(w io.Writer) error {
		if *url != "" {
			return fetchSnapshot(ctx, strings.TrimRight(*url, "/")+"/backup", w)
		}
		if *dataPath == "" {
			return errors.New("backup: -data or -url is required")
		}
		res, err := backup.WriteFile(ctx, *dataPath, w)
		if err != nil {
			return err
		}
		log.Info(ctx, "snapshot taken",
			logger.Int("image_bytes", int(res.ImageBytes)),
			logger.Uint64("last_id", res.Stats.LastID),
			logger.Int("records", res.Stats.Records()))
		return nil
	}

	name := *out
	if name == "" {
		name = backup.ObjectName(time.Now())
	}

	if s3.Bucket != "" {
		store, err := backup.NewMinioStore(*s3)
		if err != nil {
			return err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return err
		}
		if err := store.Upload(ctx, name, produce); err != nil {
			return fmt.Errorf("backup: %w", err)
		}
		log.Info(ctx, "snapshot uploaded", logger.String("bucket", s3.Bucket), logger.String("object", name))
		return nil
	}

	if name == "-" {
		return produce(stdout)
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePermission)
	if err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	if err := produce(f); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return fmt.Errorf("backup: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	log.Info(ctx, "snapshot written", logger.String("file", name))
	return nil
}

// fetchSnapshot copies a running server's /backup stream into w.
func fetchSnapshot(ctx context.Context, url string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := (&http.Client{Timeout: httpTimeout}).Do(req)
	if err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return fmt.Errorf("fetch snapshot: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}
	return nil
}

func runRestore(ctx context.Context, cfg *config.Config, args []string, log logger.Logger) error {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	dataPath := fs.String("data", cfg.DataPath, "Data file to write")
	in := fs.String("i", "", "Snapshot file, or object name with -s3-bucket (default: latest object)")
	force := fs.Bool("force", false, "Replace an existing data file")
	s3 := s3Flags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dataPath == "" {
		return errors.New("restore: -data is required")
	}

	var src io.ReadCloser
	switch {
	case s3.Bucket != "":
		store, err := backup.NewMinioStore(*s3)
		if err != nil {
			return err
		}
		name := *in
		if name == "" {
			if name, err = store.Latest(ctx); err != nil {
				return fmt.Errorf("restore: %w", err)
			}
		}
		if src, err = store.Get(ctx, name); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
	case *in != "":
		f, err := os.Open(*in)
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		src = f
	default:
		return errors.New("restore: -i or -s3-bucket is required")
	}
	defer src.Close()

	res, err := backup.Restore(ctx, src, *dataPath, *force)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	log.Info(ctx, "snapshot restored",
		logger.String("file", *dataPath),
		logger.Int("image_bytes", int(res.ImageBytes)),
		logger.Uint64("last_id", res.Stats.LastID),
		logger.Int("records", res.Stats.Records()))
	return nil
}

func runInspect(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	dataPath := fs.String("data", cfg.DataPath, "Data file of a stopped server")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dataPath == "" {
		return errors.New("inspect: -data is required")
	}

	stats, err := backup.Inspect(ctx, *dataPath)
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
