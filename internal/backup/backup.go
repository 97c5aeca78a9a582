// Package backup produces and restores compressed snapshots of the store
// image. A snapshot is the raw memory image in a single zstd stream.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/okian/vendorhub/internal/adapters/repository"
	"github.com/okian/vendorhub/internal/domain/types"
	"github.com/okian/vendorhub/internal/storage/memory"
)

// ContentType is the media type of a snapshot stream.
const ContentType = "application/zstd"

const filePermission = 0o600

// Sentinel kinds for backup errors.
var (
	ErrNoDataFile  = errors.New("data file does not exist")
	ErrExists      = errors.New("target already exists")
	ErrEmptyImage  = errors.New("snapshot is empty")
	ErrCorrupt     = errors.New("snapshot is not a valid store image")
	ErrNoSnapshots = errors.New("no snapshots found")
)

// Source streams a consistent copy of a store image.
type Source interface {
	Backup(w io.Writer) (int64, error)
}

// Result describes a written or restored snapshot.
type Result struct {
	ImageBytes int64       `json:"image_bytes"`
	Stats      types.Stats `json:"stats"`
}

// ObjectName returns a unique snapshot name for the given time.
func ObjectName(now time.Time) string {
	return "vendorhub-" + now.UTC().Format("20060102T150405Z") + "-" + uuid.NewString()[:8] + ".img.zst"
}

// Write compresses the image of src into w and returns the image size.
func Write(w io.Writer, src Source) (int64, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return 0, fmt.Errorf("create encoder: %w", err)
	}
	n, err := src.Backup(enc)
	if err != nil {
		_ = enc.Close()
		return n, fmt.Errorf("snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return n, fmt.Errorf("flush encoder: %w", err)
	}
	return n, nil
}

// WriteFile snapshots the store at dataPath into w. The store must not be
// open elsewhere; the data file lock enforces it.
func WriteFile(ctx context.Context, dataPath string, w io.Writer) (Result, error) {
	st, err := openExisting(ctx, dataPath)
	if err != nil {
		return Result{}, err
	}
	defer st.Close()

	n, err := Write(w, st)
	if err != nil {
		return Result{}, err
	}
	return Result{ImageBytes: n, Stats: st.Stats()}, nil
}

// Read decompresses a snapshot and checks that it opens as a store.
func Read(ctx context.Context, r io.Reader) ([]byte, Result, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, Result{}, fmt.Errorf("create decoder: %w", err)
	}
	defer dec.Close()

	image, err := io.ReadAll(dec)
	if err != nil {
		return nil, Result{}, fmt.Errorf("decompress: %w", err)
	}
	if len(image) == 0 {
		return nil, Result{}, ErrEmptyImage
	}

	// Recovery may repair the copy; the bytes written back stay untouched.
	st, err := repository.OpenMemory(ctx, memory.NewVectorFrom(image))
	if err != nil {
		return nil, Result{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	stats := st.Stats()
	_ = st.Close()
	return image, Result{ImageBytes: int64(len(image)), Stats: stats}, nil
}

// Restore writes the snapshot read from r to dataPath. An existing file is
// only replaced when force is set, and never while another process holds
// its lock.
func Restore(ctx context.Context, r io.Reader, dataPath string, force bool) (Result, error) {
	exists := false
	if _, err := os.Stat(dataPath); err == nil {
		if !force {
			return Result{}, fmt.Errorf("%s: %w", dataPath, ErrExists)
		}
		exists = true
	}

	// The lock on the old image is held until it has been replaced.
	if exists {
		held, err := memory.OpenFile(dataPath)
		if err != nil {
			return Result{}, fmt.Errorf("replace %s: %w", dataPath, err)
		}
		defer held.Close()
	}

	image, res, err := Read(ctx, r)
	if err != nil {
		return Result{}, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dataPath), filepath.Base(dataPath)+".restore-*")
	if err != nil {
		return Result{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(image); err != nil {
		_ = tmp.Close()
		return Result{}, fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Chmod(filePermission); err != nil {
		_ = tmp.Close()
		return Result{}, fmt.Errorf("chmod image: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return Result{}, fmt.Errorf("sync image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Result{}, fmt.Errorf("close image: %w", err)
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		return Result{}, fmt.Errorf("replace %s: %w", dataPath, err)
	}
	return res, nil
}

// Inspect opens the store at dataPath and reports its statistics.
func Inspect(ctx context.Context, dataPath string) (types.Stats, error) {
	st, err := openExisting(ctx, dataPath)
	if err != nil {
		return types.Stats{}, err
	}
	defer st.Close()
	return st.Stats(), nil
}

func openExisting(ctx context.Context, dataPath string) (*repository.Store, error) {
	if _, err := os.Stat(dataPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", dataPath, ErrNoDataFile)
		}
		return nil, fmt.Errorf("stat %s: %w", dataPath, err)
	}
	st, err := repository.Open(ctx, dataPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dataPath, err)
	}
	return st, nil
}
