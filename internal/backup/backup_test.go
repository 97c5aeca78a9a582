package backup

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/vendorhub/internal/adapters/repository"
	"github.com/okian/vendorhub/internal/domain/model"
)

func seed(t *testing.T, path string, names ...string) {
	t.Helper()
	st, err := repository.Open(context.Background(), path)
	require.NoError(t, err)
	defer func() { require.NoError(t, st.Close()) }()

	for _, name := range names {
		require.NoError(t, st.Update(func(tx *repository.Tx) error {
			id, err := tx.NextID()
			if err != nil {
				return err
			}
			return tx.PutVendor(model.Vendor{ID: id, Name: name, Contact: "c", Email: "e", Services: []string{}, Ratings: []float32{4}})
		}))
	}
}

func TestWriteFileAndRestore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	seed(t, src, "Acme", "Globex")

	var snap bytes.Buffer
	res, err := WriteFile(ctx, src, &snap)
	require.NoError(t, err)
	assert.Positive(t, res.ImageBytes)
	assert.Equal(t, uint64(2), res.Stats.LastID)
	assert.Less(t, int64(snap.Len()), res.ImageBytes, "snapshot should compress")

	dst := filepath.Join(dir, "restored.db")
	restored, err := Restore(ctx, bytes.NewReader(snap.Bytes()), dst, false)
	require.NoError(t, err)
	assert.Equal(t, res.ImageBytes, restored.ImageBytes)

	st, err := repository.Open(ctx, dst)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.View(func(tx *repository.Tx) error {
		vs, err := tx.Vendors()
		require.NoError(t, err)
		require.Len(t, vs, 2)
		assert.Equal(t, "Acme", vs[0].Name)
		assert.Equal(t, "Globex", vs[1].Name)
		return nil
	}))
}

func TestRestoreRefusesOverwrite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	seed(t, src, "Acme")

	var snap bytes.Buffer
	_, err := WriteFile(ctx, src, &snap)
	require.NoError(t, err)

	_, err = Restore(ctx, bytes.NewReader(snap.Bytes()), src, false)
	require.ErrorIs(t, err, ErrExists)

	_, err = Restore(ctx, bytes.NewReader(snap.Bytes()), src, true)
	require.NoError(t, err)
}

func TestReadRejectsBadSnapshots(t *testing.T) {
	ctx := context.Background()

	_, _, err := Read(ctx, strings.NewReader("not zstd at all"))
	require.Error(t, err)

	var empty bytes.Buffer
	enc, err := zstd.NewWriter(&empty)
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	_, _, err = Read(ctx, &empty)
	require.ErrorIs(t, err, ErrEmptyImage)

	var junk bytes.Buffer
	enc, err = zstd.NewWriter(&junk)
	require.NoError(t, err)
	_, err = enc.Write(bytes.Repeat([]byte{0xAB}, 4096))
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	_, _, err = Read(ctx, &junk)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestInspect(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	_, err := Inspect(ctx, filepath.Join(dir, "missing.db"))
	require.ErrorIs(t, err, ErrNoDataFile)
	_, statErr := os.Stat(filepath.Join(dir, "missing.db"))
	require.True(t, errors.Is(statErr, os.ErrNotExist), "inspect must not create the file")

	path := filepath.Join(dir, "data.db")
	seed(t, path, "Acme", "Globex", "Initech")

	stats, err := Inspect(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), stats.LastID)
	vendors, ok := stats.Collection(repository.NameVendors)
	require.True(t, ok)
	assert.Equal(t, 3, vendors.Records)
	assert.Equal(t, uint8(repository.TagVendors), vendors.Tag)
}

func TestWriteFromOpenStore(t *testing.T) {
	ctx := context.Background()
	st, err := repository.Open(ctx, "")
	require.NoError(t, err)
	defer st.Close()

	var snap bytes.Buffer
	n, err := Write(&snap, st)
	require.NoError(t, err)
	assert.Positive(t, n)

	_, res, err := Read(ctx, &snap)
	require.NoError(t, err)
	assert.Equal(t, n, res.ImageBytes)
}

func TestObjectName(t *testing.T) {
	at := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	a, b := ObjectName(at), ObjectName(at)

	assert.True(t, strings.HasPrefix(a, "vendorhub-20261019T083000Z-"))
	assert.True(t, strings.HasSuffix(a, ".img.zst"))
	assert.NotEqual(t, a, b)
}
