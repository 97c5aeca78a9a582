//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package backup

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/vendorhub/internal/adapters/repository"
	"github.com/okian/vendorhub/internal/storage/memory"
)

func TestRestoreRefusesLockedDataFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	seed(t, src, "Acme")
	var snap bytes.Buffer
	_, err := WriteFile(ctx, src, &snap)
	require.NoError(t, err)

	live := filepath.Join(dir, "live.db")
	seed(t, live, "Globex", "Initech")
	st, err := repository.Open(ctx, live)
	require.NoError(t, err)

	_, err = Restore(ctx, bytes.NewReader(snap.Bytes()), live, true)
	require.ErrorIs(t, err, memory.ErrLocked)

	// the open store still owns the file it was writing
	require.NoError(t, st.View(func(tx *repository.Tx) error {
		vs, err := tx.Vendors()
		require.NoError(t, err)
		assert.Len(t, vs, 2)
		return nil
	}))
	require.NoError(t, st.Close())

	_, err = Restore(ctx, bytes.NewReader(snap.Bytes()), live, true)
	require.NoError(t, err)
	stats, err := Inspect(ctx, live)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.LastID)
}
