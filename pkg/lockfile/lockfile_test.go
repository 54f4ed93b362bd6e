package lockfile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTake(t *testing.T) {
	pollEvery = 10 * time.Millisecond

	path := filepath.Join(t.TempDir(), ".lock")
	ctx := context.Background()

	t.Run("takes and releases", func(t *testing.T) {
		release, err := Take(ctx, path, nil)
		require.NoError(t, err)

		release()
		release()

		again, err := Take(ctx, path, nil)
		require.NoError(t, err)

		again()
	})

	t.Run("waits for the holder until the context ends", func(t *testing.T) {
		release, err := Take(ctx, path, nil)
		require.NoError(t, err)

		defer release()

		cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		var waits int

		_, err = Take(cctx, path, func() { waits++ })
		require.Error(t, err)

		assert.Equal(t, context.DeadlineExceeded, err)
		assert.True(t, waits > 0)
	})

	t.Run("acquires once the holder releases", func(t *testing.T) {
		release, err := Take(ctx, path, nil)
		require.NoError(t, err)

		go func() {
			time.Sleep(30 * time.Millisecond)
			release()
		}()

		cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		second, err := Take(cctx, path, nil)
		require.NoError(t, err)

		second()
	})
}
