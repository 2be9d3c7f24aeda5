package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheLoadsOnce(t *testing.T) {
	calls := 0
	c := NewCache(func(ctx context.Context, db string) ([]byte, error) {
		calls++
		return []byte(`{"T": {"x": {}}}`), nil
	})

	ctx := context.Background()
	s1, err := c.Get(ctx, "db0")
	require.NoError(t, err)
	s2, err := c.Get(ctx, "db0")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"T"}, s1.Types())
	assert.Equal(t, []string{"T"}, s2.Types())
}

func TestCachePerDatabase(t *testing.T) {
	c := NewCache(func(ctx context.Context, db string) ([]byte, error) {
		if db == "a" {
			return []byte(`{"A": {}}`), nil
		}
		return []byte(`{"B": {}}`), nil
	})

	ctx := context.Background()
	sa, err := c.Get(ctx, "a")
	require.NoError(t, err)
	sb, err := c.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, sa.Types())
	assert.Equal(t, []string{"B"}, sb.Types())
}

func TestCacheInvalidate(t *testing.T) {
	docs := [][]byte{[]byte(`{"Old": {}}`), []byte(`{"New": {}}`)}
	calls := 0
	c := NewCache(func(ctx context.Context, db string) ([]byte, error) {
		raw := docs[calls]
		calls++
		return raw, nil
	})

	ctx := context.Background()
	s, err := c.Get(ctx, "db0")
	require.NoError(t, err)
	assert.Equal(t, []string{"Old"}, s.Types())

	c.Invalidate("db0")

	s, err = c.Get(ctx, "db0")
	require.NoError(t, err)
	assert.Equal(t, []string{"New"}, s.Types())
	assert.Equal(t, 2, calls)
}

func TestCacheLoadError(t *testing.T) {
	sentinel := errors.New("boom")
	c := NewCache(func(ctx context.Context, db string) ([]byte, error) {
		return nil, sentinel
	})

	_, err := c.Get(context.Background(), "db0")
	assert.ErrorIs(t, err, sentinel)
}
