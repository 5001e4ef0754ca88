package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(ctx, "uploads/u1/rates/q1.pdf", strings.NewReader("%PDF-1.4"), 8, "application/pdf")
	require.NoError(t, err)

	data, err := s.Get(ctx, "uploads/u1/rates/q1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, s.Delete(ctx, "uploads/u1/rates/q1.pdf"))
	_, err = s.Get(ctx, "uploads/u1/rates/q1.pdf")
	assert.True(t, errors.Is(err, ErrObjectNotFound))
}

func TestLocalStorage_KeyCannotEscapeRoot(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(root)
	require.NoError(t, err)

	p, err := s.path("../../etc/passwd")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, root))
}

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	_, err = s.Put(ctx, "a", strings.NewReader("x"), 1, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, s.Keys())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "ftp", "", R2Options{})
	assert.Error(t, err)

	s, err := Open(context.Background(), "local", t.TempDir(), R2Options{})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)
}
