package domain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNetErr struct{ timeout bool }

func (e fakeNetErr) Error() string   { return "net" }
func (e fakeNetErr) Timeout() bool   { return e.timeout }
func (e fakeNetErr) Temporary() bool { return false }

func TestWrapTimeout(t *testing.T) {
	assert.NoError(t, WrapTimeout("embedding", nil))
	assert.Equal(t, io.EOF, WrapTimeout("embedding", io.EOF))

	err := WrapTimeout("embedding", fmt.Errorf("post: %w", context.DeadlineExceeded))
	var terr *AdapterTimeoutError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "embedding", terr.Adapter)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	err = WrapTimeout("generation", fakeNetErr{timeout: true})
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "generation", terr.Adapter)

	plain := fakeNetErr{timeout: false}
	assert.Equal(t, error(plain), WrapTimeout("generation", plain))

	// Already wrapped errors keep the adapter they were first tagged with.
	again := WrapTimeout("generation", err)
	require.ErrorAs(t, again, &terr)
	assert.Equal(t, "generation", terr.Adapter)
	assert.Same(t, err, again)
}

func TestErrorMessages(t *testing.T) {
	pe := &PartitionError{Path: "a.txt", Err: ErrUnsupportedType}
	assert.Equal(t, "partition a.txt: file type not supported", pe.Error())
	assert.True(t, errors.Is(pe, ErrUnsupportedType))

	assert.Equal(t, `store "k": no input paths`, (&EmptyInputError{Key: "k"}).Error())
	assert.Equal(t, `store "k": no chunks produced from a.html, b.pdf`,
		(&EmptyInputError{Key: "k", Paths: []string{"a.html", "b.pdf"}}).Error())

	unknown := fmt.Errorf("search: %w", &UnknownStoreError{Key: "missing"})
	assert.True(t, IsUnknownStore(unknown))
	assert.False(t, IsUnknownStore(io.EOF))
	assert.Contains(t, unknown.Error(), `retriever "missing" not found`)
}

func TestChunkIDStable(t *testing.T) {
	assert.Equal(t, ChunkID("/docs/a.html", 0), ChunkID("/docs/a.html", 0))
	assert.NotEqual(t, ChunkID("/docs/a.html", 0), ChunkID("/docs/a.html", 1))
	assert.Len(t, ChunkID("x", 0), 16)
}
