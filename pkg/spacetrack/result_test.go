package spacetrack_test

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/spacetrack/pkg/spacetrack"
)

type countingCloser struct {
	closed int
}

func (c *countingCloser) Close() error {
	c.closed++

	return nil
}

func lineSeq(lines ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, line := range lines {
			if !yield(line, nil) {
				return
			}
		}
	}
}

func TestResult_Lines(t *testing.T) {
	t.Parallel()

	closer := &countingCloser{}
	result := spacetrack.NewLinesResult(lineSeq("a", "b", "c"), closer)

	assert.Equal(t, spacetrack.KindLines, result.Kind())
	assert.True(t, result.IsStream())

	var got []string
	for line, err := range result.Lines() {
		require.NoError(t, err)

		got = append(got, line)
	}

	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 1, closer.closed)

	for _, err := range result.Lines() {
		require.ErrorIs(t, err, spacetrack.ErrResultConsumed)
	}

	require.NoError(t, result.Close())
	assert.Equal(t, 1, closer.closed)
}

func TestResult_BreakClosesBody(t *testing.T) {
	t.Parallel()

	closer := &countingCloser{}
	result := spacetrack.NewTextChunksResult(lineSeq("a", "b"), closer)

	for range result.TextChunks() {
		break
	}

	assert.Equal(t, 1, closer.closed)
}

func TestResult_WrongKind(t *testing.T) {
	t.Parallel()

	result := spacetrack.NewDataResult(map[string]any{"a": 1})
	assert.Equal(t, map[string]any{"a": 1}, result.Data())
	assert.False(t, result.IsStream())

	for _, err := range result.Chunks() {
		require.ErrorIs(t, err, spacetrack.ErrWrongResultKind)
	}

	require.NoError(t, result.Close())
}

func TestResult_ChunkError(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	seq := func(yield func([]byte, error) bool) {
		if !yield([]byte("x"), nil) {
			return
		}

		yield(nil, errBoom)
	}

	result := spacetrack.NewChunksResult(seq, nil)

	var (
		chunks [][]byte
		last   error
	)

	for chunk, err := range result.Chunks() {
		if err != nil {
			last = err

			continue
		}

		chunks = append(chunks, chunk)
	}

	assert.Equal(t, [][]byte{[]byte("x")}, chunks)
	require.ErrorIs(t, last, errBoom)
}

func TestFuture(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	future := spacetrack.Go(context.Background(), func(context.Context) (int, error) {
		<-release

		return 42, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := future.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)

	value, err := future.Get()
	require.NoError(t, err)
	assert.Equal(t, 42, value)

	select {
	case <-future.Done():
	default:
		t.Fatal("future should be done")
	}
}
