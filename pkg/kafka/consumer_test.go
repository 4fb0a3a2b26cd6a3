package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"FinBoard/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	fetchErr  error
	closed    int
}

func (r *sliceReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.fetchErr != nil {
		err := r.fetchErr
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *sliceReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *sliceReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	return nil
}

func (r *sliceReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func msgs(n int) []kafka.Message {
	out := make([]kafka.Message, n)
	for i := range out {
		out[i] = kafka.Message{Topic: "events", Offset: int64(i), Value: []byte{byte('a' + i)}}
	}
	return out
}

func TestConsumerHandlesInOrderAndCommits(t *testing.T) {
	r := &sliceReader{msgs: msgs(3)}
	c := NewConsumerWithReader(r, logger.Nop(), WithConsumerGroupID("tail"))

	ctx, cancel := context.WithCancel(context.Background())
	var seen []string
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, func(_ context.Context, m kafka.Message) error {
			seen = append(seen, string(m.Value))
			if len(seen) == 3 {
				cancel()
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.Equal(t, []string{"a", "b", "c"}, seen)
	assert.Equal(t, []int64{0, 1, 2}, r.commits())
}

func TestConsumerRetriesThenSkips(t *testing.T) {
	r := &sliceReader{msgs: msgs(2)}
	c := NewConsumerWithReader(r, logger.Nop(),
		WithConsumerGroupID("tail"),
		WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	attempts := map[int64]int{}
	err := c.Run(ctx, func(_ context.Context, m kafka.Message) error {
		attempts[m.Offset]++
		if m.Offset == 0 {
			return errors.New("poison")
		}
		cancel()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts[0])
	assert.Equal(t, 1, attempts[1])
	assert.Contains(t, r.commits(), int64(0))
}

func TestConsumerRecoversPanics(t *testing.T) {
	r := &sliceReader{msgs: msgs(1)}
	c := NewConsumerWithReader(r, logger.Nop(), WithConsumerRetry(0, time.Millisecond, time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	calls := 0
	require.NoError(t, c.Run(ctx, func(context.Context, kafka.Message) error {
		calls++
		panic("boom")
	}))
	assert.Equal(t, 1, calls)
	assert.Empty(t, r.commits(), "no group means no commits")
}

func TestConsumerReturnsReaderFailure(t *testing.T) {
	r := &sliceReader{fetchErr: errors.New("broker gone")}
	c := NewConsumerWithReader(r, nil)

	err := c.Run(context.Background(), func(context.Context, kafka.Message) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker gone")

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, r.closed)
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	_, err := NewConsumer("events", nil)
	require.Error(t, err)
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt < 10; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 80*time.Millisecond, attempt)
		assert.LessOrEqual(t, d, 80*time.Millisecond)
		assert.Greater(t, d, time.Duration(0))
	}
}
