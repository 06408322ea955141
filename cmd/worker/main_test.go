package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type fakeSource struct {
	msgs      []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (f *fakeSource) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		f.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeSource) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

type fakeSink struct {
	failures map[string]int
	pushed   []string
}

func (f *fakeSink) PushEventJSON(ctx context.Context, raw []byte) error {
	key := string(raw)
	if f.failures[key] > 0 {
		f.failures[key]--
		return errors.New("loki down")
	}
	f.pushed = append(f.pushed, key)
	return nil
}

func TestConsume_PushesThenCommits(t *testing.T) {
	pushBackoff = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &fakeSource{
		msgs: []kafka.Message{
			{Offset: 1, Value: []byte(`{"type":"directory.created"}`)},
			{Offset: 2, Value: []byte(`{"type":"directory.updated"}`)},
		},
		cancel: cancel,
	}
	sink := &fakeSink{failures: map[string]int{`{"type":"directory.updated"}`: 1}}

	consume(ctx, src, sink, zap.NewNop())

	if len(sink.pushed) != 2 {
		t.Fatalf("pushed = %v, want 2 entries", sink.pushed)
	}
	if len(src.committed) != 2 || src.committed[0] != 1 || src.committed[1] != 2 {
		t.Errorf("committed = %v, want [1 2]", src.committed)
	}
}

func TestForward_GivesUpAfterMaxAttempts(t *testing.T) {
	pushBackoff = time.Millisecond
	sink := &fakeSink{failures: map[string]int{"x": maxPushAttempts}}
	if forward(context.Background(), sink, kafka.Message{Value: []byte("x")}, zap.NewNop()) {
		t.Error("forward reported success after exhausting attempts")
	}
	if len(sink.pushed) != 0 {
		t.Errorf("pushed = %v, want none", sink.pushed)
	}
}
