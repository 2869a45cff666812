package host

import (
	"context"
	"errors"
	"testing"

	"github.com/ardnew/lcd2usb/protocol"
)

type call struct {
	request      uint8
	value, index uint16
	replyLen     int
}

// recorder is a Transport that records every request.
type recorder struct {
	calls []call
	err   error
	reply []byte
}

func (r *recorder) SendRequest(_ context.Context, request uint8, value, index uint16, reply []byte) (int, error) {
	r.calls = append(r.calls, call{request, value, index, len(reply)})
	if r.err != nil {
		return 0, r.err
	}
	return copy(reply, r.reply), nil
}

func (r *recorder) decoded(i int) protocol.Request {
	c := r.calls[i]
	return protocol.Decode(c.request, c.value, c.index)
}

func TestBatcherFlushCount(t *testing.T) {
	tests := []struct {
		n         int
		automatic int
		total     int
	}{
		{1, 0, 1},
		{3, 0, 1},
		{4, 1, 1},
		{5, 1, 2},
		{8, 2, 2},
		{12, 3, 3},
		{13, 3, 4},
	}
	for _, tt := range tests {
		rec := &recorder{}
		b := NewBatcher(rec)
		for i := 0; i < tt.n; i++ {
			if err := b.Enqueue(context.Background(), protocol.ClassData, protocol.Ctrl0, byte('a'+i)); err != nil {
				t.Fatalf("Enqueue() error = %v", err)
			}
		}
		if got := len(rec.calls); got != tt.automatic {
			t.Errorf("n=%d: flushes before Flush() = %d, want %d", tt.n, got, tt.automatic)
		}
		if err := b.Flush(context.Background()); err != nil {
			t.Fatalf("Flush() error = %v", err)
		}
		if got := len(rec.calls); got != tt.total {
			t.Errorf("n=%d: flushes = %d, want %d", tt.n, got, tt.total)
		}

		// Bytes arrive in order across requests.
		var sent []byte
		for i := range rec.calls {
			sent = append(sent, rec.decoded(i).Bytes()...)
		}
		for i, c := range sent {
			if c != byte('a'+i) {
				t.Errorf("n=%d: byte %d = %q, want %q", tt.n, i, c, 'a'+i)
			}
		}
	}
}

func TestBatcherPairChange(t *testing.T) {
	rec := &recorder{}
	b := NewBatcher(rec)
	ctx := context.Background()

	steps := []struct {
		class   protocol.Class
		target  protocol.Target
		calls   int
		pending int
	}{
		{protocol.ClassCmd, protocol.Ctrl0, 0, 1},
		{protocol.ClassCmd, protocol.Ctrl0, 0, 2},
		{protocol.ClassData, protocol.Ctrl0, 1, 1},
		{protocol.ClassData, protocol.Ctrl1, 2, 1},
		{protocol.ClassData, protocol.Both, 3, 1},
		{protocol.ClassData, protocol.Both, 3, 2},
	}
	for i, s := range steps {
		if err := b.Enqueue(ctx, s.class, s.target, byte(i)); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
		if len(rec.calls) != s.calls || b.Pending() != s.pending {
			t.Errorf("step %d: calls, pending = %d, %d, want %d, %d",
				i, len(rec.calls), b.Pending(), s.calls, s.pending)
		}
	}

	first := rec.decoded(0)
	if first.Class != protocol.ClassCmd || first.Target != protocol.Ctrl0 || first.Len != 2 {
		t.Errorf("first request = %v, want CMD target=1 len=2", first)
	}
}

func TestBatcherNeverExceedsPayload(t *testing.T) {
	rec := &recorder{}
	b := NewBatcher(rec)
	classes := []protocol.Class{protocol.ClassCmd, protocol.ClassData}
	for i := 0; i < 200; i++ {
		class := classes[(i/7)%2]
		target := protocol.Target(1 + (i/11)%3)
		_ = b.Enqueue(context.Background(), class, target, byte(i))
		if b.Pending() < 0 || b.Pending() > protocol.MaxPayload {
			t.Fatalf("Pending() = %d after enqueue %d", b.Pending(), i)
		}
	}
	for i := range rec.calls {
		if r := rec.decoded(i); r.Len < 1 || r.Len > protocol.MaxPayload {
			t.Errorf("request %d len = %d", i, r.Len)
		}
	}
}

func TestBatcherFullBufferFlushes(t *testing.T) {
	rec := &recorder{}
	b := NewBatcher(rec)
	ctx := context.Background()
	for i := range protocol.MaxPayload {
		if err := b.Enqueue(ctx, protocol.ClassData, protocol.Ctrl1, byte(i)); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}
	if b.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", b.Pending())
	}
	if len(rec.calls) != 1 || rec.decoded(0).Len != protocol.MaxPayload {
		t.Errorf("calls = %+v, want one request of %d bytes", rec.calls, protocol.MaxPayload)
	}
}

func TestBatcherMasksTarget(t *testing.T) {
	rec := &recorder{}
	b := NewBatcher(rec)
	ctx := context.Background()
	_ = b.Enqueue(ctx, protocol.ClassData, protocol.Ctrl0, 'a')
	_ = b.Enqueue(ctx, protocol.ClassData, protocol.Target(5), 'b')
	if len(rec.calls) != 0 || b.Pending() != 2 {
		t.Fatalf("calls, pending = %d, %d, want 0, 2", len(rec.calls), b.Pending())
	}
	if err := b.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if r := rec.decoded(0); r.Target != protocol.Ctrl0 || string(r.Bytes()) != "ab" {
		t.Errorf("request = %v, want target=1 payload \"ab\"", r)
	}
}

func TestBatcherClearHomeBatched(t *testing.T) {
	rec := &recorder{}
	b := NewBatcher(rec)
	ctx := context.Background()
	_ = b.Enqueue(ctx, protocol.ClassCmd, protocol.Ctrl0, 0x01)
	_ = b.Enqueue(ctx, protocol.ClassCmd, protocol.Ctrl0, 0x03)
	if err := b.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	want := call{request: 0x29, value: 0x0301, index: 0}
	if len(rec.calls) != 1 || rec.calls[0] != want {
		t.Errorf("calls = %+v, want [%+v]", rec.calls, want)
	}
}

func TestBatcherFailedFlushDropsBatch(t *testing.T) {
	errLink := errors.New("link down")
	rec := &recorder{err: errLink}
	b := NewBatcher(rec)
	ctx := context.Background()

	_ = b.Enqueue(ctx, protocol.ClassData, protocol.Ctrl0, 'x')
	if err := b.Flush(ctx); !errors.Is(err, errLink) {
		t.Errorf("Flush() error = %v, want %v", err, errLink)
	}
	if b.Pending() != 0 {
		t.Errorf("Pending() = %d after failed flush, want 0", b.Pending())
	}

	rec.err = nil
	if err := b.Flush(ctx); err != nil || len(rec.calls) != 1 {
		t.Errorf("Flush() = %v with %d calls, want no resend", err, len(rec.calls))
	}
}

func TestBatcherEnqueueReportsFlushError(t *testing.T) {
	errLink := errors.New("link down")
	rec := &recorder{err: errLink}
	b := NewBatcher(rec)
	ctx := context.Background()

	_ = b.Enqueue(ctx, protocol.ClassCmd, protocol.Ctrl0, 0x01)
	err := b.Enqueue(ctx, protocol.ClassData, protocol.Ctrl0, 'a')
	if !errors.Is(err, errLink) {
		t.Errorf("Enqueue() error = %v, want %v", err, errLink)
	}
	if b.Pending() != 1 {
		t.Errorf("Pending() = %d, want the new byte buffered", b.Pending())
	}
}

func TestBatcherEmptyFlush(t *testing.T) {
	rec := &recorder{}
	if err := NewBatcher(rec).Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("empty Flush() sent %d requests", len(rec.calls))
	}
}
