package host

import (
	"context"

	"github.com/ardnew/lcd2usb/pkg"
	"github.com/ardnew/lcd2usb/protocol"
)

// Batcher coalesces consecutive single-byte operations with the same
// class and target into requests of up to protocol.MaxPayload bytes.
//
// A Batcher is not safe for concurrent use.
type Batcher struct {
	t      Transport
	class  protocol.Class
	target protocol.Target
	buf    [protocol.MaxPayload]byte
	n      int
}

// NewBatcher returns an empty Batcher sending through t.
func NewBatcher(t Transport) *Batcher {
	return &Batcher{t: t}
}

// Pending returns the number of buffered bytes.
func (b *Batcher) Pending() int {
	return b.n
}

// Enqueue adds one byte for (class, target). Only the low two bits of
// target are significant. A buffer holding another
// pair is flushed first, and a full buffer is flushed at once. The error
// is that of whichever flush failed; b is accepted into the buffer even
// when the preceding flush fails.
func (b *Batcher) Enqueue(ctx context.Context, class protocol.Class, target protocol.Target, v byte) error {
	target &= protocol.Both

	var err error
	if b.n > 0 && (b.class != class || b.target != target) {
		err = b.Flush(ctx)
	}

	b.class, b.target = class, target
	b.buf[b.n] = v
	b.n++

	if b.n == len(b.buf) {
		if ferr := b.Flush(ctx); err == nil {
			err = ferr
		}
	}
	return err
}

// Flush sends the buffered bytes as one request. The buffer is cleared
// whether or not the transport succeeds; a failed batch is not resent.
func (b *Batcher) Flush(ctx context.Context) error {
	if b.n == 0 {
		return nil
	}

	r := protocol.Request{Class: b.class, Target: b.target, Len: b.n}
	copy(r.Payload[:], b.buf[:b.n])
	b.n = 0

	if _, err := send(ctx, b.t, r, nil); err != nil {
		pkg.LogWarn(pkg.ComponentBatch, "flush dropped batch",
			"request", r.String(), "error", err)
		return err
	}
	pkg.LogDebug(pkg.ComponentBatch, "flushed", "request", r.String())
	return nil
}
