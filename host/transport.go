package host

import (
	"context"
	"fmt"
	"time"

	"github.com/ardnew/lcd2usb/host/hal"
	"github.com/ardnew/lcd2usb/pkg"
	"github.com/ardnew/lcd2usb/protocol"
)

// Transport carries one LCD2USB request to the device. A non-empty reply
// makes it an IN transfer; the number of reply bytes received is returned.
type Transport interface {
	SendRequest(ctx context.Context, request uint8, value, index uint16, reply []byte) (int, error)
}

// HALTransport sends requests as vendor control transfers through a
// hal.HostHAL. Each call is bounded by the transfer timeout.
type HALTransport struct {
	hal     hal.HostHAL
	timeout time.Duration
}

var _ Transport = (*HALTransport)(nil)

// NewTransport wraps h. A non-positive timeout selects
// protocol.TransferTimeout.
func NewTransport(h hal.HostHAL, timeout time.Duration) *HALTransport {
	if timeout <= 0 {
		timeout = protocol.TransferTimeout
	}
	return &HALTransport{hal: h, timeout: timeout}
}

// SendRequest implements Transport.
func (t *HALTransport) SendRequest(ctx context.Context, request uint8, value, index uint16, reply []byte) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	setup := protocol.SetupPacket{
		RequestType: protocol.RequestTypeVendor | protocol.RequestRecipientDevice,
		Request:     request,
		Value:       value,
		Index:       index,
		Length:      uint16(len(reply)),
	}
	if len(reply) > 0 {
		setup.RequestType |= protocol.RequestDirectionDeviceToHost
	}

	n, err := t.hal.ControlTransfer(ctx, &setup, reply)
	if err != nil {
		if ctx.Err() != nil && pkg.StatusOf(err) == pkg.TransferStatusError {
			err = fmt.Errorf("%w: %w", pkg.ErrTimeout, err)
		}
		pkg.LogDebug(pkg.ComponentHost, "request failed",
			"request", fmt.Sprintf("0x%02X", request),
			"status", pkg.StatusOf(err).String(),
			"error", err)
		return n, fmt.Errorf("request 0x%02X: %w", request, err)
	}
	return n, nil
}

// send encodes r and passes it to t.
func send(ctx context.Context, t Transport, r protocol.Request, reply []byte) (int, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	request, value, index := r.Encode()
	return t.SendRequest(ctx, request, value, index, reply)
}
