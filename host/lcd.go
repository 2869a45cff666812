package host

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/ardnew/lcd2usb/host/hal"
	"github.com/ardnew/lcd2usb/pkg"
	"github.com/ardnew/lcd2usb/protocol"
)

// Geometry of the standard LCD2USB display.
const (
	DisplayWidth  = 16
	DisplayHeight = 2
)

// HD44780 instructions used by the client.
const (
	cmdClear    = 0x01
	cmdHome     = 0x03
	cmdSetDDRAM = 0x80
	line2Offset = 0x40
)

// Version is the firmware version reported by the device.
type Version struct {
	Major, Minor uint8
}

// String formats v the way the firmware banner does, e.g. "1.09".
func (v Version) String() string {
	return fmt.Sprintf("%d.%02d", v.Major, v.Minor)
}

// LCD is a client for one LCD2USB device. Controller writes go through a
// Batcher; every other request flushes it first so the device sees
// operations in call order. All methods are safe for concurrent use.
type LCD struct {
	mu    sync.Mutex
	t     Transport
	batch *Batcher
	reply [protocol.ReplySize]byte

	hal     hal.HostHAL
	info    hal.DeviceInfo
	desc    protocol.DeviceDescriptor
	product string
}

// NewLCD returns a client sending through t.
func NewLCD(t Transport) *LCD {
	return &LCD{t: t, batch: NewBatcher(t)}
}

// Info returns the connection details, zero when not opened with Open.
func (l *LCD) Info() hal.DeviceInfo {
	return l.info
}

// Descriptor returns the device descriptor read by Open.
func (l *LCD) Descriptor() protocol.DeviceDescriptor {
	return l.desc
}

// Product returns the product string read by Open, if the device has one.
func (l *LCD) Product() string {
	return l.product
}

// Command queues an HD44780 instruction for the controllers in target.
func (l *LCD) Command(ctx context.Context, target protocol.Target, b byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.batch.Enqueue(ctx, protocol.ClassCmd, target, b)
}

// Data queues one character for the controllers in target.
func (l *LCD) Data(ctx context.Context, target protocol.Target, b byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.batch.Enqueue(ctx, protocol.ClassData, target, b)
}

// WriteString sends s as character data and flushes. It stops at the
// first transport error.
func (l *LCD) WriteString(ctx context.Context, target protocol.Target, s string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeString(ctx, target, s)
}

func (l *LCD) writeString(ctx context.Context, target protocol.Target, s string) error {
	for i := 0; i < len(s); i++ {
		if err := l.batch.Enqueue(ctx, protocol.ClassData, target, s[i]); err != nil {
			return err
		}
	}
	return l.batch.Flush(ctx)
}

// Write sends s to controller 0.
func (l *LCD) Write(ctx context.Context, s string) error {
	return l.WriteString(ctx, protocol.Ctrl0, s)
}

// Flush sends any queued bytes.
func (l *LCD) Flush(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.batch.Flush(ctx)
}

// Clear clears both displays and returns the cursor home. Both
// instructions travel in one request.
func (l *LCD) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.batch.Enqueue(ctx, protocol.ClassCmd, protocol.Both, cmdClear); err != nil {
		return err
	}
	if err := l.batch.Enqueue(ctx, protocol.ClassCmd, protocol.Both, cmdHome); err != nil {
		return err
	}
	return l.batch.Flush(ctx)
}

// Home returns the cursor of both displays to the origin.
func (l *LCD) Home(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.batch.Enqueue(ctx, protocol.ClassCmd, protocol.Both, cmdHome); err != nil {
		return err
	}
	return l.batch.Flush(ctx)
}

// WriteLine writes s at the start of row on controller 0, padded or cut
// to DisplayWidth.
func (l *LCD) WriteLine(ctx context.Context, row int, s string) error {
	if row < 0 || row >= DisplayHeight {
		return fmt.Errorf("%w: row %d", pkg.ErrInvalidParameter, row)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.batch.Enqueue(ctx, protocol.ClassCmd, protocol.Ctrl0, cmdSetDDRAM|byte(row*line2Offset)); err != nil {
		return err
	}
	return l.writeString(ctx, protocol.Ctrl0, fmt.Sprintf("%-*.*s", DisplayWidth, DisplayWidth, s))
}

// Echo sends v and returns what the device reflected.
func (l *LCD) Echo(ctx context.Context, v uint16) (uint16, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, err := l.request(ctx, protocol.ClassEcho, 0, byte(v), byte(v>>8))
	if err != nil {
		return 0, err
	}
	return uint16(r[0]) | uint16(r[1])<<8, nil
}

// EchoTest runs n echo round trips with random values and returns the
// number of mismatches. It stops at the first transport error.
func (l *LCD) EchoTest(ctx context.Context, n int) (int, error) {
	errs := 0
	for i := 0; i < n; i++ {
		v := uint16(rand.UintN(1 << 16))
		got, err := l.Echo(ctx, v)
		if err != nil {
			return errs, err
		}
		if got != v {
			errs++
			pkg.LogDebug(pkg.ComponentHost, "echo mismatch",
				"sent", fmt.Sprintf("0x%04X", v), "got", fmt.Sprintf("0x%04X", got))
		}
	}
	return errs, nil
}

// Version queries the firmware version.
func (l *LCD) Version(ctx context.Context) (Version, error) {
	r, err := l.get(ctx, protocol.GetVersion)
	if err != nil {
		return Version{}, err
	}
	return Version{Major: r[0], Minor: r[1]}, nil
}

// Keys returns the button bitmap, bit 0 for S1 and bit 1 for S2.
func (l *LCD) Keys(ctx context.Context) (byte, error) {
	r, err := l.get(ctx, protocol.GetKeys)
	return r[0], err
}

// Controllers returns the bitmap of controllers the device detected.
func (l *LCD) Controllers(ctx context.Context) (protocol.Target, error) {
	r, err := l.get(ctx, protocol.GetControllers)
	return protocol.Target(r[0]) & protocol.Both, err
}

// SetContrast sets and persists the contrast output.
func (l *LCD) SetContrast(ctx context.Context, v byte) error {
	return l.set(ctx, protocol.SetContrast, v)
}

// SetBrightness sets and persists the backlight output.
func (l *LCD) SetBrightness(ctx context.Context, v byte) error {
	return l.set(ctx, protocol.SetBrightness, v)
}

func (l *LCD) get(ctx context.Context, target protocol.Target) ([protocol.ReplySize]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.request(ctx, protocol.ClassGet, target, 0)
}

func (l *LCD) set(ctx context.Context, target protocol.Target, v byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.batch.Flush(ctx); err != nil {
		return err
	}
	r, err := protocol.NewRequest(protocol.ClassSet, target, v)
	if err != nil {
		return err
	}
	_, err = send(ctx, l.t, r, nil)
	return err
}

// request flushes pending writes and sends a request expecting a full
// reply. Caller must hold mu.
func (l *LCD) request(ctx context.Context, class protocol.Class, target protocol.Target, payload ...byte) ([protocol.ReplySize]byte, error) {
	var out [protocol.ReplySize]byte
	if err := l.batch.Flush(ctx); err != nil {
		return out, err
	}
	r, err := protocol.NewRequest(class, target, payload...)
	if err != nil {
		return out, err
	}
	n, err := send(ctx, l.t, r, l.reply[:])
	if err != nil {
		return out, err
	}
	if n < len(l.reply) {
		return out, fmt.Errorf("%s: %w: %d of %d bytes", r.Class, pkg.ErrShortReply, n, len(l.reply))
	}
	copy(out[:], l.reply[:])
	return out, nil
}

// Close flushes pending writes and, when opened with Open, stops the HAL.
func (l *LCD) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), protocol.TransferTimeout)
	defer cancel()
	err := l.batch.Flush(ctx)
	if l.hal != nil {
		if cerr := l.hal.Close(); err == nil {
			err = cerr
		}
		l.hal = nil
	}
	return err
}
