package fifo

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ardnew/lcd2usb/device/hal"
	"github.com/ardnew/lcd2usb/pkg"
	"github.com/ardnew/lcd2usb/protocol"
)

// MaxPacketSize is the largest control data stage carried in one message.
const MaxPacketSize = 256

// Frame types. The host HAL uses the same values.
const (
	msgSetup   = 0x01
	msgData    = 0x02
	msgAck     = 0x03
	msgNak     = 0x04
	msgStall   = 0x05
	msgReset   = 0x12
	msgAddress = 0x13
)

// headerSize covers the type byte and the little-endian payload length.
const headerSize = 3

// Link states written to the connection pipe.
const (
	sigConnect    = 0x01
	sigDisconnect = 0x00
)

// Pipe names inside a device directory.
const (
	pipeSetup = "host_to_device"
	pipeReply = "device_to_host"
	pipeLink  = "connection"
)

// devicePrefix starts every device directory name; the host HAL scans for it.
const devicePrefix = "device-"

// readPoll bounds one read attempt so cancellation is noticed.
const readPoll = 100 * time.Millisecond

// pipes holds the device ends of the three FIFOs.
type pipes struct {
	setup *os.File // read: SETUP, reset and address frames
	reply *os.File // write: DATA, ACK and STALL frames
	link  *os.File // write: link state bytes
}

func (p *pipes) close() {
	for _, f := range []*os.File{p.setup, p.reply, p.link} {
		if f != nil {
			_ = f.Close()
		}
	}
	*p = pipes{}
}

// HAL implements hal.DeviceHAL over named pipes in a private directory
// under the bus directory.
type HAL struct {
	busDir string

	mu      sync.RWMutex
	dir     string
	p       pipes
	address uint8

	writeMu  sync.Mutex
	frameIn  [headerSize + 1 + protocol.SetupPacketSize + MaxPacketSize]byte
	frameOut [headerSize + MaxPacketSize]byte

	attached atomic.Bool
	up       chan struct{}
	down     chan struct{}
	done     chan struct{}
	doneOnce sync.Once
}

var _ hal.DeviceHAL = (*HAL)(nil)

// New returns a HAL that will publish itself under busDir.
func New(busDir string) *HAL {
	return &HAL{
		busDir: busDir,
		up:     make(chan struct{}, 1),
		down:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Init creates the device directory with its pipes and opens them.
func (h *HAL) Init(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dir != "" {
		return pkg.ErrAlreadyRunning
	}
	if err := os.MkdirAll(h.busDir, 0o755); err != nil {
		return fmt.Errorf("create bus dir: %w", err)
	}
	dir, err := os.MkdirTemp(h.busDir, devicePrefix)
	if err != nil {
		return fmt.Errorf("create device dir: %w", err)
	}
	h.dir = dir

	if err := h.openPipes(); err != nil {
		h.teardown()
		return err
	}
	pkg.LogInfo(pkg.ComponentHAL, "fifo device published", "dir", h.dir)
	return nil
}

// openPipes makes each FIFO and opens it read-write, which never waits for
// the host end.
func (h *HAL) openPipes() error {
	open := func(name string) (*os.File, error) {
		path := filepath.Join(h.dir, name)
		if err := unix.Mkfifo(path, 0o666); err != nil {
			return nil, fmt.Errorf("mkfifo %s: %w", name, err)
		}
		f, err := os.OpenFile(path, os.O_RDWR|unix.O_NONBLOCK, 0)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		return f, nil
	}

	var err error
	if h.p.setup, err = open(pipeSetup); err != nil {
		return err
	}
	if h.p.reply, err = open(pipeReply); err != nil {
		return err
	}
	h.p.link, err = open(pipeLink)
	return err
}

// teardown closes the pipes and removes the device directory. h.mu must be
// held for writing.
func (h *HAL) teardown() {
	h.p.close()
	if h.dir != "" {
		_ = os.RemoveAll(h.dir)
		h.dir = ""
	}
}

// Start announces the device on the link pipe.
func (h *HAL) Start() error {
	h.mu.RLock()
	link := h.p.link
	h.mu.RUnlock()
	if link == nil {
		return pkg.ErrNotConfigured
	}

	if _, err := link.Write([]byte{sigConnect}); err != nil {
		pkg.LogWarn(pkg.ComponentHAL, "link announce failed", "error", err)
	}
	h.attached.Store(true)
	notify(h.up)
	pkg.LogInfo(pkg.ComponentHAL, "fifo device attached")
	return nil
}

// Stop withdraws the device and deletes its directory. Blocked reads and
// writes return pkg.ErrCancelled.
func (h *HAL) Stop() error {
	h.mu.RLock()
	if h.p.link != nil {
		_, _ = h.p.link.Write([]byte{sigDisconnect})
	}
	h.mu.RUnlock()

	h.attached.Store(false)
	notify(h.down)
	h.doneOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	h.teardown()
	h.mu.Unlock()
	pkg.LogInfo(pkg.ComponentHAL, "fifo device detached")
	return nil
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// SetAddress records the assigned address.
func (h *HAL) SetAddress(address uint8) error {
	h.mu.Lock()
	h.address = address
	h.mu.Unlock()
	pkg.LogDebug(pkg.ComponentHAL, "address set", "address", address)
	return nil
}

// Address returns the last address the host assigned.
func (h *HAL) Address() uint8 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.address
}

// ReadSetup waits for the next SETUP frame. Address frames are applied
// and acknowledged on the way; a reset frame is acknowledged and reported
// as pkg.ErrReset.
func (h *HAL) ReadSetup(ctx context.Context, out *protocol.SetupPacket) error {
	h.mu.RLock()
	f := h.p.setup
	h.mu.RUnlock()
	if f == nil {
		return pkg.ErrNotConfigured
	}

	for {
		typ, body, err := h.readFrame(ctx, f)
		if err != nil {
			return err
		}
		switch typ {
		case msgSetup:
			// address(1), setup(8), OUT data
			if len(body) < 1+protocol.SetupPacketSize {
				return pkg.ErrSetupPacketTooShort
			}
			if err := protocol.ParseSetupPacket(body[1:], out); err != nil {
				return err
			}
			pkg.LogDebug(pkg.ComponentHAL, "setup received", "setup", out.String())
			return nil
		case msgReset:
			_ = h.AckEP0()
			pkg.LogDebug(pkg.ComponentHAL, "bus reset")
			return pkg.ErrReset
		case msgAddress:
			if len(body) > 0 {
				_ = h.SetAddress(body[0])
				_ = h.AckEP0()
			}
		default:
			pkg.LogWarn(pkg.ComponentHAL, "dropping frame", "type", typ)
		}
	}
}

// readFrame reads one frame into h.frameIn and returns its type and body.
func (h *HAL) readFrame(ctx context.Context, f *os.File) (byte, []byte, error) {
	hdr := h.frameIn[:headerSize]
	if err := h.fill(ctx, f, hdr); err != nil {
		return 0, nil, err
	}
	n := int(binary.LittleEndian.Uint16(hdr[1:]))
	if headerSize+n > len(h.frameIn) {
		return 0, nil, fmt.Errorf("%w: frame length %d", pkg.ErrProtocol, n)
	}
	body := h.frameIn[headerSize : headerSize+n]
	if err := h.fill(ctx, f, body); err != nil {
		return 0, nil, err
	}
	return hdr[0], body, nil
}

// fill reads exactly len(buf) bytes, polling until ctx is done or the HAL
// stops.
func (h *HAL) fill(ctx context.Context, f *os.File, buf []byte) error {
	for got := 0; got < len(buf); {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.done:
			return pkg.ErrCancelled
		default:
		}
		_ = f.SetReadDeadline(time.Now().Add(readPoll))
		n, err := f.Read(buf[got:])
		got += n
		if err != nil && !os.IsTimeout(err) {
			return err
		}
	}
	return nil
}

// WriteEP0 sends the data stage of a control IN transfer.
func (h *HAL) WriteEP0(ctx context.Context, data []byte) error {
	return h.writeFrame(ctx, msgData, data)
}

// ReadEP0 returns no bytes: OUT data arrives inside the SETUP frame.
func (h *HAL) ReadEP0(ctx context.Context, buf []byte) (int, error) {
	return 0, nil
}

// StallEP0 rejects the pending transfer.
func (h *HAL) StallEP0() error {
	pkg.LogDebug(pkg.ComponentHAL, "EP0 stalled")
	return h.writeFrame(context.Background(), msgStall, nil)
}

// AckEP0 completes a transfer that has no data stage.
func (h *HAL) AckEP0() error {
	return h.writeFrame(context.Background(), msgAck, nil)
}

func (h *HAL) writeFrame(ctx context.Context, typ byte, data []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return pkg.ErrCancelled
	default:
	}
	if len(data) > MaxPacketSize {
		return fmt.Errorf("%w: %d bytes", pkg.ErrBufferTooSmall, len(data))
	}

	h.mu.RLock()
	f := h.p.reply
	h.mu.RUnlock()
	if f == nil {
		return pkg.ErrNotConfigured
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	h.frameOut[0] = typ
	binary.LittleEndian.PutUint16(h.frameOut[1:headerSize], uint16(len(data)))
	frame := h.frameOut[:headerSize+copy(h.frameOut[headerSize:], data)]
	for len(frame) > 0 {
		n, err := f.Write(frame)
		if err != nil {
			return err
		}
		frame = frame[n:]
	}
	return nil
}

// IsConnected reports whether the device is announced.
func (h *HAL) IsConnected() bool {
	return h.attached.Load()
}

// GetSpeed returns SpeedLow; the LCD2USB is a low-speed function.
func (h *HAL) GetSpeed() hal.Speed {
	return hal.SpeedLow
}

// WaitConnect blocks until Start runs or ctx is done.
func (h *HAL) WaitConnect(ctx context.Context) error {
	if h.IsConnected() {
		return nil
	}
	return h.wait(ctx, h.up)
}

// WaitDisconnect blocks until Stop runs or ctx is done.
func (h *HAL) WaitDisconnect(ctx context.Context) error {
	if !h.IsConnected() {
		return nil
	}
	return h.wait(ctx, h.down)
}

func (h *HAL) wait(ctx context.Context, ch <-chan struct{}) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	case <-h.done:
		return pkg.ErrCancelled
	}
}

// DeviceDir returns the device directory, or "" before Init and after Stop.
func (h *HAL) DeviceDir() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dir
}
