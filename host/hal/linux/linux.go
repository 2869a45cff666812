//go:build linux

package linux

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ardnew/lcd2usb/host/hal"
	"github.com/ardnew/lcd2usb/pkg"
	"github.com/ardnew/lcd2usb/protocol"
)

// HAL implements hal.HostHAL on Linux usbfs. It polls sysfs for a device
// with the configured IDs and talks to it through USBDEVFS_CONTROL. No
// interface is claimed; control transfers on the default pipe do not need
// one.
type HAL struct {
	vid, pid  uint16
	sysfsRoot string
	devfsRoot string
	timeout   time.Duration

	mu  sync.Mutex
	fd  int
	dev Device

	connectCh    chan Device
	disconnectCh chan string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ hal.HostHAL = (*HAL)(nil)

// New creates a usbfs HAL for devices with the given IDs.
func New(vid, pid uint16) *HAL {
	return &HAL{
		vid:          vid,
		pid:          pid,
		sysfsRoot:    SysfsUSBPath,
		devfsRoot:    DevfsUSBPath,
		timeout:      protocol.TransferTimeout,
		fd:           -1,
		connectCh:    make(chan Device, 4),
		disconnectCh: make(chan string, 4),
	}
}

// SetTransferTimeout sets the per-transfer timeout. Non-positive values
// are ignored.
func (h *HAL) SetTransferTimeout(d time.Duration) {
	if d > 0 {
		h.timeout = d
	}
}

// Init checks that sysfs is available.
func (h *HAL) Init(ctx context.Context) error {
	if _, err := os.Stat(h.sysfsRoot); err != nil {
		return fmt.Errorf("usb sysfs: %w", err)
	}
	h.ctx, h.cancel = context.WithCancel(ctx)
	pkg.LogInfo(pkg.ComponentHAL, "usbfs HAL initialized",
		"vid", fmt.Sprintf("%04x", h.vid), "pid", fmt.Sprintf("%04x", h.pid))
	return nil
}

// Start begins polling sysfs.
func (h *HAL) Start() error {
	if h.ctx == nil {
		return pkg.ErrNotConfigured
	}
	h.wg.Add(1)
	go h.pollLoop()
	return nil
}

// Stop stops polling and closes the device node.
func (h *HAL) Stop() error {
	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()

	h.mu.Lock()
	h.closeLocked()
	h.mu.Unlock()
	return nil
}

// Close is Stop.
func (h *HAL) Close() error {
	return h.Stop()
}

// ControlTransfer performs a control transfer on the default pipe. The
// ioctl timeout is the transfer timeout or the context deadline, whichever
// is sooner.
func (h *HAL) ControlTransfer(ctx context.Context, setup *protocol.SetupPacket, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", pkg.ErrCancelled, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.fd < 0 {
		return 0, pkg.ErrNotConnected
	}

	length := min(int(setup.Length), len(data))
	if length > maxControlTransfer {
		return 0, fmt.Errorf("%w: %d bytes", pkg.ErrBufferTooSmall, length)
	}

	timeout := h.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	if timeout <= 0 {
		return 0, pkg.ErrTimeout
	}

	ctrl := ctrlTransfer{
		requestType: setup.RequestType,
		request:     setup.Request,
		value:       setup.Value,
		index:       setup.Index,
		length:      uint16(length),
		timeout:     uint32(max(timeout.Milliseconds(), 1)),
	}
	n, err := controlTransfer(h.fd, &ctrl, data[:length])
	if err != nil {
		pkg.LogDebug(pkg.ComponentHAL, "control transfer failed",
			"setup", setup.String(), "error", err)
		return 0, err
	}
	return n, nil
}

// WaitForConnection waits for a matching device and opens its node.
func (h *HAL) WaitForConnection(ctx context.Context) (hal.DeviceInfo, error) {
	if h.ctx == nil {
		return hal.DeviceInfo{}, pkg.ErrNotConfigured
	}
	for {
		select {
		case <-ctx.Done():
			return hal.DeviceInfo{}, ctx.Err()
		case <-h.ctx.Done():
			return hal.DeviceInfo{}, pkg.ErrCancelled
		case dev := <-h.connectCh:
			fd, err := openDevice(dev.DevfsPath)
			if err != nil {
				// Usually a permissions problem; nothing will change on
				// the next poll.
				return hal.DeviceInfo{}, err
			}
			h.mu.Lock()
			h.closeLocked()
			h.fd, h.dev = fd, dev
			h.mu.Unlock()
			pkg.LogInfo(pkg.ComponentHAL, "device connected",
				"path", dev.DevfsPath, "speed", dev.Speed.String())
			return dev.Info(), nil
		}
	}
}

// WaitForDisconnection waits for the open device to disappear.
func (h *HAL) WaitForDisconnection(ctx context.Context) error {
	if h.ctx == nil {
		return pkg.ErrNotConfigured
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.ctx.Done():
			return pkg.ErrCancelled
		case path := <-h.disconnectCh:
			h.mu.Lock()
			current := h.fd >= 0 && h.dev.SysfsPath == path
			if current {
				h.closeLocked()
			}
			h.mu.Unlock()
			if current {
				pkg.LogInfo(pkg.ComponentHAL, "device disconnected", "path", path)
				return nil
			}
		}
	}
}

// pollLoop rescans sysfs and reports attach and detach of the matching
// device. A change of address counts as a detach followed by an attach.
func (h *HAL) pollLoop() {
	defer h.wg.Done()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var seen Device
	present := false
	for {
		dev, ok, err := find(h.sysfsRoot, h.devfsRoot, h.vid, h.pid)
		if err != nil {
			pkg.LogWarn(pkg.ComponentHAL, "sysfs scan failed", "error", err)
		}
		if present && (!ok || dev.DevfsPath != seen.DevfsPath) {
			present = false
			h.signal(h.disconnectCh, seen.SysfsPath)
		}
		if ok && !present {
			present, seen = true, dev
			select {
			case h.connectCh <- dev:
			default:
			}
		}

		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *HAL) signal(ch chan string, path string) {
	select {
	case ch <- path:
	default:
	}
}

// Caller must hold mu.
func (h *HAL) closeLocked() {
	if h.fd >= 0 {
		_ = unix.Close(h.fd)
		h.fd = -1
		h.dev = Device{}
	}
}
