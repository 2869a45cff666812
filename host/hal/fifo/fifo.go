package fifo

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ardnew/lcd2usb/host/hal"
	"github.com/ardnew/lcd2usb/pkg"
	"github.com/ardnew/lcd2usb/protocol"
)

// Message types of the pipe protocol (shared with the device HAL).
const (
	msgSetup   = 0x01 // SETUP packet
	msgData    = 0x02 // DATA packet
	msgAck     = 0x03 // ACK response
	msgNak     = 0x04 // NAK response
	msgStall   = 0x05 // STALL response
	msgReset   = 0x12 // Port reset
	msgAddress = 0x13 // Set address
)

// Connection signal bytes (one-way signaling from device).
const (
	sigConnect    = 0x01 // Device connected
	sigDisconnect = 0x00 // Device disconnected
)

// Buffer sizes.
const (
	maxPacketSize  = 256 // Largest data stage in one message
	headerSize     = 3   // Message header size (type + length)
	maxMessageSize = headerSize + 1 + protocol.SetupPacketSize + maxPacketSize
)

// Timing constants.
const (
	pollInterval = 50 * time.Millisecond  // Directory polling interval
	readPoll     = 100 * time.Millisecond // Connection pipe read deadline
)

// FIFO file names (inside each device subdirectory).
const (
	fifoHostToDevice = "host_to_device"
	fifoDeviceToHost = "device_to_host"
	fifoConnection   = "connection"
)

// deviceConn is one attached simulated device.
type deviceConn struct {
	dir          string   // Device subdirectory path
	hostToDevice *os.File // Host writes to device (control transfers)
	deviceToHost *os.File // Device writes to host (control responses)
}

// HAL implements hal.HostHAL over named pipes. It polls a bus directory
// for device-{id} subdirectories created by the device HAL and attaches
// to the first device that signals a connection.
type HAL struct {
	busDir string

	device   *deviceConn
	deviceMu sync.Mutex
	address  uint8

	txBuf [maxMessageSize]byte
	rxBuf [maxMessageSize]byte

	connectCh    chan *deviceConn
	disconnectCh chan string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ hal.HostHAL = (*HAL)(nil)

// New creates a pipe HAL watching busDir.
func New(busDir string) *HAL {
	return &HAL{
		busDir:       busDir,
		connectCh:    make(chan *deviceConn, 8),
		disconnectCh: make(chan string, 8),
	}
}

// Init creates the bus directory.
func (h *HAL) Init(ctx context.Context) error {
	h.ctx, h.cancel = context.WithCancel(ctx)

	if err := os.MkdirAll(h.busDir, 0o755); err != nil {
		return fmt.Errorf("create bus dir: %w", err)
	}

	pkg.LogInfo(pkg.ComponentHAL, "host FIFO HAL initialized", "busDir", h.busDir)
	return nil
}

// Start begins polling the bus directory.
func (h *HAL) Start() error {
	if h.ctx == nil {
		return pkg.ErrNotConfigured
	}
	h.wg.Add(1)
	go h.pollDeviceDirectories()

	pkg.LogDebug(pkg.ComponentHAL, "host FIFO HAL started")
	return nil
}

// Stop stops polling and closes the attached device.
func (h *HAL) Stop() error {
	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()

	h.deviceMu.Lock()
	if h.device != nil {
		h.closeDevice(h.device)
		h.device = nil
	}
	h.deviceMu.Unlock()

	pkg.LogDebug(pkg.ComponentHAL, "host FIFO HAL stopped")
	return nil
}

// Close is Stop; the HAL holds no other resources.
func (h *HAL) Close() error {
	return h.Stop()
}

// ResetPort sends a bus reset to the device.
func (h *HAL) ResetPort(ctx context.Context) error {
	h.deviceMu.Lock()
	defer h.deviceMu.Unlock()
	if h.device == nil {
		return pkg.ErrNotConnected
	}
	if err := h.exchange(ctx, msgReset, 0, nil, nil); err != nil {
		return err
	}
	h.address = 0
	pkg.LogDebug(pkg.ComponentHAL, "port reset complete")
	return nil
}

// SetDeviceAddress assigns addr to the device.
func (h *HAL) SetDeviceAddress(ctx context.Context, addr uint8) error {
	h.deviceMu.Lock()
	defer h.deviceMu.Unlock()
	if h.device == nil {
		return pkg.ErrNotConnected
	}
	h.txBuf[headerSize] = addr
	if err := h.exchange(ctx, msgAddress, 1, nil, nil); err != nil {
		return err
	}
	h.address = addr
	pkg.LogDebug(pkg.ComponentHAL, "device address set", "address", addr)
	return nil
}

// ControlTransfer performs a control transfer on the default pipe.
func (h *HAL) ControlTransfer(ctx context.Context, setup *protocol.SetupPacket, data []byte) (int, error) {
	h.deviceMu.Lock()
	defer h.deviceMu.Unlock()

	if h.device == nil {
		return 0, pkg.ErrNotConnected
	}

	isIn := setup.IsDeviceToHost()
	// [address, setup(8), OUT data...]
	h.txBuf[headerSize] = h.address
	setup.MarshalTo(h.txBuf[headerSize+1:])
	payloadLen := 1 + protocol.SetupPacketSize
	if !isIn && len(data) > 0 {
		if len(data) > maxPacketSize {
			return 0, fmt.Errorf("%w: %d bytes", pkg.ErrBufferTooSmall, len(data))
		}
		payloadLen += copy(h.txBuf[headerSize+payloadLen:], data)
	}

	var n int
	err := h.exchange(ctx, msgSetup, payloadLen, data, &n)
	if err != nil {
		return 0, err
	}
	if !isIn {
		n = min(len(data), int(setup.Length))
	}
	return n, nil
}

// exchange writes the message staged in txBuf and reads the reply. A DATA
// reply is copied into in and its length stored in n.
// Caller must hold deviceMu.
func (h *HAL) exchange(ctx context.Context, msgType byte, payloadLen int, in []byte, n *int) error {
	dev := h.device
	h.drain(dev)

	h.txBuf[0] = msgType
	binary.LittleEndian.PutUint16(h.txBuf[1:3], uint16(payloadLen))
	if _, err := dev.hostToDevice.Write(h.txBuf[:headerSize+payloadLen]); err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrNoDevice, err)
	}

	deadline := time.Now().Add(protocol.TransferTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	header := h.rxBuf[:headerSize]
	if err := h.readFull(ctx, dev.deviceToHost, header, deadline); err != nil {
		return err
	}
	respLen := int(binary.LittleEndian.Uint16(header[1:3]))
	if headerSize+respLen > len(h.rxBuf) {
		return fmt.Errorf("%w: reply length %d", pkg.ErrProtocol, respLen)
	}
	payload := h.rxBuf[headerSize : headerSize+respLen]
	if err := h.readFull(ctx, dev.deviceToHost, payload, deadline); err != nil {
		return err
	}

	switch header[0] {
	case msgData:
		if n != nil {
			*n = copy(in, payload)
		}
		return nil
	case msgAck:
		return nil
	case msgNak:
		return pkg.ErrNAK
	case msgStall:
		return pkg.ErrStall
	default:
		return fmt.Errorf("%w: message type 0x%02X", pkg.ErrProtocol, header[0])
	}
}

// readFull fills buf before deadline.
func (h *HAL) readFull(ctx context.Context, f *os.File, buf []byte, deadline time.Time) error {
	for total := 0; total < len(buf); {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("%w: %w", pkg.ErrTimeout, err)
			}
			return fmt.Errorf("%w: %w", pkg.ErrCancelled, err)
		}
		poll := time.Now().Add(readPoll)
		if poll.After(deadline) {
			poll = deadline
		}
		_ = f.SetReadDeadline(poll)
		n, err := f.Read(buf[total:])
		total += n
		if err == nil {
			continue
		}
		if !os.IsTimeout(err) {
			return fmt.Errorf("%w: %v", pkg.ErrNoDevice, err)
		}
		if !time.Now().Before(deadline) {
			return pkg.ErrTimeout
		}
	}
	return nil
}

// drain discards replies left over from transfers that timed out.
func (h *HAL) drain(dev *deviceConn) {
	rc, err := dev.deviceToHost.SyscallConn()
	if err != nil {
		return
	}
	_ = rc.Read(func(fd uintptr) bool {
		for {
			n, err := unix.Read(int(fd), h.rxBuf[:])
			if n <= 0 || err != nil {
				return true
			}
			pkg.LogDebug(pkg.ComponentHAL, "discarded stale reply", "bytes", n)
		}
	})
}

// WaitForConnection waits for a device to connect.
func (h *HAL) WaitForConnection(ctx context.Context) (hal.DeviceInfo, error) {
	if h.ctx == nil {
		return hal.DeviceInfo{}, pkg.ErrNotConfigured
	}
	select {
	case <-ctx.Done():
		return hal.DeviceInfo{}, ctx.Err()
	case <-h.ctx.Done():
		return hal.DeviceInfo{}, pkg.ErrCancelled
	case dev := <-h.connectCh:
		h.deviceMu.Lock()
		if h.device != nil {
			h.closeDevice(h.device)
		}
		h.device = dev
		h.address = 0
		h.deviceMu.Unlock()
		pkg.LogInfo(pkg.ComponentHAL, "device connected", "dir", dev.dir)
		return hal.DeviceInfo{Path: dev.dir, Speed: hal.SpeedLow}, nil
	}
}

// WaitForDisconnection waits for the attached device to disconnect.
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
		case dir := <-h.disconnectCh:
			h.deviceMu.Lock()
			current := h.device != nil && h.device.dir == dir
			if current {
				h.closeDevice(h.device)
				h.device = nil
			}
			h.deviceMu.Unlock()
			if current {
				pkg.LogInfo(pkg.ComponentHAL, "device disconnected", "dir", dir)
				return nil
			}
		}
	}
}

// pollDeviceDirectories polls the bus directory for new device subdirectories.
func (h *HAL) pollDeviceDirectories() {
	defer h.wg.Done()

	knownDirs := make(map[string]bool)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
		}

		entries, err := os.ReadDir(h.busDir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "device-") {
				continue
			}
			dirPath := filepath.Join(h.busDir, entry.Name())
			if knownDirs[dirPath] {
				continue
			}
			if _, err := os.Stat(filepath.Join(dirPath, fifoConnection)); err != nil {
				continue
			}
			knownDirs[dirPath] = true
			h.wg.Add(1)
			go h.handleDeviceDirectory(dirPath)
		}

		for dir := range knownDirs {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				delete(knownDirs, dir)
			}
		}
	}
}

// handleDeviceDirectory follows the connection signals of one device.
func (h *HAL) handleDeviceDirectory(dirPath string) {
	defer h.wg.Done()

	pkg.LogDebug(pkg.ComponentHAL, "monitoring device directory", "dir", dirPath)

	// O_RDWR keeps the open from blocking and the pipe from reporting EOF.
	connPath := filepath.Join(dirPath, fifoConnection)
	connFile, err := os.OpenFile(connPath, os.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		pkg.LogWarn(pkg.ComponentHAL, "failed to open connection FIFO", "path", connPath, "error", err)
		return
	}
	defer connFile.Close()

	// A device that signalled before this host started is already up; its
	// pipes exist as soon as the directory does.
	announced := h.announce(dirPath)
	if !announced && h.ctx.Err() != nil {
		return
	}

	var buf [1]byte
	for {
		select {
		case <-h.ctx.Done():
			return
		default:
		}

		_ = connFile.SetReadDeadline(time.Now().Add(readPoll))
		n, err := connFile.Read(buf[:])
		if err != nil {
			if os.IsTimeout(err) {
				if _, statErr := os.Stat(dirPath); os.IsNotExist(statErr) {
					h.signalDisconnect(dirPath)
					return
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				h.signalDisconnect(dirPath)
				return
			}
			continue
		}
		if n == 0 {
			continue
		}

		switch buf[0] {
		case sigConnect:
			if !announced {
				announced = h.announce(dirPath)
			}
		case sigDisconnect:
			h.signalDisconnect(dirPath)
			return
		}
	}
}

// announce opens the pipes of the device in dirPath and offers it to
// WaitForConnection.
func (h *HAL) announce(dirPath string) bool {
	dev, err := openDeviceFIFOs(dirPath)
	if err != nil {
		pkg.LogWarn(pkg.ComponentHAL, "failed to open device FIFOs", "dir", dirPath, "error", err)
		return false
	}
	select {
	case h.connectCh <- dev:
		return true
	case <-h.ctx.Done():
		h.closeDevice(dev)
		return false
	}
}

func (h *HAL) signalDisconnect(dir string) {
	select {
	case h.disconnectCh <- dir:
	case <-h.ctx.Done():
	}
}

// openDeviceFIFOs opens the control pipes of a device.
func openDeviceFIFOs(dirPath string) (*deviceConn, error) {
	dev := &deviceConn{dir: dirPath}

	var err error
	dev.hostToDevice, err = os.OpenFile(
		filepath.Join(dirPath, fifoHostToDevice),
		os.O_WRONLY|unix.O_NONBLOCK,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fifoHostToDevice, err)
	}

	dev.deviceToHost, err = os.OpenFile(
		filepath.Join(dirPath, fifoDeviceToHost),
		os.O_RDONLY|unix.O_NONBLOCK,
		0,
	)
	if err != nil {
		dev.hostToDevice.Close()
		return nil, fmt.Errorf("open %s: %w", fifoDeviceToHost, err)
	}
	return dev, nil
}

// closeDevice closes the control pipes of a device.
func (h *HAL) closeDevice(dev *deviceConn) {
	if dev.hostToDevice != nil {
		dev.hostToDevice.Close()
	}
	if dev.deviceToHost != nil {
		dev.deviceToHost.Close()
	}
}
