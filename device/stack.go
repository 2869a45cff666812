package device

import (
	"context"
	"errors"
	"sync"

	"github.com/ardnew/lcd2usb/device/hal"
	"github.com/ardnew/lcd2usb/pkg"
	"github.com/ardnew/lcd2usb/protocol"
)

// MaxControlDataSize is the largest OUT data stage the stack accepts.
// LCD2USB requests carry their payload in wValue and wIndex, so OUT data
// stages are always empty.
const MaxControlDataSize = 8

// Stack runs the control endpoint of the LCD2USB device: standard requests
// go to the enumeration handler, vendor requests to the dispatcher, and
// anything else stalls.
type Stack struct {
	device     *Device
	hal        hal.DeviceHAL
	handler    *StandardRequestHandler
	dispatcher *Dispatcher

	// State
	running bool
	mutex   sync.RWMutex
	done    chan struct{}

	// Context for cancellation
	ctx    context.Context
	cancel context.CancelFunc

	// Reusable setup packet for zero-allocation reads
	setupBuf protocol.SetupPacket

	// EP0 read buffer for control OUT data stage
	ep0ReadBuf [MaxControlDataSize]byte
}

// NewStack creates a device stack serving desc and dispatching vendor
// requests to d.
func NewStack(desc *Descriptors, d *Dispatcher, h hal.DeviceHAL) *Stack {
	dev := NewDevice(desc)
	return &Stack{
		device:     dev,
		hal:        h,
		handler:    NewStandardRequestHandler(dev),
		dispatcher: d,
	}
}

// Start initializes the HAL, attaches to the bus and starts the control
// loop.
func (s *Stack) Start(ctx context.Context) error {
	s.mutex.Lock()
	if s.running {
		s.mutex.Unlock()
		return pkg.ErrAlreadyRunning
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mutex.Unlock()

	if err := s.hal.Init(s.ctx); err != nil {
		s.cancel()
		return err
	}

	if err := s.hal.Start(); err != nil {
		s.cancel()
		return err
	}

	s.mutex.Lock()
	s.running = true
	s.done = make(chan struct{})
	s.mutex.Unlock()

	pkg.LogDebug(pkg.ComponentStack, "device stack started")

	go s.controlLoop(s.done)

	return nil
}

// Stop stops the control loop and detaches from the bus.
func (s *Stack) Stop() error {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return nil
	}

	s.running = false
	if s.cancel != nil {
		s.cancel()
	}
	done := s.done
	s.mutex.Unlock()

	<-done

	if err := s.hal.Stop(); err != nil {
		return err
	}

	pkg.LogDebug(pkg.ComponentStack, "device stack stopped")
	return nil
}

// IsRunning returns true if the stack is running.
func (s *Stack) IsRunning() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.running
}

// Device returns the enumeration state.
func (s *Stack) Device() *Device {
	return s.device
}

// IsConnected returns true if the device is connected to a host.
func (s *Stack) IsConnected() bool {
	return s.hal.IsConnected()
}

// WaitConnect blocks until the device connects to a host or the context is cancelled.
func (s *Stack) WaitConnect(ctx context.Context) error {
	return s.hal.WaitConnect(ctx)
}

// WaitDisconnect blocks until the device disconnects or the context is cancelled.
func (s *Stack) WaitDisconnect(ctx context.Context) error {
	return s.hal.WaitDisconnect(ctx)
}

// controlLoop handles control transfers on EP0. All bus access happens on
// this goroutine.
func (s *Stack) controlLoop(done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		if err := s.hal.ReadSetup(s.ctx, &s.setupBuf); err != nil {
			if s.ctx.Err() != nil {
				return
			}
			if errors.Is(err, pkg.ErrReset) {
				s.device.Reset()
				continue
			}
			pkg.LogWarn(pkg.ComponentStack, "error reading setup",
				"error", err)
			continue
		}

		if err := s.handleSetup(&s.setupBuf); err != nil {
			pkg.LogWarn(pkg.ComponentStack, "error handling setup",
				"error", err,
				"request", s.setupBuf.String())
			_ = s.hal.StallEP0()
		}
	}
}

// handleSetup processes a single SETUP transaction.
func (s *Stack) handleSetup(setup *protocol.SetupPacket) error {
	pkg.LogDebug(pkg.ComponentStack, "setup received",
		"request", setup.String())

	switch {
	case setup.IsStandard():
		data, err := s.handler.HandleSetup(setup)
		if err != nil {
			return err
		}
		if err := s.completeSetup(setup, data); err != nil {
			return err
		}
		// The new address takes effect after the status stage.
		if setup.Request == protocol.RequestSetAddress &&
			setup.Recipient() == protocol.RequestRecipientDevice {
			return s.hal.SetAddress(uint8(setup.Value & 0x7F))
		}
		return nil

	case setup.IsVendor():
		reply, err := s.dispatcher.Handle(setup.LCDRequest())
		if err != nil {
			return err
		}
		if len(reply) > int(setup.Length) {
			reply = reply[:setup.Length]
		}
		return s.completeSetup(setup, reply)

	default:
		return pkg.ErrInvalidRequest
	}
}

// completeSetup runs the data and status stages.
func (s *Stack) completeSetup(setup *protocol.SetupPacket, data []byte) error {
	if setup.IsDeviceToHost() {
		// A short or empty data stage ends the transfer early.
		if err := s.hal.WriteEP0(s.ctx, data); err != nil {
			return err
		}
		// Status stage (zero-length OUT)
		_, err := s.hal.ReadEP0(s.ctx, s.ep0ReadBuf[:0])
		return err
	}

	if setup.Length > 0 {
		maxLen := min(int(setup.Length), MaxControlDataSize)
		if _, err := s.hal.ReadEP0(s.ctx, s.ep0ReadBuf[:maxLen]); err != nil {
			return err
		}
	}
	return s.hal.AckEP0()
}
