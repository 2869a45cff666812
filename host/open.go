package host

import (
	"context"
	"fmt"
	"time"

	"github.com/ardnew/lcd2usb/host/hal"
	"github.com/ardnew/lcd2usb/pkg"
	"github.com/ardnew/lcd2usb/protocol"
)

// defaultAddress is assigned by HALs that leave enumeration to the
// client.
const defaultAddress = 1

// enumerator is implemented by HALs without an operating system doing
// enumeration for them, such as the named-pipe HAL.
type enumerator interface {
	ResetPort(ctx context.Context) error
	SetDeviceAddress(ctx context.Context, addr uint8) error
}

// Option configures Open.
type Option func(*options)

type options struct {
	timeout time.Duration
	connect time.Duration
}

// WithTimeout sets the per-request transfer timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithConnectTimeout bounds the wait for a device to appear. Zero waits
// until ctx is done.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) { o.connect = d }
}

// Open starts h, waits for a device and returns a client for it. The
// device descriptor must carry the LCD2USB vendor and product IDs;
// otherwise h is stopped and pkg.ErrWrongDevice returned. HALs that need
// it are taken through reset, SET_ADDRESS and SET_CONFIGURATION first.
func Open(ctx context.Context, h hal.HostHAL, opts ...Option) (*LCD, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := h.Init(ctx); err != nil {
		return nil, fmt.Errorf("init HAL: %w", err)
	}
	if err := h.Start(); err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("start HAL: %w", err)
	}

	wctx, cancel := ctx, context.CancelFunc(func() {})
	if o.connect > 0 {
		wctx, cancel = context.WithTimeout(ctx, o.connect)
	}
	info, err := h.WaitForConnection(wctx)
	cancel()
	if err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("%w: %w", pkg.ErrNoDevice, err)
	}

	desc, err := identify(ctx, h)
	if err != nil {
		_ = h.Close()
		return nil, err
	}

	l := NewLCD(NewTransport(h, o.timeout))
	l.hal, l.info, l.desc = h, info, desc
	if desc.ProductIndex != 0 {
		if l.product, err = readString(ctx, h, desc.ProductIndex); err != nil {
			pkg.LogWarn(pkg.ComponentHost, "product string unavailable", "error", err)
		}
	}

	major, minor := desc.Version()
	pkg.LogInfo(pkg.ComponentHost, "device opened",
		"device", info.String(),
		"speed", info.Speed.String(),
		"version", Version{major, minor}.String(),
		"product", l.product)
	return l, nil
}

// maxStringDescriptor bounds the string descriptors Open reads.
const maxStringDescriptor = 64

// readString reads string descriptor index in US English.
func readString(ctx context.Context, h hal.HostHAL, index uint8) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, protocol.TransferTimeout)
	defer cancel()

	var setup protocol.SetupPacket
	var buf [maxStringDescriptor]byte
	protocol.GetDescriptorSetup(&setup, protocol.DescriptorTypeString, index, uint16(len(buf)))
	setup.Index = protocol.LanguageEnglishUS
	n, err := h.ControlTransfer(ctx, &setup, buf[:])
	if err != nil {
		return "", fmt.Errorf("get string %d: %w", index, err)
	}
	return protocol.ParseStringDescriptor(buf[:n])
}

// identify reads and checks the device descriptor, enumerating the device
// first when the HAL requires it.
func identify(ctx context.Context, h hal.HostHAL) (protocol.DeviceDescriptor, error) {
	var desc protocol.DeviceDescriptor
	var setup protocol.SetupPacket
	var buf [protocol.DeviceDescriptorSize]byte

	tctx, cancel := context.WithTimeout(ctx, protocol.TransferTimeout)
	defer cancel()

	e, manual := h.(enumerator)
	if manual {
		if err := e.ResetPort(tctx); err != nil {
			return desc, fmt.Errorf("reset: %w", err)
		}
	}

	protocol.GetDescriptorSetup(&setup, protocol.DescriptorTypeDevice, 0, uint16(len(buf)))
	n, err := h.ControlTransfer(tctx, &setup, buf[:])
	if err != nil {
		return desc, fmt.Errorf("get device descriptor: %w", err)
	}
	if err := protocol.ParseDeviceDescriptor(buf[:n], &desc); err != nil {
		return desc, fmt.Errorf("get device descriptor: %w", err)
	}
	if !desc.IsLCD2USB() {
		return desc, fmt.Errorf("%w: %04x:%04x", pkg.ErrWrongDevice, desc.VendorID, desc.ProductID)
	}

	if manual {
		setup = protocol.SetupPacket{
			RequestType: protocol.RequestDirectionHostToDevice | protocol.RequestTypeStandard | protocol.RequestRecipientDevice,
			Request:     protocol.RequestSetAddress,
			Value:       defaultAddress,
		}
		if _, err := h.ControlTransfer(tctx, &setup, nil); err != nil {
			return desc, fmt.Errorf("set address: %w", err)
		}
		if err := e.SetDeviceAddress(tctx, defaultAddress); err != nil {
			return desc, fmt.Errorf("set address: %w", err)
		}
		protocol.SetConfigurationSetup(&setup, 1)
		if _, err := h.ControlTransfer(tctx, &setup, nil); err != nil {
			return desc, fmt.Errorf("set configuration: %w", err)
		}
	}
	return desc, nil
}
