package device

import (
	"encoding/binary"

	"github.com/ardnew/lcd2usb/pkg"
	"github.com/ardnew/lcd2usb/protocol"
)

// MaxDescriptorResponseSize bounds a standard request reply.
const MaxDescriptorResponseSize = 64

// StandardRequestHandler handles the chapter 9 requests a control-only
// device must answer during enumeration.
type StandardRequestHandler struct {
	device *Device

	// The slice returned by HandleSetup references this buffer.
	responseBuf [MaxDescriptorResponseSize]byte
}

// NewStandardRequestHandler creates a new standard request handler.
func NewStandardRequestHandler(dev *Device) *StandardRequestHandler {
	return &StandardRequestHandler{device: dev}
}

// HandleSetup processes a standard SETUP request.
// Returns the response data (may be nil) and an error.
func (h *StandardRequestHandler) HandleSetup(setup *protocol.SetupPacket) ([]byte, error) {
	if !setup.IsStandard() {
		return nil, pkg.ErrInvalidRequest
	}

	switch setup.Recipient() {
	case protocol.RequestRecipientDevice:
		return h.handleDeviceRequest(setup)
	case protocol.RequestRecipientInterface:
		return h.handleInterfaceRequest(setup)
	default:
		return nil, pkg.ErrInvalidRequest
	}
}

func (h *StandardRequestHandler) handleDeviceRequest(setup *protocol.SetupPacket) ([]byte, error) {
	switch setup.Request {
	case protocol.RequestGetStatus:
		return h.status(setup)
	case protocol.RequestSetAddress:
		return nil, h.device.SetAddress(uint8(setup.Value & 0x7F))
	case protocol.RequestGetDescriptor:
		return h.getDescriptor(setup)
	case protocol.RequestGetConfiguration:
		h.responseBuf[0] = h.device.Configuration()
		return h.responseBuf[:1], nil
	case protocol.RequestSetConfiguration:
		return nil, h.device.SetConfiguration(uint8(setup.Value))
	default:
		return nil, pkg.ErrInvalidRequest
	}
}

func (h *StandardRequestHandler) handleInterfaceRequest(setup *protocol.SetupPacket) ([]byte, error) {
	if setup.Index != 0 || !h.device.IsConfigured() {
		return nil, pkg.ErrInvalidRequest
	}
	switch setup.Request {
	case protocol.RequestGetStatus:
		return h.status(setup)
	case protocol.RequestGetInterface:
		h.responseBuf[0] = 0
		return h.responseBuf[:1], nil
	case protocol.RequestSetInterface:
		if setup.Value != 0 {
			return nil, pkg.ErrInvalidRequest
		}
		return nil, nil
	default:
		return nil, pkg.ErrInvalidRequest
	}
}

// status reports bus powered, no remote wakeup.
func (h *StandardRequestHandler) status(setup *protocol.SetupPacket) ([]byte, error) {
	if setup.Length < 2 {
		return nil, pkg.ErrInvalidRequest
	}
	binary.LittleEndian.PutUint16(h.responseBuf[:2], 0)
	return h.responseBuf[:2], nil
}

func (h *StandardRequestHandler) getDescriptor(setup *protocol.SetupPacket) ([]byte, error) {
	desc := h.device.Descriptors
	var n int

	switch setup.DescriptorType() {
	case protocol.DescriptorTypeDevice:
		n = desc.Device.MarshalTo(h.responseBuf[:])

	case protocol.DescriptorTypeConfiguration:
		if setup.DescriptorIndex() != 0 {
			return nil, pkg.ErrInvalidRequest
		}
		n = desc.MarshalConfiguration(h.responseBuf[:])

	case protocol.DescriptorTypeString:
		data := desc.String(setup.DescriptorIndex())
		if data == nil {
			return nil, pkg.ErrInvalidRequest
		}
		n = copy(h.responseBuf[:], data)

	default:
		return nil, pkg.ErrInvalidRequest
	}

	if n == 0 {
		return nil, pkg.ErrBufferTooSmall
	}
	if n > int(setup.Length) {
		n = int(setup.Length)
	}
	return h.responseBuf[:n], nil
}
