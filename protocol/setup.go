package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/lcd2usb/pkg"
)

// Standard USB request codes used by the LCD2USB stack (USB 2.0 Table 9-4).
const (
	RequestGetStatus        = 0x00
	RequestSetAddress       = 0x05
	RequestGetDescriptor    = 0x06
	RequestGetConfiguration = 0x08
	RequestSetConfiguration = 0x09
	RequestGetInterface     = 0x0A
	RequestSetInterface     = 0x0B
)

// Descriptor types (USB 2.0 Table 9-5).
const (
	DescriptorTypeDevice        = 0x01
	DescriptorTypeConfiguration = 0x02
	DescriptorTypeString        = 0x03
	DescriptorTypeInterface     = 0x04
)

// bmRequestType fields (USB 2.0 Table 9-2).
const (
	RequestTypeDirectionMask = 0x80
	RequestTypeTypeMask      = 0x60
	RequestTypeRecipientMask = 0x1F

	RequestDirectionHostToDevice = 0x00
	RequestDirectionDeviceToHost = 0x80

	RequestTypeStandard = 0x00
	RequestTypeClass    = 0x20
	RequestTypeVendor   = 0x40

	RequestRecipientDevice    = 0x00
	RequestRecipientInterface = 0x01
	RequestRecipientEndpoint  = 0x02
)

// SetupPacketSize is the size of a USB SETUP packet in bytes.
const SetupPacketSize = 8

// SetupPacket is the 8-byte SETUP stage of a control transfer.
type SetupPacket struct {
	RequestType uint8  // bmRequestType
	Request     uint8  // bRequest
	Value       uint16 // wValue
	Index       uint16 // wIndex
	Length      uint16 // wLength
}

// ParseSetupPacket parses the first 8 bytes of data into out.
func ParseSetupPacket(data []byte, out *SetupPacket) error {
	if len(data) < SetupPacketSize {
		return pkg.ErrSetupPacketTooShort
	}
	out.RequestType = data[0]
	out.Request = data[1]
	out.Value = binary.LittleEndian.Uint16(data[2:4])
	out.Index = binary.LittleEndian.Uint16(data[4:6])
	out.Length = binary.LittleEndian.Uint16(data[6:8])
	return nil
}

// MarshalTo serializes the setup packet to buf and returns 8, or 0 when buf
// is too small.
func (s *SetupPacket) MarshalTo(buf []byte) int {
	if len(buf) < SetupPacketSize {
		return 0
	}
	buf[0] = s.RequestType
	buf[1] = s.Request
	binary.LittleEndian.PutUint16(buf[2:4], s.Value)
	binary.LittleEndian.PutUint16(buf[4:6], s.Index)
	binary.LittleEndian.PutUint16(buf[6:8], s.Length)
	return SetupPacketSize
}

// IsDeviceToHost reports an IN transfer.
func (s *SetupPacket) IsDeviceToHost() bool {
	return s.RequestType&RequestTypeDirectionMask == RequestDirectionDeviceToHost
}

// IsStandard reports a standard request.
func (s *SetupPacket) IsStandard() bool {
	return s.RequestType&RequestTypeTypeMask == RequestTypeStandard
}

// IsVendor reports a vendor-specific request.
func (s *SetupPacket) IsVendor() bool {
	return s.RequestType&RequestTypeTypeMask == RequestTypeVendor
}

// Recipient returns the recipient bits of bmRequestType.
func (s *SetupPacket) Recipient() uint8 {
	return s.RequestType & RequestTypeRecipientMask
}

// DescriptorType returns the descriptor type from the wValue high byte.
func (s *SetupPacket) DescriptorType() uint8 {
	return uint8(s.Value >> 8)
}

// DescriptorIndex returns the descriptor index from the wValue low byte.
func (s *SetupPacket) DescriptorIndex() uint8 {
	return uint8(s.Value)
}

// LCDRequest decodes the LCD2USB request carried by a vendor SETUP packet.
func (s *SetupPacket) LCDRequest() Request {
	return Decode(s.Request, s.Value, s.Index)
}

// String returns a human-readable representation of the setup packet.
func (s *SetupPacket) String() string {
	dir := "OUT"
	if s.IsDeviceToHost() {
		dir = "IN"
	}
	typ := "Standard"
	switch s.RequestType & RequestTypeTypeMask {
	case RequestTypeClass:
		typ = "Class"
	case RequestTypeVendor:
		typ = "Vendor"
	}
	return fmt.Sprintf("SETUP[%s %s] Request=0x%02X Value=0x%04X Index=0x%04X Length=%d",
		dir, typ, s.Request, s.Value, s.Index, s.Length)
}

// VendorSetup initializes out as a vendor request to the device carrying r.
// A non-zero replyLen makes it an IN transfer expecting that many bytes.
func VendorSetup(out *SetupPacket, r Request, replyLen int) {
	request, value, index := r.Encode()
	out.RequestType = RequestTypeVendor | RequestRecipientDevice
	if replyLen > 0 {
		out.RequestType |= RequestDirectionDeviceToHost
	}
	out.Request = request
	out.Value = value
	out.Index = index
	out.Length = uint16(replyLen)
}

// GetDescriptorSetup initializes out as a GET_DESCRIPTOR request.
func GetDescriptorSetup(out *SetupPacket, descType, descIndex uint8, length uint16) {
	out.RequestType = RequestDirectionDeviceToHost | RequestTypeStandard | RequestRecipientDevice
	out.Request = RequestGetDescriptor
	out.Value = uint16(descType)<<8 | uint16(descIndex)
	out.Index = 0
	out.Length = length
}

// SetConfigurationSetup initializes out as a SET_CONFIGURATION request.
func SetConfigurationSetup(out *SetupPacket, config uint8) {
	out.RequestType = RequestDirectionHostToDevice | RequestTypeStandard | RequestRecipientDevice
	out.Request = RequestSetConfiguration
	out.Value = uint16(config)
	out.Index = 0
	out.Length = 0
}
