package protocol

import (
	"fmt"
	"time"

	"github.com/ardnew/lcd2usb/pkg"
)

// USB identity of the LCD2USB interface.
const (
	VendorID  = 0x0403
	ProductID = 0xC630
)

// Firmware version reported by GET Version.
const (
	VersionMajor  = 1
	VersionMinor  = 9
	VersionString = "1.09"
)

// Transfer limits.
const (
	MaxPayload      = 4               // payload bytes carried by one request
	ReplySize       = 2               // bytes returned by GET and ECHO
	TransferTimeout = 1 * time.Second // per control transfer
)

// Request byte layout: CCC TT R LL.
const (
	classShift  = 5
	targetShift = 3
	targetMask  = 0x03
	lengthMask  = 0x03
)

// Class is the 3-bit command class of a request.
type Class uint8

// Command classes.
const (
	ClassEcho Class = 0 // transfer self-test
	ClassCmd  Class = 1 // HD44780 instruction bytes
	ClassData Class = 2 // HD44780 data bytes
	ClassSet  Class = 3 // analog output set
	ClassGet  Class = 4 // status query
)

// String returns the class mnemonic.
func (c Class) String() string {
	switch c {
	case ClassEcho:
		return "ECHO"
	case ClassCmd:
		return "CMD"
	case ClassData:
		return "DATA"
	case ClassSet:
		return "SET"
	case ClassGet:
		return "GET"
	default:
		return fmt.Sprintf("CLASS%d", uint8(c))
	}
}

// Target is the 2-bit target field. For CMD and DATA it is a controller
// bitmap; for SET and GET it selects a subtarget.
type Target uint8

// Controller bitmap values.
const (
	Ctrl0 Target = 1 << 0
	Ctrl1 Target = 1 << 1
	Both         = Ctrl0 | Ctrl1
)

// SET subtargets.
const (
	SetContrast   Target = 0
	SetBrightness Target = 1
)

// GET subtargets.
const (
	GetVersion     Target = 0
	GetKeys        Target = 1
	GetControllers Target = 2
)

// Has reports whether every bit of ctrl is set in t.
func (t Target) Has(ctrl Target) bool {
	return t&ctrl == ctrl && ctrl != 0
}

// Request is one decoded control transfer of the LCD2USB protocol.
type Request struct {
	Class   Class
	Target  Target
	Payload [MaxPayload]byte
	Len     int // 1..MaxPayload
}

// NewRequest builds a request carrying payload. Payload beyond MaxPayload
// is rejected.
func NewRequest(class Class, target Target, payload ...byte) (Request, error) {
	r := Request{Class: class, Target: target & targetMask, Len: len(payload)}
	if len(payload) > MaxPayload {
		return r, fmt.Errorf("%w: %d payload bytes", pkg.ErrInvalidRequest, len(payload))
	}
	copy(r.Payload[:], payload)
	return r, r.Validate()
}

// Validate checks the fields that the request byte can represent.
func (r Request) Validate() error {
	if r.Class > ClassGet {
		return fmt.Errorf("%w: class %d", pkg.ErrInvalidRequest, r.Class)
	}
	if r.Target > targetMask {
		return fmt.Errorf("%w: target %d", pkg.ErrInvalidRequest, r.Target)
	}
	if r.Len < 1 || r.Len > MaxPayload {
		return fmt.Errorf("%w: length %d", pkg.ErrInvalidRequest, r.Len)
	}
	return nil
}

// Bytes returns the Len payload bytes.
func (r Request) Bytes() []byte {
	n := r.Len
	if n < 0 {
		n = 0
	} else if n > MaxPayload {
		n = MaxPayload
	}
	return r.Payload[:n]
}

// Encode packs the request into the control transfer fields. Payload bytes
// past Len are sent as zero.
func (r Request) Encode() (request uint8, value, index uint16) {
	var p [MaxPayload]byte
	copy(p[:], r.Bytes())
	request = uint8(r.Class)<<classShift |
		uint8(r.Target&targetMask)<<targetShift |
		uint8(r.Len-1)&lengthMask
	value = uint16(p[0]) | uint16(p[1])<<8
	index = uint16(p[2]) | uint16(p[3])<<8
	return request, value, index
}

// Decode unpacks control transfer fields. It never fails: the reserved bit
// is ignored and unknown classes are returned as-is for the caller to skip.
// All four field bytes are kept in Payload regardless of Len, since ECHO
// reflects the whole value field even when the length bits say one byte.
func Decode(request uint8, value, index uint16) Request {
	r := Request{
		Class:  Class(request >> classShift),
		Target: Target(request>>targetShift) & targetMask,
		Len:    int(request&lengthMask) + 1,
	}
	r.Payload[0] = byte(value)
	r.Payload[1] = byte(value >> 8)
	r.Payload[2] = byte(index)
	r.Payload[3] = byte(index >> 8)
	return r
}

// String returns a compact description of the request.
func (r Request) String() string {
	return fmt.Sprintf("%s target=%d len=%d payload=% X", r.Class, r.Target, r.Len, r.Bytes())
}

// IsControllerClass reports whether the request addresses LCD controllers.
func (r Request) IsControllerClass() bool {
	return r.Class == ClassCmd || r.Class == ClassData
}
