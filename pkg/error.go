package pkg

import "errors"

// Transport errors.
var (
	// ErrStall indicates the device stalled the control endpoint.
	ErrStall = errors.New("endpoint stalled")

	// ErrNAK indicates the device answered NAK.
	ErrNAK = errors.New("NAK received")

	// ErrTimeout indicates a transfer did not complete in time.
	ErrTimeout = errors.New("transfer timeout")

	// ErrCancelled indicates a cancelled transfer or a stopped HAL.
	ErrCancelled = errors.New("transfer cancelled")

	// ErrProtocol indicates a malformed transport message.
	ErrProtocol = errors.New("protocol error")

	// ErrNoDevice indicates no LCD2USB device is attached.
	ErrNoDevice = errors.New("device not present")

	// ErrNotConnected indicates the HAL has no active device.
	ErrNotConnected = errors.New("device not connected")

	// ErrWrongDevice indicates the attached device has an unexpected VID/PID.
	ErrWrongDevice = errors.New("unexpected vendor or product id")

	// ErrShortReply indicates the device returned fewer bytes than requested.
	ErrShortReply = errors.New("short reply")
)

// Request and stack errors.
var (
	// ErrInvalidRequest indicates an invalid or unsupported request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrSetupPacketTooShort indicates the setup packet data is too short.
	ErrSetupPacketTooShort = errors.New("setup packet too short")

	// ErrBufferTooSmall indicates the provided buffer is too small.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrNotConfigured indicates the HAL has not been initialized.
	ErrNotConfigured = errors.New("not configured")

	// ErrAlreadyRunning indicates the stack is already running.
	ErrAlreadyRunning = errors.New("already running")

	// ErrReset indicates a bus reset was received.
	ErrReset = errors.New("bus reset")

	// ErrInvalidParameter indicates an invalid argument.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidState indicates a request not allowed in the current
	// device state.
	ErrInvalidState = errors.New("invalid device state")

	// ErrDescriptorTooShort indicates the descriptor data is too short.
	ErrDescriptorTooShort = errors.New("descriptor too short")

	// ErrDescriptorTypeMismatch indicates an unexpected descriptor type.
	ErrDescriptorTypeMismatch = errors.New("descriptor type mismatch")
)

// Hardware errors.
var (
	// ErrNoController indicates an LCD controller did not answer during
	// initialization.
	ErrNoController = errors.New("no LCD controller")

	// ErrHardwareTimeout indicates the busy flag did not clear within the
	// configured poll limit.
	ErrHardwareTimeout = errors.New("hardware timeout")

	// ErrNoPin indicates a configured GPIO pin name is unknown.
	ErrNoPin = errors.New("gpio pin not found")

	// ErrInvalidChannel indicates an analog channel outside contrast/brightness.
	ErrInvalidChannel = errors.New("invalid analog channel")

	// ErrAddressRange indicates a non-volatile memory address out of range.
	ErrAddressRange = errors.New("address out of range")
)

// TransferStatus represents the completion status of a control transfer.
type TransferStatus int

// Transfer status values.
const (
	TransferStatusSuccess   TransferStatus = iota // Transfer completed
	TransferStatusError                           // Transfer failed
	TransferStatusStall                           // Endpoint stalled
	TransferStatusNAK                             // NAK received
	TransferStatusTimeout                         // Transfer timed out
	TransferStatusCancelled                       // Transfer was cancelled
)

// String returns a string representation of the transfer status.
func (s TransferStatus) String() string {
	switch s {
	case TransferStatusSuccess:
		return "success"
	case TransferStatusError:
		return "error"
	case TransferStatusStall:
		return "stall"
	case TransferStatusNAK:
		return "nak"
	case TransferStatusTimeout:
		return "timeout"
	case TransferStatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error returns the corresponding error for the transfer status.
func (s TransferStatus) Error() error {
	switch s {
	case TransferStatusSuccess:
		return nil
	case TransferStatusStall:
		return ErrStall
	case TransferStatusNAK:
		return ErrNAK
	case TransferStatusTimeout:
		return ErrTimeout
	case TransferStatusCancelled:
		return ErrCancelled
	default:
		return ErrProtocol
	}
}

// StatusOf classifies err as a TransferStatus.
func StatusOf(err error) TransferStatus {
	switch {
	case err == nil:
		return TransferStatusSuccess
	case errors.Is(err, ErrStall):
		return TransferStatusStall
	case errors.Is(err, ErrNAK):
		return TransferStatusNAK
	case errors.Is(err, ErrTimeout):
		return TransferStatusTimeout
	case errors.Is(err, ErrCancelled):
		return TransferStatusCancelled
	default:
		return TransferStatusError
	}
}
