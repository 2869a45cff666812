package pkg

import (
	"errors"
	"fmt"
	"testing"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want TransferStatus
	}{
		{"nil", nil, TransferStatusSuccess},
		{"stall", ErrStall, TransferStatusStall},
		{"wrapped stall", fmt.Errorf("get version: %w", ErrStall), TransferStatusStall},
		{"timeout", fmt.Errorf("request 0x80: %w", ErrTimeout), TransferStatusTimeout},
		{"nak", ErrNAK, TransferStatusNAK},
		{"cancelled", ErrCancelled, TransferStatusCancelled},
		{"no device", ErrNoDevice, TransferStatusError},
		{"other", errors.New("boom"), TransferStatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.want {
				t.Errorf("StatusOf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

// Every status maps to an error that StatusOf maps back to it.
func TestTransferStatusRoundTrip(t *testing.T) {
	for s := TransferStatusSuccess; s <= TransferStatusCancelled; s++ {
		if got := StatusOf(s.Error()); got != s {
			t.Errorf("StatusOf(%v.Error()) = %v, want %v", s, got, s)
		}
		if s.String() == "unknown" {
			t.Errorf("TransferStatus(%d).String() = unknown", int(s))
		}
	}
	if got := TransferStatus(99).String(); got != "unknown" {
		t.Errorf("TransferStatus(99).String() = %q, want unknown", got)
	}
	if err := TransferStatus(99).Error(); !errors.Is(err, ErrProtocol) {
		t.Errorf("TransferStatus(99).Error() = %v, want %v", err, ErrProtocol)
	}
}

func TestHardwareErrorsDistinct(t *testing.T) {
	errs := []error{ErrNoController, ErrHardwareTimeout, ErrNoPin, ErrInvalidChannel, ErrAddressRange, ErrTimeout}
	for i, a := range errs {
		for j, b := range errs {
			if i != j && errors.Is(a, b) {
				t.Errorf("errors.Is(%v, %v) = true", a, b)
			}
		}
	}
}
