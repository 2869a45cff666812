package protocol

import (
	"errors"
	"testing"

	"github.com/ardnew/lcd2usb/pkg"
)

func TestParseSetupPacket(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    SetupPacket
		wantErr error
	}{
		{
			name: "GET_DESCRIPTOR device",
			data: []byte{0x80, 0x06, 0x00, 0x01, 0x00, 0x00, 0x12, 0x00},
			want: SetupPacket{RequestType: 0x80, Request: 0x06, Value: 0x0100, Length: 18},
		},
		{
			name: "vendor GET version",
			data: []byte{0xC0, 0x80, 0x00, 0x00, 0x00, 0x00, 0x02, 0x00},
			want: SetupPacket{RequestType: 0xC0, Request: 0x80, Length: 2},
		},
		{
			name: "vendor DATA four bytes",
			data: []byte{0x40, 0x4B, 'a', 'b', 'c', 'd', 0x00, 0x00},
			want: SetupPacket{RequestType: 0x40, Request: 0x4B, Value: 0x6261, Index: 0x6463},
		},
		{
			name:    "too short",
			data:    []byte{0x80, 0x06, 0x00},
			wantErr: pkg.ErrSetupPacketTooShort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got SetupPacket
			err := ParseSetupPacket(tt.data, &got)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseSetupPacket() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if got != tt.want {
				t.Errorf("ParseSetupPacket() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSetupPacketMarshalTo(t *testing.T) {
	s := SetupPacket{RequestType: 0xC0, Request: 0x88, Value: 0x1234, Index: 0x5678, Length: 2}
	var buf [SetupPacketSize]byte
	if n := s.MarshalTo(buf[:]); n != SetupPacketSize {
		t.Fatalf("MarshalTo() = %d, want %d", n, SetupPacketSize)
	}
	want := [SetupPacketSize]byte{0xC0, 0x88, 0x34, 0x12, 0x78, 0x56, 0x02, 0x00}
	if buf != want {
		t.Errorf("MarshalTo() = % X, want % X", buf, want)
	}
	if n := s.MarshalTo(buf[:4]); n != 0 {
		t.Errorf("MarshalTo(short) = %d, want 0", n)
	}
}

func TestVendorSetup(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		replyLen int
		wantType uint8
	}{
		{"out", mustRequest(t, ClassCmd, Ctrl0, 0x01), 0, 0x40},
		{"in", mustRequest(t, ClassGet, GetVersion, 0), ReplySize, 0xC0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s SetupPacket
			VendorSetup(&s, tt.req, tt.replyLen)
			if s.RequestType != tt.wantType {
				t.Errorf("RequestType = 0x%02X, want 0x%02X", s.RequestType, tt.wantType)
			}
			if !s.IsVendor() {
				t.Error("IsVendor() = false, want true")
			}
			if int(s.Length) != tt.replyLen {
				t.Errorf("Length = %d, want %d", s.Length, tt.replyLen)
			}
			if got := s.LCDRequest(); got != tt.req {
				t.Errorf("LCDRequest() = %v, want %v", got, tt.req)
			}
		})
	}
}

func TestGetDescriptorSetup(t *testing.T) {
	var s SetupPacket
	GetDescriptorSetup(&s, DescriptorTypeDevice, 0, 18)
	if !s.IsDeviceToHost() || !s.IsStandard() {
		t.Errorf("GetDescriptorSetup() = %s", s.String())
	}
	if s.DescriptorType() != DescriptorTypeDevice || s.DescriptorIndex() != 0 {
		t.Errorf("descriptor = %d/%d, want %d/0", s.DescriptorType(), s.DescriptorIndex(), DescriptorTypeDevice)
	}
}

func mustRequest(t *testing.T, class Class, target Target, payload ...byte) Request {
	t.Helper()
	r, err := NewRequest(class, target, payload...)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	return r
}
