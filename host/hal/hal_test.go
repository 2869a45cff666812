package hal

import "testing"

func TestSpeedString(t *testing.T) {
	tests := map[Speed]string{
		SpeedUnknown: "Unknown",
		SpeedLow:     "Low Speed",
		SpeedFull:    "Full Speed",
		SpeedHigh:    "High Speed",
		Speed(42):    "Unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("Speed(%d).String() = %q, want %q", uint8(s), got, want)
		}
	}
}

func TestDeviceInfoString(t *testing.T) {
	tests := []struct {
		info DeviceInfo
		want string
	}{
		{DeviceInfo{Bus: 1, Address: 4, Path: "/dev/bus/usb/001/004"}, "bus 001 device 004"},
		{DeviceInfo{Path: "/tmp/lcd2usb-bus/device-ab12"}, "/tmp/lcd2usb-bus/device-ab12"},
		{DeviceInfo{}, ""},
	}
	for _, tt := range tests {
		if got := tt.info.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.info, got, tt.want)
		}
	}
}
