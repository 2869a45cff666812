package prof

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStartCPU(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpu.prof")

	stop, err := StartCPU(path)
	if err != nil {
		t.Fatalf("StartCPU() error = %v, want nil", err)
	}
	if _, err := StartCPU(path + ".2"); !errors.Is(err, ErrCPUProfileActive) {
		t.Errorf("second StartCPU() error = %v, want %v", err, ErrCPUProfileActive)
	}
	if err := stop(); err != nil {
		t.Errorf("stop() error = %v", err)
	}
	if err := stop(); err != nil {
		t.Errorf("second stop() error = %v", err)
	}

	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Errorf("profile = %v, %v, want a non-empty file", info, err)
	}

	// A stopped profile can be restarted.
	stop, err = StartCPU(filepath.Join(t.TempDir(), "again.prof"))
	if err != nil {
		t.Fatalf("StartCPU() after stop error = %v", err)
	}
	_ = stop()
}

func TestStartCPUInvalidPath(t *testing.T) {
	if _, err := StartCPU("/nonexistent/directory/cpu.prof"); err == nil {
		t.Error("StartCPU() error = nil, want error for invalid path")
	}
}

func TestWriteTo(t *testing.T) {
	tests := []struct {
		p       Profile
		wantErr error
	}{
		{ProfileGoroutine, nil},
		{ProfileHeap, nil},
		{ProfileCPU, ErrInvalidProfile},
		{Profile("bogus"), ErrInvalidProfile},
	}
	for _, tt := range tests {
		t.Run(tt.p.String(), func(t *testing.T) {
			var buf bytes.Buffer
			err := WriteTo(tt.p, &buf, 1)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("WriteTo(%s) error = %v, want %v", tt.p, err, tt.wantErr)
			}
			if tt.wantErr == nil && buf.Len() == 0 {
				t.Errorf("WriteTo(%s) wrote nothing", tt.p)
			}
		})
	}

	var buf bytes.Buffer
	if err := WriteTo(ProfileGoroutine, &buf, 1); err != nil || !strings.Contains(buf.String(), "goroutine") {
		t.Errorf("WriteTo(goroutine) = %v, output lacks goroutine stacks", err)
	}
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.prof")
	if err := Write(ProfileHeap, path); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Errorf("heap profile = %v, %v, want a non-empty file", info, err)
	}
}
