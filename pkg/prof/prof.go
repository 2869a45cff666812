package prof

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"sync"
)

var (
	// ErrCPUProfileActive is returned by StartCPU while a profile runs.
	ErrCPUProfileActive = errors.New("cpu profile already active")

	// ErrInvalidProfile names an unknown profile, or the CPU profile
	// passed to Write.
	ErrInvalidProfile = errors.New("invalid profile")
)

// Profile is a pprof profile name.
type Profile string

// Snapshot profiles.
const (
	ProfileCPU       Profile = "cpu"
	ProfileHeap      Profile = "heap"
	ProfileAllocs    Profile = "allocs"
	ProfileGoroutine Profile = "goroutine"
	ProfileBlock     Profile = "block"
	ProfileMutex     Profile = "mutex"
)

func (p Profile) String() string { return string(p) }

var (
	cpuMu     sync.Mutex
	cpuActive bool
)

// StartCPU streams a CPU profile to path until the returned function is
// called. The stop function is safe to call more than once.
func StartCPU(path string) (stop func() error, err error) {
	cpuMu.Lock()
	defer cpuMu.Unlock()

	if cpuActive {
		return nil, ErrCPUProfileActive
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, err
	}
	cpuActive = true

	var once sync.Once
	return func() error {
		var cerr error
		once.Do(func() {
			cpuMu.Lock()
			defer cpuMu.Unlock()
			pprof.StopCPUProfile()
			cpuActive = false
			cerr = f.Close()
		})
		return cerr
	}, nil
}

// Write saves a snapshot profile to path.
func Write(p Profile, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTo(p, f, 0); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteTo writes a snapshot profile to w. Debug 0 writes the protobuf
// format read by go tool pprof; 1 writes text.
func WriteTo(p Profile, w io.Writer, debug int) error {
	if p == ProfileCPU {
		return fmt.Errorf("%w: %s needs StartCPU", ErrInvalidProfile, p)
	}
	prof := pprof.Lookup(string(p))
	if prof == nil {
		return fmt.Errorf("%w: %s", ErrInvalidProfile, p)
	}
	return prof.WriteTo(w, debug)
}
