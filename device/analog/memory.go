package analog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ardnew/lcd2usb/pkg"
)

// Size is the capacity of the emulated EEPROM.
const Size = 512

// erased is the content of a never-written EEPROM cell.
const erased = 0xFF

// RAM is a volatile Memory that counts its writes.
type RAM struct {
	mu     sync.Mutex
	data   [Size]byte
	writes int
}

var _ Memory = (*RAM)(nil)

// NewRAM returns an erased memory.
func NewRAM() *RAM {
	r := &RAM{}
	for i := range r.data {
		r.data[i] = erased
	}
	return r
}

// Load implements Memory.
func (r *RAM) Load(addr uint16) (byte, error) {
	if int(addr) >= Size {
		return 0, fmt.Errorf("%w: 0x%03X", pkg.ErrAddressRange, addr)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data[addr], nil
}

// Store implements Memory.
func (r *RAM) Store(addr uint16, v byte) error {
	if int(addr) >= Size {
		return fmt.Errorf("%w: 0x%03X", pkg.ErrAddressRange, addr)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[addr] = v
	r.writes++
	return nil
}

// Writes returns the number of Store calls.
func (r *RAM) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

// File is a Memory backed by an EEPROM image on disk. Each Store rewrites
// the image through a temporary file and rename, so a crash leaves either
// the old or the new image.
type File struct {
	mu     sync.Mutex
	path   string
	img    [Size]byte
	writes int
}

var _ Memory = (*File)(nil)

// OpenFile loads the image at path. A missing file reads as erased memory
// and is created on the first Store.
func OpenFile(path string) (*File, error) {
	f := &File{path: path}
	for i := range f.img {
		f.img[i] = erased
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			pkg.LogInfo(pkg.ComponentAnalog, "no eeprom image, starting erased", "path", path)
			return f, nil
		}
		return nil, fmt.Errorf("read eeprom image: %w", err)
	}
	copy(f.img[:], data)
	return f, nil
}

// Path returns the image location.
func (f *File) Path() string { return f.path }

// Load implements Memory.
func (f *File) Load(addr uint16) (byte, error) {
	if int(addr) >= Size {
		return 0, fmt.Errorf("%w: 0x%03X", pkg.ErrAddressRange, addr)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.img[addr], nil
}

// Store implements Memory.
func (f *File) Store(addr uint16, v byte) error {
	if int(addr) >= Size {
		return fmt.Errorf("%w: 0x%03X", pkg.ErrAddressRange, addr)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	prev := f.img[addr]
	f.img[addr] = v
	if err := f.flush(); err != nil {
		f.img[addr] = prev
		return err
	}
	f.writes++
	return nil
}

// Writes returns the number of successful Store calls.
func (f *File) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func (f *File) flush() error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create eeprom dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".eeprom-*")
	if err != nil {
		return fmt.Errorf("create temp eeprom: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(f.img[:]); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp eeprom: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp eeprom: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp eeprom: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod temp eeprom: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace eeprom image: %w", err)
	}
	return nil
}
