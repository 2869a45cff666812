package usbid

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"
)

// DefaultPaths lists the standard locations for the USB ID database.
var DefaultPaths = []string{
	"/usr/share/hwdata/usb.ids",
	"/var/lib/usbutils/usb.ids",
	"/usr/share/misc/usb.ids",
}

// builtin names devices the database may not know.
var builtin = map[uint32]string{
	0x0403_C630: "LCD2USB Interface",
}

// Database caches vendor and product names from the USB ID database.
type Database struct {
	vendors  map[uint16]string // VID -> vendor name
	products map[uint32]string // (VID<<16)|PID -> product name
	loaded   bool
	mu       sync.RWMutex
	paths    []string
}

// New creates a database that searches paths, or DefaultPaths when none
// are given.
func New(paths ...string) *Database {
	if len(paths) == 0 {
		paths = DefaultPaths
	}
	return &Database{
		vendors:  make(map[uint16]string),
		products: make(map[uint32]string),
		paths:    paths,
	}
}

// Load parses the first database file found. Later calls do nothing. It
// returns an error wrapping fs.ErrNotExist when no file exists; lookups
// then fall back to the built-in names.
func (db *Database) Load() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.loaded {
		return nil
	}
	db.loaded = true

	for _, path := range db.paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		defer f.Close()
		if err := db.parse(f); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}
	return fmt.Errorf("usb.ids: %w", fs.ErrNotExist)
}

// Parse reads database entries from r, adding to any already loaded.
func (db *Database) Parse(r io.Reader) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.loaded = true
	return db.parse(r)
}

// parse handles vendor lines "vvvv  Name" and product lines "\tpppp  Name".
// Everything after the device list (classes, languages) is ignored.
func (db *Database) parse(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	var vid uint16
	inVendor := false

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}

		if line[0] == '\t' {
			if !inVendor || strings.HasPrefix(line, "\t\t") {
				continue
			}
			id, name, ok := splitEntry(line[1:])
			if ok {
				db.products[uint32(vid)<<16|uint32(id)] = name
			}
			continue
		}

		id, name, ok := splitEntry(line)
		inVendor = ok
		if ok {
			vid = id
			db.vendors[vid] = name
		}
	}
	return scanner.Err()
}

func splitEntry(line string) (uint16, string, bool) {
	if len(line) < 6 || line[4] != ' ' {
		return 0, "", false
	}
	id, err := strconv.ParseUint(line[:4], 16, 16)
	if err != nil {
		return 0, "", false
	}
	return uint16(id), strings.TrimSpace(line[5:]), true
}

// Vendor returns the vendor name for vid, or "".
func (db *Database) Vendor(vid uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.vendors[vid]
}

// Product returns the product name for vid:pid, or "".
func (db *Database) Product(vid, pid uint16) string {
	key := uint32(vid)<<16 | uint32(pid)
	db.mu.RLock()
	name := db.products[key]
	db.mu.RUnlock()
	if name == "" {
		name = builtin[key]
	}
	return name
}

// Describe returns "Vendor Product" with unknown parts omitted, or
// "vvvv:pppp" when neither is known.
func (db *Database) Describe(vid, pid uint16) string {
	parts := make([]string, 0, 2)
	if v := db.Vendor(vid); v != "" {
		parts = append(parts, v)
	}
	if p := db.Product(vid, pid); p != "" {
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%04x:%04x", vid, pid)
	}
	return strings.Join(parts, " ")
}

// Len returns the number of vendors and products loaded.
func (db *Database) Len() (vendors, products int) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.vendors), len(db.products)
}
