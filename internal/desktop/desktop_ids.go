package desktop

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/go-ole/go-ole"
)

const guidSize = 16

// ParseDesktopIDs decodes the shell's VirtualDesktopIDs registry value: the
// GUIDs of all desktops, concatenated in desktop order.
func ParseDesktopIDs(raw []byte) ([]ole.GUID, error) {
	if len(raw)%guidSize != 0 {
		return nil, fmt.Errorf("desktop id list has %d bytes, not a multiple of %d", len(raw), guidSize)
	}

	ids := make([]ole.GUID, 0, len(raw)/guidSize)
	for off := 0; off < len(raw); off += guidSize {
		chunk := raw[off : off+guidSize]
		id := ole.GUID{
			Data1: binary.LittleEndian.Uint32(chunk[0:4]),
			Data2: binary.LittleEndian.Uint16(chunk[4:6]),
			Data3: binary.LittleEndian.Uint16(chunk[6:8]),
		}
		copy(id.Data4[:], chunk[8:16])
		ids = append(ids, id)
	}
	return ids, nil
}

// indexOf returns the durable index of id within ids. With an empty list the
// shell has only ever had one desktop, so every window is on index 0.
func indexOf(ids []ole.GUID, id ole.GUID) (uint32, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	for i := range ids {
		if ole.IsEqualGUID(&ids[i], &id) {
			return uint32(i), nil
		}
	}
	return 0, fmt.Errorf("desktop %s: %w", id.String(), ErrUnknownDesktop)
}

// targetOf returns the GUID of the desktop at index. noop is true when there is
// a single implicit desktop and index 0 was requested.
func targetOf(ids []ole.GUID, index uint32) (target ole.GUID, noop bool, err error) {
	if len(ids) == 0 {
		if index == 0 {
			return ole.GUID{}, true, nil
		}
		return ole.GUID{}, false, fmt.Errorf("desktop index %d: %w (1 desktop)", index, ErrUnknownDesktop)
	}
	if int(index) >= len(ids) {
		return ole.GUID{}, false, fmt.Errorf("desktop index %d: %w (%d desktops)", index, ErrUnknownDesktop, len(ids))
	}
	return ids[index], false, nil
}

// idCache holds a session's desktop list. It is read once and reloaded only
// when a lookup misses, so one enumeration pass sees one consistent list.
type idCache struct {
	load func() ([]ole.GUID, error)

	mu     sync.Mutex
	ids    []ole.GUID
	loaded bool
}

func newIDCache(load func() ([]ole.GUID, error)) *idCache {
	return &idCache{load: load}
}

func (c *idCache) get(reload bool) ([]ole.GUID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded && !reload {
		return c.ids, nil
	}
	ids, err := c.load()
	if err != nil {
		return nil, err
	}
	c.ids, c.loaded = ids, true
	return ids, nil
}

// index resolves id, reloading the list once if id is not in it.
func (c *idCache) index(id ole.GUID) (uint32, error) {
	ids, err := c.get(false)
	if err != nil {
		return 0, err
	}
	index, err := indexOf(ids, id)
	if !errors.Is(err, ErrUnknownDesktop) {
		return index, err
	}
	if ids, err = c.get(true); err != nil {
		return 0, err
	}
	return indexOf(ids, id)
}

// target resolves index, reloading the list once if index is past its end.
func (c *idCache) target(index uint32) (ole.GUID, bool, error) {
	ids, err := c.get(false)
	if err != nil {
		return ole.GUID{}, false, err
	}
	target, noop, err := targetOf(ids, index)
	if !errors.Is(err, ErrUnknownDesktop) {
		return target, noop, err
	}
	if ids, err = c.get(true); err != nil {
		return ole.GUID{}, false, err
	}
	return targetOf(ids, index)
}
