package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-ole/go-ole"
	"github.com/google/uuid"

	"github.com/bryanchriswhite/DeskSnap/internal/desktop"
)

// WindowRecord is one observed top-level window. Only the five tagged fields
// are persisted; Handle and DesktopID belong to the session that produced them.
type WindowRecord struct {
	Title          string `json:"title" yaml:"title"`
	ExecutablePath string `json:"path" yaml:"path"`
	ProcessID      uint32 `json:"process_id" yaml:"process_id"`
	ClassName      string `json:"class_name" yaml:"class_name"`
	DesktopIndex   uint32 `json:"desktop_index" yaml:"desktop_index"`

	Handle    desktop.HWND `json:"-" yaml:"-"`
	DesktopID ole.GUID     `json:"-" yaml:"-"`
}

// Persisted returns r without its session-local fields.
func (r WindowRecord) Persisted() WindowRecord {
	r.Handle = 0
	r.DesktopID = ole.GUID{}
	return r
}

// Snapshot is an immutable, identified capture of window records.
type Snapshot struct {
	id         uuid.UUID
	capturedAt time.Time
	windows    []WindowRecord
}

// Build wraps windows in a new snapshot with a fresh id. The slice is copied
// and its order kept.
func Build(windows []WindowRecord) *Snapshot {
	return newSnapshot(uuid.New(), time.Now().UTC(), windows)
}

func newSnapshot(id uuid.UUID, capturedAt time.Time, windows []WindowRecord) *Snapshot {
	copied := make([]WindowRecord, len(windows))
	copy(copied, windows)
	return &Snapshot{
		id:         id,
		capturedAt: capturedAt,
		windows:    copied,
	}
}

// ID returns the snapshot identifier.
func (s *Snapshot) ID() uuid.UUID { return s.id }

// CapturedAt returns when the snapshot was built.
func (s *Snapshot) CapturedAt() time.Time { return s.capturedAt }

// Len returns the number of window records.
func (s *Snapshot) Len() int { return len(s.windows) }

// Window returns the i-th record.
func (s *Snapshot) Window(i int) WindowRecord { return s.windows[i] }

// Windows returns a copy of the records in capture order.
func (s *Snapshot) Windows() []WindowRecord {
	out := make([]WindowRecord, len(s.windows))
	copy(out, s.windows)
	return out
}

// document is the serialized form of a Snapshot. "data" is the key the
// original vdesk.json used for the window list.
type document struct {
	ID         uuid.UUID      `json:"id" yaml:"id"`
	CapturedAt time.Time      `json:"captured_at" yaml:"captured_at"`
	Windows    []WindowRecord `json:"data" yaml:"data"`
}

func (s *Snapshot) document() document {
	windows := make([]WindowRecord, len(s.windows))
	for i, w := range s.windows {
		windows[i] = w.Persisted()
	}
	return document{ID: s.id, CapturedAt: s.capturedAt, Windows: windows}
}

// MarshalJSON implements json.Marshaler.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.document())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.ID == uuid.Nil {
		return errors.New("snapshot has no id")
	}
	if doc.Windows == nil {
		doc.Windows = []WindowRecord{}
	}
	*s = *newSnapshot(doc.ID, doc.CapturedAt, doc.Windows)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s *Snapshot) MarshalYAML() (interface{}, error) {
	return s.document(), nil
}

func (s *Snapshot) String() string {
	return fmt.Sprintf("snapshot %s (%d windows)", s.id, len(s.windows))
}
