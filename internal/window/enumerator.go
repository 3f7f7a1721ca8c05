package window

import (
	"github.com/bryanchriswhite/DeskSnap/internal/desktop"
	"github.com/bryanchriswhite/DeskSnap/internal/logger"
	"github.com/bryanchriswhite/DeskSnap/internal/snapshot"
)

// Enumerator turns the raw window list of a Source into window records.
type Enumerator struct {
	src Source
}

// NewEnumerator creates an enumerator over src.
func NewEnumerator(src Source) *Enumerator {
	return &Enumerator{src: src}
}

// Source returns the underlying window source.
func (e *Enumerator) Source() Source {
	return e.src
}

// Enumerate returns a record for every qualifying top-level window, in OS
// enumeration order. It never fails: a window whose path or desktop cannot be
// resolved is kept with an empty path or desktop 0, and a failed walk yields
// whatever was collected before the failure.
func (e *Enumerator) Enumerate(s *desktop.Session) []snapshot.WindowRecord {
	log := logger.WithComponent("window")

	natives, err := e.src.Windows()
	if err != nil {
		log.Error().
			Err(err).
			Str("source", e.src.Name()).
			Int("collected", len(natives)).
			Msg("Window walk failed")
	}

	records := make([]snapshot.WindowRecord, 0, len(natives))
	for _, w := range natives {
		if !Classify(w) {
			continue
		}

		if w.Cloaked {
			log.Debug().
				Uint64("hwnd", uint64(w.Handle)).
				Str("title", w.Title).
				Msg("Including cloaked window")
		}

		rec := snapshot.WindowRecord{
			Title:     w.Title,
			ProcessID: w.PID,
			ClassName: w.Class,
			Handle:    w.Handle,
		}

		path, err := e.src.ExecutablePath(w.PID)
		if err != nil {
			log.Debug().
				Err(err).
				Uint32("pid", w.PID).
				Str("title", w.Title).
				Msg("Could not resolve executable path")
			path = ""
		}
		rec.ExecutablePath = path

		d, err := s.WindowDesktop(w.Handle)
		if err != nil {
			log.Warn().
				Err(err).
				Uint64("hwnd", uint64(w.Handle)).
				Str("title", w.Title).
				Msg("Could not resolve virtual desktop, using 0")
		} else {
			rec.DesktopIndex = d.Index
			rec.DesktopID = d.ID
		}

		records = append(records, rec)
	}

	log.Debug().
		Int("walked", len(natives)).
		Int("kept", len(records)).
		Msg("Enumerated windows")
	return records
}
