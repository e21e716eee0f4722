package analytics

import (
	"time"
)

// Tracker forwards events off-process; *collector.BatchCollector satisfies
// it.
type Tracker interface {
	Track(key string, value any)
}

// Recorder is the request path's view of analytics: every event is counted
// locally and, when a tracker is configured, shipped for the analytics
// service to aggregate across instances.
type Recorder struct {
	local  *Aggregator
	remote Tracker
	now    func() time.Time
}

// NewRecorder accepts a nil local aggregator or a nil tracker.
func NewRecorder(local *Aggregator, remote Tracker) *Recorder {
	return &Recorder{local: local, remote: remote, now: time.Now}
}

func (r *Recorder) Search(ev SearchEvent) {
	if r == nil {
		return
	}
	ev.Type = EventSearch
	if ev.Timestamp.IsZero() {
		ev.Timestamp = r.now().UTC()
	}
	if r.local != nil {
		r.local.RecordSearch(ev)
	}
	if r.remote != nil {
		r.remote.Track(string(EventSearch), ev)
	}
}

func (r *Recorder) Browse(ev BrowseEvent) {
	if r == nil {
		return
	}
	ev.Type = EventBrowse
	if ev.Timestamp.IsZero() {
		ev.Timestamp = r.now().UTC()
	}
	if r.local != nil {
		r.local.RecordBrowse(ev)
	}
	if r.remote != nil {
		r.remote.Track(ev.EpisodeID, ev)
	}
}

func (r *Recorder) Index(ev IndexEvent) {
	if r == nil {
		return
	}
	ev.Type = EventIndex
	if ev.Timestamp.IsZero() {
		ev.Timestamp = r.now().UTC()
	}
	if r.local != nil {
		r.local.RecordIndex(ev)
	}
	if r.remote != nil {
		r.remote.Track(string(EventIndex), ev)
	}
}

// Local returns the in-process aggregator, which may be nil.
func (r *Recorder) Local() *Aggregator {
	if r == nil {
		return nil
	}
	return r.local
}
