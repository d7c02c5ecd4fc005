package correlation

import (
	"container/heap"
	"sort"
	"sync"
	"time"

	"github.com/platformbuilds/mirador-alert-engine/internal/models"
)

// alertStore is the bounded holding area for recent alerts. All mutation
// happens under one writer lock per store instance; eviction runs inside
// ingest so capacity is never exceeded, even under concurrent bursts.
type alertStore struct {
	mu          sync.RWMutex
	capacity    int
	dedupWindow time.Duration

	byID map[string]*models.AlertRecord
	// firingByPrint tracks the newest firing alert per fingerprint; it is
	// the dedup target and the resolve target.
	firingByPrint map[string]string
	evictQueue    evictHeap
}

func newAlertStore(capacity int, dedupWindow time.Duration) *alertStore {
	return &alertStore{
		capacity:      capacity,
		dedupWindow:   dedupWindow,
		byID:          make(map[string]*models.AlertRecord),
		firingByPrint: make(map[string]string),
	}
}

// ingest admits, deduplicates, or resolve-routes one alert. The caller has
// validated the record, applied defaults, assigned the fingerprint, and
// decided the noise flag.
func (s *alertStore) ingest(alert *models.AlertRecord) models.IngestResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if alert.Status == models.StatusResolved {
		if existing := s.lookupFiringLocked(alert.Fingerprint, alert.Service, alert.Host); existing != nil {
			existing.Status = models.StatusResolved
			at := alert.Timestamp
			existing.ResolvedAt = &at
			delete(s.firingByPrint, alert.Fingerprint)
			return models.IngestDeduplicated
		}
		s.admitLocked(alert)
		return models.IngestAccepted
	}

	if alert.Noise {
		s.admitLocked(alert)
		return models.IngestNoise
	}

	if existing := s.lookupFiringLocked(alert.Fingerprint, alert.Service, alert.Host); existing != nil {
		delta := alert.Timestamp.Sub(existing.Timestamp)
		if delta < 0 {
			delta = -delta
		}
		if delta <= s.dedupWindow {
			if alert.Timestamp.After(existing.Timestamp) {
				existing.Timestamp = alert.Timestamp
				heap.Push(&s.evictQueue, evictEntry{ts: existing.Timestamp, id: existing.ID})
			}
			return models.IngestDeduplicated
		}
	}

	s.admitLocked(alert)
	return models.IngestAccepted
}

func (s *alertStore) lookupFiringLocked(fingerprint, service, host string) *models.AlertRecord {
	id, ok := s.firingByPrint[fingerprint]
	if !ok {
		return nil
	}
	existing, ok := s.byID[id]
	if !ok || existing.Status != models.StatusFiring {
		return nil
	}
	if existing.Service != service || existing.Host != host {
		return nil
	}
	return existing
}

func (s *alertStore) admitLocked(alert *models.AlertRecord) {
	if _, replacing := s.byID[alert.ID]; !replacing {
		s.evictIfOverCapacityLocked()
	}
	stored := *alert
	s.byID[stored.ID] = &stored
	heap.Push(&s.evictQueue, evictEntry{ts: stored.Timestamp, id: stored.ID})
	if stored.Status == models.StatusFiring {
		s.firingByPrint[stored.Fingerprint] = stored.ID
	}
}

// evictIfOverCapacityLocked removes oldest-by-timestamp alerts until one
// slot is free. Heap entries go stale when dedup refreshes a timestamp;
// they are skipped lazily.
func (s *alertStore) evictIfOverCapacityLocked() {
	for len(s.byID) >= s.capacity && s.evictQueue.Len() > 0 {
		entry := heap.Pop(&s.evictQueue).(evictEntry)
		alert, ok := s.byID[entry.id]
		if !ok || !alert.Timestamp.Equal(entry.ts) {
			continue // stale entry
		}
		delete(s.byID, entry.id)
		if s.firingByPrint[alert.Fingerprint] == entry.id {
			delete(s.firingByPrint, alert.Fingerprint)
		}
	}
}

// query returns copies of stored alerts with timestamp >= since, optionally
// filtered by exact service/host, sorted by (timestamp, id).
func (s *alertStore) query(since time.Time, service, host string) []models.AlertRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.AlertRecord, 0)
	for _, alert := range s.byID {
		if alert.Timestamp.Before(since) {
			continue
		}
		if service != "" && alert.Service != service {
			continue
		}
		if host != "" && alert.Host != host {
			continue
		}
		out = append(out, copyRecord(alert))
	}
	sortAlertsByTime(out)
	return out
}

func (s *alertStore) get(id string) (models.AlertRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alert, ok := s.byID[id]
	if !ok {
		return models.AlertRecord{}, false
	}
	return copyRecord(alert), true
}

func (s *alertStore) has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok
}

func (s *alertStore) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func sortAlertsByTime(alerts []models.AlertRecord) {
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].Timestamp.Equal(alerts[j].Timestamp) {
			return alerts[i].ID < alerts[j].ID
		}
		return alerts[i].Timestamp.Before(alerts[j].Timestamp)
	})
}

func copyRecord(alert *models.AlertRecord) models.AlertRecord {
	out := *alert
	if alert.ResolvedAt != nil {
		at := *alert.ResolvedAt
		out.ResolvedAt = &at
	}
	return out
}

type evictEntry struct {
	ts time.Time
	id string
}

type evictHeap []evictEntry

func (h evictHeap) Len() int { return len(h) }

func (h evictHeap) Less(i, j int) bool {
	if h[i].ts.Equal(h[j].ts) {
		return h[i].id < h[j].id
	}
	return h[i].ts.Before(h[j].ts)
}

func (h evictHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *evictHeap) Push(x interface{}) {
	*h = append(*h, x.(evictEntry))
}

func (h *evictHeap) Pop() interface{} {
	old := *h
	n := len(old)
	entry := old[n-1]
	*h = old[:n-1]
	return entry
}
