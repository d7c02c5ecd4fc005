package correlation

import (
	"sync"
	"time"

	"github.com/platformbuilds/mirador-alert-engine/internal/models"
)

// patternKey identifies a recurring alert signature.
type patternKey struct {
	Service string
	Host    string
	Title   string // normalized
}

func patternKeyFor(a *models.AlertRecord) patternKey {
	return patternKey{Service: a.Service, Host: a.Host, Title: NormalizeTitle(a.Title)}
}

type patternOccurrence struct {
	at  time.Time
	key patternKey
}

// patternStat accumulates a signature's full history. hitDelays holds, for
// each occurrence later published in a cluster, the lag between the
// occurrence and the publishing pass.
type patternStat struct {
	occurrences int
	firstSeen   time.Time
	lastSeen    time.Time
	hitDelays   []time.Duration
}

// patternLibrary learns recurring alert signatures. It answers two
// questions: is this signature currently so frequent it should be suppressed
// as noise, and how often has it historically led to a correlated cluster.
//
// Occurrences are logged at ingest time, so the log stays time-ordered and
// the trailing horizon can be pruned from the front.
type patternLibrary struct {
	mu             sync.Mutex
	horizon        time.Duration
	freqThreshold  float64
	minOccurrences int
	learning       bool

	occLog []patternOccurrence // trailing horizon, oldest first
	counts map[patternKey]int  // occurrences inside the horizon
	stats  map[patternKey]*patternStat
}

func newPatternLibrary(horizon time.Duration, freqThreshold float64, minOccurrences int, learning bool) *patternLibrary {
	return &patternLibrary{
		horizon:        horizon,
		freqThreshold:  freqThreshold,
		minOccurrences: minOccurrences,
		learning:       learning,
		counts:         make(map[patternKey]int),
		stats:          make(map[patternKey]*patternStat),
	}
}

// observe records one occurrence and reports whether the alert should be
// suppressed as noise. The verdict uses the counts prior to this occurrence,
// so a signature's first minOccurrences alerts always pass through and can
// still form clusters.
func (p *patternLibrary) observe(key patternKey, at time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pruneLocked(at)

	noisy := p.noisyLocked(key)

	p.occLog = append(p.occLog, patternOccurrence{at: at, key: key})
	p.counts[key]++
	stat := p.stats[key]
	if stat == nil {
		stat = &patternStat{firstSeen: at}
		p.stats[key] = stat
	}
	stat.occurrences++
	stat.lastSeen = at
	return noisy
}

// isNoisy re-evaluates a signature against the current horizon. Alerts
// flagged at ingest time are re-checked with this before each correlation
// pass, so a signature whose frequency has decayed flows back into
// clustering.
func (p *patternLibrary) isNoisy(key patternKey, at time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pruneLocked(at)
	return p.noisyLocked(key)
}

func (p *patternLibrary) noisyLocked(key patternKey) bool {
	if !p.learning {
		return false
	}
	count := p.counts[key]
	if count <= p.minOccurrences {
		return false
	}
	total := len(p.occLog)
	if total == 0 {
		return false
	}
	return float64(count)/float64(total) > p.freqThreshold
}

// recordClusterHit credits a signature whose alert was published in a
// cluster. Callers must credit each distinct alert id at most once.
func (p *patternLibrary) recordClusterHit(key patternKey, occurredAt, publishedAt time.Time) {
	delay := publishedAt.Sub(occurredAt)
	if delay < 0 {
		delay = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	stat := p.stats[key]
	if stat == nil {
		stat = &patternStat{firstSeen: occurredAt, lastSeen: occurredAt}
		p.stats[key] = stat
	}
	stat.hitDelays = append(stat.hitDelays, delay)
}

func (p *patternLibrary) pruneLocked(now time.Time) {
	cutoff := now.Add(-p.horizon)
	i := 0
	for i < len(p.occLog) && p.occLog[i].at.Before(cutoff) {
		key := p.occLog[i].key
		if p.counts[key] <= 1 {
			delete(p.counts, key)
		} else {
			p.counts[key]--
		}
		i++
	}
	if i > 0 {
		p.occLog = append(p.occLog[:0], p.occLog[i:]...)
	}
}

// horizonCount reports a signature's in-horizon occurrence count.
func (p *patternLibrary) horizonCount(key patternKey, at time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pruneLocked(at)
	return p.counts[key]
}

// signatureCount reports how many distinct signatures are inside the
// horizon.
func (p *patternLibrary) signatureCount(at time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pruneLocked(at)
	return len(p.counts)
}
