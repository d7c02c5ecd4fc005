package models

import (
	"fmt"
	"strings"
	"time"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Weight maps a severity onto [0,1] for impact summaries.
func (s Severity) Weight() float64 {
	switch s {
	case SeverityInfo:
		return 0.25
	case SeverityWarning:
		return 0.5
	case SeverityCritical:
		return 1.0
	default:
		return 0
	}
}

func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

type AlertStatus string

const (
	StatusFiring   AlertStatus = "firing"
	StatusResolved AlertStatus = "resolved"
)

func (s AlertStatus) Valid() bool {
	return s == StatusFiring || s == StatusResolved
}

// AlertRecord is a single reported problem from a monitored service/host.
// Immutable once stored except the firing -> resolved transition and the
// dedup timestamp refresh.
type AlertRecord struct {
	ID          string      `json:"id"`
	Fingerprint string      `json:"fingerprint,omitempty"` // derived, engine-assigned
	Timestamp   time.Time   `json:"timestamp"`
	Service     string      `json:"service"`
	Host        string      `json:"host"`
	Severity    Severity    `json:"severity"`
	Status      AlertStatus `json:"status"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Noise       bool        `json:"noise,omitempty"` // suppressed as recurring noise
	ResolvedAt  *time.Time  `json:"resolved_at,omitempty"`
}

// ApplyDefaults fills the optional fields the ingest contract defaults:
// timestamp to receipt time, status to firing.
func (a *AlertRecord) ApplyDefaults(now time.Time) {
	if a.Timestamp.IsZero() {
		a.Timestamp = now
	}
	if a.Status == "" {
		a.Status = StatusFiring
	}
}

// Validate enforces the ingest boundary: required fields present, enums
// known. Violations wrap ErrInvalidAlert.
func (a *AlertRecord) Validate() error {
	var missing []string
	if a.ID == "" {
		missing = append(missing, "id")
	}
	if a.Service == "" {
		missing = append(missing, "service")
	}
	if a.Host == "" {
		missing = append(missing, "host")
	}
	if a.Severity == "" {
		missing = append(missing, "severity")
	}
	if a.Title == "" {
		missing = append(missing, "title")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidAlert, strings.Join(missing, ", "))
	}
	if !a.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidAlert, a.Severity)
	}
	if !a.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidAlert, a.Status)
	}
	return nil
}

type IngestResult string

const (
	IngestAccepted     IngestResult = "accepted"
	IngestDeduplicated IngestResult = "deduplicated"
	IngestNoise        IngestResult = "noise"
)
