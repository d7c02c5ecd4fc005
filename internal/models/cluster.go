package models

import "time"

// ImpactRelation positions an affected node relative to the primary
// root-cause candidate.
type ImpactRelation string

const (
	ImpactRoot       ImpactRelation = "root"
	ImpactUpstream   ImpactRelation = "upstream"
	ImpactDownstream ImpactRelation = "downstream"
	ImpactRelated    ImpactRelation = "related"
)

// ImpactedNode is one distinct (service, host) pair touched by a cluster.
type ImpactedNode struct {
	Service  string         `json:"service"`
	Host     string         `json:"host"`
	Relation ImpactRelation `json:"relation"`
}

// ImpactAssessment summarizes a cluster's blast radius.
type ImpactAssessment struct {
	AffectedServices  int            `json:"affected_services"`
	AffectedHosts     int            `json:"affected_hosts"`
	TotalAlerts       int            `json:"total_alerts"`
	SeverityBreakdown map[string]int `json:"severity_breakdown"`
	Nodes             []ImpactedNode `json:"nodes"`
}

// AlertCluster groups >= 2 alerts judged to represent one incident.
type AlertCluster struct {
	ID                  string           `json:"id"`
	Alerts              []AlertRecord    `json:"alerts"`
	CorrelationType     CorrelationType  `json:"correlation_type"`
	ConfidenceScore     float64          `json:"confidence_score"`
	RootCauseCandidates []string         `json:"root_cause_candidates"`
	Impact              ImpactAssessment `json:"impact_assessment"`
	CreatedAt           time.Time        `json:"created_at"`
}

// PrimaryRootCause returns the top-ranked candidate alert id, or "" for an
// empty candidate list.
func (c *AlertCluster) PrimaryRootCause() string {
	if len(c.RootCauseCandidates) == 0 {
		return ""
	}
	return c.RootCauseCandidates[0]
}

// MemberIDs lists the member alert ids in stored order.
func (c *AlertCluster) MemberIDs() []string {
	ids := make([]string, 0, len(c.Alerts))
	for i := range c.Alerts {
		ids = append(ids, c.Alerts[i].ID)
	}
	return ids
}
