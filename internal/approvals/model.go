package approvals

import (
	"encoding/json"
	"time"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Request is a price calculation submitted for admin sign-off. The
// snapshots keep the calculator input and result as they were submitted.
type Request struct {
	ID                  string          `json:"id"`
	CreatedByUserID     string          `json:"createdByUserId"`
	ApprovedByUserID    *string         `json:"approvedByUserId"`
	Status              string          `json:"status"`
	StarCategory        int             `json:"starCategory"`
	InputSnapshot       json.RawMessage `json:"inputSnapshot"`
	CalculationSnapshot json.RawMessage `json:"calculationSnapshot"`
	Reasons             []string        `json:"reasons"`
	AdminComment        *string         `json:"adminComment"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

type Stats struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}

// Filter narrows List. An empty CreatedBy lists every user's requests.
type Filter struct {
	CreatedBy string
	Status    string
}
