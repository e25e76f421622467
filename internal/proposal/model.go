package proposal

import (
	"slices"
	"strings"
	"time"

	"proposaldesk/internal/rbac"
)

// ActingUser is the authenticated caller of a workflow operation.
type ActingUser struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Role        rbac.Role `json:"role"`
	Departments []string  `json:"departments,omitempty"`
}

// CoversDepartment reports whether the user may act on proposals filed
// under department. Admins cover every department.
func (u ActingUser) CoversDepartment(department string) bool {
	if u.Role == rbac.RoleAdmin {
		return true
	}
	return slices.ContainsFunc(u.Departments, func(d string) bool {
		return strings.EqualFold(strings.TrimSpace(d), strings.TrimSpace(department))
	})
}

type GroupDetails struct {
	GroupName   string `json:"groupName"`
	LeaderName  string `json:"leaderName"`
	LeaderEmail string `json:"leaderEmail"`
	MemberCount int    `json:"memberCount"`
}

// Content holds the proposer-editable fields of a proposal.
type Content struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Objectives   string  `json:"objectives"`
	Outcomes     string  `json:"outcomes"`
	Budget       float64 `json:"budget"`
	Schedule     string  `json:"schedule"`
	Venue        string  `json:"venue"`
	EventDate    string  `json:"eventDate"`
	IsIndividual bool    `json:"isIndividual"`
	GroupDetails
}

// Snapshot is the archived form of a proposal. It has no status or version;
// those belong to the live document and the history entry respectively.
type Snapshot struct {
	Content
	ProposerID   string    `json:"proposerId"`
	ProposerName string    `json:"proposerName,omitempty"`
	Department   string    `json:"department"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Proposal struct {
	ID string `json:"id"`
	Content
	ProposerID   string            `json:"proposerId"`
	ProposerName string            `json:"proposerName,omitempty"`
	Department   string            `json:"department"`
	Status       Status            `json:"status"`
	Version      int               `json:"version"`
	Comments     Comments          `json:"comments"`
	Replies      []ProposerComment `json:"replies"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

func (p Proposal) Snapshot() Snapshot {
	return Snapshot{
		Content:      p.Content,
		ProposerID:   p.ProposerID,
		ProposerName: p.ProposerName,
		Department:   p.Department,
		CreatedAt:    p.CreatedAt,
	}
}

// HistoryEntry archives one version of a proposal. There is at most one
// entry per version.
type HistoryEntry struct {
	ID        string            `json:"id"`
	Version   int               `json:"version"`
	Snapshot  *Snapshot         `json:"snapshot,omitempty"`
	Comments  Comments          `json:"comments"`
	Replies   []ProposerComment `json:"replies"`
	Remarks   string            `json:"remarks"`
	UpdatedAt time.Time         `json:"updatedAt"`
	UpdatedBy string            `json:"updatedBy"`
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Department string
	ProposerID string
	Status     Status
	Limit      int
}
