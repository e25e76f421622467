package proposal

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the review state of a proposal. Values are canonical-cased;
// ParseStatus accepts any casing.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusReviewed Status = "Reviewed"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

var statuses = []Status{StatusPending, StatusReviewed, StatusApproved, StatusRejected}

func ParseStatus(raw string) (Status, error) {
	trimmed := strings.TrimSpace(raw)
	for _, status := range statuses {
		if strings.EqualFold(trimmed, string(status)) {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
}

func (s Status) String() string {
	return string(s)
}

// Editable reports whether the proposer may still change content.
func (s Status) Editable() bool {
	return s == StatusPending || s == StatusReviewed
}

// IsDecision reports whether a reviewer may submit s as a decision.
func (s Status) IsDecision() bool {
	return s == StatusReviewed || s == StatusApproved || s == StatusRejected
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*s = StatusPending
		return nil
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
