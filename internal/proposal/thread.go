package proposal

import (
	"cmp"
	"iter"
	"slices"
	"strconv"
	"time"
)

const CurrentVersionLabel = "Current Version"

// ThreadGroup is the comments and replies of one version, oldest first.
type ThreadGroup struct {
	Label     string    `json:"label"`
	Version   int       `json:"version,omitempty"`
	Current   bool      `json:"current"`
	Remarks   string    `json:"remarks,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
	Items     Comments  `json:"items"`
}

// AssembleThread yields the live thread as "Current Version" followed by
// archived threads, newest version first. Entries missing a version are
// placed by their update time instead. Versions without any comments or
// replies are skipped. The sequence reads only its arguments and can be
// ranged over any number of times.
func AssembleThread(p Proposal, history []HistoryEntry) iter.Seq[ThreadGroup] {
	return func(yield func(ThreadGroup) bool) {
		if items := mergeThread(p.Comments, p.Replies); len(items) > 0 {
			current := ThreadGroup{
				Label:     CurrentVersionLabel,
				Version:   p.Version,
				Current:   true,
				UpdatedAt: p.UpdatedAt,
				Items:     items,
			}
			if !yield(current) {
				return
			}
		}

		archived := make([]HistoryEntry, 0, len(history))
		for _, entry := range history {
			if len(entry.Comments) > 0 || len(entry.Replies) > 0 {
				archived = append(archived, entry)
			}
		}
		slices.SortStableFunc(archived, compareHistory)

		for _, entry := range archived {
			group := ThreadGroup{
				Label:     versionLabel(entry.Version),
				Version:   entry.Version,
				Remarks:   entry.Remarks,
				UpdatedAt: entry.UpdatedAt,
				Items:     mergeThread(entry.Comments, entry.Replies),
			}
			if !yield(group) {
				return
			}
		}
	}
}

// compareHistory orders entries newest first: by version when both carry
// one, by update time otherwise.
func compareHistory(a, b HistoryEntry) int {
	if a.Version > 0 && b.Version > 0 && a.Version != b.Version {
		return cmp.Compare(b.Version, a.Version)
	}
	return b.UpdatedAt.Compare(a.UpdatedAt)
}

func mergeThread(comments Comments, replies []ProposerComment) Comments {
	items := make(Comments, 0, len(comments)+len(replies))
	items = append(items, comments...)
	for _, reply := range replies {
		items = append(items, reply)
	}
	slices.SortStableFunc(items, func(a, b Comment) int {
		return a.CommentTime().Compare(b.CommentTime())
	})
	return items
}

func versionLabel(version int) string {
	if version <= 0 {
		return "Archived Version"
	}
	return "Version " + strconv.Itoa(version)
}
