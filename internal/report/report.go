// Package report is the aggregation and filtering engine behind the issue
// table, the insight charts and the screenshot gallery. Every function is a
// pure, total function over its explicit inputs: no ambient state, no I/O,
// never an error, and inputs are never mutated. Calling any function twice
// with identical inputs yields identical outputs.
package report

import (
	"strings"
	"time"

	"fieldlens/internal/domain"
)

// All is the sentinel filter value that disables a predicate.
const All = "all"

// timelineWindow bounds the timeline to its last N buckets.
const timelineWindow = 10

// Snapshot is the in-memory collection state the engine reads. It is always
// passed explicitly; the engine never reaches for shared state.
type Snapshot struct {
	Issues    []domain.Issue    `json:"issues"`
	Customers []domain.Customer `json:"customers"`
}

// Filters holds the active predicate selection for Filter. Zero values and
// the "all" sentinel disable the corresponding predicate.
type Filters struct {
	CustomerID string `json:"customerId,omitempty"`
	Search     string `json:"search,omitempty"`
	Status     string `json:"status,omitempty"`
	Category   string `json:"category,omitempty"`
}

// Filter returns the ordered subsequence of issues satisfying every active
// predicate. It is a stable filter: original relative order is preserved,
// nothing is duplicated or inserted. Title search is a case-insensitive
// substring match. Unknown status/category values simply match nothing.
func Filter(issues []domain.Issue, f Filters) []domain.Issue {
	search := strings.ToLower(f.Search)
	out := []domain.Issue{}
	for _, is := range issues {
		if f.CustomerID != "" && f.CustomerID != All && is.CustomerID != f.CustomerID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(is.Title), search) {
			continue
		}
		if f.Status != "" && f.Status != All && is.Status != f.Status {
			continue
		}
		if f.Category != "" && f.Category != All && is.Category != f.Category {
			continue
		}
		out = append(out, is)
	}
	return out
}

// Categories returns the distinct non-empty category values across all
// given issues, in first-seen order. It feeds the category filter control,
// so it is computed over the full collection, not a filtered view.
func Categories(issues []domain.Issue) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, is := range issues {
		if is.Category == "" || seen[is.Category] {
			continue
		}
		seen[is.Category] = true
		out = append(out, is.Category)
	}
	return out
}

// Bucket is one (key, count) pair of a grouped tally.
type Bucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Dimension selects the key extractor for Tally.
type Dimension string

const (
	ByCategory Dimension = "category"
	ByModel    Dimension = "model"
	ByWorkflow Dimension = "workflow"
)

// fallback labels for absent values, per dimension.
const (
	uncategorized = "Uncategorized"
	unknown       = "Unknown"
)

func (d Dimension) key(is domain.Issue) string {
	switch d {
	case ByCategory:
		if is.Category == "" {
			return uncategorized
		}
		return is.Category
	case ByModel:
		if is.Model == "" {
			return unknown
		}
		return is.Model
	case ByWorkflow:
		if is.Workflow == "" {
			return unknown
		}
		return is.Workflow
	}
	return unknown
}

// Tally groups issues on the chosen dimension and returns one bucket per
// distinct key, counts included, in first-seen order of the key. First-seen
// order (not alphabetical, not count-sorted) keeps chart rendering stable
// across re-renders given the same input order.
func Tally(issues []domain.Issue, dim Dimension) []Bucket {
	return tallyBy(issues, dim.key)
}

func tallyBy(issues []domain.Issue, key func(domain.Issue) string) []Bucket {
	index := map[string]int{}
	out := []Bucket{}
	for _, is := range issues {
		k := key(is)
		if i, ok := index[k]; ok {
			out[i].Count++
			continue
		}
		index[k] = len(out)
		out = append(out, Bucket{Key: k, Count: 1})
	}
	return out
}

// StatusTally counts issues per status over the fixed three-value status
// domain. Unlike Tally it always returns all three buckets, zeros included,
// in Open, In Progress, Resolved order.
func StatusTally(issues []domain.Issue) []Bucket {
	out := []Bucket{
		{Key: domain.StatusOpen},
		{Key: domain.StatusInProgress},
		{Key: domain.StatusResolved},
	}
	for _, is := range issues {
		for i := range out {
			if out[i].Key == is.Status {
				out[i].Count++
				break
			}
		}
	}
	return out
}

// Timeline buckets issues per calendar day of dateAdded, labeled month+day
// without a year, in first-seen order, truncated to the last timelineWindow
// buckets by position. The truncation drops from the front of the bucket
// sequence, so when issues arrive out of chronological order this is not a
// most-recent-10-days guarantee.
func Timeline(issues []domain.Issue) []Bucket {
	out := tallyBy(issues, func(is domain.Issue) string {
		return time.UnixMilli(is.DateAdded).UTC().Format("Jan 2")
	})
	if len(out) > timelineWindow {
		out = out[len(out)-timelineWindow:]
	}
	return out
}

// Summary holds the headline metrics of the insights view.
type Summary struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"inProgress"`
	Resolved   int `json:"resolved"`
}

// Summarize counts issues overall and per status.
func Summarize(issues []domain.Issue) Summary {
	s := Summary{Total: len(issues)}
	for _, is := range issues {
		switch is.Status {
		case domain.StatusOpen:
			s.Open++
		case domain.StatusInProgress:
			s.InProgress++
		case domain.StatusResolved:
			s.Resolved++
		}
	}
	return s
}

// GalleryItem is one screenshot paired with its owning issue.
type GalleryItem struct {
	Screenshot domain.Screenshot `json:"screenshot"`
	Issue      domain.Issue      `json:"issue"`
}

// Gallery flattens issues into (screenshot, issue) pairs: for each issue in
// input order, one pair per screenshot in attachment order. relatedIssueID
// narrows the result to a single issue's screenshots; "all" or empty passes
// everything through. Issues without screenshots contribute nothing.
func Gallery(issues []domain.Issue, relatedIssueID string) []GalleryItem {
	out := []GalleryItem{}
	for _, is := range issues {
		if relatedIssueID != "" && relatedIssueID != All && is.ID != relatedIssueID {
			continue
		}
		for _, s := range is.Screenshots {
			out = append(out, GalleryItem{Screenshot: s, Issue: is})
		}
	}
	return out
}

// GalleryIssues returns each issue at most once, in order of first
// occurrence. It feeds the related-issue dropdown.
func GalleryIssues(issues []domain.Issue) []domain.Issue {
	seen := map[string]bool{}
	out := []domain.Issue{}
	for _, is := range issues {
		if seen[is.ID] {
			continue
		}
		seen[is.ID] = true
		out = append(out, is)
	}
	return out
}
