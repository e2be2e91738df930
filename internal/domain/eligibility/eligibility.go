// Package eligibility decides whether a group of candidates shares a tag.
package eligibility

import (
	"slices"
	"strings"

	"github.com/okian/squadron/internal/domain/model"
)

// NoTag is reported by RepresentativeTag when the group shares no tag.
const NoTag = "X"

// CommonTags returns the sorted intersection of the members' tag sets.
// An empty group has no common tags.
func CommonTags(group []model.Candidate) []string {
	if len(group) == 0 {
		return nil
	}
	common := slices.Clone(group[0].Tags)
	for _, c := range group[1:] {
		if len(common) == 0 {
			return nil
		}
		common = intersect(common, c.Tags)
	}
	return common
}

// SharesTag reports whether every member of group carries at least one
// common tag.
func SharesTag(group []model.Candidate) bool {
	return len(CommonTags(group)) > 0
}

// RepresentativeTag returns the alphabetically smallest common tag,
// upper-cased, or NoTag when there is none.
func RepresentativeTag(group []model.Candidate) string {
	common := CommonTags(group)
	if len(common) == 0 {
		return NoTag
	}
	return strings.ToUpper(common[0])
}

// intersect merges two sorted tag lists.
func intersect(a, b []string) []string {
	out := make([]string, 0, min(len(a), len(b)))
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}
