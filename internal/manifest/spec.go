package manifest

import (
	"sort"
	"strings"
)

// DefaultRef is used when a manifest entry omits its ref.
const DefaultRef = "main"

// RepoSpec describes one manifest entry. It is a value type and is never mutated after loading.
type RepoSpec struct {
	Name string
	URL  string
	Ref  string
}

// NewRepoSpec trims the supplied values and applies the default ref.
func NewRepoSpec(name string, url string, ref string) RepoSpec {
	trimmedRef := strings.TrimSpace(ref)
	if len(trimmedRef) == 0 {
		trimmedRef = DefaultRef
	}
	return RepoSpec{
		Name: strings.TrimSpace(name),
		URL:  strings.TrimSpace(url),
		Ref:  trimmedRef,
	}
}

// Sorted returns a copy of specs ordered by name.
func Sorted(specs []RepoSpec) []RepoSpec {
	ordered := append([]RepoSpec(nil), specs...)
	sort.SliceStable(ordered, func(leftIndex int, rightIndex int) bool {
		return ordered[leftIndex].Name < ordered[rightIndex].Name
	})
	return ordered
}
