package services

import (
	"sort"

	"github.com/custodia-labs/askdb-core/internal/core/domain"
)

// AggregateSecurity reduces a hit set into a single access-requirement
// summary: union of ACL labels, union of classification labels, and
// the maximum doc level seen. An absent level contributes no
// restriction. The reduction is order-independent and idempotent under
// duplicate hits; empty input yields empty unions and a nil max.
func AggregateSecurity(hits []domain.Hit) domain.SecurityContext {
	acl := make(map[string]struct{})
	classification := make(map[string]struct{})
	var levelMax *int

	for _, hit := range hits {
		for _, label := range hit.ACLAllow {
			acl[label] = struct{}{}
		}
		for _, label := range hit.ClassificationLabels {
			classification[label] = struct{}{}
		}
		if hit.DocLevel != nil {
			if levelMax == nil || *hit.DocLevel > *levelMax {
				v := *hit.DocLevel
				levelMax = &v
			}
		}
	}

	return domain.SecurityContext{
		ACLLabelsUnion:            sortedKeys(acl),
		ClassificationLabelsUnion: sortedKeys(classification),
		DocLevelMax:               levelMax,
	}
}

// MergeSecurity combines two contexts into one. Merging the aggregates
// of two hit subsets equals aggregating their union.
func MergeSecurity(a, b domain.SecurityContext) domain.SecurityContext {
	acl := make(map[string]struct{})
	classification := make(map[string]struct{})
	for _, label := range a.ACLLabelsUnion {
		acl[label] = struct{}{}
	}
	for _, label := range b.ACLLabelsUnion {
		acl[label] = struct{}{}
	}
	for _, label := range a.ClassificationLabelsUnion {
		classification[label] = struct{}{}
	}
	for _, label := range b.ClassificationLabelsUnion {
		classification[label] = struct{}{}
	}

	var levelMax *int
	for _, level := range []*int{a.DocLevelMax, b.DocLevelMax} {
		if level == nil {
			continue
		}
		if levelMax == nil || *level > *levelMax {
			v := *level
			levelMax = &v
		}
	}

	return domain.SecurityContext{
		ACLLabelsUnion:            sortedKeys(acl),
		ClassificationLabelsUnion: sortedKeys(classification),
		DocLevelMax:               levelMax,
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
