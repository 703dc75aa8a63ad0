package domain

// SecurityContext is the aggregated access requirement of a hit set.
// It is a pure reduction: commutative, associative, and idempotent
// under duplicate hits.
type SecurityContext struct {
	// ACLLabelsUnion is the union of all hits' ACL labels, sorted.
	ACLLabelsUnion []string

	// ClassificationLabelsUnion is the union of all hits'
	// classification labels, sorted.
	ClassificationLabelsUnion []string

	// DocLevelMax is the highest clearance rank seen across the hits.
	// Nil means no hit carried a clearance restriction.
	DocLevelMax *int
}

// IsUnrestricted reports whether the context imposes no requirement
// on any dimension.
func (c SecurityContext) IsUnrestricted() bool {
	return len(c.ACLLabelsUnion) == 0 &&
		len(c.ClassificationLabelsUnion) == 0 &&
		c.DocLevelMax == nil
}
