package models

// MatchOp selects how a group matcher compares group names.
type MatchOp int

const (
	MatchEquals MatchOp = iota
	MatchStartsWith
	MatchEndsWith
	MatchContains
	MatchAnything
)

// GroupMatcher selects jobs or triggers by their group name. It is a pure
// value; the query helper translates it into a store-side predicate.
type GroupMatcher struct {
	Op    MatchOp
	Group string
}

// GroupEquals matches keys whose group equals group exactly.
func GroupEquals(group string) GroupMatcher {
	return GroupMatcher{Op: MatchEquals, Group: group}
}

// GroupStartsWith matches keys whose group starts with prefix.
func GroupStartsWith(prefix string) GroupMatcher {
	return GroupMatcher{Op: MatchStartsWith, Group: prefix}
}

// GroupEndsWith matches keys whose group ends with suffix.
func GroupEndsWith(suffix string) GroupMatcher {
	return GroupMatcher{Op: MatchEndsWith, Group: suffix}
}

// GroupContains matches keys whose group contains substring.
func GroupContains(substring string) GroupMatcher {
	return GroupMatcher{Op: MatchContains, Group: substring}
}

// AnyGroup matches every key.
func AnyGroup() GroupMatcher {
	return GroupMatcher{Op: MatchAnything}
}
