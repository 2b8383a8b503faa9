// -----------------------------------------------------------------------
// Query helper - group matchers translated to store-side predicates
// -----------------------------------------------------------------------

package query

import (
	"regexp"

	"github.com/ternarybob/tempo/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MatchingKeysCondition translates a group matcher into a predicate on the
// group field. It builds predicates only; callers execute them.
func MatchingKeysCondition(matcher models.GroupMatcher) bson.M {
	switch matcher.Op {
	case models.MatchEquals:
		return bson.M{models.FieldGroup: matcher.Group}
	case models.MatchStartsWith:
		return regexCondition("^" + regexp.QuoteMeta(matcher.Group))
	case models.MatchEndsWith:
		return regexCondition(regexp.QuoteMeta(matcher.Group) + "$")
	case models.MatchContains:
		return regexCondition(regexp.QuoteMeta(matcher.Group))
	default:
		return bson.M{}
	}
}

// InGroups builds the bulk-operation predicate selecting documents whose
// group is any of the given groups.
func InGroups(groups []string) bson.M {
	return bson.M{models.FieldGroup: bson.M{"$in": groups}}
}

// KeyFilter selects a single document by its compound (group, name) key.
func KeyFilter(group, name string) bson.M {
	return bson.M{models.FieldGroup: group, models.FieldName: name}
}

func regexCondition(pattern string) bson.M {
	return bson.M{models.FieldGroup: primitive.Regex{Pattern: pattern}}
}
