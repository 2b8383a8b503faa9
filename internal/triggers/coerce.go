package triggers

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BSON decodes numbers into whichever width fits; helpers normalize what
// hydration reads back out of a bson.M.

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asSlice(v interface{}) []interface{} {
	switch s := v.(type) {
	case []interface{}:
		return s
	case primitive.A:
		return []interface{}(s)
	default:
		return nil
	}
}
