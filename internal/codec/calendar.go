package codec

import (
	"encoding/base64"
	"fmt"

	"github.com/ternarybob/tempo/internal/interfaces"
	"github.com/ternarybob/tempo/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// EncodeCalendar turns a calendar into its document form. The calendar is
// opaque to the store: it is serialized whole and only ever round-tripped.
func EncodeCalendar(name string, cal models.Calendar, serializer interfaces.Serializer) (bson.M, error) {
	raw, err := serializer.Marshal(cal)
	if err != nil {
		return nil, fmt.Errorf("serialize calendar %q: %w", name, err)
	}
	return bson.M{
		models.FieldName:         name,
		models.FieldCalendarBlob: base64.StdEncoding.EncodeToString(raw),
	}, nil
}
