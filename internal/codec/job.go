// -----------------------------------------------------------------------
// Job document codec
// -----------------------------------------------------------------------

package codec

import (
	"encoding/base64"
	"fmt"

	"github.com/ternarybob/tempo/internal/interfaces"
	"github.com/ternarybob/tempo/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// reservedJobFields never belong to the job's data map on decode.
// jobClass is reserved for documents written by older schema versions.
var reservedJobFields = map[string]bool{
	models.FieldID:                   true,
	models.FieldGroup:                true,
	models.FieldName:                 true,
	models.FieldTypeTag:              true,
	"jobClass":                       true,
	models.FieldDescription:          true,
	models.FieldDurable:              true,
	models.FieldDataMap:              true,
	models.FieldDisallowConcurrent:   true,
	models.FieldPersistDataAfterExec: true,
	models.FieldRequestsRecovery:     true,
}

// EncodeJob turns a job into its document form. A data map holding only
// string values is stored inline field by field; anything richer is
// serialized to a single opaque base-64 field.
func EncodeJob(job *models.Job, serializer interfaces.Serializer) (bson.M, error) {
	doc := bson.M{
		models.FieldGroup:                job.Key.Group,
		models.FieldName:                 job.Key.Name,
		models.FieldTypeTag:              job.TypeTag,
		models.FieldDescription:          job.Description,
		models.FieldDurable:              job.Durable,
		models.FieldDisallowConcurrent:   job.DisallowConcurrentExecution,
		models.FieldPersistDataAfterExec: job.PersistJobDataAfterExecution,
		models.FieldRequestsRecovery:     job.RequestsRecovery,
	}

	if job.Data == nil || job.Data.Len() == 0 {
		return doc, nil
	}

	if canInline(job.Data) {
		for k, v := range job.Data.Values() {
			doc[k] = v
		}
		return doc, nil
	}

	encoded, err := EncodeDataMap(job.Data, serializer)
	if err != nil {
		return nil, err
	}
	doc[models.FieldDataMap] = encoded
	return doc, nil
}

// DecodeJob reconstructs a job from its document form. The opaque data
// field wins; without it the map is rebuilt from the non-reserved fields.
func DecodeJob(doc bson.M, serializer interfaces.Serializer) (*models.Job, error) {
	job := &models.Job{
		Key: models.JobKey{
			Group: stringField(doc, models.FieldGroup),
			Name:  stringField(doc, models.FieldName),
		},
		TypeTag:                      stringField(doc, models.FieldTypeTag),
		Description:                  stringField(doc, models.FieldDescription),
		Durable:                      boolField(doc, models.FieldDurable),
		DisallowConcurrentExecution:  boolField(doc, models.FieldDisallowConcurrent),
		PersistJobDataAfterExecution: boolField(doc, models.FieldPersistDataAfterExec),
		RequestsRecovery:             boolField(doc, models.FieldRequestsRecovery),
	}

	if encoded := stringField(doc, models.FieldDataMap); encoded != "" {
		data, err := DecodeDataMap(encoded, serializer)
		if err != nil {
			return nil, fmt.Errorf("decode data map for job %s: %w", job.Key, err)
		}
		job.Data = data
		return job, nil
	}

	data := models.NewDataMap()
	for k, v := range doc {
		if !reservedJobFields[k] {
			data.Put(k, v)
		}
	}
	data.ClearDirty()
	job.Data = data
	return job, nil
}

// EncodeDataMap serializes a data map to a base-64 string. A value that
// cannot be serialized fails with a diagnostic naming the offending key.
func EncodeDataMap(data *models.DataMap, serializer interfaces.Serializer) (string, error) {
	raw, err := serializer.Marshal(data.Values())
	if err != nil {
		return "", &models.SerializationError{Key: offendingKey(data, serializer), Err: err}
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeDataMap reverses EncodeDataMap. The result starts clean.
func DecodeDataMap(encoded string, serializer interfaces.Serializer) (*models.DataMap, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode base64 data map: %w", err)
	}
	values := make(map[string]interface{})
	if err := serializer.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("unmarshal data map: %w", err)
	}
	return models.DataMapFrom(values), nil
}

// canInline reports whether every entry may be stored as a plain document
// field: string values only, no keys shadowing reserved fields.
func canInline(data *models.DataMap) bool {
	if !data.AllStrings() {
		return false
	}
	for k := range data.Values() {
		if reservedJobFields[k] {
			return false
		}
	}
	return true
}

// offendingKey probes each entry individually to name the one that broke
// serialization.
func offendingKey(data *models.DataMap, serializer interfaces.Serializer) string {
	for k, v := range data.Values() {
		if _, err := serializer.Marshal(v); err != nil {
			return k
		}
	}
	return ""
}

func stringField(doc bson.M, field string) string {
	if s, ok := doc[field].(string); ok {
		return s
	}
	return ""
}

func boolField(doc bson.M, field string) bool {
	switch v := doc[field].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}
