package codec

import (
	"errors"
	"testing"

	"github.com/ternarybob/tempo/internal/models"
)

func TestEncodeJobInlinesStringOnlyData(t *testing.T) {
	job := models.NewJob(models.NewJobKey("report"), "jobs.Report")
	job.Data.Put("url", "https://example.com")
	job.Data.Put("format", "csv")

	doc, err := EncodeJob(job, JSONSerializer{})
	if err != nil {
		t.Fatalf("EncodeJob failed: %v", err)
	}

	if doc["url"] != "https://example.com" || doc["format"] != "csv" {
		t.Errorf("string-only data should be stored inline, got %v", doc)
	}
	if _, ok := doc[models.FieldDataMap]; ok {
		t.Error("inline storage should not write the opaque data field")
	}
}

func TestEncodeJobOpaqueForRichData(t *testing.T) {
	job := models.NewJob(models.NewJobKey("report"), "jobs.Report")
	job.Data.Put("retries", 3)
	job.Data.Put("verbose", true)

	doc, err := EncodeJob(job, JSONSerializer{})
	if err != nil {
		t.Fatalf("EncodeJob failed: %v", err)
	}

	if _, ok := doc["retries"]; ok {
		t.Error("rich data must not leak into top-level fields")
	}
	encoded, ok := doc[models.FieldDataMap].(string)
	if !ok || encoded == "" {
		t.Fatal("rich data should be stored in the opaque data field")
	}

	decoded, err := DecodeJob(doc, JSONSerializer{})
	if err != nil {
		t.Fatalf("DecodeJob failed: %v", err)
	}
	if v, _ := decoded.Data.Get("verbose"); v != true {
		t.Errorf("verbose = %v, want true", v)
	}
	// JSON round-trips numbers as float64.
	if v, _ := decoded.Data.Get("retries"); v != float64(3) {
		t.Errorf("retries = %v, want 3", v)
	}
}

func TestEncodeJobOpaqueWhenKeyShadowsReservedField(t *testing.T) {
	job := models.NewJob(models.NewJobKey("report"), "jobs.Report")
	job.Data.Put("durable", "yes")

	doc, err := EncodeJob(job, JSONSerializer{})
	if err != nil {
		t.Fatalf("EncodeJob failed: %v", err)
	}

	if doc["durable"] != false {
		t.Errorf("the durable field must keep the job's flag, got %v", doc["durable"])
	}
	if _, ok := doc[models.FieldDataMap].(string); !ok {
		t.Error("shadowing data should force opaque storage")
	}

	decoded, err := DecodeJob(doc, JSONSerializer{})
	if err != nil {
		t.Fatalf("DecodeJob failed: %v", err)
	}
	if v, _ := decoded.Data.GetString("durable"); v != "yes" {
		t.Errorf("data entry durable = %q, want %q", v, "yes")
	}
	if decoded.Durable {
		t.Error("job flag must not be overwritten by the data entry")
	}
}

func TestDecodeJobCollectsNonReservedFields(t *testing.T) {
	doc := map[string]interface{}{
		models.FieldGroup:   "DEFAULT",
		models.FieldName:    "legacy",
		models.FieldTypeTag: "jobs.Legacy",
		models.FieldDurable: true,
		"jobClass":          "com.example.Legacy",
		"custom":            "value",
	}

	job, err := DecodeJob(doc, JSONSerializer{})
	if err != nil {
		t.Fatalf("DecodeJob failed: %v", err)
	}
	if !job.Durable {
		t.Error("durable flag lost")
	}
	if v, _ := job.Data.GetString("custom"); v != "value" {
		t.Errorf("custom = %q, want %q", v, "value")
	}
	if _, ok := job.Data.Get("jobClass"); ok {
		t.Error("legacy reserved field must not enter the data map")
	}
	if job.Data.Dirty() {
		t.Error("decoded data map should start clean")
	}
}

func TestEncodeDataMapNamesOffendingKey(t *testing.T) {
	data := models.NewDataMap()
	data.Put("fine", "ok")
	data.Put("bad", make(chan int))

	_, err := EncodeDataMap(data, JSONSerializer{})
	if err == nil {
		t.Fatal("expected serialization failure")
	}
	var serr *models.SerializationError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SerializationError, got %T", err)
	}
	if serr.Key != "bad" {
		t.Errorf("offending key = %q, want %q", serr.Key, "bad")
	}
}

func TestDataMapRoundTrip(t *testing.T) {
	data := models.NewDataMap()
	data.Put("name", "nightly")
	data.Put("enabled", true)

	encoded, err := EncodeDataMap(data, JSONSerializer{})
	if err != nil {
		t.Fatalf("EncodeDataMap failed: %v", err)
	}
	decoded, err := DecodeDataMap(encoded, JSONSerializer{})
	if err != nil {
		t.Fatalf("DecodeDataMap failed: %v", err)
	}

	if v, _ := decoded.GetString("name"); v != "nightly" {
		t.Errorf("name = %q, want %q", v, "nightly")
	}
	if v, _ := decoded.Get("enabled"); v != true {
		t.Errorf("enabled = %v, want true", v)
	}
	if decoded.Dirty() {
		t.Error("decoded map should start clean")
	}
}
