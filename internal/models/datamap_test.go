package models

import "testing"

func TestDataMapDirtyTracking(t *testing.T) {
	m := NewDataMap()
	if m.Dirty() {
		t.Error("new data map should start clean")
	}

	m.Put("key", "value")
	if !m.Dirty() {
		t.Error("Put should mark the map dirty")
	}

	m.ClearDirty()
	if m.Dirty() {
		t.Error("ClearDirty should reset the flag")
	}

	m.PutAll(map[string]interface{}{"a": 1})
	if !m.Dirty() {
		t.Error("PutAll should mark the map dirty")
	}
}

func TestDataMapFromStartsClean(t *testing.T) {
	m := DataMapFrom(map[string]interface{}{"a": "b"})
	if m.Dirty() {
		t.Error("DataMapFrom should produce a clean map")
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestDataMapCloneIsIndependent(t *testing.T) {
	m := NewDataMap()
	m.Put("a", "1")
	m.ClearDirty()

	clone := m.Clone()
	if clone.Dirty() {
		t.Error("clone should start clean")
	}
	clone.Put("b", "2")

	if _, ok := m.Get("b"); ok {
		t.Error("writing to the clone must not affect the original")
	}
	if m.Dirty() {
		t.Error("original must stay clean after clone mutation")
	}
}

func TestDataMapGetString(t *testing.T) {
	m := NewDataMap()
	m.Put("str", "hello")
	m.Put("num", 42)

	if s, ok := m.GetString("str"); !ok || s != "hello" {
		t.Errorf("GetString(str) = %q, %v", s, ok)
	}
	if _, ok := m.GetString("num"); ok {
		t.Error("GetString should reject non-string values")
	}
	if _, ok := m.GetString("missing"); ok {
		t.Error("GetString should report missing keys")
	}
}

func TestDataMapAllStrings(t *testing.T) {
	m := NewDataMap()
	m.Put("a", "x")
	if !m.AllStrings() {
		t.Error("map of strings should report AllStrings")
	}
	m.Put("b", 3)
	if m.AllStrings() {
		t.Error("map with an int should not report AllStrings")
	}
}
