package models

// DataMap is the string-keyed payload carried by jobs and triggers. It
// tracks a dirty flag so the store can decide whether a job needs to be
// re-persisted after execution.
type DataMap struct {
	values map[string]interface{}
	dirty  bool
}

// NewDataMap creates an empty data map.
func NewDataMap() *DataMap {
	return &DataMap{values: make(map[string]interface{})}
}

// DataMapFrom creates a data map seeded with the given values. The new map
// starts clean.
func DataMapFrom(values map[string]interface{}) *DataMap {
	m := NewDataMap()
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

// Put stores a value and marks the map dirty.
func (m *DataMap) Put(key string, value interface{}) {
	m.values[key] = value
	m.dirty = true
}

// PutAll merges all entries from values and marks the map dirty when at
// least one entry was added.
func (m *DataMap) PutAll(values map[string]interface{}) {
	for k, v := range values {
		m.values[k] = v
		m.dirty = true
	}
}

// Get returns the value for key and whether it was present.
func (m *DataMap) Get(key string) (interface{}, bool) {
	v, ok := m.values[key]
	return v, ok
}

// GetString returns the value for key when it is a string.
func (m *DataMap) GetString(key string) (string, bool) {
	if v, ok := m.values[key]; ok {
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	return "", false
}

// Len returns the number of entries.
func (m *DataMap) Len() int {
	return len(m.values)
}

// Values returns a copy of the underlying map.
func (m *DataMap) Values() map[string]interface{} {
	out := make(map[string]interface{}, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// Dirty reports whether the map was modified since the last ClearDirty.
func (m *DataMap) Dirty() bool {
	return m.dirty
}

// ClearDirty resets the dirty flag, typically after a load or store.
func (m *DataMap) ClearDirty() {
	m.dirty = false
}

// Clone returns an independent, clean copy of the map.
func (m *DataMap) Clone() *DataMap {
	return DataMapFrom(m.values)
}

// AllStrings reports whether every value in the map is a plain string,
// in which case the codec may store the entries inline.
func (m *DataMap) AllStrings() bool {
	for _, v := range m.values {
		if _, ok := v.(string); !ok {
			return false
		}
	}
	return true
}
