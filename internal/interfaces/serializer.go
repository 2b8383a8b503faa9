package interfaces

// Serializer is the capability the runtime supplies for turning opaque
// payloads (calendars, non-string data maps) into bytes and back. Tests
// may substitute an identity codec.
type Serializer interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}
