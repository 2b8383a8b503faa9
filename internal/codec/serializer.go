package codec

import "encoding/json"

// JSONSerializer is the default serializer capability: plain JSON. The
// runtime may supply its own implementation for richer payloads.
type JSONSerializer struct{}

func (JSONSerializer) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONSerializer) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
