package service

import (
	"encoding/json"
)

// jsonCodec is a Connect codec for plain Go structs. Connect's built-in JSON
// codec only handles protobuf messages.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	// an empty unary body means an empty request message
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
