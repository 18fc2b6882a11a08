// Package hub fans messages out to dashboard websocket clients.
//
// Each broadcast channel of the control surface (state frames, log
// lines, camera frames) runs its own Hub. Clients that cannot keep up
// are dropped rather than allowed to stall the broadcaster.
package hub

// MessageType indicates the websocket message format.
type MessageType int

const (
	// JSONMessage is a JSON-encoded text message.
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data such as JPEG frames.
	BinaryMessage
)

// Message is one payload to broadcast.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON bytes.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps binary data.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}
