package identifiers

// sseDelimiter terminates every message on the wire: a blank line, per
// the Server-Sent Events framing rule.
var sseDelimiter = [2]byte{0x0A, 0x0A}

// Message is an immutable byte sequence: the publisher's payload
// followed by the two-byte SSE delimiter. The delimiter is applied once,
// at construction, and is part of the bytes written to every subscriber.
type Message struct {
	bytes []byte
}

// NewMessage frames payload for the wire. It copies payload so the
// caller's buffer can be reused immediately after this call returns.
func NewMessage(payload []byte) Message {
	framed := make([]byte, len(payload)+len(sseDelimiter))
	n := copy(framed, payload)
	framed[n], framed[n+1] = sseDelimiter[0], sseDelimiter[1]
	return Message{bytes: framed}
}

// Bytes returns the on-wire representation: payload || 0x0A 0x0A.
func (m Message) Bytes() []byte {
	return m.bytes
}
