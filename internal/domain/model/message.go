package model

import "fmt"

// Kind classifies the outcome of a domain operation.
type Kind uint8

const (
	KindSuccess Kind = iota
	KindError
	KindNotFound
	KindInvalidPayload
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "Success"
	case KindError:
		return "Error"
	case KindNotFound:
		return "NotFound"
	case KindInvalidPayload:
		return "InvalidPayload"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Message is a caller-visible outcome: a kind plus human-readable text.
// As an error it satisfies errors.Is against the sentinel of its kind.
type Message struct {
	Kind Kind   `json:"kind"`
	Text string `json:"message"`
}

// Success builds an acknowledgement message.
func Success(text string) *Message { return &Message{Kind: KindSuccess, Text: text} }

// Failure builds a generic error message.
func Failure(text string) *Message { return &Message{Kind: KindError, Text: text} }

// NotFound builds a not-found message.
func NotFound(text string) *Message { return &Message{Kind: KindNotFound, Text: text} }

// InvalidPayload builds a validation failure message.
func InvalidPayload(text string) *Message { return &Message{Kind: KindInvalidPayload, Text: text} }

// Error implements error.
func (m *Message) Error() string {
	return m.Kind.String() + ": " + m.Text
}

// Is matches the sentinel for the message kind.
func (m *Message) Is(target error) bool {
	switch m.Kind {
	case KindError:
		return target == ErrGeneric
	case KindNotFound:
		return target == ErrNotFound
	case KindInvalidPayload:
		return target == ErrInvalidPayload
	default:
		return false
	}
}

// MarshalText renders the kind by name in JSON.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
