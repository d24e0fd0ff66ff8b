/*
Package protocol implements the wire codec between the chat server's JSON envelope and the
typed operations the client understands.

Every frame is a single JSON object:

	{"messageType": "register" | "users" | "message", "data": string|null, "dataArray": []string|null}

A register frame carries the display name in data, a users frame carries the complete roster in
dataArray, and a message frame carries a second JSON document, {"from": ..., "message": ...},
encoded as a string inside data. The codec holds no state and performs no I/O.
*/
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is the lower-cased operation tag carried in the envelope's messageType field.
type Kind string

const (
	// KindRegister announces the client's display name to the server.
	KindRegister Kind = "register"

	// KindUsers carries the full, server-authoritative roster.
	KindUsers Kind = "users"

	// KindMessage carries one chat message.
	KindMessage Kind = "message"
)

// Operation is the closed set of decoded frames: Register, Users or Message.
type Operation interface {
	Kind() Kind
	isOperation()
}

// Register declares the display name used by this client.
type Register struct {
	Name string
}

// Users replaces the roster with Names, in server order.
type Users struct {
	Names []string
}

// Message delivers one ChatMessage.
type Message struct {
	Chat ChatMessage
}

// ChatMessage is the nested payload of a message frame.
type ChatMessage struct {
	From string `json:"from"`
	Body string `json:"message"`
}

func (Register) Kind() Kind { return KindRegister }
func (Users) Kind() Kind    { return KindUsers }
func (Message) Kind() Kind  { return KindMessage }

func (Register) isOperation() {}
func (Users) isOperation()    {}
func (Message) isOperation()  {}

// envelope is the outer wire object. Fields are not omitted so that absent payloads are
// written as explicit nulls, matching what the server produces.
type envelope struct {
	MessageType Kind     `json:"messageType"`
	Data        *string  `json:"data"`
	DataArray   []string `json:"dataArray"`
}

// ErrNilOperation is returned by Encode when given a nil Operation.
var ErrNilOperation = errors.New("protocol: nil operation")

// Encode renders op as its canonical frame text.
func Encode(op Operation) (string, error) {
	var env envelope

	switch op := op.(type) {
	case Register:
		env = envelope{MessageType: KindRegister, Data: &op.Name}

	case Users:
		names := op.Names
		if names == nil {
			names = []string{}
		}
		env = envelope{MessageType: KindUsers, DataArray: names}

	case Message:
		inner, err := json.Marshal(op.Chat)
		if err != nil {
			return "", fmt.Errorf("protocol: encode chat message: %w", err)
		}
		data := string(inner)
		env = envelope{MessageType: KindMessage, Data: &data}

	case nil:
		return "", ErrNilOperation

	default:
		return "", fmt.Errorf("protocol: unsupported operation %T", op)
	}

	return marshalEnvelope(env)
}

// EncodeSubmission renders the client-to-server chat frame for body. The server attributes the
// message to the registered sender and fans it back out as a regular message frame, so the
// outbound frame carries the raw body rather than a nested ChatMessage.
func EncodeSubmission(body string) string {
	frame, _ := marshalEnvelope(envelope{MessageType: KindMessage, Data: &body})
	return frame
}

func marshalEnvelope(env envelope) (string, error) {
	b, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("protocol: encode envelope: %w", err)
	}
	return string(b), nil
}

// Decode parses frame into an Operation. Any structural problem yields a *DecodeError that
// matches ErrMalformed; a partially valid frame never produces an Operation.
func Decode(frame string) (Operation, error) {
	var env envelope
	if err := json.Unmarshal([]byte(frame), &env); err != nil {
		return nil, malformed(LayerEnvelope, "", "invalid JSON", err)
	}

	switch env.MessageType {
	case KindRegister:
		if env.Data == nil {
			return nil, malformed(LayerEnvelope, KindRegister, "missing data", nil)
		}
		return Register{Name: *env.Data}, nil

	case KindUsers:
		if env.DataArray == nil {
			return nil, malformed(LayerEnvelope, KindUsers, "missing dataArray", nil)
		}
		return Users{Names: env.DataArray}, nil

	case KindMessage:
		if env.Data == nil {
			return nil, malformed(LayerEnvelope, KindMessage, "missing data", nil)
		}
		chat, err := decodeChatMessage(*env.Data)
		if err != nil {
			return nil, err
		}
		return Message{Chat: chat}, nil

	case "":
		return nil, malformed(LayerEnvelope, "", "missing messageType", nil)

	default:
		return nil, malformed(LayerEnvelope, env.MessageType, "unknown messageType", nil)
	}
}

// decodeChatMessage parses the nested payload of a message frame. Both keys must be present.
// An empty from is kept as is; resolving the sender is up to the session.
func decodeChatMessage(data string) (ChatMessage, error) {
	var raw struct {
		From *string `json:"from"`
		Body *string `json:"message"`
	}

	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return ChatMessage{}, malformed(LayerPayload, KindMessage, "invalid nested JSON", err)
	}
	if raw.From == nil {
		return ChatMessage{}, malformed(LayerPayload, KindMessage, "missing from", nil)
	}
	if raw.Body == nil {
		return ChatMessage{}, malformed(LayerPayload, KindMessage, "missing message", nil)
	}

	return ChatMessage{From: *raw.From, Body: *raw.Body}, nil
}
