package parser

import "encoding/json"

// Reply is the set of shapes a model reply can arrive in.
type Reply interface {
	raw() string
}

// ObjectReply is a reply that is already structured.
type ObjectReply map[string]any

// TextReply is a plain string reply, usually JSON-ish text.
type TextReply string

// MessageReply is a chat message wrapper around the reply text.
type MessageReply struct {
	Role    string
	Content string
}

func (o ObjectReply) raw() string {
	b, err := json.Marshal(map[string]any(o))
	if err != nil {
		return ""
	}
	return string(b)
}

func (t TextReply) raw() string { return string(t) }

func (m MessageReply) raw() string { return m.Content }
