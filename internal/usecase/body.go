package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"prompt-gateway/internal/domain"
)

const (
	fieldMessages  = "messages"
	fieldModel     = "model"
	fieldMaxTokens = "max_tokens"
	fieldPromptID  = "prompt_id"
)

var errNotObject = errors.New("usecase: body is not a JSON object")

// object is a JSON object that remembers key insertion order. Setting an
// existing key replaces its value in place.
type object struct {
	keys []string
	vals map[string]json.RawMessage
}

func newObject() *object {
	return &object{vals: make(map[string]json.RawMessage)}
}

func (o *object) set(key string, val json.RawMessage) {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = val
}

func (o *object) get(key string) (json.RawMessage, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// encode writes the object compactly in key order.
func (o *object) encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		if err := json.Compact(&buf, o.vals[k]); err != nil {
			return nil, fmt.Errorf("usecase: field %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeObject parses a top-level JSON object keeping its key order. The
// input must already be valid JSON. Any other top-level value, null included,
// yields errNotObject. Duplicate keys keep their first position and last value.
func decodeObject(data []byte) (*object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errNotObject
	}
	o := newObject()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("usecase: unexpected object key %v", keyTok)
		}
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return nil, err
		}
		o.set(key, val)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return o, nil
}

// messagesArray returns the elements of the messages field, or false when the
// field is absent or not an array.
func messagesArray(o *object) ([]json.RawMessage, bool) {
	raw, ok := o.get(fieldMessages)
	if !ok {
		return nil, false
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var msgs []json.RawMessage
	if err := json.Unmarshal(trimmed, &msgs); err != nil {
		return nil, false
	}
	return msgs, true
}

// promptID returns the prompt_id field as a lookup key. Strings are used as
// given and numbers by their literal text, so 42 looks up "42". Any other
// type yields "".
func promptID(o *object) string {
	raw, ok := o.get(fieldPromptID)
	if !ok {
		return ""
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return ""
	}
	switch id := v.(type) {
	case string:
		return id
	case json.Number:
		return id.String()
	}
	return ""
}

// deniedField reports whether an inbound field must never reach the upstream
// body as given by the client.
func deniedField(key string) bool {
	switch key {
	case fieldMessages, fieldModel:
		return true
	}
	return credentialField(key)
}

// credentialField matches credential-carrying names regardless of case,
// underscores or dashes: apiKey, api_key, OPENAI_API_KEY, Authorization...
func credentialField(key string) bool {
	norm := strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(key))
	switch norm {
	case "apikey", "openaiapikey", "authorization", "accesstoken", "bearertoken":
		return true
	}
	return false
}

// upstreamBody assembles the outbound body: fixed model, the message list,
// the max token cap, then every allowed inbound field in inbound order.
func upstreamBody(in *object, model string, maxTokens int, messages []json.RawMessage) ([]byte, error) {
	modelRaw, err := marshal(model)
	if err != nil {
		return nil, err
	}
	out := newObject()
	out.set(fieldModel, modelRaw)
	out.set(fieldMessages, joinArray(messages))
	out.set(fieldMaxTokens, json.RawMessage(strconv.Itoa(maxTokens)))
	for _, k := range in.keys {
		if deniedField(k) {
			continue
		}
		out.set(k, in.vals[k])
	}
	return out.encode()
}

// systemPrompt encodes the injected system message.
func systemPrompt(text string) (json.RawMessage, error) {
	return marshal(domain.SystemMessage(text))
}

// invalidMessage enforces the strict message policy. It returns the index of
// the first message that is not an object with a known role and a string
// content, and why it was rejected.
func invalidMessage(msgs []json.RawMessage) (int, string, bool) {
	for i, raw := range msgs {
		var m struct {
			Role    *domain.Role `json:"role"`
			Content *string      `json:"content"`
		}
		if err := json.Unmarshal(raw, &m); err != nil {
			return i, "message must be an object with string role and content", true
		}
		if m.Role == nil || !m.Role.Valid() {
			return i, "role must be one of system, user, assistant", true
		}
		if m.Content == nil {
			return i, "content is required", true
		}
	}
	return 0, "", false
}

func joinArray(elems []json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range elems {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(e)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

// marshal encodes v without HTML escaping and without a trailing newline.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("usecase: encode: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
