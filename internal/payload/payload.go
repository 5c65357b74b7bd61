// Package payload defines the signed wire format carried by coded markers.
//
// A payload is a small JSON document: {"type": "slot"|"worker", "id": ...,
// "version": ..., "ts": ..., "nonce": ..., "slot_name"/"worker_name": ...,
// "hmac": ...}. The hmac field, when present, is an HMAC-SHA256 over the
// canonical encoding (sorted keys, compact separators) of the remaining
// fields.
package payload

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
)

// Kind discriminates what a marker identifies.
type Kind string

const (
	// KindSlot marks the slot itself; visible only when nothing covers it.
	KindSlot Kind = "slot"
	// KindWorker is a worker badge left in place of a checked-out tool.
	KindWorker Kind = "worker"
)

// ErrInvalidPayload is returned for every parse or verification failure.
// It is deliberately uninformative: callers must not learn which check
// failed.
var ErrInvalidPayload = errors.New("invalid marker payload")

// Payload is a decoded, validated marker payload.
type Payload struct {
	Kind       Kind   `json:"type"`
	ID         string `json:"id"`
	Version    string `json:"version"`
	Timestamp  int64  `json:"ts"`
	Nonce      string `json:"nonce,omitempty"`
	SlotName   string `json:"slot_name,omitempty"`
	WorkerName string `json:"worker_name,omitempty"`
	MAC        string `json:"hmac,omitempty"`
}

// DisplayName returns the human-readable name carried by the payload.
func (p *Payload) DisplayName() string {
	if p.Kind == KindWorker {
		return p.WorkerName
	}
	return p.SlotName
}

// Verifier parses and authenticates payloads against a shared secret.
// The secret is injected; there is no process-wide signing state.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the given shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Parse decodes raw marker bytes into a validated Payload. Structural
// checks (required fields, known kind) always apply; the MAC is verified
// whenever the hmac field is present. Any failure yields ErrInvalidPayload.
func (v *Verifier) Parse(data []byte) (*Payload, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, ErrInvalidPayload
	}

	for _, required := range []string{"type", "id", "version", "ts"} {
		if _, ok := fields[required]; !ok {
			return nil, ErrInvalidPayload
		}
	}

	kind, _ := fields["type"].(string)
	if Kind(kind) != KindSlot && Kind(kind) != KindWorker {
		return nil, ErrInvalidPayload
	}

	if raw, ok := fields["hmac"]; ok {
		provided, ok := raw.(string)
		if !ok || !v.verify(fields, provided) {
			return nil, ErrInvalidPayload
		}
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, ErrInvalidPayload
	}
	if p.ID == "" {
		return nil, ErrInvalidPayload
	}
	return &p, nil
}

// Sign computes the MAC for a payload's canonical form. Used when printing
// new markers and by the validation tooling.
func (v *Verifier) Sign(p Payload) (string, error) {
	p.MAC = ""
	raw, err := json.Marshal(&p)
	if err != nil {
		return "", err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", err
	}
	mac, err := v.mac(fields)
	if err != nil {
		return "", err
	}
	return mac, nil
}

// verify recomputes the MAC over the canonicalized fields (hmac removed)
// and compares in constant time.
func (v *Verifier) verify(fields map[string]any, provided string) bool {
	canonical := make(map[string]any, len(fields))
	for k, val := range fields {
		if k == "hmac" {
			continue
		}
		canonical[k] = val
	}
	expected, err := v.mac(canonical)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(provided))
}

// mac computes the hex HMAC-SHA256 of the canonical JSON encoding.
// encoding/json sorts map keys, which pins the canonical key order.
func (v *Verifier) mac(fields map[string]any) (string, error) {
	message, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	h := hmac.New(sha256.New, v.secret)
	h.Write(message)
	return hex.EncodeToString(h.Sum(nil)), nil
}
