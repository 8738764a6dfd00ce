package job

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashRawInputs produces the canonical SHA-256 digest of a raw JSON input
// object. Number literals decode to json.Number, which re-encodes as its
// exact source text, so "1.0" stays "1.0" and integers beyond float64
// precision survive unchanged. The HTTP layer hashes request bodies through
// this path.
func HashRawInputs(raw []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var inputs map[string]any
	if err := dec.Decode(&inputs); err != nil {
		return "", fmt.Errorf("failed to decode inputs: %w", err)
	}
	if inputs == nil {
		return "", fmt.Errorf("inputs must be a JSON object")
	}
	return HashInputs(inputs)
}

// HashInputs produces the canonical SHA-256 digest of a job's input payload.
// The payload is serialized with lexicographically sorted keys and no
// insignificant whitespace before hashing, so two payloads that differ only
// in key order or formatting hash identically. The digest is lowercase hex,
// 64 characters. Callers holding raw JSON should prefer HashRawInputs,
// which keeps numeric literals intact.
func HashInputs(inputs map[string]any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(inputs); err != nil {
		return "", fmt.Errorf("failed to canonicalize inputs: %w", err)
	}

	// Encode appends a newline that is not part of the canonical form.
	canonical := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
