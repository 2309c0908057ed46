// Package canonicalize provides deterministic JSON serialization and
// content hashing for pack manifests. Every hashing invariant in the
// pack format depends on Encode producing exactly one byte sequence
// for logically equal values.
package canonicalize

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// HashPrefix is prepended to every hex digest in the pack format.
const HashPrefix = "sha256:"

// Encode returns the canonical JSON representation of v.
//
// Rules:
//  1. Object keys are sorted lexicographically by UTF-8 bytes at every
//     nesting level.
//  2. Array order is preserved.
//  3. No incidental whitespace, no HTML escaping.
//  4. Numbers pass through as json.Number so the source formatting is
//     kept stable.
//
// Strategy: marshal v with the standard encoder (so struct tags are
// respected), decode into a generic value with UseNumber, then re-emit
// recursively with sorted keys.
func Encode(v any) ([]byte, error) {
	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: pre-marshal failed: %w", err)
	}

	var generic any
	decoder := json.NewDecoder(bytes.NewReader(intermediate))
	decoder.UseNumber()
	if err := decoder.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonicalize: intermediate decode failed: %w", err)
	}

	return marshalRecursive(generic)
}

// HashBytes computes the SHA-256 digest of raw bytes and returns it as
// "sha256:<lowercase hex>".
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return HashPrefix + hex.EncodeToString(sum[:])
}

// HashValue returns the content address of the canonical encoding of v.
func HashValue(v any) (string, error) {
	b, err := Encode(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashFile streams a file through SHA-256 and returns "sha256:<hex>".
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("canonicalize: hashing %s: %w", path, err)
	}
	return HashPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

func marshalRecursive(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	switch t := v.(type) {
	case nil:
		return []byte("null"), nil
	case bool:
		if t {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case json.Number:
		return []byte(t.String()), nil
	case string:
		if err := enc.Encode(t); err != nil {
			return nil, err
		}
		// json.Encoder appends a newline that must not reach the output.
		return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
	case []any:
		buf.Reset()
		buf.WriteByte('[')
		for i, elem := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := marshalRecursive(elem)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case map[string]any:
		buf.Reset()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := marshalRecursive(k)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')

			vb, err := marshalRecursive(t[k])
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
	}
}
