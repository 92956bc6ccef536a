// Package statefile persists the check run working state in a local file,
// encrypted at rest with the GitHub App's RSA key pair.
//
// Wire format: the JSON text is split into chunks of at most MaxChunkLength
// characters, each chunk is RSA-OAEP (SHA-1) encrypted on its own, encoded as
// unpadded base64url, and the encoded chunks are joined with "/".
package statefile

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // OAEP label hash of the existing file format, not used for integrity.
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MaxChunkLength is the number of characters encrypted per RSA operation.
// A chunk must also fit the OAEP limit of the key in bytes (214 for a
// 2048-bit key), so text that is mostly multi-byte makes Encrypt fail with
// rsa.ErrMessageTooLong.
const MaxChunkLength = 200

const chunkDelimiter = "/"

// ErrEmptyCiphertext is returned by Decrypt for empty input.
var ErrEmptyCiphertext = errors.New("empty ciphertext")

// Encrypt serializes v to JSON and encrypts it chunk by chunk with pub.
func Encrypt(v any, pub *rsa.PublicKey) (string, error) {
	text, err := marshalCanonical(v)
	if err != nil {
		return "", err
	}

	chunks := splitChunks(string(text), MaxChunkLength)
	encoded := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		sealed, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, []byte(chunk), nil)
		if err != nil {
			return "", fmt.Errorf("encrypt chunk %d: %w", i, err)
		}
		encoded = append(encoded, base64.RawURLEncoding.EncodeToString(sealed))
	}

	return strings.Join(encoded, chunkDelimiter), nil
}

// Decrypt reverses Encrypt and unmarshals the recovered JSON into v.
func Decrypt(ciphertext string, priv *rsa.PrivateKey, v any) error {
	ciphertext = strings.TrimSpace(ciphertext)
	if ciphertext == "" {
		return ErrEmptyCiphertext
	}

	var plain bytes.Buffer
	for i, chunk := range strings.Split(ciphertext, chunkDelimiter) {
		sealed, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(chunk, "="))
		if err != nil {
			return fmt.Errorf("decode chunk %d: %w", i, err)
		}
		opened, err := rsa.DecryptOAEP(sha1.New(), nil, priv, sealed, nil)
		if err != nil {
			return fmt.Errorf("decrypt chunk %d: %w", i, err)
		}
		plain.Write(opened)
	}

	if err := json.Unmarshal(plain.Bytes(), v); err != nil {
		return fmt.Errorf("parse decrypted state: %w", err)
	}
	return nil
}

// marshalCanonical encodes v without HTML escaping and without a trailing
// newline.
func marshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// splitChunks cuts s into pieces of at most n characters. Boundaries are
// positional and never split a multi-byte character.
func splitChunks(s string, n int) []string {
	runes := []rune(s)
	chunks := make([]string, 0, len(runes)/n+1)
	for i := 0; i < len(runes); i += n {
		end := min(i+n, len(runes))
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
