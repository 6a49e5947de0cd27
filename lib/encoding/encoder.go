package encoding

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Errors returned when decoding an index.
var (
	ErrInvalidFormat    = errors.New("encoding: invalid format")
	ErrSignatureInvalid = errors.New("encoding: signature verification failed")
	ErrVersionMismatch  = errors.New("encoding: unsupported index version")
)

// IndexVersion is bumped whenever the layout of Index changes.
const IndexVersion = 1

// Index lists the artifacts written by a prerender run. The static server
// reads it instead of rendering pages.
type Index struct {
	Version      int          `msgpack:"v"`
	BaseURL      string       `msgpack:"base"`
	GeneratedAt  time.Time    `msgpack:"at"`
	Pages        []IndexEntry `msgpack:"pages"`
	NotFoundPath string       `msgpack:"404,omitempty"`
}

// IndexEntry is one prerendered URL.
type IndexEntry struct {
	URL             string `msgpack:"url"`
	PageID          string `msgpack:"page"`
	HTMLPath        string `msgpack:"html"`
	PageContextPath string `msgpack:"ctx,omitempty"`
}

// Lookup returns the entry of urlPathname, ignoring a trailing slash.
func (idx *Index) Lookup(urlPathname string) (IndexEntry, bool) {
	want := trimSlash(urlPathname)
	for _, e := range idx.Pages {
		if trimSlash(e.URL) == want {
			return e, true
		}
	}
	return IndexEntry{}, false
}

func trimSlash(p string) string {
	if p == "/" {
		return p
	}
	return strings.TrimSuffix(p, "/")
}

// Encoder handles encoding and decoding of prerender indexes. Indexes are
// msgpack encoded and, when a key is set, signed: base64.signature. A
// signed index is visible but tamper-proof, which matters when artifacts
// live in a shared bucket.
type Encoder struct {
	key []byte
}

// NewEncoder creates an encoder. An empty key disables signing.
func NewEncoder(key []byte) *Encoder {
	if len(key) > 0 && len(key) < 32 {
		// Derive a 32-byte key from the provided key
		h := sha256.Sum256(key)
		key = h[:]
	}
	return &Encoder{key: key}
}

// Signed reports whether the encoder signs its output.
func (e *Encoder) Signed() bool {
	return len(e.key) > 0
}

// EncodeIndex serializes idx.
func (e *Encoder) EncodeIndex(idx *Index) ([]byte, error) {
	if idx.Version == 0 {
		idx.Version = IndexVersion
	}
	packed, err := msgpack.Marshal(idx)
	if err != nil {
		return nil, fmt.Errorf("encoding: marshal index: %w", err)
	}
	if !e.Signed() {
		return packed, nil
	}
	return []byte(e.sign(packed)), nil
}

// DecodeIndex parses data written by EncodeIndex with the same key.
func (e *Encoder) DecodeIndex(data []byte) (*Index, error) {
	packed := data
	if e.Signed() {
		var err error
		if packed, err = e.verify(string(data)); err != nil {
			return nil, err
		}
	}
	var idx Index
	if err := msgpack.Unmarshal(packed, &idx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if idx.Version != IndexVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersionMismatch, idx.Version)
	}
	return &idx, nil
}

// sign creates a signed (but visible) encoding: base64.signature
func (e *Encoder) sign(data []byte) string {
	b64 := base64.RawURLEncoding.EncodeToString(data)
	mac := hmac.New(sha256.New, e.key)
	mac.Write(data)
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil)[:16]) // 16 bytes = 128 bits
	return b64 + "." + sig
}

// verify verifies and decodes a signed string
func (e *Encoder) verify(encoded string) ([]byte, error) {
	b64, sigPart, ok := strings.Cut(encoded, ".")
	if !ok {
		return nil, ErrInvalidFormat
	}

	data, err := base64.RawURLEncoding.DecodeString(b64)
	if err != nil {
		return nil, ErrInvalidFormat
	}

	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil {
		return nil, ErrInvalidFormat
	}

	mac := hmac.New(sha256.New, e.key)
	mac.Write(data)
	expected := mac.Sum(nil)[:16]

	if !hmac.Equal(sig, expected) {
		return nil, ErrSignatureInvalid
	}

	return data, nil
}
