package workflow

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// MaxTokenLength is Slack's limit for a button value, in characters.
const MaxTokenLength = 2000

const hexDigits = "0123456789abcdef"

// Token is the state carried by each decision button: exactly what the
// resolver needs without any lookup. The approver is not carried; it is the
// user who activates the button.
type Token struct {
	RequesterID string `json:"requesterId"`
	RequestText string `json:"requestText"`
}

// wireToken is the encoded form. Sig is present only for keyed codecs.
type wireToken struct {
	RequesterID string `json:"requesterId"`
	RequestText string `json:"requestText"`
	Sig         string `json:"sig,omitempty"`
}

// appendTo writes w as compact JSON. Field order is fixed, so the output
// without Sig is also the signed payload.
func (w wireToken) appendTo(dst []byte) []byte {
	dst = append(dst, `{"requesterId":`...)
	dst = appendString(dst, w.RequesterID)
	dst = append(dst, `,"requestText":`...)
	dst = appendString(dst, w.RequestText)
	if w.Sig != "" {
		dst = append(dst, `,"sig":`...)
		dst = appendString(dst, w.Sig)
	}
	return append(dst, '}')
}

// appendString writes s as a JSON string. Only the quote, the backslash and
// C0 controls are escaped; every other character, U+2028 included, is
// copied as is.
func appendString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"' || c == '\\':
			dst = append(dst, '\\', c)
		case c == '\n':
			dst = append(dst, '\\', 'n')
		case c == '\r':
			dst = append(dst, '\\', 'r')
		case c == '\t':
			dst = append(dst, '\\', 't')
		case c < 0x20:
			dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
		default:
			dst = append(dst, c)
		}
	}
	return append(dst, '"')
}

// Codec encodes and decodes tokens. With a key, tokens carry an
// HMAC-SHA256 signature and unsigned or tampered tokens fail to decode.
// A Codec is immutable and safe for concurrent use.
type Codec struct {
	key []byte
}

// NewCodec returns a codec. A nil or empty key produces plain structured
// tokens.
func NewCodec(key []byte) *Codec {
	if len(key) == 0 {
		return &Codec{}
	}
	return &Codec{key: bytes.Clone(key)}
}

// Signed reports whether the codec signs tokens.
func (c *Codec) Signed() bool {
	return len(c.key) > 0
}

// Encode serializes t into a button value. Both fields must be valid UTF-8
// so that Decode returns them byte for byte.
func (c *Codec) Encode(t Token) (string, error) {
	if !utf8.ValidString(t.RequesterID) || !utf8.ValidString(t.RequestText) {
		return "", errors.New("workflow: encode token: invalid UTF-8")
	}
	w := wireToken{RequesterID: t.RequesterID, RequestText: t.RequestText}
	if c.Signed() {
		w.Sig = c.sign(t)
	}

	data := w.appendTo(nil)
	if n := utf8.RuneCount(data); n > MaxTokenLength {
		return "", fmt.Errorf("%w: %d characters", ErrTokenTooLarge, n)
	}
	return string(data), nil
}

// Decode parses a button value. Anything that is not exactly one token
// object with a requester is ErrMalformedToken.
func (c *Codec) Decode(value string) (Token, error) {
	if n := utf8.RuneCountInString(value); n == 0 || n > MaxTokenLength {
		return Token{}, fmt.Errorf("%w: length %d", ErrMalformedToken, n)
	}

	dec := json.NewDecoder(strings.NewReader(value))
	dec.DisallowUnknownFields()

	var w wireToken
	if err := dec.Decode(&w); err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Token{}, fmt.Errorf("%w: trailing data", ErrMalformedToken)
	}
	if w.RequesterID == "" {
		return Token{}, fmt.Errorf("%w: missing requesterId", ErrMalformedToken)
	}

	t := Token{RequesterID: w.RequesterID, RequestText: w.RequestText}
	if c.Signed() {
		if w.Sig == "" {
			return Token{}, fmt.Errorf("%w: missing signature", ErrMalformedToken)
		}
		if err := c.verify(t, w.Sig); err != nil {
			return Token{}, err
		}
	}
	return t, nil
}

func (c *Codec) sign(t Token) string {
	return base64.RawURLEncoding.EncodeToString(c.mac(t))
}

func (c *Codec) mac(t Token) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write(wireToken{RequesterID: t.RequesterID, RequestText: t.RequestText}.appendTo(nil))
	return mac.Sum(nil)
}

func (c *Codec) verify(t Token, sig string) error {
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return fmt.Errorf("%w: signature encoding", ErrMalformedToken)
	}
	if !hmac.Equal(got, c.mac(t)) {
		return fmt.Errorf("%w: signature mismatch", ErrMalformedToken)
	}
	return nil
}

// Fingerprint identifies one decision surface: a token on a specific
// message. Two requests with identical text from the same requester live on
// different messages and therefore get different fingerprints.
func Fingerprint(value, channelID, messageTS string) string {
	h := sha256.New()
	io.WriteString(h, channelID)
	h.Write([]byte{0})
	io.WriteString(h, messageTS)
	h.Write([]byte{0})
	io.WriteString(h, value)
	return hex.EncodeToString(h.Sum(nil))
}
