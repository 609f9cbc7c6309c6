package process

import (
	"bytes"
	"fmt"
	"unicode/utf8"
)

// DecodeCString decodes a fixed-capacity, NUL-terminated buffer as returned by the OS.
// Only the bytes before the first NUL are inspected; a buffer without a NUL is decoded
// in full. The result must be valid UTF-8.
func DecodeCString(buf []byte) (string, error) {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	if !utf8.Valid(buf) {
		return "", fmt.Errorf("%w: % x", ErrInvalidEncoding, buf)
	}
	return string(buf), nil
}
