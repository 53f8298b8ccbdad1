package chat

import (
	"unicode/utf8"

	"github.com/lvyanru/chatctl/internal/domain"
)

// Utf8Decoder turns a byte stream into text across arbitrary chunk
// boundaries. Up to three trailing bytes of an unfinished rune are carried
// into the next Decode call.
type Utf8Decoder struct {
	carry []byte
}

// Decode returns the longest complete UTF-8 prefix of carry+chunk
func (d *Utf8Decoder) Decode(chunk []byte) (string, error) {
	buf := make([]byte, 0, len(d.carry)+len(chunk))
	buf = append(buf, d.carry...)
	buf = append(buf, chunk...)

	cut := len(buf)
	for k := 1; k < utf8.UTFMax && k <= len(buf); k++ {
		if !utf8.RuneStart(buf[len(buf)-k]) {
			continue
		}
		// an invalid lead byte counts as a full rune and fails validation below
		if !utf8.FullRune(buf[len(buf)-k:]) {
			cut = len(buf) - k
		}
		break
	}

	head := buf[:cut]
	if !utf8.Valid(head) {
		d.carry = nil
		return "", domain.NewMalformedResponseError("reply stream is not valid UTF-8")
	}

	d.carry = append(d.carry[:0], buf[cut:]...)
	return string(head), nil
}

// Finish reports an error when the stream ended inside a multi-byte character
func (d *Utf8Decoder) Finish() error {
	if len(d.carry) == 0 {
		return nil
	}
	d.carry = nil
	return domain.NewMalformedResponseError("reply stream ended inside a multi-byte character")
}
