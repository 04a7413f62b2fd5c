package extract

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decode turns raw document bytes into valid UTF-8.
// A UTF-8 or UTF-16 byte order mark selects the encoding; without one the
// content is read as UTF-8. Invalid sequences become U+FFFD, so decoding
// never fails.
func decode(raw []byte) []byte {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		out = raw
	}
	if !utf8.Valid(out) {
		out = bytes.ToValidUTF8(out, []byte(string(utf8.RuneError)))
	}
	return out
}
