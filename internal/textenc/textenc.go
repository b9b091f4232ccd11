// Package textenc decodes client output bytes using the host's local text
// encoding.
package textenc

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// Decoder converts raw output into UTF-8 text
type Decoder struct {
	name string
	enc  encoding.Encoding
}

// New returns a decoder for the named encoding. An empty name or "local"
// selects the host's local encoding (the ANSI code page on Windows, UTF-8
// elsewhere). Names are resolved via the WHATWG encoding index, so "gbk",
// "shift_jis" and "windows-1252" all work.
func New(name string) (*Decoder, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "local" {
		localName, enc := local()
		return &Decoder{name: localName, enc: enc}, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown output encoding %q: %w", name, err)
	}
	canonical, err := htmlindex.Name(enc)
	if err != nil {
		canonical = name
	}
	return &Decoder{name: canonical, enc: enc}, nil
}

// UTF8 returns a decoder that only replaces invalid sequences
func UTF8() *Decoder {
	return &Decoder{name: "utf-8", enc: unicode.UTF8}
}

// Name returns the canonical encoding name
func (d *Decoder) Name() string {
	return d.name
}

// Decode converts b to a string. Bytes that fail to decode are returned
// as-is with invalid UTF-8 replaced.
func (d *Decoder) Decode(b []byte) string {
	if d.enc == unicode.UTF8 && utf8.Valid(b) {
		return string(b)
	}
	out, err := d.enc.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(out)
}
