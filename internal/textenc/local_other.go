//go:build !windows

package textenc

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

func local() (string, encoding.Encoding) {
	return "utf-8", unicode.UTF8
}
