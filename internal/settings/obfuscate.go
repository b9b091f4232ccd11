// Package settings persists the client connection settings to config.ini.
//
// The auth key is stored XOR-ed with a fixed key and Base64 encoded. This is
// obfuscation only: anyone with the binary or this source can recover the
// key. It keeps the value out of casual view and provides no confidentiality.
package settings

import (
	"encoding/base64"
	"fmt"

	"github.com/charliek/npcctl/internal/domain"
)

// obfuscationKey is applied cyclically over the UTF-8 bytes of the value.
// Changing it breaks every existing config file.
var obfuscationKey = []byte("my_secret_key_12345")

func xorBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[i] = b[i] ^ obfuscationKey[i%len(obfuscationKey)]
	}
	return out
}

// Obfuscate returns Base64(XOR(utf8(s), key))
func Obfuscate(s string) string {
	return base64.StdEncoding.EncodeToString(xorBytes([]byte(s)))
}

// Deobfuscate reverses Obfuscate
func Deobfuscate(s string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("%w: decoding auth key: %v", domain.ErrInvalidConfig, err)
	}
	return string(xorBytes(raw)), nil
}
