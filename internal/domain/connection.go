package domain

import (
	"fmt"
	"strings"
)

// Protocols lists the transport types understood by the client, in the
// order used by the persisted protocolIndex.
var Protocols = []string{"tcp", "udp", "kcp"}

// ProtocolAt returns the protocol for a persisted index. Out-of-range
// indices resolve to the first protocol.
func ProtocolAt(index int) string {
	if index < 0 || index >= len(Protocols) {
		return Protocols[0]
	}
	return Protocols[index]
}

// ProtocolIndex returns the index of a protocol name, or -1
func ProtocolIndex(name string) int {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, p := range Protocols {
		if p == name {
			return i
		}
	}
	return -1
}

// ConnectionConfig holds the persisted connection settings
type ConnectionConfig struct {
	ServerAddress string `json:"server_address"`
	Port          string `json:"port"`
	AuthKey       string `json:"auth_key"`
	ProtocolIndex int    `json:"protocol_index"`
}

// Protocol returns the protocol name selected by ProtocolIndex
func (c ConnectionConfig) Protocol() string {
	return ProtocolAt(c.ProtocolIndex)
}

// Params converts the settings into client launch parameters, trimming
// surrounding whitespace from user-entered fields.
func (c ConnectionConfig) Params() ConnectParams {
	return ConnectParams{
		ServerAddress: strings.TrimSpace(c.ServerAddress),
		Port:          strings.TrimSpace(c.Port),
		AuthKey:       strings.TrimSpace(c.AuthKey),
		Protocol:      c.Protocol(),
	}
}

// ConnectParams are the values passed to the client on start
type ConnectParams struct {
	ServerAddress string
	Port          string
	AuthKey       string
	Protocol      string
}

// Validate checks that every field required by the client is present
func (p ConnectParams) Validate() error {
	var missing []string
	if p.ServerAddress == "" {
		missing = append(missing, "server address")
	}
	if p.Port == "" {
		missing = append(missing, "port")
	}
	if p.AuthKey == "" {
		missing = append(missing, "auth key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidParams, strings.Join(missing, ", "))
	}
	if p.Protocol == "" {
		return fmt.Errorf("%w: missing protocol", ErrInvalidParams)
	}
	return nil
}

// Args builds the client command-line arguments
func (p ConnectParams) Args() []string {
	return []string{
		"-server=" + p.ServerAddress + ":" + p.Port,
		"-vkey=" + p.AuthKey,
		"-type=" + p.Protocol,
	}
}

// MaskedArgs is Args with the auth key hidden, for logging
func (p ConnectParams) MaskedArgs() []string {
	masked := p
	masked.AuthKey = MaskSecret(p.AuthKey)
	return masked.Args()
}

// MaskSecret hides all but the last two characters of s
func MaskSecret(s string) string {
	r := []rune(s)
	if len(r) <= 2 {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-2) + string(r[len(r)-2:])
}
