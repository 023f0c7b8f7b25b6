package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ipv4 zeroes last octet", "192.168.1.47", "192.168.1.0"},
		{"ipv4 already anonymous", "10.0.0.0", "10.0.0.0"},
		{"ipv6 keeps /48 prefix", "2001:db8:85a3::8a2e:370:7334", "2001:0db8:85a3::"},
		{"empty input", "", "unknown"},
		{"unknown passthrough", "unknown", "unknown"},
		{"garbage", "not-an-ip", "invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AnonymizeIP(tt.in))
		})
	}
}
