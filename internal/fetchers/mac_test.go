package fetchers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMAC(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{
			name:  "lower colon form passes through",
			token: "aa:bb:cc:dd:ee:ff",
			want:  "aa:bb:cc:dd:ee:ff",
		},
		{
			name:  "upper case is lowered",
			token: "AA:BB:CC:DD:EE:FF",
			want:  "aa:bb:cc:dd:ee:ff",
		},
		{
			name:  "dash separators are normalized",
			token: "AA-BB-CC-DD-EE-FF",
			want:  "aa:bb:cc:dd:ee:ff",
		},
		{
			name:  "incomplete entry is rejected",
			token: "00:00:00:00:00:00",
			want:  "",
		},
		{
			name:  "too few groups",
			token: "aa:bb:cc:dd:ee",
			want:  "",
		},
		{
			name:  "non-hex group",
			token: "aa:bb:cc:dd:ee:gg",
			want:  "",
		},
		{
			name:  "short group",
			token: "a:bb:cc:dd:ee:ff",
			want:  "",
		},
		{
			name:  "not an address at all",
			token: "192.168.0.1",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeMAC(tt.token))
		})
	}
}

func TestParseProcARP(t *testing.T) {
	table := `IP address       HW type     Flags       HW address            Mask     Device
192.168.0.1      0x1         0x2         aa:bb:cc:dd:ee:ff     *        eth0
192.168.0.7      0x1         0x0         00:00:00:00:00:00     *        eth0
192.168.0.9      0x1         0x2         11:22:33:44:55:66     *        eth0
`

	tests := []struct {
		name string
		want string
		addr string
	}{
		{name: "resolved entry", addr: "192.168.0.1", want: "aa:bb:cc:dd:ee:ff"},
		{name: "incomplete entry is skipped", addr: "192.168.0.7", want: ""},
		{name: "second resolved entry", addr: "192.168.0.9", want: "11:22:33:44:55:66"},
		{name: "absent host", addr: "192.168.0.50", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseProcARP(strings.NewReader(table), tt.addr))
		})
	}
}
