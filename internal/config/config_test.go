package config

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSSHTargets_NameHostPort(t *testing.T) {
	targets := parseSSHTargets("router1@10.0.0.1:22, router2@10.0.0.2:2222")
	assert.Equal(t, []SSHTarget{
		{Name: "router1", Host: "10.0.0.1", Port: 22},
		{Name: "router2", Host: "10.0.0.2", Port: 2222},
	}, targets)
}

func TestParseSSHTargets_BareHostDefaultsNameAndPort(t *testing.T) {
	targets := parseSSHTargets("10.0.0.1")
	assert.Equal(t, []SSHTarget{{Name: "10.0.0.1", Host: "10.0.0.1", Port: 22}}, targets)
}

func TestParseSSHTargets_Empty(t *testing.T) {
	assert.Nil(t, parseSSHTargets(""))
}

func TestParseMACList_SkipsInvalidEntries(t *testing.T) {
	macs := parseMACList("00:11:22:33:44:55, not-a-mac, AA:BB:CC:DD:EE:FF")
	want := []string{"00:11:22:33:44:55", "aa:bb:cc:dd:ee:ff"}
	assert.Len(t, macs, 2)
	for i, w := range want {
		assert.Equal(t, w, macs[i].String())
	}
}

func TestAddrListPredicate_NilForEmptyList(t *testing.T) {
	assert.Nil(t, AddrListPredicate(nil))
}

func TestAddrListPredicate_MatchesKnownAddress(t *testing.T) {
	mac, err := net.ParseMAC("00:11:22:33:44:55")
	assert.NoError(t, err)

	pred := AddrListPredicate([]net.HardwareAddr{mac})

	var addr [6]byte
	copy(addr[:], mac)
	assert.True(t, pred(addr))

	var other [6]byte
	copy(other[:], []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF})
	assert.False(t, pred(other))
}
