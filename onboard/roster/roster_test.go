package roster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rosterFixture = `
[soup]
george = ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIHk= george@laptop # work
elaine = ssh-rsa AAAAB3NzaC1yc2EAAAADAQABAAABAQ== elaine@desk

[pony]
kramer = ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIJk= kramer
`

func TestParseKeepsOrderAndKeys(t *testing.T) {
	teams, err := Parse([]byte(rosterFixture))
	require.NoError(t, err)

	require.Len(t, teams, 2)
	assert.Equal(t, "soup", teams[0].Group)
	assert.Equal(t, []Member{
		{Login: "george", PublicKey: "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIHk= george@laptop # work"},
		{Login: "elaine", PublicKey: "ssh-rsa AAAAB3NzaC1yc2EAAAADAQABAAABAQ== elaine@desk"},
	}, teams[0].Members)
	assert.Equal(t, "pony", teams[1].Group)
	assert.Equal(t, "kramer", teams[1].Members[0].Login)
}

func TestParseJoinsRepeatedLogin(t *testing.T) {
	teams, err := Parse([]byte("[soup]\ngeorge = ssh-ed25519 AAAA first\nelaine = ssh-rsa CCCC\ngeorge = ssh-ed25519 BBBB second\n"))
	require.NoError(t, err)

	require.Len(t, teams, 1)
	assert.Equal(t, []Member{
		{Login: "george", PublicKey: "ssh-ed25519 AAAA first\nssh-ed25519 BBBB second"},
		{Login: "elaine", PublicKey: "ssh-rsa CCCC"},
	}, teams[0].Members)
}

func TestParseRepeatedLoginSkipsBlankAndDuplicateKeys(t *testing.T) {
	teams, err := Parse([]byte("[soup]\ngeorge = ssh-ed25519 AAAA\ngeorge =\ngeorge = ssh-ed25519 AAAA\n"))
	require.NoError(t, err)

	assert.Equal(t, []Member{{Login: "george", PublicKey: "ssh-ed25519 AAAA"}}, teams[0].Members)
}

func TestParseRejectsEntriesOutsideSections(t *testing.T) {
	_, err := Parse([]byte("george = ssh-ed25519 AAAA\n"))
	assert.Error(t, err)
}

func TestParseRejectsEmptyKey(t *testing.T) {
	_, err := Parse([]byte("[soup]\ngeorge =\n"))
	assert.EqualError(t, err, "group soup: no public key for george")
}

func TestParseEmptyGroup(t *testing.T) {
	teams, err := Parse([]byte("[soup]\n"))
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Empty(t, teams[0].Members)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.ini")
	require.NoError(t, os.WriteFile(path, []byte(rosterFixture), 0o600))

	teams, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, teams, 2)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)
}
