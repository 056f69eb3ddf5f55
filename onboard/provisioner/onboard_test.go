package provisioner

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steelcutops/onboard/logger"
	"github.com/steelcutops/onboard/onboard/roster"
)

func TestOnboardCreatesGroupAndMissingMembers(t *testing.T) {
	f := newFixture()
	team := roster.Team{
		Group: "pony",
		Members: []roster.Member{
			{Login: "elaine", PublicKey: "ssh-rsa elaine"},
			{Login: "kramer", PublicKey: "ssh-rsa kramer"},
		},
	}

	result, err := f.provisioner().Onboard(context.Background(), team)

	require.NoError(t, err)
	assert.Equal(t, OnboardResult{
		Group:        "pony",
		GroupCreated: true,
		Created:      []string{"kramer"},
		Skipped:      []string{"elaine"},
	}, result)
	assert.Equal(t, []string{
		"groupadd pony",
		"useradd kramer",
		"mkdir /home/kramer/.ssh 700",
		"write /home/kramer/.ssh/authorized_keys 600",
	}, f.rec.calls)
}

func TestOnboardExistingGroup(t *testing.T) {
	f := newFixture()

	result, err := f.provisioner().Onboard(context.Background(), roster.Team{Group: "soup"})

	require.NoError(t, err)
	assert.False(t, result.GroupCreated)
	assert.Empty(t, f.mutator.groups)
}

func TestOnboardCollectsMemberFailures(t *testing.T) {
	f := newFixture()
	f.mutator.failFor["kramer"] = errors.New("uid collision")
	f.mutator.failFor["newman"] = errors.New("bad name")
	team := roster.Team{
		Group: "soup",
		Members: []roster.Member{
			{Login: "kramer", PublicKey: "k"},
			{Login: "puddy", PublicKey: "p"},
			{Login: "newman", PublicKey: "n"},
		},
	}

	result, err := f.provisioner().Onboard(context.Background(), team)

	require.Error(t, err)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)
	assert.ErrorIs(t, merr.Errors[0], ErrAccountCreation)
	assert.Equal(t, []string{"puddy"}, result.Created)
}

func TestOnboardGroupFailureStops(t *testing.T) {
	f := newFixture()
	f.mutator.failFor["pony"] = errors.New("groupadd exited with status 10")

	_, err := f.provisioner().Onboard(context.Background(), roster.Team{
		Group:   "pony",
		Members: []roster.Member{{Login: "kramer", PublicKey: "k"}},
	})

	assert.ErrorIs(t, err, ErrGroupCreation)
	assert.Equal(t, []string{"groupadd pony"}, f.rec.calls)
}

func TestOnboardWarnsForExistingAccountOutsideGroup(t *testing.T) {
	f := newFixture()
	f.reader.groups[0].Members = []string{"george"}
	var buf bytes.Buffer
	p := f.provisioner(WithLogger(logger.NewWithOutput(&buf, logrus.WarnLevel)))

	result, err := p.Onboard(context.Background(), roster.Team{
		Group: "soup",
		Members: []roster.Member{
			{Login: "elaine", PublicKey: "e"},   // primary gid 3000
			{Login: "george", PublicKey: "g"},   // listed member
			{Login: "soupnazi", PublicKey: "s"}, // neither
		},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"elaine", "george", "soupnazi"}, result.Skipped)
	assert.Empty(t, f.mutator.added)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "login=soupnazi")
	assert.Contains(t, lines[0], "level=warning")
}

func TestOnboardWarnsForExistingAccountInNewGroup(t *testing.T) {
	f := newFixture()
	var buf bytes.Buffer
	p := f.provisioner(WithLogger(logger.NewWithOutput(&buf, logrus.WarnLevel)))

	_, err := p.Onboard(context.Background(), roster.Team{
		Group:   "pony",
		Members: []roster.Member{{Login: "elaine", PublicKey: "e"}},
	})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "login=elaine")
	assert.Contains(t, buf.String(), "group=pony")
}
