package provisioner

import (
	"context"
	"slices"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/steelcutops/onboard/onboard/roster"
	"github.com/steelcutops/onboard/onboard/usermanager"
)

type OnboardResult struct {
	Group        string
	GroupCreated bool
	Created      []string
	Skipped      []string // already present, left untouched
}

// Onboard makes sure the team's group exists and creates every member
// account that is missing. A group failure stops the team; member failures
// are collected and returned together once every member was attempted.
//
// Existing accounts are left untouched, including their group membership:
// a login already onboarded with another team does not join this one.
func (p *Provisioner) Onboard(ctx context.Context, team roster.Team) (OnboardResult, error) {
	result := OnboardResult{Group: team.Group}

	group, exists, err := p.lookupGroup(ctx, team.Group)
	if err != nil {
		return result, err
	}
	if !exists {
		if err := p.CreateGroup(ctx, team.Group); err != nil {
			return result, err
		}
		result.GroupCreated = true
	}

	var errs *multierror.Error
	for _, member := range team.Members {
		user, exists, err := p.lookupAccount(ctx, member.Login)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if exists {
			if !result.GroupCreated && isMember(user, group) {
				p.logger.Info("Account already exists, skipping", "login", member.Login, "group", team.Group)
			} else {
				p.logger.Warn("Account already exists outside the group, skipping", "login", member.Login, "group", team.Group)
			}
			result.Skipped = append(result.Skipped, member.Login)
			continue
		}

		if err := p.CreateAccount(ctx, member.Login, team.Group, member.PublicKey); err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		result.Created = append(result.Created, member.Login)
	}

	return result, errs.ErrorOrNil()
}

// isMember reports whether user belongs to group as its primary group or
// as a listed member.
func isMember(user usermanager.User, group usermanager.Group) bool {
	return user.GID == group.GID || slices.Contains(group.Members, user.Username)
}
