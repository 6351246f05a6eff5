package query

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/Sternrassler/gitdata/pkg/client"
	"github.com/Sternrassler/gitdata/pkg/fields"
)

var (
	// ErrNoTarget is returned when neither an org nor a user is given.
	ErrNoTarget = errors.New("must specify an org or user")

	// ErrNoOrgOrTeam is returned for member queries without an org or team.
	ErrNoOrgOrTeam = errors.New("must specify an org or team")

	// ErrNoOrg is returned for org queries without an org.
	ErrNoOrg = errors.New("must specify an org")

	// ErrNoTeam is returned for team queries without a team ID.
	ErrNoTeam = errors.New("must specify a team")

	// ErrNoRepo is returned for repo queries missing the owner or repo.
	ErrNoRepo = errors.New("must specify owner and repo")

	// ErrAuthRequired is returned for queries about the authenticated user.
	ErrAuthRequired = errors.New("authentication username is required")
)

func constants(kv ...string) fields.Record {
	r := fields.NewRecord()
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i], kv[i+1])
	}
	return r
}

func seg(s string) string {
	return url.PathEscape(s)
}

// Repos returns the repos of each org, or of each user when no org is given.
// Listings are requested with the license preview media type.
func (s *Service) Repos(ctx context.Context, orgs, users []string, fieldList []string) ([]fields.Record, error) {
	var endpoints []string
	switch {
	case len(orgs) > 0:
		for _, org := range orgs {
			endpoints = append(endpoints, "/orgs/"+seg(org)+"/repos")
		}
	case len(users) > 0:
		for _, user := range users {
			endpoints = append(endpoints, "/users/"+seg(user)+"/repos")
		}
	default:
		return nil, ErrNoTarget
	}

	headers := http.Header{}
	headers.Set("Accept", client.LicensePreviewAccept)

	var out []fields.Record
	for _, endpoint := range endpoints {
		records, err := s.Data(ctx, Query{
			Endpoint: endpoint,
			Entity:   fields.EntityRepo,
			Fields:   fieldList,
			Headers:  headers,
		})
		if err != nil {
			return out, err
		}
		out = append(out, records...)
	}
	return out, nil
}

// Members returns the members of a team, or of org when team is empty.
// With audit2fa only org members with two-factor authentication disabled
// are returned (requires an org admin). audit2fa is ignored for teams.
func (s *Service) Members(ctx context.Context, org, team string, audit2fa bool, fieldList []string) ([]fields.Record, error) {
	switch {
	case team != "" && org == "":
		return s.TeamMembers(ctx, team, fieldList)
	case team != "":
		return s.data(ctx, teamMembersEndpoint(team), fields.EntityMember, fieldList, constants("org", org, "team", team))
	case org == "":
		return nil, ErrNoOrgOrTeam
	}

	endpoint := "/orgs/" + seg(org) + "/members"
	if audit2fa {
		endpoint += "?filter=2fa_disabled"
	}
	return s.data(ctx, endpoint, fields.EntityMember, fieldList, constants("org", org))
}

// TeamMembers returns the members of the team with the given ID.
func (s *Service) TeamMembers(ctx context.Context, teamID string, fieldList []string) ([]fields.Record, error) {
	if teamID == "" {
		return nil, ErrNoTeam
	}
	return s.data(ctx, teamMembersEndpoint(teamID), fields.EntityMember, fieldList, constants("team", teamID))
}

func teamMembersEndpoint(teamID string) string {
	return "/teams/" + seg(teamID) + "/members"
}

// Teams returns the teams of org.
func (s *Service) Teams(ctx context.Context, org string, fieldList []string) ([]fields.Record, error) {
	if org == "" {
		return nil, ErrNoOrg
	}
	return s.data(ctx, "/orgs/"+seg(org)+"/teams", fields.EntityTeam, fieldList, constants("org", org))
}

// RepoTeams returns the teams with access to each repo of org.
func (s *Service) RepoTeams(ctx context.Context, org string, repos []string, fieldList []string) ([]fields.Record, error) {
	if org == "" {
		return nil, ErrNoOrg
	}
	if len(repos) == 0 {
		return nil, ErrNoRepo
	}
	var out []fields.Record
	for _, repo := range repos {
		records, err := s.data(ctx, "/repos/"+seg(org)+"/"+seg(repo)+"/teams",
			fields.EntityTeam, fieldList, constants("org", org, "repo", repo))
		if err != nil {
			return out, err
		}
		out = append(out, records...)
	}
	return out, nil
}

// Orgs returns the org memberships of the authenticated user. user must
// match the credentials the client was created with.
func (s *Service) Orgs(ctx context.Context, user string, fieldList []string) ([]fields.Record, error) {
	if user == "" || s.client.Credentials().Anonymous() {
		return nil, ErrAuthRequired
	}
	return s.data(ctx, "/user/orgs", fields.EntityOrg, fieldList, constants("user", user))
}

// Collaborators returns the collaborators of owner/repo.
func (s *Service) Collaborators(ctx context.Context, owner, repo string, fieldList []string) ([]fields.Record, error) {
	if owner == "" || repo == "" {
		return nil, ErrNoRepo
	}
	return s.data(ctx, "/repos/"+seg(owner)+"/"+seg(repo)+"/collaborators",
		fields.EntityCollab, fieldList, constants("owner", owner, "repo", repo))
}

func (s *Service) data(ctx context.Context, endpoint, entity string, fieldList []string, consts fields.Record) ([]fields.Record, error) {
	return s.Data(ctx, Query{
		Endpoint:  endpoint,
		Entity:    entity,
		Fields:    fieldList,
		Constants: consts,
	})
}
