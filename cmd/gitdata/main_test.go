package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/gitdata/internal/testutil"
	"github.com/Sternrassler/gitdata/pkg/query"
)

// testEnv points configuration, credentials and cache at temp dirs and the
// API at mock.
func testEnv(t *testing.T, mock *testutil.MockGitHub) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("GITDATA_BASE_URL", mock.URL())
	t.Setenv("GITDATA_AUTH_DIR", dir)
	t.Setenv("GITDATA_CACHE_DIR", filepath.Join(dir, "cache"))
	t.Setenv("GITDATA_LOG_LEVEL", "error")
	t.Setenv("GitHubUser", "")
	t.Setenv("GitHubPAT", "")
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out, &errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func memberItems() []any {
	return []any{
		map[string]any{"login": "Zed", "id": 3, "type": "User", "site_admin": false, "url": "u3"},
		map[string]any{"login": "amy", "id": 1, "type": "User", "site_admin": false, "url": "u1"},
		map[string]any{"login": "bob", "id": 2, "type": "User", "site_admin": true, "url": "u2"},
	}
}

func TestRoot_NothingToDo(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	testEnv(t, mock)

	out, err := execute(t, "")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to do")
}

func TestRoot_AuthTokenLifecycle(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	dir := testEnv(t, mock)

	out, err := execute(t, "", "--auth", "OctoCat", "--token", "ghp_abcdef123456")
	require.NoError(t, err)
	assert.Contains(t, out, "Username: octocat")
	assert.Contains(t, out, "Token: gh...56")

	data, err := os.ReadFile(filepath.Join(dir, "github_users.ini"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[octocat]")

	out, err = execute(t, "", "--auth", "octocat")
	require.NoError(t, err)
	assert.Contains(t, out, "Token: gh...56")

	out, err = execute(t, "", "--auth", "octocat", "--delete")
	require.NoError(t, err)
	assert.Contains(t, out, "Token: *none*")
}

func TestRoot_AuthTokenFromInput(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	testEnv(t, mock)

	out, err := execute(t, "typed_token_99\n", "--auth", "octocat", "--token", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Token: ty...99")
}

func TestMembers_APIAndCache(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetPages("/orgs/acme/members", 2, memberItems()...)
	dir := testEnv(t, mock)

	out, err := execute(t, "", "members", "-o", "acme", "-s", "a", "-f", "login/id/org", "-n", "members.csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "amy,1,acme", lines[0])
	assert.Equal(t, "bob,2,acme", lines[1])
	assert.Equal(t, "Zed,3,acme", lines[2])
	assert.Contains(t, out, "Output file written: members.csv")

	f, err := os.Open(filepath.Join(dir, "members.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"login", "id", "org"}, rows[0])

	mock.Reset()
	out, err = execute(t, "", "members", "-o", "acme", "-s", "c", "-f", "login")
	require.NoError(t, err)
	assert.Equal(t, 0, mock.GetRequestCount())
	assert.Contains(t, out, "amy")
}

func TestMembers_PromptExit(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetPages("/orgs/acme/members", 30, memberItems()...)
	testEnv(t, mock)

	out, err := execute(t, "x\n", "members", "-o", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "Cached data not available.")
	assert.NotContains(t, out, "amy")
	assert.Equal(t, 0, mock.GetRequestCount())
}

func TestMembers_UnknownFields(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetPages("/orgs/acme/members", 30, memberItems()...)
	testEnv(t, mock)

	out, err := execute(t, "", "members", "-o", "acme", "-s", "a", "-d", "-f", "login/bogus")
	require.NoError(t, err)
	assert.NotContains(t, out, "amy")
	assert.Contains(t, out, "Unknown field name(s): bogus")
}

func TestCommands_Validation(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	testEnv(t, mock)

	tests := []struct {
		name string
		args []string
	}{
		{"bad filename", []string{"members", "-o", "acme", "-n", "out.txt"}},
		{"members without target", []string{"members"}},
		{"repos without target", []string{"repos"}},
		{"orgs without user", []string{"orgs"}},
		{"collabs without repo", []string{"collabs", "-o", "acme"}},
		{"unknown auth user", []string{"teams", "-o", "acme", "-a", "nobody"}},
		{"dump to csv", []string{"dump", "/orgs/acme/members", "-n", "x.csv"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			assert.Error(t, err)
		})
	}
	assert.Equal(t, 0, mock.GetRequestCount())
}

func TestCommands_MissingTarget(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	testEnv(t, mock)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"members", []string{"members", "-s", "a"}, query.ErrNoOrgOrTeam},
		{"teams", []string{"teams", "-r", "widget"}, query.ErrNoOrg},
		{"collabs", []string{"collabs", "-r", "widget"}, query.ErrNoRepo},
		{"repos", []string{"repos"}, query.ErrNoTarget},
		{"orgs", []string{"orgs"}, query.ErrAuthRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMembers_Team(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetPages("/teams/42/members", 2, memberItems()...)
	testEnv(t, mock)

	out, err := execute(t, "", "members", "-t", "42", "-s", "a", "-f", "login/team")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{"amy,42", "bob,42", "Zed,42"}, lines)
	assert.Equal(t, 2, mock.GetRequestCount())
	for _, uri := range mock.GetRequests() {
		assert.True(t, strings.HasPrefix(uri, "/teams/42/members"), uri)
	}
}

func TestTeams_Repos(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetPages("/repos/acme/a/teams", 30, map[string]any{"name": "core"})
	mock.SetPages("/repos/acme/b/teams", 30, map[string]any{"name": "docs"})
	testEnv(t, mock)

	out, err := execute(t, "", "teams", "-o", "acme", "-r", "a,b", "-s", "a", "-f", "repo/name")
	require.NoError(t, err)
	assert.Contains(t, out, "a,core")
	assert.Contains(t, out, "b,docs")
	assert.Equal(t, 2, mock.GetRequestCount())
}

func TestGlobalFlags_BaseURLAndMaxPages(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetPages("/orgs/acme/members", 1, memberItems()...)
	testEnv(t, mock)
	t.Setenv("GITDATA_BASE_URL", "http://127.0.0.1:1")

	out, err := execute(t, "", "members", "-o", "acme", "-s", "a", "-f", "login",
		"--base-url", mock.URL(), "--max-pages", "1")
	require.NoError(t, err)
	assert.Equal(t, "Zed", strings.TrimSpace(out))
	assert.Equal(t, 1, mock.GetRequestCount())

	_, err = execute(t, "", "members", "-o", "acme", "--max-pages", "-1")
	assert.ErrorContains(t, err, "max pages")
}

func TestListFields(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	testEnv(t, mock)

	out, err := execute(t, "", "repos", "-l")
	require.NoError(t, err)
	assert.Contains(t, out, "owner.login")
	assert.Contains(t, out, "license.name")
}

func TestRepos_AuthenticatedUser(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetPages("/orgs/acme/repos", 30,
		map[string]any{"name": "widget", "private": true, "owner": map[string]any{"login": "acme"}})
	testEnv(t, mock)

	_, err := execute(t, "", "--auth", "octocat", "--token", "ghp_secret")
	require.NoError(t, err)

	out, err := execute(t, "", "repos", "-o", "acme", "-a", "octocat", "-s", "a", "-f", "name/private/owner.login")
	require.NoError(t, err)
	assert.Contains(t, out, "widget,private,acme")

	user, pass, ok := mock.LastBasicAuth()
	require.True(t, ok)
	assert.Equal(t, "octocat", user)
	assert.Equal(t, "ghp_secret", pass)
}

func TestCountAndDump(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetPages("/orgs/acme/members", 1, memberItems()...)
	dir := testEnv(t, mock)

	out, err := execute(t, "", "count", "/orgs/acme/members")
	require.NoError(t, err)
	assert.Equal(t, "3", strings.TrimSpace(out))

	out, err = execute(t, "", "dump", "/orgs/acme/members", "-n", "dump.json", "--minimize")
	require.NoError(t, err)
	assert.Contains(t, out, "3 items written to dump.json")

	data, err := os.ReadFile(filepath.Join(dir, "dump.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"login": "Zed"`)
	assert.NotContains(t, string(data), `"url"`)
}

func TestMetricsFile(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetPages("/orgs/acme/teams", 30, map[string]any{"name": "core"})
	dir := testEnv(t, mock)

	_, err := execute(t, "", "teams", "-o", "acme", "-s", "a", "--metrics-file", "run.prom")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "run.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "github_requests_total")
}
