package fields

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Entity names used for default fields and catalogs.
const (
	EntityMember = "member"
	EntityRepo   = "repo"
	EntityTeam   = "team"
	EntityOrg    = "org"
	EntityCollab = "collab"
)

var defaultFields = map[string][]string{
	EntityMember: {"login", "id", "type", "site_admin"},
	EntityRepo:   {"name", "owner.login"},
	EntityTeam:   {"name", "id", "privacy", "permission"},
	EntityOrg:    {"login", "user"},
	EntityCollab: {"login", "owner", "repo", "id"},
}

var userFields = []string{
	"avatar_url", "events_url", "followers_url", "following_url", "gists_url",
	"gravatar_id", "html_url", "id", "login", "organizations_url",
	"received_events_url", "repos_url", "site_admin", "starred_url",
	"subscriptions_url", "type", "url",
}

var catalogs = map[string][]string{
	EntityCollab: userFields,
	EntityMember: append([]string{"org"}, userFields...),
	EntityOrg: {
		"avatar_url", "description", "events_url", "hooks_url", "id", "issues_url",
		"login", "members_url", "public_members_url", "repos_url", "url", "user",
	},
	EntityRepo: {
		"archive_url", "assignees_url", "blobs_url", "branches_url", "clone_url",
		"collaborators_url", "commits_url", "compare_url", "contents_url",
		"contributors_url", "created_at", "default_branch", "deployments_url",
		"description", "downloads_url", "events_url", "fork", "forks", "forks_count",
		"forks_url", "full_name", "git_commits_url", "git_refs_url", "git_tags_url",
		"git_url", "has_downloads", "has_issues", "has_pages", "has_wiki", "homepage",
		"hooks_url", "html_url", "id", "issue_comment_url", "issue_events_url",
		"issues_url", "keys_url", "labels_url", "language", "languages_url",
		"master_branch", "merges_url", "milestones_url", "mirror_url", "name",
		"notifications_url", "open_issues", "open_issues_count", "private",
		"pulls_url", "pushed_at", "releases_url", "size", "ssh_url",
		"stargazers_count", "stargazers_url", "statuses_url", "subscribers_url",
		"subscription_url", "svn_url", "tags_url", "teams_url", "trees_url",
		"updated_at", "url", "watchers", "watchers_count",
		"license.featured", "license.key", "license.name", "license.url",
		"owner.avatar_url", "owner.events_url", "owner.followers_url",
		"owner.following_url", "owner.gists_url", "owner.gravatar_id",
		"owner.html_url", "owner.id", "owner.login", "owner.organizations_url",
		"owner.received_events_url", "owner.repos_url", "owner.site_admin",
		"owner.starred_url", "owner.subscriptions_url", "owner.type", "owner.url",
		"permissions.admin", "permissions.pull", "permissions.push",
	},
	EntityTeam: {
		"description", "id", "members_url", "name", "org", "permission",
		"privacy", "repositories_url", "slug", "url",
	},
}

// Defaults returns the default field names for entity. Unknown entities
// default to "name".
func Defaults(entity string) []string {
	if f, ok := defaultFields[entity]; ok {
		return append([]string(nil), f...)
	}
	return []string{"name"}
}

// Catalog returns the field names available for entity, sorted. Unknown
// entities have an empty catalog.
func Catalog(entity string) []string {
	out := append([]string(nil), catalogs[entity]...)
	sort.Strings(out)
	return out
}

// Entities returns the entity names that have a catalog.
func Entities() []string {
	out := make([]string, 0, len(catalogs))
	for e := range catalogs {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// ParseList splits a slash-separated field list ("login/id/owner.login").
// Blank entries are dropped.
func ParseList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, "/") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Help renders the default fields, wildcard options and catalog of entity.
func Help(entity string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Default fields for %sS: %s\n", strings.ToUpper(entity), strings.Join(Defaults(entity), "/"))
	b.WriteString(strings.Repeat("-", 60) + "\n")
	b.WriteString("       specify fields -->  --fields=fld1/fld2/etc\n")
	b.WriteString("           ALL fields -->  --fields=*\n")
	b.WriteString("              No URLs -->  --fields=nourls\n")
	b.WriteString("            Only URLs -->  --fields=urls\n")
	b.WriteString(strings.Repeat("-", 60) + "\n")

	names := Catalog(entity)
	const columns = 3
	rows := (len(names) + columns - 1) / columns
	for r := 0; r < rows; r++ {
		var line []string
		for c := 0; c < columns; c++ {
			if i := c*rows + r; i < len(names) {
				line = append(line, fmt.Sprintf("%-30s", names[i]))
			}
		}
		b.WriteString(strings.TrimRight(strings.Join(line, ""), " ") + "\n")
	}
	return b.String()
}

// RemoveURLs drops the top-level keys ending in "url" from an item.
// Embedded objects are kept as they are. A nil item becomes an empty map.
func RemoveURLs(item map[string]any) map[string]any {
	out := make(map[string]any, len(item))
	for k, v := range item {
		if !IsURLField(k) {
			out[k] = v
		}
	}
	return out
}

// Format renders a value as text: nil is empty, strings and numbers are
// verbatim, objects and arrays are compact JSON.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	case map[string]any, []any:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	default:
		return fmt.Sprint(t)
	}
}

// SortKey is the lower-cased text of a record's first value.
func SortKey(r Record) string {
	if r.Len() == 0 {
		return ""
	}
	return strings.ToLower(Format(r.Values()[0]))
}

// Sort orders records by SortKey, keeping the order of equal keys.
func Sort(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return SortKey(records[i]) < SortKey(records[j])
	})
}
