package fields

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	tests := map[string][]string{
		EntityMember: {"login", "id", "type", "site_admin"},
		EntityRepo:   {"name", "owner.login"},
		EntityTeam:   {"name", "id", "privacy", "permission"},
		EntityOrg:    {"login", "user"},
		EntityCollab: {"login", "owner", "repo", "id"},
		"":           {"name"},
	}
	for entity, want := range tests {
		if got := Defaults(entity); !reflect.DeepEqual(got, want) {
			t.Errorf("Defaults(%q) = %v, want %v", entity, got, want)
		}
	}

	d := Defaults(EntityRepo)
	d[0] = "changed"
	if Defaults(EntityRepo)[0] != "name" {
		t.Error("Defaults() returned shared slice")
	}
}

func TestCatalog(t *testing.T) {
	repo := Catalog(EntityRepo)
	for _, want := range []string{"name", "private", "license.name", "owner.login", "permissions.push"} {
		found := false
		for _, f := range repo {
			if f == want {
				found = true
			}
		}
		if !found {
			t.Errorf("repo catalog missing %q", want)
		}
	}
	if len(Catalog("nothing")) != 0 {
		t.Error("unknown entity should have an empty catalog")
	}
	if got := Entities(); !reflect.DeepEqual(got, []string{"collab", "member", "org", "repo", "team"}) {
		t.Errorf("Entities() = %v", got)
	}
}

func TestParseList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"login", []string{"login"}},
		{"login/id/owner.login", []string{"login", "id", "owner.login"}},
		{" login // id/", []string{"login", "id"}},
		{"*", []string{"*"}},
	}
	for _, tt := range tests {
		if got := ParseList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHelp(t *testing.T) {
	out := Help(EntityTeam)
	for _, want := range []string{"Default fields for TEAMS: name/id/privacy/permission", "--fields=nourls", "repositories_url"} {
		if !strings.Contains(out, want) {
			t.Errorf("Help() missing %q:\n%s", want, out)
		}
	}
}

func TestRemoveURLs(t *testing.T) {
	in := map[string]any{
		"login":       "octocat",
		"url":         "x",
		"avatar_url":  "y",
		"permissions": map[string]any{"admin": true},
	}
	want := map[string]any{
		"login":       "octocat",
		"permissions": map[string]any{"admin": true},
	}
	if got := RemoveURLs(in); !reflect.DeepEqual(got, want) {
		t.Errorf("RemoveURLs() = %v, want %v", got, want)
	}
	if got := RemoveURLs(nil); got == nil || len(got) != 0 {
		t.Errorf("RemoveURLs(nil) = %v, want empty map", got)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{json.Number("42"), "42"},
		{true, "true"},
		{false, "false"},
		{map[string]any{"b": 1, "a": "x"}, `{"a":"x","b":1}`},
		{[]any{"a", json.Number("2")}, `["a",2]`},
		{7, "7"},
	}
	for _, tt := range tests {
		if got := Format(tt.in); got != tt.want {
			t.Errorf("Format(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSort(t *testing.T) {
	records := []Record{
		NewRecord(Field{"name", "beta"}),
		NewRecord(Field{"name", "Alpha"}),
		NewRecord(Field{"name", "alpha"}, Field{"n", 2}),
		NewRecord(),
	}
	Sort(records)

	var got []string
	for _, r := range records {
		got = append(got, SortKey(r))
	}
	if !reflect.DeepEqual(got, []string{"", "alpha", "alpha", "beta"}) {
		t.Errorf("sorted keys = %v", got)
	}
	if v, _ := records[1].Get("name"); v != "Alpha" {
		t.Errorf("Sort() not stable: %v", v)
	}
}
