package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/gitdata/pkg/cache"
	"github.com/Sternrassler/gitdata/pkg/client"
	"github.com/Sternrassler/gitdata/pkg/fields"
	"github.com/Sternrassler/gitdata/pkg/output"
	"github.com/Sternrassler/gitdata/pkg/query"
	"github.com/Sternrassler/gitdata/pkg/session"
)

// commonFlags are shared by the data subcommands.
type commonFlags struct {
	authUser   string
	source     string
	filename   string
	fields     string
	noDisplay  bool
	verbose    bool
	listFields bool
}

func (f *commonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.authUser, "authuser", "a", "", "authentication username")
	cmd.Flags().StringVarP(&f.source, "source", "s", "p", "data source - a/API, c/cache, or p/prompt")
	cmd.Flags().StringVarP(&f.filename, "filename", "n", "", "output filename (.CSV or .JSON)")
	cmd.Flags().StringVarP(&f.fields, "fields", "f", "", "fields to include, separated by /")
	cmd.Flags().BoolVarP(&f.noDisplay, "no-display", "d", false, "don't display retrieved data")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "display verbose status info")
	cmd.Flags().BoolVarP(&f.listFields, "listfields", "l", false, "list available fields and exit")
}

type fetchFunc func(ctx context.Context, svc *query.Service, fieldList []string) ([]fields.Record, error)

// newService resolves credentials and builds the client and query service
// for one command run.
func (a *app) newService(cf *commonFlags) (*query.Service, *session.Session, error) {
	creds, err := a.authManager().Resolve(strings.ToLower(cf.authUser))
	if err != nil {
		return nil, nil, err
	}

	sess := session.New("gitdata")
	c, err := client.New(client.Config{
		BaseURL:     a.cfg.GitHub.BaseURL,
		UserAgent:   a.cfg.GitHub.UserAgent,
		Credentials: creds,
		Timeout:     a.cfg.GitHub.Timeout,
		Session:     sess,
	})
	if err != nil {
		return nil, nil, err
	}

	svc := query.NewService(c, query.Options{
		Source:   query.ParseSource(cf.source),
		Prompter: &linePrompter{in: a.reader, out: a.out},
		Cache:    cache.NewManager(a.cfg.Cache.Dir),
		MaxPages: a.cfg.GitHub.MaxPages,
	})
	return svc, sess, nil
}

// run is the flow shared by the data subcommands: query, sort, display,
// write the output file, then report unknown fields and session totals.
func (a *app) run(cmd *cobra.Command, cf *commonFlags, entity string, fetch fetchFunc) error {
	if cf.listFields {
		fmt.Fprint(a.out, fields.Help(entity))
		return nil
	}
	if err := output.ValidFilename(cf.filename); err != nil {
		return err
	}
	if cf.verbose {
		a.setupLogging(true)
	}

	svc, sess, err := a.newService(cf)
	if err != nil {
		return err
	}
	sess.Begin(cmd.Name())

	records, err := fetch(cmd.Context(), svc, fields.ParseList(cf.fields))
	if errors.Is(err, query.ErrAborted) {
		return nil
	}
	if err != nil {
		return err
	}

	fields.Sort(records)
	if !cf.noDisplay {
		if err := output.Display(a.out, records); err != nil {
			return err
		}
	}
	if cf.filename != "" {
		if err := output.WriteFile(cf.filename, records); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Output file written: "+cf.filename)
	}

	if unknown := sess.UnknownFields(); len(unknown) > 0 {
		fmt.Fprintln(a.out, "Unknown field name(s): "+strings.Join(unknown, ", "))
	}

	stats := sess.End()
	if cf.verbose {
		fmt.Fprintf(a.out, "Elapsed time: %.2f seconds\n", stats.Elapsed.Seconds())
		fmt.Fprintln(a.out, stats)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func newReposCmd(a *app) *cobra.Command {
	var cf commonFlags
	var orgs, users string

	cmd := &cobra.Command{
		Use:   "repos",
		Short: "Get repo information for organizations or users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cf.listFields && orgs == "" && users == "" {
				return query.ErrNoTarget
			}
			return a.run(cmd, &cf, fields.EntityRepo, func(ctx context.Context, svc *query.Service, fieldList []string) ([]fields.Record, error) {
				return svc.Repos(ctx, splitList(orgs), splitList(users), fieldList)
			})
		},
	}
	cmd.Flags().StringVarP(&orgs, "org", "o", "", "GitHub organization (comma-separated for several)")
	cmd.Flags().StringVarP(&users, "user", "u", "", "GitHub user (ignored if --org is given)")
	cf.register(cmd)
	return cmd
}

func newMembersCmd(a *app) *cobra.Command {
	var cf commonFlags
	var org, team string
	var audit2fa bool

	cmd := &cobra.Command{
		Use:   "members",
		Short: "Get member information for an organization or team",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cf.listFields && org == "" && team == "" {
				return query.ErrNoOrgOrTeam
			}
			return a.run(cmd, &cf, fields.EntityMember, func(ctx context.Context, svc *query.Service, fieldList []string) ([]fields.Record, error) {
				return svc.Members(ctx, org, team, audit2fa, fieldList)
			})
		},
	}
	cmd.Flags().StringVarP(&org, "org", "o", "", "GitHub organization")
	cmd.Flags().StringVarP(&team, "team", "t", "", "team ID (org is ignored)")
	cmd.Flags().BoolVar(&audit2fa, "audit2fa", false, "only members with 2FA disabled (org admins only)")
	cf.register(cmd)
	return cmd
}

func newTeamsCmd(a *app) *cobra.Command {
	var cf commonFlags
	var org, repos string

	cmd := &cobra.Command{
		Use:   "teams",
		Short: "Get team information for an organization or its repos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cf.listFields && org == "" {
				return query.ErrNoOrg
			}
			return a.run(cmd, &cf, fields.EntityTeam, func(ctx context.Context, svc *query.Service, fieldList []string) ([]fields.Record, error) {
				if repos != "" {
					return svc.RepoTeams(ctx, org, splitList(repos), fieldList)
				}
				return svc.Teams(ctx, org, fieldList)
			})
		},
	}
	cmd.Flags().StringVarP(&org, "org", "o", "", "GitHub organization")
	cmd.Flags().StringVarP(&repos, "repo", "r", "", "only teams with access to these repos (comma-separated)")
	cf.register(cmd)
	return cmd
}

func newOrgsCmd(a *app) *cobra.Command {
	var cf commonFlags

	cmd := &cobra.Command{
		Use:   "orgs",
		Short: "Get org memberships for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cf.listFields && cf.authUser == "" {
				return query.ErrAuthRequired
			}
			return a.run(cmd, &cf, fields.EntityOrg, func(ctx context.Context, svc *query.Service, fieldList []string) ([]fields.Record, error) {
				return svc.Orgs(ctx, strings.ToLower(cf.authUser), fieldList)
			})
		},
	}
	cf.register(cmd)
	return cmd
}

func newCollabsCmd(a *app) *cobra.Command {
	var cf commonFlags
	var owner, repo string

	cmd := &cobra.Command{
		Use:   "collabs",
		Short: "Get collaborators for a repo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cf.listFields && (owner == "" || repo == "") {
				return query.ErrNoRepo
			}
			return a.run(cmd, &cf, fields.EntityCollab, func(ctx context.Context, svc *query.Service, fieldList []string) ([]fields.Record, error) {
				return svc.Collaborators(ctx, owner, repo, fieldList)
			})
		},
	}
	cmd.Flags().StringVarP(&owner, "owner", "o", "", "owner (org or user)")
	cmd.Flags().StringVarP(&repo, "repo", "r", "", "repo name")
	cf.register(cmd)
	return cmd
}

func newCountCmd(a *app) *cobra.Command {
	var cf commonFlags

	cmd := &cobra.Command{
		Use:   "count <endpoint>",
		Short: "Estimate the number of items an endpoint returns",
		Long: `Estimate the number of items an endpoint returns from its first and
last pages, without reading the pages in between.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cf.verbose {
				a.setupLogging(true)
			}
			svc, sess, err := a.newService(&cf)
			if err != nil {
				return err
			}
			sess.Begin(cmd.Name())

			n, err := svc.CountItems(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, n)

			stats := sess.End()
			if cf.verbose {
				fmt.Fprintln(a.out, stats)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cf.authUser, "authuser", "a", "", "authentication username")
	cmd.Flags().BoolVarP(&cf.verbose, "verbose", "v", false, "display verbose status info")
	return cmd
}

func newDumpCmd(a *app) *cobra.Command {
	var cf commonFlags
	var minimize bool

	cmd := &cobra.Command{
		Use:   "dump <endpoint>",
		Short: "Write every item of an endpoint to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output.FormatOf(cf.filename) != output.FormatJSON {
				return fmt.Errorf("%w: %q (dump writes .json only)", output.ErrUnsupportedFormat, cf.filename)
			}
			if cf.verbose {
				a.setupLogging(true)
			}
			svc, sess, err := a.newService(&cf)
			if err != nil {
				return err
			}
			sess.Begin(cmd.Name())

			start := time.Now()
			n, err := svc.ToFile(cmd.Context(), args[0], cf.filename, nil, minimize)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d items written to %s\n", n, cf.filename)

			stats := sess.End()
			if cf.verbose {
				fmt.Fprintf(a.out, "Elapsed time: %.2f seconds\n", time.Since(start).Seconds())
				fmt.Fprintln(a.out, stats)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cf.authUser, "authuser", "a", "", "authentication username")
	cmd.Flags().StringVarP(&cf.filename, "filename", "n", "", "output filename (.JSON)")
	cmd.Flags().BoolVar(&minimize, "minimize", false, "remove *_url fields")
	cmd.Flags().BoolVarP(&cf.verbose, "verbose", "v", false, "display verbose status info")
	return cmd
}
