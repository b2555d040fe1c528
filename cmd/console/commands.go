package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"launchpad/internal/console"
	"launchpad/internal/onboarding"
	"launchpad/internal/stage"
)

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

// orgID picks the explicit id, then the first positional argument, then the
// organization last shown.
func (a *app) orgID(explicit int64, args []string) (int64, error) {
	if explicit > 0 {
		return explicit, nil
	}
	if len(args) > 0 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("invalid organization id %q", args[0])
		}
		return id, nil
	}
	if id := a.session.State().Selected(); id > 0 {
		return id, nil
	}
	return 0, errors.New("no organization selected; pass an id or run `show ID`")
}

func parseDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(onboarding.DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return &t, nil
}

func parseIDs(s string) ([]int64, error) {
	var out []int64
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q", p)
		}
		out = append(out, id)
	}
	return out, nil
}

// optional returns nil for flags that were not given on the command line.
func optional(fs *flag.FlagSet, name, value string) *string {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	if !set {
		return nil
	}
	return &value
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlags("login")
	email := fs.String("email", "", "operator email")
	password := fs.String("password", "", "operator password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.session.Login(ctx, *email, *password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "logged in as", *email)
	return nil
}

func (a *app) newList(onResult func(console.ListResult, error)) *console.OrganizationList {
	return console.NewOrganizationList(a.session.Client(), a.cfg.PerPage, a.cfg.Debounce, onResult)
}

func (a *app) printList(res console.ListResult) error {
	a.session.Remember(res)
	if err := console.RenderOrganizationTable(a.out, res.Items); err != nil {
		return err
	}
	return console.RenderListFooter(a.out, res)
}

func cmdList(ctx context.Context, a *app, args []string) error {
	fs := newFlags("list")
	page := fs.Int("page", 1, "page number")
	stageArg := fs.String("stage", "", "stage number or name")
	from := fs.String("from", "", "created on or after (YYYY-MM-DD)")
	to := fs.String("to", "", "created on or before (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	stageNumber, err := stage.Parse(*stageArg)
	if err != nil {
		return err
	}
	start, err := parseDay(*from)
	if err != nil {
		return err
	}
	end, err := parseDay(*to)
	if err != nil {
		return err
	}

	list := a.newList(nil)
	defer list.Close()
	res, err := list.SetFilter(ctx, stageNumber, start, end)
	if err != nil {
		return err
	}
	if *page > 1 {
		if res, err = list.SetPage(ctx, *page); err != nil {
			return err
		}
	}
	return a.printList(res)
}

func cmdSearch(ctx context.Context, a *app, args []string) error {
	list := a.newList(nil)
	defer list.Close()
	res, err := list.Search(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	return a.printList(res)
}

// cmdWatch reads search terms from stdin and shows results once typing
// pauses. ":next" and ":prev" page through the unfiltered list.
func cmdWatch(ctx context.Context, a *app, _ []string) error {
	var mu sync.Mutex
	show := func(res console.ListResult, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case errors.Is(err, console.ErrStale), errors.Is(err, context.Canceled):
		case err != nil:
			fmt.Fprintln(a.out, "error:", describe(err))
		default:
			_ = a.printList(res)
		}
	}

	list := a.newList(show)
	defer list.Close()
	show(list.Refresh(ctx))

	sc := bufio.NewScanner(a.in)
	for sc.Scan() {
		line := sc.Text()
		switch strings.TrimSpace(line) {
		case ":next":
			show(list.NextPage(ctx))
		case ":prev":
			show(list.PrevPage(ctx))
		case ":q":
			return nil
		default:
			list.Type(ctx, line)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	return sc.Err()
}

func cmdNames(ctx context.Context, a *app, _ []string) error {
	names, err := a.session.Client().OrganizationNames(ctx)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintf(a.out, "%d\t%s\n", n.OrganizationID, n.OrganizationName)
	}
	return nil
}

func cmdShow(ctx context.Context, a *app, args []string) error {
	id, err := a.orgID(0, args)
	if err != nil {
		return err
	}
	d, err := a.session.Organization(ctx, id)
	if err != nil {
		return err
	}
	return console.RenderTimeline(a.out, d)
}

func cmdCreateOrg(ctx context.Context, a *app, args []string) error {
	fs := newFlags("create-org")
	var in console.NewOrganization
	fs.StringVar(&in.Name, "name", "", "organization name")
	fs.StringVar(&in.Type, "type", "", "organization type")
	fs.StringVar(&in.Country, "country", "", "country")
	if err := fs.Parse(args); err != nil {
		return err
	}
	d, err := a.session.CreateOrganization(ctx, in)
	if err != nil {
		return err
	}
	a.session.State().Select(d.OrganizationID)
	fmt.Fprintf(a.out, "created organization %d (%s)\n", d.OrganizationID, d.OrganizationName)
	return nil
}

func cmdUpdateOrg(ctx context.Context, a *app, args []string) error {
	fs := newFlags("update-org")
	org := fs.Int64("org", 0, "organization id")
	name := fs.String("name", "", "organization name")
	typ := fs.String("type", "", "organization type")
	country := fs.String("country", "", "country")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := a.orgID(*org, fs.Args())
	if err != nil {
		return err
	}
	d, err := a.session.Client().UpdateOrganization(ctx, id, console.OrganizationPatch{
		Name:    optional(fs, "name", *name),
		Type:    optional(fs, "type", *typ),
		Country: optional(fs, "country", *country),
	})
	if err != nil {
		return err
	}
	a.session.State().InvalidateOrganization(id)
	fmt.Fprintf(a.out, "updated organization %d (%s)\n", d.OrganizationID, d.OrganizationName)
	return nil
}

func cmdDeleteOrg(ctx context.Context, a *app, args []string) error {
	fs := newFlags("delete-org")
	org := fs.Int64("org", 0, "organization id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	// No fallback to the selected organization here.
	if *org <= 0 {
		return errors.New("-org is required")
	}
	if err := a.session.Client().DeleteOrganization(ctx, *org); err != nil {
		return err
	}
	a.session.State().InvalidateOrganization(*org)
	a.session.State().InvalidateRoster(*org)
	fmt.Fprintf(a.out, "deleted organization %d\n", *org)
	return nil
}

func cmdAdvance(ctx context.Context, a *app, args []string) error {
	fs := newFlags("advance")
	org := fs.Int64("org", 0, "organization id")
	notify := fs.String("notify", "", "comma separated user ids to notify")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := a.orgID(*org, fs.Args())
	if err != nil {
		return err
	}
	userIDs, err := parseIDs(*notify)
	if err != nil {
		return err
	}
	d, err := a.session.Organization(ctx, id)
	if err != nil {
		return err
	}
	p, err := a.session.Advance(ctx, id, d.LatestStepNumber, userIDs)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s is now at stage %d: %s\n", d.OrganizationName, p.CurrentStepNumber, p.CurrentStepName)
	return nil
}

func cmdProgress(ctx context.Context, a *app, args []string) error {
	fs := newFlags("progress")
	org := fs.Int64("org", 0, "organization id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: progress [-org ID] PERCENT")
	}
	pct, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid percent %q", fs.Arg(0))
	}
	id, err := a.orgID(*org, nil)
	if err != nil {
		return err
	}
	p, err := a.session.SetProgress(ctx, id, pct)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "stage %d progress set to %d%%\n", p.CurrentStepNumber, p.Progress)
	return nil
}

func cmdDue(ctx context.Context, a *app, args []string) error {
	fs := newFlags("due")
	org := fs.Int64("org", 0, "organization id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: due [-org ID] YYYY-MM-DD|none")
	}
	var due *time.Time
	if arg := fs.Arg(0); arg != "none" {
		t, err := parseDay(arg)
		if err != nil {
			return err
		}
		due = t
	}
	id, err := a.orgID(*org, nil)
	if err != nil {
		return err
	}
	d, err := a.session.Organization(ctx, id)
	if err != nil {
		return err
	}
	p, err := a.session.SetDueDate(ctx, d.StepID, due)
	if err != nil {
		return err
	}
	if p.DueDate == nil {
		fmt.Fprintln(a.out, "due date cleared")
		return nil
	}
	fmt.Fprintln(a.out, "due date set to", *p.DueDate)
	return nil
}

func cmdUpload(ctx context.Context, a *app, args []string) error {
	fs := newFlags("upload")
	org := fs.Int64("org", 0, "organization id")
	step := fs.Int("step", 0, "stage number the document belongs to")
	name := fs.String("name", "", "document name")
	docType := fs.String("type", "", "document type")
	path := fs.String("file", "", "file to upload")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := a.orgID(*org, nil)
	if err != nil {
		return err
	}
	if *path == "" {
		return errors.New("-file is required")
	}
	f, err := os.Open(*path)
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := a.session.UploadDocument(ctx, id, *step, *name, *docType, filepath.Base(*path), f)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "uploaded document %d: %s\n", doc.ID, doc.DocumentLink)
	return nil
}

func cmdEditDoc(ctx context.Context, a *app, args []string) error {
	fs := newFlags("edit-doc")
	org := fs.Int64("org", 0, "organization id")
	doc := fs.Int64("doc", 0, "document id")
	name := fs.String("name", "", "new document name")
	docType := fs.String("type", "", "new document type")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *doc <= 0 {
		return errors.New("-doc is required")
	}
	id, err := a.orgID(*org, nil)
	if err != nil {
		return err
	}
	v, err := a.session.EditDocument(ctx, id, *doc, optional(fs, "name", *name), optional(fs, "type", *docType))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "document %d: %s (%s)\n", v.ID, v.DocumentName, v.DocumentType)
	return nil
}

func cmdDeleteDoc(ctx context.Context, a *app, args []string) error {
	fs := newFlags("delete-doc")
	org := fs.Int64("org", 0, "organization id")
	doc := fs.Int64("doc", 0, "document id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *doc <= 0 {
		return errors.New("-doc is required")
	}
	id, err := a.orgID(*org, nil)
	if err != nil {
		return err
	}
	if err := a.session.DeleteDocument(ctx, id, *doc); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted document %d\n", *doc)
	return nil
}

func cmdUsers(ctx context.Context, a *app, args []string) error {
	id, err := a.orgID(0, args)
	if err != nil {
		return err
	}
	users, err := a.session.Roster(ctx, id)
	if err != nil {
		return err
	}
	return console.RenderUsers(a.out, users)
}

func cmdAddUser(ctx context.Context, a *app, args []string) error {
	fs := newFlags("add-user")
	org := fs.Int64("org", 0, "organization id")
	var u console.NewUser
	fs.StringVar(&u.FirstName, "first", "", "first name")
	fs.StringVar(&u.LastName, "last", "", "last name")
	fs.StringVar(&u.Email, "email", "", "email")
	fs.StringVar(&u.Role, "role", "standard", "admin or standard")
	fs.StringVar(&u.Title, "title", "", "job title")
	fs.StringVar(&u.Department, "department", "", "department")
	fs.StringVar(&u.LinkedInURL, "linkedin", "", "LinkedIn profile URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := a.orgID(*org, nil)
	if err != nil {
		return err
	}
	added, err := a.session.AddUser(ctx, id, u)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "added user %d (%s)\n", added.ID, added.Email)
	return nil
}

func cmdEditUser(ctx context.Context, a *app, args []string) error {
	fs := newFlags("edit-user")
	user := fs.Int64("user", 0, "user id")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	email := fs.String("email", "", "email")
	role := fs.String("role", "", "admin or standard")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user <= 0 {
		return errors.New("-user is required")
	}
	u, err := a.session.EditUser(ctx, *user, console.UserPatch{
		FirstName: optional(fs, "first", *first),
		LastName:  optional(fs, "last", *last),
		Email:     optional(fs, "email", *email),
		Role:      optional(fs, "role", *role),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "updated user %d (%s)\n", u.ID, u.Email)
	return nil
}

func cmdDeleteUser(ctx context.Context, a *app, args []string) error {
	fs := newFlags("delete-user")
	org := fs.Int64("org", 0, "organization id")
	user := fs.Int64("user", 0, "user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user <= 0 {
		return errors.New("-user is required")
	}
	id, err := a.orgID(*org, nil)
	if err != nil {
		return err
	}
	if err := a.session.DeleteUser(ctx, id, *user); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted user %d\n", *user)
	return nil
}

func cmdLogins(ctx context.Context, a *app, args []string) error {
	id, err := a.orgID(0, args)
	if err != nil {
		return err
	}
	rows, err := a.session.Client().LoginActivity(ctx, id)
	if err != nil {
		return err
	}
	return console.RenderLoginActivity(a.out, rows)
}

func cmdAudit(ctx context.Context, a *app, args []string) error {
	fs := newFlags("audit")
	q := fs.String("q", "", "filter by action, resource or actor")
	after := fs.Int64("after", 0, "cursor from a previous page")
	limit := fs.Int("limit", 0, "entries per page")
	if err := fs.Parse(args); err != nil {
		return err
	}
	page, err := a.session.Client().Audit(ctx, *q, *after, *limit)
	if err != nil {
		return err
	}
	for _, l := range page.Logs {
		fmt.Fprintf(a.out, "%d\t%s\t%s\t%s %d\n", l.ID, l.CreatedAt.Format(time.RFC3339), l.Action, l.ResourceType, l.ResourceID)
	}
	if page.NextCursor != nil {
		fmt.Fprintf(a.out, "more: audit -after %d\n", *page.NextCursor)
	}
	return nil
}
