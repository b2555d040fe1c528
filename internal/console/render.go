package console

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"launchpad/internal/models"
	"launchpad/internal/onboarding"
	"launchpad/internal/roster"
	"launchpad/internal/stage"
)

const (
	displayDate = "Jan 2, 2006"
	notSet      = "N/A"
	never       = "Never"
)

func formatDay(t time.Time) string { return t.Format(displayDate) }

func formatOptional(t *time.Time, empty string) string {
	if t == nil {
		return empty
	}
	return formatDay(*t)
}

// formatDue renders a wire due date ("2006-01-02") or N/A.
func formatDue(due *string) string {
	if due == nil || *due == "" {
		return notSet
	}
	t, err := time.Parse(onboarding.DateLayout, *due)
	if err != nil {
		return *due
	}
	return formatDay(t)
}

var stateMarks = map[stage.State]string{
	stage.Completed: "[x]",
	stage.Current:   "[>]",
	stage.Pending:   "[ ]",
}

// RenderTimeline writes the 8 stages of d with the current one highlighted.
func RenderTimeline(w io.Writer, d *onboarding.OrganizationDetail) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s, %s)\n", d.OrganizationName, d.OrganizationType, d.Country)
	fmt.Fprintf(&b, "Created %s | Stage %d/%d: %s | Progress %d%% | Due %s\n\n",
		formatDay(d.CreatedOn), d.LatestStepNumber, stage.Last, d.LatestStepName, d.LatestStepProgress, formatDue(d.DueDate))

	steps := d.Steps
	if len(steps) == 0 {
		for _, e := range stage.Timeline(d.LatestStepNumber) {
			steps = append(steps, onboarding.StepView{StepNumber: e.Number, StepName: e.Name, State: e.State})
		}
	}
	for _, s := range steps {
		line := fmt.Sprintf("%s %d. %s", stateMarks[s.State], s.StepNumber, s.StepName)
		if s.ReachedAt != nil {
			line += "  (" + formatDay(*s.ReachedAt) + ")"
		}
		if s.State == stage.Current {
			line += "  <- current"
		}
		b.WriteString(line + "\n")
		for _, doc := range s.Documents {
			fmt.Fprintf(&b, "      - %s [%s] %s\n", doc.DocumentName, doc.DocumentType, doc.DocumentLink)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// RenderOrganizationTable writes one row per organization.
func RenderOrganizationTable(w io.Writer, items []onboarding.OrganizationSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tCOUNTRY\tCREATED\tSTAGE\tPROGRESS\tDUE\tDOCS")
	for _, o := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d. %s\t%d%%\t%s\t%d\n",
			o.OrganizationID, o.OrganizationName, o.OrganizationType, o.Country,
			formatDay(o.CreatedOn), o.LatestStepNumber, o.LatestStepName,
			o.LatestStepProgress, formatDue(o.DueDate), len(o.DocumentLinks))
	}
	return tw.Flush()
}

// RenderListFooter writes the paging line or the search notice.
func RenderListFooter(w io.Writer, res ListResult) error {
	var err error
	switch {
	case res.Notice != "":
		_, err = fmt.Fprintln(w, res.Notice)
	case res.Searching:
		_, err = fmt.Fprintf(w, "%d result(s) for %q\n", res.Total, res.Term)
	default:
		_, err = fmt.Fprintf(w, "Page %d | %d organization(s) | prev: %t next: %t\n", res.Page, res.Total, res.HasPrev, res.HasNext)
	}
	return err
}

func RenderUsers(w io.Writer, users []models.OrganizationUser) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tTITLE\tVERIFIED")
	for _, u := range users {
		verified := "no"
		if u.IsVerified {
			verified = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", u.ID, u.FullName(), u.Email, u.Role, u.Title, verified)
	}
	return tw.Flush()
}

func RenderLoginActivity(w io.Writer, rows []roster.LoginActivity) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tEMAIL\tFIRST LOGIN\tLAST LOGIN")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.FullName, r.Email, formatOptional(r.FirstLogin, never), formatOptional(r.LastLogin, never))
	}
	return tw.Flush()
}
