package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/tsukumogami/squatwatch/internal/notify"
	"github.com/tsukumogami/squatwatch/internal/store"
	"github.com/tsukumogami/squatwatch/internal/typosquat"
)

// CheckTyposquat checks the name of a newly published package against the
// most popular packages and mails the configured recipients when it looks
// like a typosquat.
type CheckTyposquat struct {
	Name string `json:"name"`
}

// NewCheckTyposquat creates the job for a just-published package.
func NewCheckTyposquat(name string) CheckTyposquat {
	return CheckTyposquat{Name: name}
}

// JobName implements worker.Job.
func (CheckTyposquat) JobName() string { return "check_typosquat" }

// Run implements worker.Job. Only data access failures are returned; a
// failed delivery is logged and does not fail the job.
func (j CheckTyposquat) Run(ctx context.Context, env *Environment) error {
	_, err := j.Execute(ctx, env)
	return err
}

// Delivery is the result of sending the notification to one recipient.
type Delivery struct {
	Recipient string
	Err       error
}

// Outcome describes what one check did.
type Outcome struct {
	// Checked is false when there was no harness to check against.
	Checked bool
	// Candidate is the package that was checked, when it was loaded.
	Candidate  *typosquat.Package
	Squats     []typosquat.Squat
	Deliveries []Delivery
	// IssueURL is set when the notification was also filed as an issue.
	IssueURL string
	IssueErr error
}

// Failed returns the deliveries that did not go through.
func (o Outcome) Failed() []Delivery {
	var failed []Delivery
	for _, d := range o.Deliveries {
		if d.Err != nil {
			failed = append(failed, d)
		}
	}
	return failed
}

// Execute runs the check and reports what happened.
func (j CheckTyposquat) Execute(ctx context.Context, env *Environment) (Outcome, error) {
	cache, candidate, err := j.load(ctx, env)
	if err != nil || cache == nil {
		return Outcome{}, err
	}
	return check(ctx, env, cache, j.Name, candidate), nil
}

// load acquires the cache and the candidate on a dedicated connection that
// is released before any notification goes out. A nil cache means there
// is nothing to check against.
func (j CheckTyposquat) load(ctx context.Context, env *Environment) (*typosquat.Cache, *typosquat.Package, error) {
	conn, err := env.db.Conn(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = conn.Close() }()

	cache, err := env.TyposquatCache(ctx, conn)
	if err != nil {
		return nil, nil, err
	}
	if cache.Harness() == nil {
		return nil, nil, nil
	}

	candidate, err := store.NewPackages(conn).PackageByName(ctx, j.Name)
	if err != nil {
		return nil, nil, err
	}
	return cache, candidate, nil
}

func check(ctx context.Context, env *Environment, cache *typosquat.Cache, name string, candidate *typosquat.Package) Outcome {
	logger := env.logger.With("name", name)
	logger.Info("Checking new package for potential typosquatting")

	out := Outcome{Checked: true, Candidate: candidate}
	out.Squats = cache.Harness().CheckPackage(name, candidate)
	if len(out.Squats) == 0 {
		return out
	}
	logger.Info("Found potential typosquatting", "squats", out.Squats)

	email := PossibleTyposquatEmail{
		Domain:      env.domain,
		Name:        name,
		Description: candidate.Description,
		Version:     candidate.NewestVersion,
		Homepage:    candidate.Homepage,
		Repository:  candidate.Repository,
		Squats:      out.Squats,
	}

	for recipient := range cache.Emails() {
		err := send(ctx, env, recipient, email)
		if err != nil {
			logger.Error("Failed to send possible typosquat notification", "recipient", recipient, "error", err)
		}
		out.Deliveries = append(out.Deliveries, Delivery{Recipient: recipient, Err: err})
	}

	if env.reporter != nil {
		out.IssueURL, out.IssueErr = env.reporter.Report(ctx, email)
		if out.IssueErr != nil {
			logger.Error("Failed to file possible typosquat issue", "error", out.IssueErr)
		}
	}
	return out
}

// send delivers to one recipient under its own time limit, so a stalled
// relay cannot hold up the recipients after it.
func send(ctx context.Context, env *Environment, recipient string, email notify.Email) error {
	ctx, cancel := context.WithTimeout(ctx, env.sendTimeout)
	defer cancel()
	return env.mailer.Send(ctx, recipient, email)
}

// descriptionLimit bounds how much of the publisher's description is
// quoted in a notification.
const descriptionLimit = 200

// PossibleTyposquatEmail tells operators which squat checks a new package
// triggered.
type PossibleTyposquatEmail struct {
	Domain      string
	Name        string
	Description string
	Version     string
	Homepage    string
	Repository  string
	Squats      []typosquat.Squat
}

var _ notify.Email = PossibleTyposquatEmail{}

// Subject implements notify.Email.
func (PossibleTyposquatEmail) Subject() string {
	return "Possible typosquatting in new package"
}

// Body implements notify.Email.
func (e PossibleTyposquatEmail) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "New package %s may be typosquatting one or more other packages.\n\n", e.Name)
	fmt.Fprintf(&b, "Visit https://%s/packages/%s to see the offending package.\n\n", e.Domain, e.Name)
	if details := e.details(); details != "" {
		b.WriteString(details)
		b.WriteString("\n")
	}
	if desc := notify.PlainText(e.Description, descriptionLimit); desc != "" {
		fmt.Fprintf(&b, "Its description reads: %s\n\n", desc)
	}
	b.WriteString("Specific squat checks that triggered:\n\n")
	for _, s := range e.Squats {
		fmt.Fprintf(&b, "- %s (https://%s/packages/%s)\n", s, e.Domain, s.Package)
	}
	return b.String()
}

// details lists what the package claims about itself. Publisher-supplied
// links are printed as plain text and never turned into markup.
func (e PossibleTyposquatEmail) details() string {
	var b strings.Builder
	for _, f := range []struct{ label, value string }{
		{"Newest version", e.Version},
		{"Homepage", e.Homepage},
		{"Repository", e.Repository},
	} {
		if v := notify.PlainText(f.value, descriptionLimit); v != "" {
			fmt.Fprintf(&b, "%s: %s\n", f.label, v)
		}
	}
	return b.String()
}
