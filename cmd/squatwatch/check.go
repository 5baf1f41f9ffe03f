package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/squatwatch/internal/errmsg"
	"github.com/tsukumogami/squatwatch/internal/jobs"
	"github.com/tsukumogami/squatwatch/internal/notify"
)

var (
	checkJSON     bool
	checkNoNotify bool
)

var checkCmd = &cobra.Command{
	Use:   "check <package>",
	Short: "Check a published package for typosquatting now",
	Long: `Run the typosquat check for a package that is already in the store,
without going through the job queue. Recipients are notified exactly as the
worker would notify them unless --no-notify is given.

Exits with status 3 when potential typosquatting is found.`,
	Example: `  squatwatch check serd
  squatwatch check --no-notify --json my-package`,
	Args: exactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Print the result as JSON")
	checkCmd.Flags().BoolVar(&checkNoNotify, "no-notify", false, "Report findings without sending notifications")
	rootCmd.AddCommand(checkCmd)
}

type checkResult struct {
	Name       string           `json:"name"`
	Version    string           `json:"newest_version,omitempty"`
	Homepage   string           `json:"homepage,omitempty"`
	Repository string           `json:"repository,omitempty"`
	Checked    bool             `json:"checked"`
	Squats     []squatJSON      `json:"squats"`
	Deliveries []deliveryResult `json:"deliveries,omitempty"`
	IssueURL   string           `json:"issue_url,omitempty"`
	IssueError string           `json:"issue_error,omitempty"`
}

type squatJSON struct {
	Package string `json:"package"`
	Check   string `json:"check"`
	Detail  string `json:"detail"`
}

type deliveryResult struct {
	Recipient string `json:"recipient"`
	Error     string `json:"error,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	name := args[0]
	errorContext = &errmsg.ErrorContext{Package: name}

	var mailer notify.Mailer
	if checkNoNotify {
		mailer = notify.NewMemoryMailer()
	}
	a, err := openApp(ctx, cfg, mailer, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := jobs.NewCheckTyposquat(name).Execute(ctx, a.env)
	if err != nil {
		return err
	}

	res := checkResult{Name: name, Checked: out.Checked, Squats: []squatJSON{}, IssueURL: out.IssueURL}
	if c := out.Candidate; c != nil {
		res.Version, res.Homepage, res.Repository = c.NewestVersion, c.Homepage, c.Repository
	}
	for _, s := range out.Squats {
		res.Squats = append(res.Squats, squatJSON{Package: s.Package, Check: s.Check, Detail: s.Detail})
	}
	if !checkNoNotify {
		for _, d := range out.Deliveries {
			dr := deliveryResult{Recipient: d.Recipient}
			if d.Err != nil {
				dr.Error = d.Err.Error()
			}
			res.Deliveries = append(res.Deliveries, dr)
		}
	}
	if out.IssueErr != nil {
		res.IssueError = out.IssueErr.Error()
	}

	if checkJSON {
		if err := printJSON(res); err != nil {
			return err
		}
	} else {
		printCheck(res, out)
	}
	if len(out.Squats) > 0 {
		return errSquatsFound
	}
	return nil
}

func printCheck(res checkResult, out jobs.Outcome) {
	if !res.Checked {
		printInfo("No popular packages in the store to compare against. Run `squatwatch seed` first.")
		return
	}
	if len(out.Squats) == 0 {
		okColor.Fprintf(stdout, "%s: no potential typosquatting found\n", res.Name)
		return
	}

	warnColor.Fprintf(stdout, "%s may be typosquatting %d package(s):\n", res.Name, len(out.Squats))
	if res.Version != "" {
		printInfof("  newest version %s\n", res.Version)
	}
	for _, s := range out.Squats {
		fmt.Fprintf(stdout, "  - %s\n", s)
	}
	for _, d := range res.Deliveries {
		if d.Error != "" {
			errorColor.Fprintf(stdout, "  failed to notify %s: %s\n", d.Recipient, d.Error)
		} else {
			printInfof("  notified %s\n", d.Recipient)
		}
	}
	if res.IssueURL != "" {
		printInfof("  filed %s\n", res.IssueURL)
	}
	if res.IssueError != "" {
		errorColor.Fprintf(stdout, "  failed to file issue: %s\n", res.IssueError)
	}
}
