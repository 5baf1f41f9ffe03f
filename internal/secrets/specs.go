package secrets

// KeySpec defines how to resolve a specific secret.
type KeySpec struct {
	// EnvVars lists environment variables to check, in priority order.
	EnvVars []string

	// Desc is a human-readable description for error messages and CLI display.
	Desc string
}

// knownKeys maps secret names to their resolution specs.
var knownKeys = map[string]KeySpec{
	GitHubToken: {
		EnvVars: []string{"GITHUB_TOKEN", "GH_TOKEN"},
		Desc:    "GitHub token used to file triage issues",
	},
	SMTPPassword: {
		EnvVars: []string{"SQUATWATCH_SMTP_PASSWORD"},
		Desc:    "Password for the SMTP relay",
	},
	SigningPassphrase: {
		EnvVars: []string{"SQUATWATCH_SIGNING_PASSPHRASE"},
		Desc:    "Passphrase of the PGP key that signs notifications",
	},
}

// Secret names.
const (
	GitHubToken       = "github_token"
	SMTPPassword      = "smtp_password"
	SigningPassphrase = "signing_passphrase"
)
