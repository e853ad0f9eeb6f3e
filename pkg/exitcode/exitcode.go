// Package exitcode provides standardized exit codes for promptlib
package exitcode

// Exit codes for the promptlib CLI. Installs are best-effort: per-file
// failures are reported in the log and still exit with Success.
const (
	Success         = 0
	GeneralError    = 1
	UsageError      = 1
	ConfigError     = 2
	FileSystemError = 4
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General or usage error"
	case ConfigError:
		return "Configuration error"
	case FileSystemError:
		return "File system error"
	default:
		return "Unknown error"
	}
}
