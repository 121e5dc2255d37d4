// Package output provides JSON and styled output formatting and error handling.
package output

// Exit codes.
const (
	ExitOK         = 0  // Success
	ExitUsage      = 1  // Invalid arguments or flags
	ExitNotFound   = 2  // Resource not found
	ExitAuth       = 3  // Not authenticated or session expired
	ExitForbidden  = 4  // Access denied
	ExitRateLimit  = 5  // Rate limited (429)
	ExitNetwork    = 6  // Connection/DNS/timeout error
	ExitAPI        = 7  // Server returned error
	ExitValidation = 8  // Input failed client-side validation
	ExitRejected   = 9  // Server refused the operation (success:false)
	ExitBusy       = 10 // Same operation already in flight
)

// Error codes for JSON envelope.
const (
	CodeUsage          = "usage"
	CodeValidation     = "validation"
	CodeNotFound       = "not_found"
	CodeAuth           = "auth_required"
	CodeSessionExpired = "session_expired"
	CodeForbidden      = "forbidden"
	CodeRateLimit      = "rate_limit"
	CodeNetwork        = "network"
	CodeAPI            = "api_error"
	CodeRejected       = "rejected"
	CodeBusy           = "busy"
	CodeAmbiguous      = "ambiguous"
)

// ExitCodeFor returns the exit code for a given error code.
func ExitCodeFor(code string) int {
	switch code {
	case CodeUsage, CodeAmbiguous:
		return ExitUsage
	case CodeValidation:
		return ExitValidation
	case CodeNotFound:
		return ExitNotFound
	case CodeAuth, CodeSessionExpired:
		return ExitAuth
	case CodeForbidden:
		return ExitForbidden
	case CodeRateLimit:
		return ExitRateLimit
	case CodeNetwork:
		return ExitNetwork
	case CodeRejected:
		return ExitRejected
	case CodeBusy:
		return ExitBusy
	default:
		return ExitAPI
	}
}
