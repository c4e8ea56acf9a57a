package executor

import "strings"

// authErrorPatterns are stderr signatures of AWS credential and permission
// failures. They cover missing credentials, expired or invalid tokens,
// access denial, and unknown profiles.
var authErrorPatterns = []string{
	"Unable to locate credentials",
	"ExpiredToken",
	"InvalidClientTokenId",
	"AccessDenied",
	"AccessDeniedException",
	"AuthFailure",
	"The security token included in the request is invalid",
	"The security token included in the request is expired",
	"The config profile could not be found",
	"could not be found in configured profiles",
}

// authErrorHint is appended to classified authentication failures so the
// client gets remediation guidance without consulting server logs.
const authErrorHint = "Please check your AWS credentials. " +
	"Run 'aws configure' to set them up, or verify the AWS_PROFILE environment variable."

// isAuthError reports whether stderr matches a known authentication-failure
// signature.
func isAuthError(stderr string) bool {
	for _, pattern := range authErrorPatterns {
		if strings.Contains(stderr, pattern) {
			return true
		}
	}
	return false
}

// classifyError turns a failing command's stderr into the diagnostic the
// client sees. Authentication failures get an explicit marker and a
// remediation hint; anything else is returned verbatim.
func classifyError(stderr string) string {
	if stderr == "" {
		return "Command failed with no error output"
	}
	if isAuthError(stderr) {
		return "Authentication error: " + stderr + "\n" + authErrorHint
	}
	return stderr
}
