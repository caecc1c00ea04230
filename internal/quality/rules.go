package quality

import (
	"strings"

	"github.com/codescope-io/codescope/pkg/models"
)

type finding struct {
	message    string
	suggestion string
	severity   string // empty inherits the check item's severity
}

type lineRule func(line string) (finding, bool)

// rulesByKey maps catalog item keys to their line rules. Keys not present
// here belong to external checkers.
var rulesByKey = map[string]lineRule{
	"security_hardcoded_secrets": checkHardcodedSecret,
	"security_sql_injection":     checkSQLConcat,
	"security_command_exec":      checkCommandExec,
	"security_weak_crypto":       checkWeakCrypto,

	"reliability_swallowed_errors": checkSwallowedError,
	"reliability_blocking_sleep":   checkBlockingSleep,

	"maintainability_long_lines": checkLongLine,
	"maintainability_todo":       checkTodoMarker,

	"smell_console_output": checkConsoleOutput,
}

func isComment(line string) bool {
	return strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "*")
}

func checkHardcodedSecret(line string) (finding, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(line))
	if isComment(trimmed) {
		return finding{}, false
	}
	for _, marker := range []string{"password", "secret", "api_key", "apikey", "token"} {
		if strings.Contains(trimmed, marker) &&
			(strings.Contains(trimmed, "=") || strings.Contains(trimmed, ":")) &&
			strings.Contains(trimmed, `"`) {
			return finding{
				message:    "Possible hardcoded credential; move it to configuration or a secret manager",
				suggestion: "Load secrets from the environment or a vault at startup",
			}, true
		}
	}
	return finding{}, false
}

func checkSQLConcat(line string) (finding, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(line))
	if isComment(trimmed) {
		return finding{}, false
	}
	if (strings.Contains(trimmed, "select ") || strings.Contains(trimmed, "sql")) &&
		strings.Contains(trimmed, "+") {
		return finding{
			message:    "SQL statement assembled by string concatenation",
			suggestion: "Use parameterized queries",
		}, true
	}
	return finding{}, false
}

func checkCommandExec(line string) (finding, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(line))
	if isComment(trimmed) {
		return finding{}, false
	}
	for _, marker := range []string{"exec(", "eval(", "runtime.exec", "os/exec"} {
		if strings.Contains(trimmed, marker) {
			return finding{
				message:    "Dynamic command execution; verify the input is trusted",
				suggestion: "Validate and allow-list every argument passed to the shell",
			}, true
		}
	}
	return finding{}, false
}

func checkWeakCrypto(line string) (finding, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(line))
	if isComment(trimmed) {
		return finding{}, false
	}
	for _, marker := range []string{"md5", "sha1", "crypto/des", "\"des\""} {
		if strings.Contains(trimmed, marker) {
			return finding{
				message:    "Weak cryptographic primitive",
				suggestion: "Prefer SHA-256 or stronger, AES for symmetric encryption",
			}, true
		}
	}
	return finding{}, false
}

func checkSwallowedError(line string) (finding, bool) {
	trimmed := strings.TrimSpace(line)
	if isComment(trimmed) {
		return finding{}, false
	}
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(trimmed, "_ = ") && strings.Contains(lower, "err") {
		return finding{
			message:    "Error assigned to blank identifier",
			suggestion: "Handle or log the error instead of discarding it",
		}, true
	}
	if strings.Contains(lower, "catch") && strings.Contains(lower, "exception") &&
		strings.HasSuffix(trimmed, "{}") {
		return finding{
			message:    "Empty catch block swallows the exception",
			suggestion: "Handle or log the exception",
		}, true
	}
	return finding{}, false
}

func checkBlockingSleep(line string) (finding, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(line))
	if isComment(trimmed) {
		return finding{}, false
	}
	for _, marker := range []string{"thread.sleep", "time.sleep(", "time.sleep "} {
		if strings.Contains(trimmed, marker) {
			return finding{
				message:    "Blocking sleep call",
				suggestion: "Prefer timers, tickers or context deadlines",
			}, true
		}
	}
	return finding{}, false
}

func checkLongLine(line string) (finding, bool) {
	if len(strings.TrimRight(line, "\r\n")) > 120 {
		return finding{
			message:    "Line exceeds 120 characters",
			suggestion: "Break the line up for readability",
		}, true
	}
	return finding{}, false
}

func checkTodoMarker(line string) (finding, bool) {
	lower := strings.ToLower(line)
	for _, marker := range []string{"todo", "fixme", "hack"} {
		if strings.Contains(lower, marker) {
			return finding{
				message:  "Leftover TODO/FIXME marker",
				severity: models.SeverityInfo,
			}, true
		}
	}
	return finding{}, false
}

func checkConsoleOutput(line string) (finding, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(line))
	if isComment(trimmed) {
		return finding{}, false
	}
	for _, marker := range []string{"system.out.print", "console.log", "fmt.println("} {
		if strings.Contains(trimmed, marker) {
			return finding{
				message:    "Raw console output in production code",
				suggestion: "Use the structured logger",
			}, true
		}
	}
	return finding{}, false
}
