package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/finder/errors"
)

// ErrorHandler turns errors into user-facing messages.
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to stderr.
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     os.Stderr,
	}
}

// Handle prints a message for err and returns it unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	t := DefaultTheme
	fail := func(format string, args ...interface{}) {
		fmt.Fprintf(h.Out, "%s %s\n", t.Error.Render("✗"), fmt.Sprintf(format, args...))
	}
	hint := func(format string, args ...interface{}) {
		fmt.Fprintln(h.Out, t.Muted.Render(fmt.Sprintf(format, args...)))
	}

	groveErr, _ := errors.As(err)
	detail := func(key string) interface{} {
		if groveErr == nil {
			return nil
		}
		return groveErr.Details[key]
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeIndexOutOfRange:
		fail("No scenario at index %v (there are %v)", detail("index"), detail("length"))
		hint("Run 'finder scenarios list' to see the indices.")

	case errors.ErrCodePathNotFound:
		fail("Path does not exist: %v", detail("path"))

	case errors.ErrCodeSearchTimeout:
		fail("Search operation timed out after %v", detail("timeout"))
		hint("Narrow the scenario (level: top, an extension filter) or raise search.timeout in finder.yml.")

	case errors.ErrCodeSearchCancelled:
		fail("Search cancelled")

	case errors.ErrCodeScenarioFileInvalid:
		fail("%s", groveErr.Message)
		hint("Run 'finder scenarios schema' to see the expected format.")

	case errors.ErrCodeConfigNotFound:
		fail("Configuration not found: %v", detail("path"))

	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fail("Invalid configuration: %v", err)

	case errors.ErrCodeInvalidInput:
		if groveErr != nil {
			fail("%s", groveErr.Message)
		} else {
			fail("%v", err)
		}

	case errors.ErrCodeDaemonUnavailable:
		fail("The finder daemon is not reachable")
		hint("Start it with 'finder daemon start'.")

	default:
		fail("Error: %v", err)
	}

	if h.Verbose && groveErr != nil {
		fmt.Fprintf(h.Out, "\nError details:\n%s\n", groveErr.ToJSON())
	}
	return err
}
