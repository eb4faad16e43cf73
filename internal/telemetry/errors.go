package telemetry

import (
	"log"
	"net/http"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"

	"github.com/storacha/grantlink/pkg/build"
)

// HTTPError is an error that also has an associated HTTP status code and a
// body that is safe to show to callers.
type HTTPError struct {
	err        error
	statusCode int
	body       string
}

// Error implements the error interface
func (he HTTPError) Error() string {
	return he.err.Error()
}

func (he HTTPError) Unwrap() error {
	return he.err
}

// StatusCode returns the HTTP status code associated with the error
func (he HTTPError) StatusCode() int {
	return he.statusCode
}

// Body returns the response body sent for the error.
func (he HTTPError) Body() string {
	return he.body
}

// NewHTTPError creates a new HTTPError
func NewHTTPError(err error, statusCode int, body string) HTTPError {
	return HTTPError{err: err, statusCode: statusCode, body: body}
}

// ErrorReturningHTTPHandler is a HTTP handler function that returns an error
type ErrorReturningHTTPHandler func(http.ResponseWriter, *http.Request) error

// SetupErrorReporting configures the Sentry SDK for error reporting. Nothing
// is reported when dsn is empty.
func SetupErrorReporting(dsn string, environment string) {
	if dsn == "" {
		return
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     build.Version,
		Transport:   sentry.NewHTTPSyncTransport(),
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
}

// NewErrorReportingHandler wraps an ErrorReturningHTTPHandler with error
// reporting. Only server errors are reported.
func NewErrorReportingHandler(errorReturningHandler ErrorReturningHTTPHandler) http.Handler {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := errorReturningHandler(w, r); err != nil {
			e, ok := err.(HTTPError)
			if !ok {
				ReportError(err)
				writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
				return
			}
			if e.StatusCode() >= http.StatusInternalServerError {
				ReportError(err)
			}
			writeError(w, e.StatusCode(), e.Body())
		}
	})

	sentryHandler := sentryhttp.New(sentryhttp.Options{})
	return sentryHandler.Handle(handler)
}

// writeError sends body verbatim, unlike http.Error which appends a newline.
func writeError(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	w.Write([]byte(body))
}

// ReportError reports an error to Sentry
func ReportError(err error) {
	sentry.CaptureException(err)
}
