package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	logging "github.com/ipfs/go-log/v2"

	"github.com/storacha/grantlink/internal/telemetry"
	"github.com/storacha/grantlink/pkg/build"
	"github.com/storacha/grantlink/pkg/grant"
	"github.com/storacha/grantlink/pkg/presigner"
	"github.com/storacha/grantlink/pkg/service/links"
)

var log = logging.Logger("server")

// ItemPath is the route prefix under which object keys are requested.
const ItemPath = "/item/"

// LinkService issues download links.
type LinkService interface {
	GetLink(ctx context.Context, req grant.AccessRequest) (presigner.SignedLink, error)
}

type config struct {
	service LinkService
}

type Option func(*config)

// WithService configures the link service the server should use.
func WithService(service LinkService) Option {
	return func(c *config) {
		c.service = service
	}
}

// ListenAndServe creates a new link HTTP server, and starts it up.
func ListenAndServe(addr string, opts ...Option) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: NewServer(opts...),
	}
	log.Infof("Listening on %s", addr)
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// NewServer creates a new link server.
func NewServer(opts ...Option) *http.ServeMux {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	if c.service == nil {
		panic("server: link service is required")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", getRootHandler())
	mux.Handle("GET "+ItemPath+"{item...}", telemetry.NewErrorReportingHandler(getItemHandler(c.service)))
	return mux
}

// getRootHandler displays version info when a GET request is sent to "/".
func getRootHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(fmt.Sprintf("grantlink %s\n", build.Version)))
	}
}

// getItemHandler issues a download link for the object key that follows
// ItemPath. The key is taken from the escaped path so that it is decoded
// exactly once.
func getItemHandler(service LinkService) telemetry.ErrorReturningHTTPHandler {
	return func(w http.ResponseWriter, r *http.Request) error {
		rawKey := strings.TrimPrefix(r.URL.EscapedPath(), ItemPath)
		query := r.URL.Query()

		req, err := grant.ParseRequest(rawKey, query.Get("alias"), query.Get("hash"))
		if err == nil {
			var link presigner.SignedLink
			link, err = service.GetLink(r.Context(), req)
			if err == nil {
				return writeLink(w, link)
			}
		}

		outcome := links.OutcomeOf(err)
		return telemetry.NewHTTPError(err, outcome.StatusCode(), outcome.Body())
	}
}

// writeLink sends the link as a JSON string. HTML escaping is disabled so the
// query string separators are left intact.
func writeLink(w http.ResponseWriter, link presigner.SignedLink) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(link.URL.String()); err != nil {
		return fmt.Errorf("encoding link: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	if err != nil {
		log.Warnf("sending link: %s", err)
	}
	return nil
}
