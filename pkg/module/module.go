// Package module mounts self-contained HTTP surfaces under single-level path
// prefixes, each with its own middleware stack.
package module

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"verdict/pkg/middleware"
)

// Module is an HTTP handler that strips its prefix and delegates to an inner
// router with its own middleware stack.
type Module struct {
	prefix string
	inner  http.Handler
	stack  middleware.System
}

// New creates a Module mounted at prefix (e.g. "/api"). The prefix must be a
// single-level path with a leading slash; anything else panics, since a bad
// mount point is a wiring bug rather than a runtime condition.
func New(prefix string, inner http.Handler) *Module {
	if err := checkPrefix(prefix); err != nil {
		panic(err)
	}
	return &Module{
		prefix: prefix,
		inner:  inner,
		stack:  middleware.New(),
	}
}

// Handler returns the inner router wrapped in the module's middleware stack.
func (m *Module) Handler() http.Handler {
	return m.stack.Apply(m.inner)
}

// Prefix returns the mount point.
func (m *Module) Prefix() string {
	return m.prefix
}

// Use appends middleware to the module's stack.
func (m *Module) Use(mw func(http.Handler) http.Handler) {
	m.stack.Use(mw)
}

// Serve rebases the request path below the module prefix and dispatches to
// the inner router.
func (m *Module) Serve(w http.ResponseWriter, req *http.Request) {
	m.Handler().ServeHTTP(w, rebase(req, m.prefix))
}

// rebase shallow-copies the request with the module prefix removed from its
// URL path. The copy keeps inner mux patterns relative while the original
// request stays intact for any outer handler.
func rebase(req *http.Request, prefix string) *http.Request {
	rebased := new(http.Request)
	*rebased = *req
	rebased.URL = new(url.URL)
	*rebased.URL = *req.URL

	path := req.URL.Path[len(prefix):]
	if path == "" {
		path = "/"
	}
	rebased.URL.Path = path
	rebased.URL.RawPath = ""
	return rebased
}

func checkPrefix(prefix string) error {
	switch {
	case prefix == "":
		return fmt.Errorf("module prefix cannot be empty")
	case !strings.HasPrefix(prefix, "/"):
		return fmt.Errorf("module prefix must start with /: %q", prefix)
	case strings.Count(prefix, "/") != 1:
		return fmt.Errorf("module prefix must be a single-level sub-path: %q", prefix)
	}
	return nil
}
