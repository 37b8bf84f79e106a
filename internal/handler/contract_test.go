package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"

	"github.com/skillswap/skillswap/internal/testutil"
)

// loadAPIDocument loads docs/api/openapi.yaml and builds a route finder for it.
func loadAPIDocument(t *testing.T) (*openapi3.T, routers.Router) {
	t.Helper()

	root, err := testutil.ProjectRoot()
	if err != nil {
		t.Fatalf("project root: %v", err)
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(filepath.Join(root, "docs", "api", "openapi.yaml"))
	if err != nil {
		t.Fatalf("load openapi document: %v", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		t.Fatalf("openapi document is invalid: %v", err)
	}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		t.Fatalf("build openapi router: %v", err)
	}
	return doc, router
}

func TestContract_DocumentValid(t *testing.T) {
	doc, _ := loadAPIDocument(t)

	for _, path := range []string{"/", "/healthz", "/readyz", "/metrics", "/api/v1/auth/login-link", "/api/v1/auth/session", "/api/v1/auth/me", "/api/v1/profiles", "/api/v1/matches"} {
		if doc.Paths.Find(path) == nil {
			t.Errorf("path %s is not documented", path)
		}
	}
}

// TestContract_Responses drives the real router through every documented
// route and checks each response against the document.
func TestContract_Responses(t *testing.T) {
	_, router := loadAPIDocument(t)
	env := newTestEnv(t, envOptions{})
	ana := env.session(t, "ana@x.com")

	steps := []struct {
		name string
		// setup runs before the request is sent.
		setup  func(env *testEnv)
		method string
		path   string
		body   any
		token  string
		// invalid marks requests the document itself rejects; only the
		// response is checked for those.
		invalid    bool
		wantStatus int
	}{
		{name: "info", method: http.MethodGet, path: "/", wantStatus: http.StatusOK},
		{name: "healthz", method: http.MethodGet, path: "/healthz", wantStatus: http.StatusOK},
		{name: "readyz", method: http.MethodGet, path: "/readyz", wantStatus: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK},

		{name: "register", method: http.MethodPost, path: "/api/v1/profiles", body: profileBody("b@x.com", "Guitar", "Spanish"), wantStatus: http.StatusCreated},
		{name: "register invalid", method: http.MethodPost, path: "/api/v1/profiles", body: profileBody("b@x.com", "", "Spanish"), invalid: true, wantStatus: http.StatusBadRequest},
		{name: "register as someone else", method: http.MethodPost, path: "/api/v1/profiles", body: profileBody("bob@x.com", "Chess", "Go"), token: ana, wantStatus: http.StatusForbidden},
		{name: "list anonymous", method: http.MethodGet, path: "/api/v1/profiles", wantStatus: http.StatusUnauthorized},
		{name: "list", method: http.MethodGet, path: "/api/v1/profiles", token: ana, wantStatus: http.StatusOK},

		{name: "match", method: http.MethodPost, path: "/api/v1/matches", body: profileBody("", "Spanish", "Guitar"), token: ana, wantStatus: http.StatusOK},
		{name: "match invalid", method: http.MethodPost, path: "/api/v1/matches", body: profileBody("ana@x.com", "Spanish", ""), invalid: true, wantStatus: http.StatusBadRequest},
		{
			name:       "match store down",
			setup:      func(env *testEnv) { env.store.failList = errors.New("pool closed") },
			method:     http.MethodPost,
			path:       "/api/v1/matches",
			body:       profileBody("c@x.com", "Spanish", "Guitar"),
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name: "match delivery failed",
			setup: func(env *testEnv) {
				env.store.failList = nil
				env.mailer.matchErr = errors.New("relay refused")
			},
			method:     http.MethodPost,
			path:       "/api/v1/matches",
			body:       profileBody("d@x.com", "Spanish", "Guitar"),
			wantStatus: http.StatusBadGateway,
		},

		{name: "login link", method: http.MethodPost, path: "/api/v1/auth/login-link", body: map[string]string{"email": "ana@x.com"}, wantStatus: http.StatusAccepted},
		{name: "session rejected", method: http.MethodPost, path: "/api/v1/auth/session", body: map[string]string{"token": "ml_000000000000_00000000000000000000000000000000"}, wantStatus: http.StatusUnauthorized},
		{name: "me", method: http.MethodGet, path: "/api/v1/auth/me", token: ana, wantStatus: http.StatusOK},
		{name: "me anonymous", method: http.MethodGet, path: "/api/v1/auth/me", wantStatus: http.StatusUnauthorized},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			if step.setup != nil {
				step.setup(env)
			}

			req := newRequest(t, step.method, step.path, step.body, step.token)
			route, pathParams, err := router.FindRoute(req)
			if err != nil {
				t.Fatalf("route not documented: %v", err)
			}

			reqInput := &openapi3filter.RequestValidationInput{
				Request:    req,
				PathParams: pathParams,
				Route:      route,
				Options: &openapi3filter.Options{
					AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
				},
			}
			if !step.invalid {
				if err := openapi3filter.ValidateRequest(context.Background(), reqInput); err != nil {
					t.Fatalf("request does not match the document: %v", err)
				}
			}

			rec := env.do(t, step.method, step.path, step.body, step.token)
			if rec.Code != step.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, step.wantStatus, rec.Body.String())
			}

			respInput := &openapi3filter.ResponseValidationInput{
				RequestValidationInput: reqInput,
				Status:                 rec.Code,
				Header:                 rec.Header(),
				Body:                   io.NopCloser(bytes.NewReader(rec.Body.Bytes())),
				Options: &openapi3filter.Options{
					IncludeResponseStatus: true,
				},
			}
			if err := openapi3filter.ValidateResponse(context.Background(), respInput); err != nil {
				t.Errorf("response does not match the document: %v\nbody: %s", err, rec.Body.String())
			}
		})
	}
}
