package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/open-service-portal/oidc-authenticator/internal/config"
	"github.com/open-service-portal/oidc-authenticator/internal/session"
	"github.com/open-service-portal/oidc-authenticator/pkg/logging"
	"github.com/open-service-portal/oidc-authenticator/pkg/oauth"
)

// fakeIdP is an identity provider with discovery and a token endpoint that
// checks the PKCE verifier against the challenge of the authorization
// request.
type fakeIdP struct {
	server *httptest.Server

	requests atomic.Int32

	mu         sync.Mutex
	challenges map[string]string // code -> code_challenge
	tokenForms []url.Values

	// tokenStatus and tokenBody override the token response when set.
	tokenStatus int
	tokenBody   string
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	idp := &fakeIdP{challenges: make(map[string]string)}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		idp.requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 idp.server.URL,
			"authorization_endpoint": idp.server.URL + "/authorize",
			"token_endpoint":         idp.server.URL + "/token",
			"jwks_uri":               idp.server.URL + "/jwks",
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		idp.requests.Add(1)
		_ = r.ParseForm()

		idp.mu.Lock()
		idp.tokenForms = append(idp.tokenForms, r.PostForm)
		challenge, known := idp.challenges[r.PostForm.Get("code")]
		status, body := idp.tokenStatus, idp.tokenBody
		idp.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if status != 0 {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, body)
			return
		}
		if !known || oauth.ChallengeFromVerifier(r.PostForm.Get("code_verifier")) != challenge {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"PKCE verification failed"}`)
			return
		}
		_, _ = io.WriteString(w, `{"access_token":"access-`+r.PostForm.Get("code")+`","id_token":"id-token","token_type":"Bearer","scope":"openid profile email"}`)
	})
	idp.server = httptest.NewServer(mux)
	t.Cleanup(idp.server.Close)
	return idp
}

// authorize plays the provider's authorization endpoint: it accepts the
// redirect produced by the server and returns the callback URL.
func (f *fakeIdP) authorize(t *testing.T, location, code string) string {
	t.Helper()
	u, err := url.Parse(location)
	require.NoError(t, err)
	require.Equal(t, f.server.URL+"/authorize", u.Scheme+"://"+u.Host+u.Path)

	q := u.Query()
	require.Equal(t, "S256", q.Get("code_challenge_method"))

	f.mu.Lock()
	f.challenges[code] = q.Get("code_challenge")
	f.mu.Unlock()

	return fmt.Sprintf("%s?code=%s&state=%s", q.Get("redirect_uri"), url.QueryEscape(code), url.QueryEscape(q.Get("state")))
}

func (f *fakeIdP) tokenRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokenForms)
}

func (f *fakeIdP) failTokens(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenStatus, f.tokenBody = status, body
}

type fakeBackend struct {
	server   *httptest.Server
	status   int
	response string

	mu      sync.Mutex
	cookies []string
	bodies  []map[string]any
}

func newFakeBackend(t *testing.T, status int, response string) *fakeBackend {
	t.Helper()
	b := &fakeBackend{status: status, response: response}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		b.mu.Lock()
		b.cookies = append(b.cookies, r.Header.Get("Cookie"))
		b.bodies = append(b.bodies, body)
		b.mu.Unlock()

		w.WriteHeader(b.status)
		_, _ = io.WriteString(w, b.response)
	}))
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.bodies)
}

// harness runs a Server on an httptest listener. The redirect URI points
// at the harness itself so callbacks can be replayed against it.
type harness struct {
	srv      *Server
	sessions *session.Manager
	http     *httptest.Server
	client   *http.Client
	outcomes chan Outcome
}

func newHarness(t *testing.T, idp *fakeIdP, mutate func(*config.Config), opts ...Option) *harness {
	t.Helper()

	h := &harness{outcomes: make(chan Outcome, 16)}
	h.http = httptest.NewUnstartedServer(nil)

	cfg := config.Default()
	cfg.ClientID = "portal-cli"
	cfg.RedirectURL = "http://" + h.http.Listener.Addr().String() + "/"
	if idp != nil {
		cfg.Issuer = idp.server.URL
	}
	if mutate != nil {
		mutate(&cfg)
	}

	var provider Provider
	if idp != nil {
		provider = oauth.NewProvider(
			oauth.NewClient(oauth.WithHTTPClient(idp.server.Client())),
			oauth.ProviderConfig{
				Issuer:      cfg.Issuer,
				ClientID:    cfg.ClientID,
				RedirectURL: cfg.RedirectURL,
				Scope:       cfg.Scope,
			})
	}

	h.sessions = session.NewManager(cfg.Session, logging.Discard())
	opts = append([]Option{WithSessionManager(h.sessions)}, opts...)
	opts = append(opts, WithOnComplete(func(o Outcome) { h.outcomes <- o }))
	srv, err := New(cfg, provider, logging.Discard(), opts...)
	require.NoError(t, err)

	h.srv = srv
	h.http.Config.Handler = srv.Handler()
	h.http.Start()
	t.Cleanup(h.http.Close)

	h.client = &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		Timeout:       10 * time.Second,
	}
	return h
}

type response struct {
	status int
	header http.Header
	body   string
}

func (h *harness) get(t *testing.T, rawURL string, header ...string) response {
	t.Helper()
	if rawURL[0] == '/' {
		rawURL = h.http.URL + rawURL
	}
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	require.NoError(t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	resp, err := h.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{status: resp.StatusCode, header: resp.Header, body: string(body)}
}

// login runs an initiation and returns the callback URL the provider
// would redirect to.
func (h *harness) login(t *testing.T, idp *fakeIdP, path, code string) string {
	t.Helper()
	resp := h.get(t, path)
	require.Equal(t, http.StatusFound, resp.status, resp.body)
	return idp.authorize(t, resp.header.Get("Location"), code)
}

func (h *harness) outcome(t *testing.T) Outcome {
	t.Helper()
	select {
	case o := <-h.outcomes:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("no outcome reported")
		return Outcome{}
	}
}

func (h *harness) noOutcome(t *testing.T) {
	t.Helper()
	select {
	case o := <-h.outcomes:
		t.Fatalf("unexpected outcome: %+v", o)
	default:
	}
}

var messagePattern = regexp.MustCompile(`(?s)<script type="application/json" id="delivery-message">(.*?)</script>`)

func deliveredMessage(t *testing.T, body string) DeliveryMessage {
	t.Helper()
	m := messagePattern.FindStringSubmatch(body)
	require.Len(t, m, 2, "no delivery message in page:\n%s", body)

	var msg DeliveryMessage
	require.NoError(t, json.Unmarshal([]byte(m[1]), &msg), m[1])
	return msg
}

func serve(srv *Server, path string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func serveMethod(srv *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func mustQuery(t *testing.T, rawURL string) url.Values {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u.Query()
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}
