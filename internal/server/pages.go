package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/Masterminds/sprig/v3"

	"github.com/open-service-portal/oidc-authenticator/pkg/oauth"
	pkgstrings "github.com/open-service-portal/oidc-authenticator/pkg/strings"
)

//go:embed templates/*.html
var templateFS embed.FS

// closeDelay is how long the success page stays open after posting.
const closeDelay = 1500 * time.Millisecond

// maxDescriptionLen caps error descriptions in runes.
const maxDescriptionLen = 500

type deliveryPage struct {
	Nonce            string
	TargetOrigin     string
	Target           string
	Message          DeliveryMessage
	CloseDelayMillis int64
}

type errorPage struct {
	Title       string
	Code        string
	Description string
	Hint        string
	Retry       bool
}

type pages struct {
	tmpl         *template.Template
	targetOrigin string
}

func newPages(targetOrigin string) (*pages, error) {
	tmpl, err := template.New("pages").
		Funcs(sprig.HtmlFuncMap()).
		ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}
	return &pages{tmpl: tmpl, targetOrigin: targetOrigin}, nil
}

func (p *pages) delivery(w http.ResponseWriter, msg DeliveryMessage) {
	nonce, err := oauth.GenerateNonce()
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	target := p.targetOrigin
	if target == "*" {
		target = ""
	}

	p.render(w, http.StatusOK, nonce, "delivery.html", deliveryPage{
		Nonce:            nonce,
		TargetOrigin:     p.targetOrigin,
		Target:           target,
		Message:          msg,
		CloseDelayMillis: closeDelay.Milliseconds(),
	})
}

func (p *pages) fail(w http.ResponseWriter, status int, page errorPage) {
	page.Description = pkgstrings.TruncateValue(page.Description, maxDescriptionLen)
	p.render(w, status, "", "error.html", page)
}

// render executes into a buffer first so that a template failure still
// produces a clean 500 instead of a half-written page.
func (p *pages) render(w http.ResponseWriter, status int, nonce, name string, data any) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	setSecurityHeaders(w.Header(), nonce)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func setSecurityHeaders(h http.Header, nonce string) {
	scriptSrc := "'none'"
	if nonce != "" {
		scriptSrc = fmt.Sprintf("'nonce-%s'", nonce)
	}

	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Referrer-Policy", "no-referrer")
	h.Set("Cache-Control", "no-store")
	h.Set("Content-Security-Policy", fmt.Sprintf(
		"default-src 'none'; script-src %s; style-src 'unsafe-inline'; base-uri 'none'; form-action 'none'; frame-ancestors 'none'",
		scriptSrc))
}
