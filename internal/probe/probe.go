// Package probe performs live connectivity checks against external providers.
// Probes interpret only success/failure plus a human-readable message; the
// providers themselves are opaque collaborators.
package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/smtp"
	"net/url"
	"strings"
	"time"
)

// Result is the outcome of a probe.
type Result struct {
	Success bool
	Message string
}

func ok(message string) Result {
	return Result{Success: true, Message: message}
}

func fail(format string, args ...any) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

// Timeout bounds every probe so a hanging provider cannot stall a save.
const Timeout = 10 * time.Second

var httpClient = &http.Client{Timeout: Timeout}

// Endpoint issues a GET with the given headers and treats any 2xx status as
// reachable. Used for API-key based gateway health checks.
func Endpoint(ctx context.Context, rawURL string, headers map[string]string) Result {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fail("invalid endpoint URL: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fail("endpoint unreachable: %v", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail("endpoint returned status %d", resp.StatusCode)
	}
	return ok("endpoint reachable")
}

// OAuthToken requests a client-credentials token and reports whether the
// provider accepted the supplied credentials.
func OAuthToken(ctx context.Context, tokenURL, clientID, clientSecret string) Result {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fail("invalid token URL: %v", err)
	}
	req.SetBasicAuth(clientID, clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fail("token endpoint unreachable: %v", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fail("credentials rejected (status %d)", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fail("token endpoint returned status %d", resp.StatusCode)
	}
	return ok("credentials accepted")
}

// SMTP dials the mail server, negotiates STARTTLS when requested and
// authenticates when credentials are supplied.
func SMTP(ctx context.Context, host string, port int, username, password string, useTLS bool) Result {
	addr := net.JoinHostPort(host, fmt.Sprint(port))

	dialer := &net.Dialer{Timeout: Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fail("SMTP server unreachable: %v", err)
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return fail("SMTP handshake failed: %v", err)
	}
	defer client.Close()

	if useTLS {
		if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return fail("STARTTLS failed: %v", err)
		}
	}
	if username != "" {
		auth := smtp.PlainAuth("", username, password, host)
		if err := client.Auth(auth); err != nil {
			return fail("SMTP authentication failed: %v", err)
		}
	}
	if err := client.Noop(); err != nil {
		return fail("SMTP verify failed: %v", err)
	}
	return ok("SMTP connection verified")
}
