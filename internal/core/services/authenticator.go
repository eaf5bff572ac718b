package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/riverstone-dns/zonectl/internal/core/domain"
	"github.com/riverstone-dns/zonectl/internal/core/ports"
	"github.com/riverstone-dns/zonectl/internal/metrics"
	"github.com/riverstone-dns/zonectl/internal/sigv4"
)

// IncomingRequest is the request descriptor Authenticator.Authenticate
// needs: enough of the HTTP request line and headers to reconstruct the
// SigV4 canonical request, plus the body materialized as a byte-exact
// string. Callers read a streaming body into Body before calling in.
type IncomingRequest struct {
	Method  string
	URI     string
	Query   url.Values
	Headers http.Header
	Body    string
}

// Authenticator validates an IncomingRequest's AWS4-HMAC-SHA256
// signature against the secret of the principal named by its
// Credential access key.
type Authenticator struct {
	principals         ports.AuthPrincipalProvider
	crypto             domain.CryptoAlgebra
	encryptUserSecrets bool
	logger             *slog.Logger
}

// NewAuthenticator wires an Authenticator. encryptUserSecrets controls
// whether a resolved principal's SecretKey is run through crypto before
// use; when false the secret is used exactly as the provider returned
// it.
func NewAuthenticator(
	principals ports.AuthPrincipalProvider,
	crypto domain.CryptoAlgebra,
	encryptUserSecrets bool,
	logger *slog.Logger,
) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		principals:         principals,
		crypto:             crypto,
		encryptUserSecrets: encryptUserSecrets,
		logger:             logger,
	}
}

// Authenticate runs the full header-extraction, principal-lookup, and
// signature-verification pipeline and returns the resulting outcome.
//
// Only the two expected failure variants (CredentialsMissing,
// CredentialsRejected) are returned as outcomes. A non-nil error means
// an unexpected fault — principal-provider I/O, a crypto error — that
// the caller should turn into a 5xx, never a 401.
//
// Never logs the Authorization header's signature, the decrypted
// secret, or the request body.
func (a *Authenticator) Authenticate(ctx context.Context, req IncomingRequest) (domain.AuthenticationOutcome, error) {
	start := time.Now()
	outcome, err := a.authenticate(ctx, req)
	metrics.AuthDuration.Observe(time.Since(start).Seconds())
	if err == nil {
		metrics.AuthOutcomesTotal.WithLabelValues(outcomeKindLabel(outcome.Kind())).Inc()
	}
	return outcome, err
}

func outcomeKindLabel(kind domain.OutcomeKind) string {
	switch kind {
	case domain.Authenticated:
		return "authenticated"
	case domain.CredentialsMissing:
		return "credentials_missing"
	case domain.CredentialsRejected:
		return "credentials_rejected"
	default:
		return "unknown"
	}
}

func (a *Authenticator) authenticate(ctx context.Context, req IncomingRequest) (domain.AuthenticationOutcome, error) {
	header := req.Headers.Get("Authorization")
	if header == "" {
		return domain.NewCredentialsMissing("Authorization header not found"), nil
	}

	cred, err := sigv4.ParseAuthorizationHeader(header)
	if err != nil {
		if err == sigv4.ErrMissingAuthenticationToken {
			return domain.NewCredentialsMissing("Authorization header not found"), nil
		}
		return domain.NewCredentialsRejected("Authorization header could not be parsed"), nil
	}

	principal, err := a.principals.GetAuthPrincipal(ctx, cred.AccessKey)
	if err != nil {
		return domain.AuthenticationOutcome{}, fmt.Errorf("looking up principal for access key %s: %w", cred.AccessKey, err)
	}
	if principal == nil {
		return domain.NewCredentialsRejected(fmt.Sprintf("Account with accessKey %s specified was not found", cred.AccessKey)), nil
	}

	secret := principal.SecretKey
	if a.encryptUserSecrets {
		secret, err = a.crypto.Decrypt(secret)
		if err != nil {
			return domain.AuthenticationOutcome{}, fmt.Errorf("decrypting secret for access key %s: %w", cred.AccessKey, err)
		}
	}

	sigv4Req := sigv4.Request{
		Method:  req.Method,
		URI:     req.URI,
		Query:   req.Query,
		Headers: req.Headers,
		Body:    req.Body,
	}
	canonical, err := sigv4.CanonicalRequest(sigv4Req, cred.SignedHeaders)
	if err != nil {
		a.logger.Debug("signed header absent from request", "accessKey", cred.AccessKey)
		return domain.NewCredentialsRejected("Request signature could not be validated"), nil
	}

	amzDate := req.Headers.Get("X-Amz-Date")
	sts := sigv4.StringToSign(amzDate, cred.Scope(), canonical)
	signingKey := sigv4.SigningKey(secret, cred.Date, cred.Region, cred.Service)
	candidate := sigv4.Sign(signingKey, sts)

	if !sigv4.SignaturesEqual(candidate, cred.Signature) {
		return domain.NewCredentialsRejected("Request signature could not be validated"), nil
	}

	return domain.NewAuthenticated(*principal), nil
}
