package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/riverstone-dns/zonectl/internal/core/domain"
	"github.com/riverstone-dns/zonectl/internal/core/services"
	"github.com/riverstone-dns/zonectl/internal/sigv4"
)

type mockPrincipalProvider struct {
	byAccessKey map[string]*domain.Principal
}

func (m *mockPrincipalProvider) GetAuthPrincipal(_ context.Context, accessKey string) (*domain.Principal, error) {
	return m.byAccessKey[accessKey], nil
}

// signedGETRequest builds an httptest request for path, signed over
// secret with the AWS4-HMAC-SHA256 scheme for the given accessKey.
func signedGETRequest(t *testing.T, path, accessKey, secret string) *http.Request {
	t.Helper()
	date, region, service := "20180101", "us-east-1", "zonectl"
	amzDate := date + "T000000Z"

	headers := http.Header{
		"Host":       []string{"zonectl.example.com"},
		"X-Amz-Date": []string{amzDate},
	}
	req := sigv4.Request{Method: "GET", URI: path, Query: url.Values{}, Headers: headers, Body: ""}
	signedHeaders := []string{"host", "x-amz-date"}

	canonical, err := sigv4.CanonicalRequest(req, signedHeaders)
	if err != nil {
		t.Fatalf("CanonicalRequest() unexpected error: %v", err)
	}
	scope := strings.Join([]string{date, region, service, "aws4_request"}, "/")
	sts := sigv4.StringToSign(amzDate, scope, canonical)
	key := sigv4.SigningKey(secret, date, region, service)
	signature := sigv4.Sign(key, sts)

	httpReq := httptest.NewRequest(http.MethodGet, path, nil)
	httpReq.Header.Set("Host", "zonectl.example.com")
	httpReq.Header.Set("X-Amz-Date", amzDate)
	httpReq.Header.Set("Authorization", "AWS4-HMAC-SHA256 Credential="+accessKey+"/"+date+"/"+region+"/"+service+
		"/aws4_request, SignedHeaders=host;x-amz-date, Signature="+signature)
	return httpReq
}

func TestAuthMiddleware_AuthenticatedRequestReachesHandler(t *testing.T) {
	principals := &mockPrincipalProvider{byAccessKey: map[string]*domain.Principal{
		"AKID": {UserID: "u1", AccessKey: "AKID", SecretKey: "shh"},
	}}
	auth := services.NewAuthenticator(principals, nil, false, nil)

	var gotPrincipal domain.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrincipal, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := signedGETRequest(t, "/zones", "AKID", "shh")
	rec := httptest.NewRecorder()
	AuthMiddleware(auth)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotPrincipal.UserID != "u1" {
		t.Errorf("principal in context = %+v, want UserID u1", gotPrincipal)
	}
}

func TestAuthMiddleware_MissingAuthorizationHeaderIs401(t *testing.T) {
	principals := &mockPrincipalProvider{}
	auth := services.NewAuthenticator(principals, nil, false, nil)

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodGet, "/zones", nil)
	rec := httptest.NewRecorder()
	AuthMiddleware(auth)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if called {
		t.Error("next handler should not be called on missing credentials")
	}
	if !strings.Contains(rec.Body.String(), "Authorization header not found") {
		t.Errorf("body = %q, missing expected reason", rec.Body.String())
	}
}

func TestAuthMiddleware_UnknownAccessKeyIs401(t *testing.T) {
	principals := &mockPrincipalProvider{byAccessKey: map[string]*domain.Principal{}}
	auth := services.NewAuthenticator(principals, nil, false, nil)

	req := signedGETRequest(t, "/zones", "UNKNOWN", "shh")
	rec := httptest.NewRecorder()
	AuthMiddleware(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
