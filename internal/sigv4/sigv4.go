// Package sigv4 implements the subset of AWS Signature Version 4 request
// signing and verification the authenticator relies on: parsing the
// Authorization header, building the canonical request and string to
// sign, deriving the four-step HMAC-SHA256 signing key, and comparing
// signatures in constant time. It has no knowledge of Principal,
// AuthenticationOutcome, or any other zonectl domain type — it is a
// pure implementation of the wire grammar.
package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Algorithm is the only signing algorithm this package understands.
const Algorithm = "AWS4-HMAC-SHA256"

// ErrMissingAuthenticationToken distinguishes an absent Authorization
// header from every other parse failure, so a caller can map it to a
// "credentials missing" outcome rather than a "credentials rejected" one.
var ErrMissingAuthenticationToken = errors.New("missing authentication token")

var authHeaderPattern = regexp.MustCompile(
	`(?i)^AWS4-HMAC-SHA256\s+` +
		`Credential=([^/\s]+)/(\d{8})/([^/\s]+)/([^/\s]+)/aws4_request,\s*` +
		`SignedHeaders=([A-Za-z0-9\-;]+),\s*` +
		`Signature=([0-9a-fA-F]{64})\s*$`)

// Credential is the parsed Authorization header: the credential scope
// plus the signed-headers list and signature it carries.
type Credential struct {
	AccessKey     string
	Date          string // yyyymmdd
	Region        string
	Service       string
	SignedHeaders []string
	Signature     string
}

// Scope renders the credential scope string date/region/service/aws4_request.
func (c Credential) Scope() string {
	return strings.Join([]string{c.Date, c.Region, c.Service, "aws4_request"}, "/")
}

// ParseAuthorizationHeader parses the AWS4-HMAC-SHA256 Authorization
// header grammar:
//
//	AWS4-HMAC-SHA256 Credential=<access>/<yyyymmdd>/<region>/<service>/aws4_request,
//	  SignedHeaders=<hdr;hdr;...>, Signature=<hex64>
//
// An empty or whitespace-only header is reported as
// ErrMissingAuthenticationToken; any other malformed value is a plain error.
func ParseAuthorizationHeader(header string) (*Credential, error) {
	if strings.TrimSpace(header) == "" {
		return nil, ErrMissingAuthenticationToken
	}
	m := authHeaderPattern.FindStringSubmatch(header)
	if m == nil {
		return nil, fmt.Errorf("authorization header does not match the AWS4-HMAC-SHA256 grammar")
	}
	return &Credential{
		AccessKey:     m[1],
		Date:          m[2],
		Region:        m[3],
		Service:       m[4],
		SignedHeaders: strings.Split(m[5], ";"),
		Signature:     m[6],
	}, nil
}

// Request is the minimal HTTP request shape signature verification
// needs. Callers materialize streaming bodies into a string before
// constructing one.
type Request struct {
	Method  string
	URI     string
	Query   url.Values
	Headers http.Header
	Body    string
}

// HashedBody returns the lowercase hex SHA-256 of the request body,
// hashed verbatim with no normalization.
func (r Request) HashedBody() string {
	sum := sha256.Sum256([]byte(r.Body))
	return hex.EncodeToString(sum[:])
}

// CanonicalRequest builds the AWS SigV4 canonical request for r,
// signing only the headers named in signedHeaders. A header named in
// signedHeaders but absent from r.Headers is reported as an error.
func CanonicalRequest(r Request, signedHeaders []string) (string, error) {
	names := make([]string, len(signedHeaders))
	for i, h := range signedHeaders {
		names[i] = strings.ToLower(strings.TrimSpace(h))
	}
	sort.Strings(names)

	headerLines := make([]string, 0, len(names))
	for _, name := range names {
		values := r.Headers.Values(http.CanonicalHeaderKey(name))
		if len(values) == 0 {
			return "", fmt.Errorf("signed header %q is not present on the request", name)
		}
		collapsed := make([]string, len(values))
		for i, v := range values {
			collapsed[i] = collapseWhitespace(strings.TrimSpace(v))
		}
		headerLines = append(headerLines, name+":"+strings.Join(collapsed, ",")+"\n")
	}

	return strings.Join([]string{
		strings.ToUpper(r.Method),
		canonicalURI(r.URI),
		canonicalQueryString(r.Query),
		strings.Join(headerLines, ""),
		strings.Join(names, ";"),
		r.HashedBody(),
	}, "\n"), nil
}

// canonicalURI renders the canonical URI for uri: each path segment
// (the text between slashes) is RFC 3986-encoded independently via
// uriEncode and rejoined with "/", so the slashes delimiting segments
// survive while everything inside a segment outside the unreserved
// set is percent-encoded exactly as the client signed it.
func canonicalURI(uri string) string {
	if uri == "" {
		return "/"
	}
	segments := strings.Split(uri, "/")
	for i, seg := range segments {
		segments[i] = uriEncode(seg)
	}
	return strings.Join(segments, "/")
}

func canonicalQueryString(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		values := append([]string{}, q[k]...)
		sort.Strings(values)
		for _, v := range values {
			parts = append(parts, uriEncode(k)+"="+uriEncode(v))
		}
	}
	return strings.Join(parts, "&")
}

// uriEncode percent-encodes s per AWS SigV4's URI-encoding rules
// (SigV4 §"Task 1: Create a canonical request"): every byte except
// the unreserved set A-Za-z0-9-_.~ is escaped as %XX, uppercase hex,
// including space as %20. This is RFC 3986 encoding, not Go's
// url.QueryEscape/url.PathEscape, which both use
// application/x-www-form-urlencoded rules (space as "+") and would
// produce a canonical request a standards-compliant SigV4 client never
// signed.
func uriEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreservedURIByte(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isUnreservedURIByte(c byte) bool {
	return c >= 'A' && c <= 'Z' ||
		c >= 'a' && c <= 'z' ||
		c >= '0' && c <= '9' ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StringToSign builds the AWS SigV4 string to sign from the request
// timestamp (the full X-Amz-Date value, e.g. 20180101T000000Z), the
// credential scope, and the canonical request.
func StringToSign(amzDate, scope, canonicalRequest string) string {
	hash := sha256.Sum256([]byte(canonicalRequest))
	return strings.Join([]string{
		Algorithm,
		amzDate,
		scope,
		hex.EncodeToString(hash[:]),
	}, "\n")
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// SigningKey derives the AWS SigV4 signing key via the four-step
// HMAC-SHA256 chain: kDate, kRegion, kService, kSigning, each keyed by
// the previous.
func SigningKey(secretKey, date, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(date))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	return hmacSHA256(kService, []byte("aws4_request"))
}

// Sign computes the hex-encoded signature for stringToSign under signingKey.
func Sign(signingKey []byte, stringToSign string) string {
	return hex.EncodeToString(hmacSHA256(signingKey, []byte(stringToSign)))
}

// SignaturesEqual compares two hex signatures. Signatures of different
// lengths are rejected at once; equal-length ones are compared in
// constant time, so a partial match is not observable by timing.
func SignaturesEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
