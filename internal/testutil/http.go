package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// HTTPResult captures HTTP response details for test assertions
type HTTPResult struct {
	Code    int
	Error   error
	Headers http.Header
	Cookies []*http.Cookie
	Body    []byte
}

// Header represents an HTTP header key-value pair
type Header struct {
	Key   string
	Value string
}

// ContentTypeJSON returns a header for JSON content type
func ContentTypeJSON() Header {
	return Header{
		Key:   "Content-Type",
		Value: "application/json",
	}
}

// BearerHeader returns an Authorization header carrying the access token
func BearerHeader(token string) Header {
	return Header{
		Key:   "Authorization",
		Value: "Bearer " + token,
	}
}

// CookieHeader returns a Cookie header carrying the refresh token
func CookieHeader(refreshToken string) Header {
	return Header{
		Key:   "Cookie",
		Value: "refreshToken=" + refreshToken,
	}
}

// ExpectStatus validates the HTTP status code and fails the test if it doesn't match
func ExpectStatus(
	t *testing.T,
	expected int,
	result HTTPResult,
) {
	t.Helper()
	if result.Error != nil {
		t.Fatalf("request error: %v", result.Error)
	}
	if result.Code != expected {
		t.Fatalf("expected status %d, got %d. Body: %s", expected, result.Code, string(result.Body))
	}
}

// RefreshCookie returns the refreshToken cookie set on the response, or
// fails the test if it is absent.
func RefreshCookie(
	t *testing.T,
	result HTTPResult,
) *http.Cookie {
	t.Helper()
	for _, cookie := range result.Cookies {
		if cookie.Name == "refreshToken" {
			return cookie
		}
	}
	t.Fatal("expected refreshToken cookie on response")
	return nil
}

// Do performs a request against the router and optionally decodes a JSON response
func Do(
	router http.Handler,
	method string,
	url string,
	body string,
	response any,
	headers ...Header,
) HTTPResult {
	var reader *strings.Reader = strings.NewReader(body)
	req := httptest.NewRequest(method, url, reader)
	res := httptest.NewRecorder()
	for _, h := range headers {
		req.Header.Set(h.Key, h.Value)
	}
	router.ServeHTTP(res, req)

	result := HTTPResult{
		Code:    res.Code,
		Headers: res.Header(),
		Cookies: res.Result().Cookies(),
		Body:    res.Body.Bytes(),
	}

	if response != nil && res.Body.Len() > 0 {
		if err := json.Unmarshal(res.Body.Bytes(), response); err != nil {
			result.Error = fmt.Errorf("failed to decode JSON: %v\n%s", err, res.Body.String())
		}
	}

	return result
}

// Get performs a GET request and optionally decodes JSON response
func Get(
	router http.Handler,
	url string,
	response any,
	headers ...Header,
) HTTPResult {
	return Do(router, http.MethodGet, url, "", response, headers...)
}

// PostJSON performs a POST with JSON body
func PostJSON(
	router http.Handler,
	urlPath string,
	body string,
	response any,
	headers ...Header,
) HTTPResult {
	headers = append(headers, ContentTypeJSON())
	return Do(router, http.MethodPost, urlPath, body, response, headers...)
}

// PutJSON performs a PUT with JSON body
func PutJSON(
	router http.Handler,
	urlPath string,
	body string,
	response any,
	headers ...Header,
) HTTPResult {
	headers = append(headers, ContentTypeJSON())
	return Do(router, http.MethodPut, urlPath, body, response, headers...)
}

// Delete performs a DELETE request
func Delete(
	router http.Handler,
	urlPath string,
	response any,
	headers ...Header,
) HTTPResult {
	return Do(router, http.MethodDelete, urlPath, "", response, headers...)
}
