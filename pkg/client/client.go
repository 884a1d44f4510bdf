package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type LogLevel int

const (
	LogLevelNone LogLevel = iota
	LogLevelError
	LogLevelDebug
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionExpired   = errors.New("session expired")
	ErrRequest          = errors.New("request failed")
	ErrResponse         = errors.New("invalid response")
)

// Principal mirrors the server's principal representation.
type Principal struct {
	ID        string           `json:"id"`
	Email     string           `json:"email"`
	Role      string           `json:"role"`
	Active    bool             `json:"active"`
	FirstName string           `json:"firstName"`
	LastName  string           `json:"lastName"`
	Phone     string           `json:"phone"`
	Provider  *ProviderProfile `json:"provider,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

type ProviderProfile struct {
	BusinessName        string   `json:"businessName"`
	BusinessDescription string   `json:"businessDescription"`
	Services            []string `json:"services"`
	Location            Location `json:"location"`
}

type Location struct {
	City    string `json:"city"`
	Address string `json:"address"`
}

// RegisterInput mirrors the server's registration request. The business
// fields apply only when Role is "provider".
type RegisterInput struct {
	Email               string   `json:"email"`
	Password            string   `json:"password"`
	FirstName           string   `json:"firstName"`
	LastName            string   `json:"lastName"`
	Role                string   `json:"role"`
	Phone               string   `json:"phone"`
	BusinessName        string   `json:"businessName,omitempty"`
	BusinessDescription string   `json:"businessDescription,omitempty"`
	Services            []string `json:"services,omitempty"`
	Location            Location `json:"location"`
}

// Config holds Session construction parameters. HTTPClient is optional; a
// client with a fresh cookie jar is created when nil. A provided client
// must carry a cookie jar, or the refresh cookie is lost. Cache is the
// optional persisted token slot.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Cache      TokenCache
	LogLevel   LogLevel
}

// Session is one authenticated connection to a servedi server. Construct
// one per process (or per tab/identity); it is safe for concurrent use.
type Session struct {
	baseURL  string
	http     *http.Client
	cache    TokenCache
	logLevel LogLevel

	mu     sync.RWMutex
	access string

	refreshGroup singleflight.Group
}

func New(cfg Config) (*Session, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url '%s'", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("couldn't create cookie jar: %v", err)
		}
		httpClient = &http.Client{Jar: jar}
	}

	s := &Session{
		baseURL:  strings.TrimRight(base.String(), "/"),
		http:     httpClient,
		cache:    cfg.Cache,
		logLevel: cfg.LogLevel,
	}

	// resume a persisted session if the cache holds a token; it may be
	// expired, in which case the first request runs the refresh path
	if s.cache != nil {
		if token, err := s.cache.Load(); err == nil && token != "" {
			s.access = token
		}
	}

	return s, nil
}

// URL joins a server path onto the session's base URL.
func (s *Session) URL(path string) string {
	return s.baseURL + path
}

// AccessToken returns the currently held access token, or "" when the
// session is anonymous.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

func (s *Session) Authenticated() bool {
	return s.AccessToken() != ""
}

// Register creates an account and opens the session.
func (s *Session) Register(ctx context.Context, input RegisterInput) (*Principal, error) {
	return s.openSession(ctx, "/api/auth/register", input, http.StatusCreated)
}

// Login opens the session with existing credentials.
func (s *Session) Login(ctx context.Context, email string, password string) (*Principal, error) {
	credentials := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password}
	return s.openSession(ctx, "/api/auth/login", credentials, http.StatusOK)
}

// Logout revokes the refresh token server-side and tears the session down.
// The local session ends even when the server call fails.
func (s *Session) Logout(ctx context.Context) error {
	defer s.teardown()

	token := s.AccessToken()
	if token == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL("/api/auth/logout"), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: logout answered %d", ErrResponse, res.StatusCode)
	}
	return nil
}

// Profile fetches the authenticated principal.
func (s *Session) Profile(ctx context.Context) (*Principal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL("/api/auth/profile"), nil)
	if err != nil {
		return nil, err
	}

	res, err := s.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: profile answered %d", ErrResponse, res.StatusCode)
	}

	var body struct {
		Principal *Principal `json:"principal"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponse, err)
	}
	return body.Principal, nil
}

// Do sends the request with the current access token attached. When the
// server answers 401 and the session holds a token, exactly one refresh
// and one retry happen; a second 401 tears the session down.
//
// Retries replay the body via req.GetBody, which net/http sets for the
// common body types. A consumed, non-replayable body skips the retry and
// returns the original 401.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	token := s.AccessToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusUnauthorized || token == "" {
		return res, nil
	}

	fresh, err := s.refreshAccess(token)
	if err != nil {
		s.logf(LogLevelDebug, "refresh failed, tearing down session: %v", err)
		s.teardown()
		return res, nil
	}

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return res, nil
		}
		retry.Body = body
	} else if req.Body != nil {
		s.logf(LogLevelDebug, "cannot replay request body, returning original response")
		return res, nil
	}

	res.Body.Close()
	retry.Header.Set("Authorization", "Bearer "+fresh)

	res, err = s.http.Do(retry)
	if err != nil {
		return nil, err
	}
	if res.StatusCode == http.StatusUnauthorized {
		s.logf(LogLevelDebug, "retry rejected after refresh, tearing down session")
		s.teardown()
	}
	return res, nil
}

// refreshAccess exchanges the refresh cookie for a new access token.
// Concurrent callers share one server round trip; a caller whose stale
// token was already replaced gets the replacement without a second call.
func (s *Session) refreshAccess(stale string) (string, error) {
	v, err, _ := s.refreshGroup.Do("refresh", func() (any, error) {
		if current := s.AccessToken(); current != "" && current != stale {
			return current, nil
		}
		return s.refreshOnce()
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Session) refreshOnce() (string, error) {
	req, err := http.NewRequest(http.MethodPost, s.URL("/api/auth/refresh-token"), nil)
	if err != nil {
		return "", err
	}

	res, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized {
		return "", ErrSessionExpired
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: refresh answered %d", ErrResponse, res.StatusCode)
	}

	var body struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrResponse, err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrResponse)
	}

	s.storeAccess(body.AccessToken)
	return body.AccessToken, nil
}

func (s *Session) openSession(
	ctx context.Context,
	path string,
	payload any,
	wantStatus int,
) (*Principal, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL(path), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized {
		return nil, ErrNotAuthenticated
	}
	if res.StatusCode != wantStatus {
		return nil, fmt.Errorf("%w: %s answered %d", ErrResponse, path, res.StatusCode)
	}

	var body struct {
		Principal   *Principal `json:"principal"`
		AccessToken string     `json:"accessToken"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponse, err)
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrResponse)
	}

	s.storeAccess(body.AccessToken)
	return body.Principal, nil
}

func (s *Session) storeAccess(token string) {
	s.mu.Lock()
	s.access = token
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Store(token); err != nil {
			s.logf(LogLevelError, "couldn't persist access token: %v", err)
		}
	}
}

// teardown drops to the anonymous state: held token gone, persisted slot
// cleared. The cookie jar is left alone; a revoked refresh cookie is
// harmless and expires on its own.
func (s *Session) teardown() {
	s.mu.Lock()
	s.access = ""
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Clear(); err != nil {
			s.logf(LogLevelError, "couldn't clear token cache: %v", err)
		}
	}
}

func (s *Session) logf(level LogLevel, format string, v ...any) {
	if s.logLevel >= level {
		log.Printf("client: "+format+"\n", v...)
	}
}
