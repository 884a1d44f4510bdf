// Package client is the calling side of the servedi auth protocol.
//
// A Session holds the current access token in memory, optionally mirrored
// into a persisted TokenCache so it survives process reloads. The refresh
// token is never visible to this package: it travels only as an HTTP-only
// cookie managed by the http.Client's cookie jar.
//
// Session.Do attaches the access token as a bearer credential. When a
// request comes back 401, the session performs exactly one refresh call and
// one retry; concurrent 401s coalesce behind a single in-flight refresh so
// only one rotation happens per expiry. If the refresh itself fails, or the
// retried request is rejected again, the session tears down to an anonymous
// state and the caller must log in again.
//
//	session, err := client.New(client.Config{BaseURL: "https://api.example.com"})
//	if err != nil { ... }
//	if _, err := session.Login(ctx, "a@x.com", "secret1"); err != nil { ... }
//
//	req, _ := http.NewRequestWithContext(ctx, "GET", session.URL("/api/users"), nil)
//	res, err := session.Do(req)
package client
