// Package session keeps a stored access/refresh credential pair valid
// across any number of concurrent outbound requests.
//
// The Manager is the refresh coordinator: when concurrent callers discover
// an expired access credential at the same time, exactly one exchange
// against the token endpoint happens and every caller receives its result.
// The shared in-flight result is the lock; there is no second exchange to
// race with.
//
// # Lifecycle
//
// A session moves Anonymous -> Authenticated via Login, stays Authenticated
// across refreshes, and returns to Anonymous either through Logout or when
// the refresh credential stops working. The only way out of Anonymous is a
// fresh Login. When the session ends irrecoverably, the registered
// termination handler runs exactly once per failure episode no matter how
// many requests were in flight when it died.
//
// # Request pipeline
//
// Transport adapts an http.Client: it attaches Authorization headers from
// the Manager, leaves the authentication endpoints themselves untouched,
// and on a 401 performs one coordinated refresh and one replay before
// giving up.
package session
