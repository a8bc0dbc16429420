// Package garden serves the plant catalog web application: a route table that
// maps URLs to pages, and an authentication gate in front of every page except
// login and registration.
//
// Session resolution:
//   - SessionProvider resolves the session token carried by a request
//     asynchronously and hands back a PendingSession. Resolution validates the
//     JWT, consults the SessionCache and finally loads the user from the Users
//     repository. Failures surface as an unauthenticated session.
//   - RouteAuthenticator.Provide starts resolution for every request and stores
//     the pending session in the request locals and user context.
//
// Gating:
//   - Decide maps a Session to one of three outcomes: wait (render the loading
//     page), redirect (to the login path) or allow (run the page handler).
//   - RouteAuthenticator.Guard waits for the pending session up to the
//     configured resolve timeout and applies the decision.
//
// Routing:
//   - RouteTable holds the declarative route entries. The catch-all entry is
//     always mounted last and renders the not found page inside the shell.
package garden
