// Package auth provides a thin authentication layer for web applications:
// a reactive auth state store that synchronizes a cached user identity with
// an external identity provider, a route guard driven by a single shared
// route configuration, a server-issued session token store, and a role
// resolver backed by a users table.
//
// Auth state synchronization:
//   - Store is the single owner of the State aggregate. It subscribes to
//     identity provider change notifications and accepts identity snapshots,
//     converging both signals to the same state. Role lookups are tagged with
//     the identity epoch they were issued for, so a lookup that completes
//     after the identity has changed again is discarded instead of leaking a
//     previous user's role into the new session.
//
// Session tokens:
//   - TokenStore issues opaque session credentials, validates them with a
//     constant-time compare against the current valid-token set, and drops
//     all session data on revocation. The cookie contract (name, HTTP-only,
//     path and max-age) lives in session.go.
//
// Identity providers:
//   - IdentityProvider is the collaborator boundary. provider/local backs it
//     with the users repository and the token store; provider/hosted talks to
//     an external JWT-issuing identity service. A deployment wires exactly
//     one of them.
package auth
