// Package session provides the authentication and session-authorization core
// for the Bruin Market backend: token issuance, cookie transport, the
// per-request session gate, and account provisioning keyed to an external
// identity provider.
//
// Session lifecycle:
//   - Tokens are HS256 JWTs carried in an HTTP-only cookie. The codec owns
//     mint and verification; SessionResolver classifies every failure as
//     missing, expired, or invalid so handlers never guess.
//   - The gate in middleware/sessionware re-reads the account row on every
//     request. Role and suspension in the token are advisory; the database is
//     authoritative, so suspending an account cuts off its sessions on the
//     next request without any revocation list. Suspension is the only
//     server-side kill switch: there is no per-token revocation and no "log
//     out everywhere".
//
// Provisioning:
//   - Accounts are created on first sign-in from the verified profile the
//     identity provider returns, keyed by email. Repeat sign-ins refresh
//     display fields only; role and suspension are admin-owned state that a
//     sign-in can never touch.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther and the
//     accounts repository for sign-in and suspension events. Sinks run
//     best-effort (errors are logged) so you can forward to a database or
//     queue without blocking authentication.
package session
