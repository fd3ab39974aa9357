// Package starter provides the account core of a SaaS application:
// credentials and social sign-in, JWT-backed sessions, account settings,
// activity auditing, and the billing hooks the HTTP surface needs.
//
// Sessions:
//   - Auther verifies credentials through an IdentityProvider and issues
//     signed session tokens. Tokens carry the user id and role only;
//     nothing else in the token is trusted.
//   - RouteAuthenticator moves tokens in and out of the cookie jar and
//     resolves the current user for handlers. RouteGuard classifies
//     request paths, keeps anonymous users out of the dashboard, and
//     slides active sessions forward by re-issuing the token on GET.
//
// Accounts:
//   - Users are soft-deleted: SoftDelete rewrites the email to a
//     tombstone so the address can sign up again while the audit trail
//     keeps pointing at the original row.
//   - Form actions (sign-up, sign-in, password and profile updates,
//     deletion) bind and validate payloads through Validated and
//     ValidatedWithUser, and answer with ActionResult JSON that echoes
//     the submitted fields.
//
// Activity:
//   - ActivitySink is a light-weight audit emitter. Every account action
//     appends one entry; sinks run best-effort so auditing never blocks
//     the action itself. The persistent sink is the ActivityLogs
//     repository.
//
// The social subpackage completes OAuth providers (Google ships in
// social/providers/google) against the same user store, and the billing
// subpackage wraps the Stripe client used by checkout and the customer
// portal.
package starter
