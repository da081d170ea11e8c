// Package accounts provides user registration, password login with signed
// session tokens and email confirmation on top of a bun backed store.
//
// User lifecycle:
//   - Users carry an EmailStatus persisted via Bun. A new account starts
//     UNVERIFIED, moves to PENDING once a confirmation email is delivered and
//     to VERIFIED when the link is followed. VERIFIED is terminal.
//   - EmailStateMachine owns the transition graph, hooks and activity events.
//     UserManager routes every status change through it.
//
// Confirmation tokens:
//   - Tokens carry only the account id, email and creation time. Changing the
//     email invalidates every outstanding link.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Authenticator,
//     UserManager and the state machine to describe registration, login and
//     confirmation events. Sinks run best-effort (errors are logged).
//
// HTTP:
//   - RegisterAccountRoutes mounts the fiber handlers. Protected routes use
//     the bearer middleware in middleware/jwtware through ProtectedRoute.
package accounts
