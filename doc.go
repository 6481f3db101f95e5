// Package auth provides the session primitives behind the dashboard service:
// account storage contracts, password hashing and policy, JWT issuance and
// validation, cookie transport, JSON auth endpoints and the route gate that
// decides whether a page request is allowed or redirected.
//
// Session lifecycle:
//   - SignUp validates the payload (required fields, email format, password
//     policy), hashes the password and stores the account. Email uniqueness
//     is owned by the AccountStore implementation, the pre-check in SignUp
//     only saves a bcrypt round.
//   - SignIn verifies the credentials and mints a stateless HS256 token whose
//     claims carry the account id, email and names. The token travels back in
//     the JSON body and in an HTTP-only cookie.
//   - SignOut never fails. Tokens are not revoked server side, they stay valid
//     until they expire; signing out only clears the cookie.
//
// Route gate:
//   - Decide is a pure function of route class, token presence and token
//     validity. RouteGate applies it to fiber requests.
//
// Auth events:
//   - EventSink receives sign-up, sign-in and sign-out events. Sinks run
//     best-effort, errors are logged and never fail the request.
package auth
