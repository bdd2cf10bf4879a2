// Package stripe is a thin client for the handful of Stripe API calls the
// billing flow needs: creating Checkout Sessions, fetching prices, and
// fetching subscriptions, plus webhook signature verification.
//
// Design decision: We implement the three calls directly over net/http
// rather than pulling in a full SDK. The surface is tiny and stable,
// form-encoded requests are trivial to build, and a hand-rolled client keeps
// the error mapping (Stripe error codes to our API envelopes) explicit.
package stripe
