// Package mock provides in-process fakes for the external services atom
// talks to, plus a controllable clock.
//
// IdPServer scripts the identity provider: device code issuance, a token
// endpoint that replays a sequence of pending/slow_down/denied/success
// answers, and the /api/me session lookup.
//
// ModelServer streams Server-Sent Events in the formats of the supported
// model providers and can fail with quota or mid-stream errors.
//
// MockClock stands in for time.Now and for sleeps, so polling loops run
// instantly while still recording the intervals they asked for.
package mock
