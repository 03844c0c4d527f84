// Package client wraps Polymarket's three public REST surfaces behind typed
// records: the Gamma metadata API (events and markets), the CLOB (midpoints,
// price history, L2-authenticated trade history) and the Data API (public
// trade history).
//
// Conventions:
//   - Absent or malformed upstream fields become nil pointers or empty
//     strings, never record-level errors.
//   - Every record keeps its source payload in Raw for fields not modeled
//     explicitly.
//   - A client pinned to a reference time with WithAsOf or At serves a
//     point-in-time view: records created after the reference are dropped,
//     live-mutable fields are redacted, and prices come from history rather
//     than live endpoints.
//   - HTTP 400 and 404 read as empty results. Other failures surface as
//     *APIError; the client never retries on its own.
package client
