// Package client talks to the picdrop backend over HTTP/JSON.
//
// # Overview
//
// Client is the transport-agnostic contract used by the workflows: account
// registration and login, password change, contacts and user search, image
// upload, sent/received listings and authenticated fetches of image bytes.
// HTTPClient is the concrete implementation.
//
// # Credentials
//
// The bearer credential is read from a TokenSource when each request is
// issued and travels only in the Authorization header, never in a URL.
// When a request that carried a credential is answered with 401 or 403 the
// handler registered with SetUnauthorizedHandler runs before the error is
// returned.
//
// # Error Handling
//
// Failures match the sentinels with errors.Is: ErrUnavailable (no response),
// ErrUnauthorized (401/403) and ErrResourceUnavailable (any other non-success
// status). The latter two are carried by *APIError, which keeps the status
// code and the server-provided message.
package client
