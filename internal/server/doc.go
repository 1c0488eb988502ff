// Package server is the HTTP surface of the assistant: the chat stream
// endpoint, the calendar CRUD API, the Google OAuth flow, and the health and
// metrics endpoints.
//
// Authentication is a cookie session carrying a Google access token and its
// expiry. Calendar and chat handlers derive the per-request calendar client
// from that session; there is no server-side session store.
package server
