// Package google provides the OAuth2 configuration for the Google
// authorization-code flow.
//
// Credentials come from the environment at the boundary; this package only
// assembles the oauth2.Config, builds consent URLs with a CSRF state
// parameter, and exchanges authorization codes for tokens. Session storage
// lives in the server package.
package google
