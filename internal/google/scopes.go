package google

import (
	calendar "google.golang.org/api/calendar/v3"
)

// Scopes returns the OAuth scopes requested during authorization.
// Calendar access plus the identity scopes shown on the consent screen.
func Scopes() []string {
	return []string{
		"openid",
		"email",
		"profile",
		calendar.CalendarScope,
	}
}
