// Package calendar provides the gateway to the Google Calendar API.
//
// It translates authenticated REST calls into domain-shaped events and day
// projections. The client is request-scoped: it is created from a session's
// access token and never caches results beyond a single fetch window.
//
// Event times pass through in the provider's wire form. A bare date stays an
// all-day value and a local timestamp is sent with the single configured
// timezone identifier, so the two representations never mix.
//
// Example usage:
//
//	client, err := calendar.NewClient(ctx, calendar.ClientConfig{
//	    AccessToken: session.AccessToken,
//	    CalendarID:  "primary",
//	    TimeZone:    "Europe/Berlin",
//	})
//	if err != nil {
//	    return err
//	}
//
//	start, end := calendar.WeekWindow(time.Now().In(loc))
//	events, err := client.ListEvents(ctx, start, end)
package calendar
