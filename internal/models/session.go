package models

// Session identifies the conductor bound to a session cookie.
type Session struct {
	Bus string `json:"bus"`
}
