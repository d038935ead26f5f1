package model

import (
	"log/slog"
	"strings"
)

// Credentials are what a caller presents so a job can acquire an action token.
// Either AccessToken or the client-credentials pair must be set.
// Credentials are never stored on a Job and never serialized in responses or logs.
type Credentials struct {
	ClientID     string   `json:"client_id,omitempty"`
	ClientSecret string   `json:"client_secret,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
	AccessToken  string   `json:"access_token,omitempty"`
}

// HasClientCredentials reports whether an OAuth2 client id and secret were supplied.
func (c Credentials) HasClientCredentials() bool {
	return strings.TrimSpace(c.ClientID) != "" && strings.TrimSpace(c.ClientSecret) != ""
}

// Usable reports whether the credentials can produce a token by any means.
func (c Credentials) Usable() bool {
	return strings.TrimSpace(c.AccessToken) != "" || c.HasClientCredentials()
}

// String redacts secrets so credentials are safe to pass to loggers by accident.
func (c Credentials) String() string {
	return "Credentials{client_id=" + c.ClientID + ", secret=[redacted], token=[redacted]}"
}

// LogValue hides credentials from slog.
func (c Credentials) LogValue() slog.Value {
	return slog.StringValue(c.String())
}
