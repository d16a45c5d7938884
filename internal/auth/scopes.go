package auth

const (
	ScopeOpenID         = "openid"
	ScopeProfile        = "profile"
	ScopeEmail          = "email"
	ScopeWorkflowsRead  = "workflows:read"
	ScopeWorkflowsWrite = "workflows:write"
)

// AllScopes defines the full set of scopes used by the Swagger UI / Frontend
var AllScopes = []string{
	ScopeOpenID,
	ScopeProfile,
	ScopeEmail,
	ScopeWorkflowsRead,
	ScopeWorkflowsWrite,
}

// LoginScopes are requested by the browser login flow.
var LoginScopes = []string{ScopeOpenID, ScopeProfile, ScopeEmail}
