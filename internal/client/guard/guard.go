// Package guard decides whether a session may enter a protected area.
// It is a pure function of the session snapshot; it never mutates it.
package guard

import (
	"net/url"

	"github.com/codewithdenise/rentmyvenue/internal/client/session"
)

// Action tells the caller what to do with a navigation attempt.
type Action int

const (
	// ActionSuspend: session resolution is still in flight; render nothing yet.
	ActionSuspend Action = iota
	// ActionAllow: the session may enter the requested area.
	ActionAllow
	// ActionRedirectLogin: anonymous session; send to login with a return path.
	ActionRedirectLogin
	// ActionRedirectDashboard: authenticated but wrong role; send home.
	ActionRedirectDashboard
)

// Decision pairs the action with the target path for the redirect cases.
type Decision struct {
	Action Action
	// Target is set for the redirect actions: the login path carrying the
	// attempted destination, or the session role's own dashboard.
	Target string
}

const loginPath = "/login"

// Decide evaluates a navigation to requestedPath against the allowed
// roles. An empty allowed list admits any authenticated session.
func Decide(sess session.Session, allowed []session.Role, requestedPath string) Decision {
	if sess.Loading {
		return Decision{Action: ActionSuspend}
	}

	if !sess.Authenticated || sess.Identity == nil {
		target := loginPath
		if requestedPath != "" && requestedPath != loginPath {
			target = loginPath + "?next=" + url.QueryEscape(requestedPath)
		}
		return Decision{Action: ActionRedirectLogin, Target: target}
	}

	if len(allowed) == 0 {
		return Decision{Action: ActionAllow}
	}
	for _, role := range allowed {
		if sess.Identity.Role == role {
			return Decision{Action: ActionAllow}
		}
	}
	return Decision{Action: ActionRedirectDashboard, Target: sess.Identity.Role.DashboardPath()}
}
