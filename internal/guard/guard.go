// Package guard decides whether a navigation may proceed.
//
// Decide is a pure function of the session state and the target route's
// declared requirements. It keeps no history and must be called again on
// every navigation.
package guard

const (
	LoginPath   = "/login"
	LandingPath = "/dashboard"
)

type State int

const (
	Unauthenticated State = iota
	Authenticated
	AuthenticatedAdmin
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case AuthenticatedAdmin:
		return "admin"
	default:
		return "unauthenticated"
	}
}

// Session is the part of session state the guard reads.
type Session interface {
	IsAuthenticated() bool
	IsAdmin() bool
}

// StateOf snapshots s. A nil session is unauthenticated.
func StateOf(s Session) State {
	switch {
	case s == nil || !s.IsAuthenticated():
		return Unauthenticated
	case s.IsAdmin():
		return AuthenticatedAdmin
	default:
		return Authenticated
	}
}

// Route is a navigation target and its requirements.
type Route struct {
	Path          string
	RequiresAuth  bool
	RequiresAdmin bool
	// GuestOnly marks the login and register entry points.
	GuestOnly bool
}

type Decision struct {
	Allow    bool
	Redirect string
	Reason   string
}

func allow() Decision { return Decision{Allow: true} }

func redirect(to, reason string) Decision {
	return Decision{Redirect: to, Reason: reason}
}

// Decide evaluates one navigation attempt.
func Decide(state State, target Route) Decision {
	switch {
	case target.RequiresAuth && state == Unauthenticated:
		return redirect(LoginPath, "login required")
	case target.RequiresAdmin && state != AuthenticatedAdmin:
		return redirect(LandingPath, "admin role required")
	case target.GuestOnly && state != Unauthenticated:
		return redirect(LandingPath, "already logged in")
	default:
		return allow()
	}
}
