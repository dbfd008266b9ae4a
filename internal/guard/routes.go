package guard

import "strings"

// Table is an ordered set of routes. Path segments starting with ':' match
// any single segment.
type Table struct {
	routes  []Route
	aliases map[string]string
}

// DefaultTable is the portal's navigation map.
func DefaultTable() *Table {
	user := func(p string) Route { return Route{Path: p, RequiresAuth: true} }
	admin := func(p string) Route { return Route{Path: p, RequiresAuth: true, RequiresAdmin: true} }

	return &Table{
		aliases: map[string]string{"/": LandingPath},
		routes: []Route{
			{Path: LoginPath, GuestOnly: true},
			{Path: "/register", GuestOnly: true},
			user(LandingPath),
			user("/competitions"),
			user("/competitions/:id"),
			user("/teams"),
			user("/problems"),
			user("/leaderboard"),
			user("/notifications"),
			user("/profile"),
			admin("/admin"),
			admin("/admin/competitions"),
			admin("/admin/competitions/audit"),
			admin("/admin/teams"),
			admin("/admin/teams/audit"),
			admin("/admin/challenges/:id"),
			admin("/admin/users"),
			admin("/admin/flag-submissions"),
		},
	}
}

// Routes returns the declared routes in order.
func (t *Table) Routes() []Route {
	return append([]Route(nil), t.routes...)
}

// Resolve maps a path to its declared route. Aliases resolve to their
// target. Unknown paths carry no requirements.
func (t *Table) Resolve(path string) Route {
	path = clean(path)
	if to, ok := t.aliases[path]; ok {
		path = to
	}
	for _, r := range t.routes {
		if match(r.Path, path) {
			return r
		}
	}
	return Route{Path: path}
}

// Check resolves path and decides for state. An alias that is allowed
// still redirects to its target.
func (t *Table) Check(state State, path string) Decision {
	p := clean(path)
	d := Decide(state, t.Resolve(p))
	if to, ok := t.aliases[p]; ok && d.Allow {
		return redirect(to, "alias")
	}
	return d
}

func clean(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func match(pattern, path string) bool {
	ps := strings.Split(pattern, "/")
	xs := strings.Split(path, "/")
	if len(ps) != len(xs) {
		return false
	}
	for i := range ps {
		if strings.HasPrefix(ps[i], ":") {
			if xs[i] == "" {
				return false
			}
			continue
		}
		if ps[i] != xs[i] {
			return false
		}
	}
	return true
}
