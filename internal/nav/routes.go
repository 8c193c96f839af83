// Package nav classifies application routes and guards them with the session
// manager's authentication state.
package nav

import (
	"errors"
	"strings"
)

// ErrUnknownRoute indicates a path that matches no route.
var ErrUnknownRoute = errors.New("unknown route")

const (
	HomePath  = "/"
	LoginPath = "/login"
	MainPath  = "/main"
)

// Route is one entry of the route table. Segments starting with ':' capture a
// parameter.
type Route struct {
	Name         string
	Pattern      string
	RequiresAuth bool
}

// Routes is the application's route table.
var Routes = []Route{
	{Name: "Home", Pattern: HomePath},
	{Name: "Signup", Pattern: "/signup"},
	{Name: "Login", Pattern: LoginPath},
	{Name: "Main", Pattern: MainPath, RequiresAuth: true},
	{Name: "Friends", Pattern: "/friends", RequiresAuth: true},
	{Name: "EditProfile", Pattern: "/profile/edit", RequiresAuth: true},
	{Name: "UserProfile", Pattern: "/profile/:username", RequiresAuth: true},
	{Name: "Settings", Pattern: "/settings", RequiresAuth: true},
	{Name: "Events", Pattern: "/events", RequiresAuth: true},
	{Name: "Clubs", Pattern: "/clubs", RequiresAuth: true},
	{Name: "ClubProfile", Pattern: "/clubs/:clubName", RequiresAuth: true},
	{Name: "MessageScreen", Pattern: "/messages", RequiresAuth: true},
	{Name: "EventProfile", Pattern: "/events/:eventId", RequiresAuth: true},
	{Name: "PostDetail", Pattern: "/posts/:id"},
	{Name: "AuthCallback", Pattern: "/auth/callback"},
}

// Match is a route matched against a concrete path.
type Match struct {
	Route  Route
	Params map[string]string
}

// Lookup finds the first route matching path. Literal routes listed before a
// parameterised sibling win, so /profile/edit never captures "edit".
func Lookup(path string) (Match, bool) {
	segments := split(path)
	for _, route := range Routes {
		if params, ok := match(split(route.Pattern), segments); ok {
			return Match{Route: route, Params: params}, true
		}
	}
	return Match{}, false
}

func match(pattern, segments []string) (map[string]string, bool) {
	if len(pattern) != len(segments) {
		return nil, false
	}
	var params map[string]string
	for i, seg := range pattern {
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			if segments[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[name] = segments[i]
			continue
		}
		if seg != segments[i] {
			return nil, false
		}
	}
	return params, true
}

func split(path string) []string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
