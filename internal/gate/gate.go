// Package gate decides, from the caller's claims and the request path alone,
// whether a page request may proceed or must be redirected.
package gate

import (
	"strings"

	"github.com/prompt-gallery/internal/model"
)

const (
	HomePath       = "/"
	LoginPath      = "/login"
	SignupPath     = "/signup"
	AdminPath      = "/admin"
	AdminLoginPath = "/admin/login"
	SubmitPath     = "/submit-prompt"
)

type RouteClass int

const (
	RoutePublic RouteClass = iota
	RouteAdminOnly
	RouteAdminLogin
	RouteAuthProtected
	RouteAuthPage
)

func (c RouteClass) String() string {
	switch c {
	case RouteAdminOnly:
		return "admin-only"
	case RouteAdminLogin:
		return "admin-login"
	case RouteAuthProtected:
		return "auth-protected"
	case RouteAuthPage:
		return "auth-page"
	default:
		return "public"
	}
}

var authProtected = map[string]struct{}{
	SubmitPath: {},
}

// Classify maps a request path onto the static route table. Trailing slashes
// are ignored.
func Classify(path string) RouteClass {
	if path != "/" {
		path = strings.TrimRight(path, "/")
	}

	switch {
	case path == AdminLoginPath:
		return RouteAdminLogin
	case path == AdminPath || strings.HasPrefix(path, AdminPath+"/"):
		return RouteAdminOnly
	case path == LoginPath || path == SignupPath:
		return RouteAuthPage
	}
	if _, ok := authProtected[path]; ok {
		return RouteAuthProtected
	}
	return RoutePublic
}

type Decision struct {
	Allow  bool
	Target string
}

func allow() Decision { return Decision{Allow: true} }

func redirect(target string) Decision { return Decision{Target: target} }

// Decide evaluates the policy table top to bottom. A nil claims value means
// no valid session; callers pass nil for malformed or expired credentials.
func Decide(claims *model.Claims, path string) Decision {
	class := Classify(path)
	signedIn := claims != nil

	switch {
	case !signedIn && class == RouteAdminOnly:
		return redirect(AdminLoginPath)
	case signedIn && class == RouteAdminLogin:
		return redirect(AdminPath)
	case !signedIn && class == RouteAuthProtected:
		return redirect(LoginPath)
	case signedIn && !claims.IsAdmin() && class == RouteAdminOnly:
		return redirect(HomePath)
	case signedIn && class == RouteAuthPage:
		return redirect(HomePath)
	}
	return allow()
}
