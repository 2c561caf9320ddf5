package api

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/AaronLay10/AvatarLink/internal/config"
)

// Role is the authorization level granted to an authenticated request.
type Role string

const (
	// RoleAdmin may reach every operator surface.
	RoleAdmin Role = "admin"
	// RoleOperator may read the status and event surfaces.
	RoleOperator Role = "operator"
)

// account pairs one set of basic-auth credentials with the role it grants.
type account struct {
	user string
	pass string
	role Role
}

type accountTable struct {
	accounts []account
	enabled  bool
}

// auth is nil until InitAuth runs. A nil or disabled table grants every
// request RoleAdmin so a bare deployment works without credentials.
var auth *accountTable

// InitAuth loads operator credentials from AVATARLINK_ADMIN_USER/PASS and
// AVATARLINK_OPERATOR_USER/PASS, each honoring the *_FILE convention.
// Basic auth turns on only when the admin pair is complete.
func InitAuth() {
	admin := loadAccount("AVATARLINK_ADMIN", RoleAdmin)
	operator := loadAccount("AVATARLINK_OPERATOR", RoleOperator)

	table := &accountTable{enabled: admin != nil}
	for _, acct := range []*account{admin, operator} {
		if acct != nil {
			table.accounts = append(table.accounts, *acct)
		}
	}
	auth = table
}

// loadAccount resolves <prefix>_USER and <prefix>_PASS, returning nil when
// the pair is incomplete.
func loadAccount(prefix string, role Role) *account {
	user, err := config.ResolveSecret(prefix + "_USER")
	if err != nil {
		log.Fatalf("failed to resolve %s_USER: %v", prefix, err)
	}
	pass, err := config.ResolveSecret(prefix + "_PASS")
	if err != nil {
		log.Fatalf("failed to resolve %s_PASS: %v", prefix, err)
	}
	if user == "" || pass == "" {
		return nil
	}
	return &account{user: user, pass: pass, role: role}
}

// IsAuthEnabled reports whether basic auth is configured.
func IsAuthEnabled() bool {
	return auth != nil && auth.enabled
}

// authenticate maps the request credentials to a role, or "" when they
// match no account.
func authenticate(r *http.Request) Role {
	if !IsAuthEnabled() {
		return RoleAdmin
	}

	user, pass, ok := r.BasicAuth()
	if !ok {
		return ""
	}

	for _, acct := range auth.accounts {
		if secureCompare(user, acct.user) && secureCompare(pass, acct.pass) {
			return acct.role
		}
	}
	return ""
}

// secureCompare is a constant-time credential comparison.
func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func requireAuth(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="AvatarLink"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// RequireRole guards a handler behind the given roles.
func RequireRole(handler http.HandlerFunc, allowed ...Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := authenticate(r)
		if role == "" {
			requireAuth(w)
			return
		}

		for _, want := range allowed {
			if role == want {
				handler(w, r)
				return
			}
		}

		http.Error(w, "Forbidden", http.StatusForbidden)
	}
}

// RequireAnyRole admits both admin and operator credentials.
func RequireAnyRole(handler http.HandlerFunc) http.HandlerFunc {
	return RequireRole(handler, RoleAdmin, RoleOperator)
}
