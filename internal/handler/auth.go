package handler

import (
	"log/slog"
	"net/http"
)

// The host platform authenticates staff and forwards their role and user id
// in these headers. There is no session handling here; a missing or unknown
// role is simply not staff.
const (
	roleHeader = "X-Ora-Role"
	userHeader = "X-Ora-User"

	// RoleCourseStaff may view the staff area and grade learners.
	RoleCourseStaff = "course-staff"
	// RoleGlobalAdmin additionally controls example-based assessment tasks.
	RoleGlobalAdmin = "global-admin"
)

// caller returns the forwarded user id, or "staff" when the host platform
// sent none. Assessments and cancellations are recorded under this id.
func caller(r *http.Request) string {
	if user := r.Header.Get(userHeader); user != "" {
		return user
	}
	return "staff"
}

// requireCourseStaff gates an endpoint to course staff. Global admins hold
// every course-staff permission.
func requireCourseStaff(deniedMsg string) func(http.Handler) http.Handler {
	return requireRole(deniedMsg, RoleCourseStaff, RoleGlobalAdmin)
}

// requireGlobalAdmin gates an endpoint to global admins only.
func requireGlobalAdmin(deniedMsg string) func(http.Handler) http.Handler {
	return requireRole(deniedMsg, RoleGlobalAdmin)
}

func requireRole(deniedMsg string, allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := r.Header.Get(roleHeader)
			for _, want := range allowed {
				if role == want {
					next.ServeHTTP(w, r)
					return
				}
			}
			slog.Warn("staff endpoint denied",
				"path", r.URL.Path, "role", role, "user", caller(r))
			writeJSON(w, http.StatusForbidden, failure(deniedMsg))
		})
	}
}
