package tabular

import (
	"strings"

	"github.com/examportal/exam-portal-api/internal/models"
	"github.com/examportal/exam-portal-api/pkg/export"
)

// UserColumns is the header row of the user upload format. Lookup is
// case-insensitive, so "USERNAME" or "username" headers import equally well.
var UserColumns = []string{"Username", "Password", "Name", "Role"}

// ImportedUser is one decoded user row with the raw (not yet hashed) password.
type ImportedUser struct {
	Username string
	Password string
	Name     string
	Role     models.UserRole
}

// DecodeUserRows converts upload rows into importable users. Username and
// password are trimmed; rows lacking either after trimming are dropped
// silently. Role defaults to student and is lower-cased.
func DecodeUserRows(rows []Row) []ImportedUser {
	users := make([]ImportedUser, 0, len(rows))
	for _, row := range rows {
		username := strings.TrimSpace(row.Get("username"))
		password := strings.TrimSpace(row.Get("password"))
		if username == "" || password == "" {
			continue
		}

		role := strings.ToLower(strings.TrimSpace(row.Get("role")))
		if role == "" {
			role = string(models.RoleStudent)
		}

		users = append(users, ImportedUser{
			Username: username,
			Password: password,
			Name:     strings.TrimSpace(row.Get("name")),
			Role:     models.UserRole(role),
		})
	}
	return users
}

// UserTemplate returns the downloadable user upload template with two
// illustrative example rows.
func UserTemplate() export.Dataset {
	return export.Dataset{
		Name:    "Users",
		Headers: append([]string(nil), UserColumns...),
		Rows: []map[string]string{
			{"Username": "student101", "Password": "pass123", "Name": "Alice Chen", "Role": "student"},
			{"Username": "admin2", "Password": "securePass", "Name": "Vice Principal", "Role": "admin"},
		},
	}
}
