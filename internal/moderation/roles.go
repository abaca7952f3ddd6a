// Package moderation holds the client-side rules for roles, reports and
// moderator actions. Nothing here talks to the network.
package moderation

import "strings"

type Role string

const (
	RoleUser  Role = "user"
	RoleMod   Role = "mod"
	RoleAdmin Role = "admin"
	RoleOwner Role = "owner"
)

func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mod", "moderator":
		return RoleMod
	case "admin":
		return RoleAdmin
	case "owner":
		return RoleOwner
	}
	return RoleUser
}

func (r Role) rank() int {
	switch r {
	case RoleMod:
		return 1
	case RoleAdmin:
		return 2
	case RoleOwner:
		return 3
	}
	return 0
}

// IsModerator reports whether r is mod or above.
func (r Role) IsModerator() bool { return r.rank() >= RoleMod.rank() }

// MenuPermissions lists the context menu entries available on one item.
type MenuPermissions struct {
	Report      bool
	Delete      bool
	UserActions bool
	Undo        bool
}

// Any reports whether the menu has anything to show.
func (p MenuPermissions) Any() bool {
	return p.Report || p.Delete || p.UserActions || p.Undo
}

// ForMessage returns the menu for a chat message. own is true when the
// viewer wrote the message.
func ForMessage(viewer Role, own bool) MenuPermissions {
	mod := viewer.IsModerator()
	return MenuPermissions{
		Report:      !own,
		Delete:      mod || own,
		UserActions: mod && !own,
	}
}

// ForReport returns the menu for an entry in the reports list. Only
// moderators get one.
func ForReport(viewer Role, status Status) MenuPermissions {
	if !viewer.IsModerator() {
		return MenuPermissions{}
	}
	return MenuPermissions{
		UserActions: status == StatusPending,
		Undo:        status == StatusCompleted,
	}
}
