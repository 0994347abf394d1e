// Package roles maps user roles to their badge and sidebar menu.
package roles

import "strconv"

// Role is the closed set of user roles. The numeric values match the API.
type Role int

const (
	Admin      Role = 0
	Supervisor Role = 1
	User       Role = 2
)

// FromInt maps an API role code to a Role. Unknown codes are User.
func FromInt(code int) Role {
	switch Role(code) {
	case Admin, Supervisor, User:
		return Role(code)
	}
	return User
}

// Parse accepts a role code ("0") or name ("admin").
func Parse(s string) Role {
	switch s {
	case "admin", "Admin":
		return Admin
	case "supervisor", "Supervisor":
		return Supervisor
	}
	if n, err := strconv.Atoi(s); err == nil {
		return FromInt(n)
	}
	return User
}

// Badge is the label shown next to the user's name.
func (r Role) Badge() string {
	switch r {
	case Admin:
		return "Admin"
	case Supervisor:
		return "Supervisor"
	}
	return "User"
}

func (r Role) String() string { return r.Badge() }

// CanManageAgents reports whether the role may list and edit agents.
func (r Role) CanManageAgents() bool {
	return r == Admin
}

// View is the screen a menu item opens. ViewNone items are navigation
// placeholders with nothing behind them.
type View int

const (
	ViewNone View = iota
	ViewHistory
	ViewRecord
	ViewAccount
	ViewAgents
)

// Item is one sidebar entry.
type Item struct {
	Label string
	View  View
}

// Section groups items under an optional title.
type Section struct {
	Title string
	Items []Item
}

// Menu is the ordered list of sidebar sections.
type Menu []Section

var (
	myRecordings = Item{Label: "My Recordings", View: ViewHistory}
	newRecording = Item{Label: "New Recording", View: ViewRecord}
	account      = Section{Title: "Account", Items: []Item{{Label: "My Account", View: ViewAccount}}}
)

var menus = map[Role]Menu{
	User: {
		{Items: []Item{myRecordings, newRecording}},
		{Title: "Teams", Items: []Item{{Label: "My Teams"}}},
		account,
	},
	Supervisor: {
		{Items: []Item{myRecordings, newRecording}},
		{Title: "Team Management", Items: []Item{
			{Label: "My Teams"},
			{Label: "Team Recordings"},
		}},
		account,
	},
	Admin: {
		{Items: []Item{myRecordings, newRecording}},
		{Title: "Administration", Items: []Item{
			{Label: "All Recordings"},
			{Label: "Users"},
			{Label: "Teams"},
			{Label: "Settings", View: ViewAgents},
		}},
		account,
	},
}

// MenuFor returns the sidebar menu for r.
func MenuFor(r Role) Menu {
	if m, ok := menus[r]; ok {
		return m
	}
	return menus[User]
}

// Items flattens the menu in display order.
func (m Menu) Items() []Item {
	var items []Item
	for _, s := range m {
		items = append(items, s.Items...)
	}
	return items
}
