package models

// Project represents a named grouping of issues. The short Code is used
// as the ticket-id prefix and is unique among projects.
type Project struct {
	ID          string
	Name        string
	Code        string
	Description string
	OwnerID     string
	Members     []string // user IDs; may or may not include the owner
}

// IsMember reports whether the user participates in the project.
// The owner counts as a member even when absent from the Members list,
// since seed data is inconsistent about including it.
func (p *Project) IsMember(userID string) bool {
	if userID == "" {
		return false
	}
	if p.OwnerID == userID {
		return true
	}
	for _, m := range p.Members {
		if m == userID {
			return true
		}
	}
	return false
}
