package models

const AccountStatusActive = "ACTIVE"

// UserPermissions is the answer of the permissions endpoint.
type UserPermissions struct {
	Username    string   `json:"username,omitempty"`
	Status      string   `json:"status"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
}

func (p *UserPermissions) IsActive() bool {
	return p != nil && p.Status == AccountStatusActive
}

func (p *UserPermissions) Has(permission string) bool {
	if p == nil {
		return false
	}
	for _, perm := range p.Permissions {
		if perm == permission {
			return true
		}
	}
	return false
}
