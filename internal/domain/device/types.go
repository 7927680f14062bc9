package device

type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusRevoked Status = "REVOKED"
	StatusExpired Status = "EXPIRED"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusRevoked, StatusExpired:
		return true
	}
	return false
}

// PermissionSnapshot is the permission set resolved for the owning user at
// registration time. It is embedded in the device so a disconnected client
// can enforce permissions locally; the server never trusts it at replay.
type PermissionSnapshot struct {
	Permissions []string `json:"permissions"`
	RoleIDs     []string `json:"roleIds"`
}

func (p PermissionSnapshot) Has(permission string) bool {
	for _, v := range p.Permissions {
		if v == permission {
			return true
		}
	}
	return false
}
