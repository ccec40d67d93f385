package steering

// Role selects the behaviour policy of an agent
type Role uint8

const (
	RoleNone Role = iota
	RolePrey
	RoleHunter
)

func (r Role) String() string {
	switch r {
	case RolePrey:
		return "prey"
	case RoleHunter:
		return "hunter"
	default:
		return "none"
	}
}

// Valid reports whether r names a steerable role
func (r Role) Valid() bool {
	return r == RolePrey || r == RoleHunter
}

// AgentID is a stable handle, never reused within a coordinator lifetime
// Zero means unset
type AgentID uint64

// ObstacleID is a stable obstacle handle, zero means unset
type ObstacleID uint64
