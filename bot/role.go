package bot

// Role is one of the two accounts the bot connects as.
type Role int

const (
	RoleBot Role = iota
	RoleBroadcaster
)

var roles = [...]Role{RoleBot, RoleBroadcaster}

func (r Role) String() string {
	switch r {
	case RoleBot:
		return "bot"
	case RoleBroadcaster:
		return "broadcaster"
	default:
		return "unknown"
	}
}
