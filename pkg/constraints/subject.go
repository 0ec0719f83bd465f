package constraints

// Subject kinds an override can be attached to. Organizations are teams with an
// is-organization marker upstream, so they share the team identifier space and
// the team override table.
const (
	SubjectUser         = "user"
	SubjectTeam         = "team"
	SubjectOrganization = "organization"
)

// Feature categories as stored in the catalog.
const (
	TypeRelease     = "release"
	TypeExperiment  = "experiment"
	TypeOperational = "operational"
	TypeKillSwitch  = "kill_switch"
	TypePermission  = "permission"
)
