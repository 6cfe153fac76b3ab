package domain

// Role identifies the coarse access level attached to a user profile.
type Role string

const (
	RoleCandidate Role = "candidate"
	RoleRecruiter Role = "recruiter"
	RoleAdmin     Role = "admin"
)

// Application identifiers for the suite of independently deployed apps.
const (
	AppReelCV      = "reelcv"
	AppReelHunter  = "reelhunter"
	AppReelSkills  = "reelskills"
	AppReelPersona = "reelpersona"
	AppReelProject = "reelproject"
)

// AccessPolicy maps roles to the application identifiers they may reach.
// Admin is implicit: it reaches every known application without an explicit grant.
type AccessPolicy struct {
	Apps  []string
	Roles map[Role][]string
}

// DefaultAccessPolicy returns the static role/app table shipped with the platform.
func DefaultAccessPolicy() AccessPolicy {
	return AccessPolicy{
		Apps: []string{AppReelCV, AppReelHunter, AppReelSkills, AppReelPersona, AppReelProject},
		Roles: map[Role][]string{
			RoleCandidate: {AppReelCV, AppReelSkills, AppReelPersona, AppReelProject},
			RoleRecruiter: {AppReelHunter, AppReelPersona, AppReelProject},
		},
	}
}

// HasAccess reports whether the role may reach the given application.
// Unrecognized roles and unknown applications yield no access.
func (p AccessPolicy) HasAccess(role Role, appID string) bool {
	if role == RoleAdmin {
		for _, app := range p.Apps {
			if app == appID {
				return true
			}
		}
		return false
	}

	for _, app := range p.Roles[role] {
		if app == appID {
			return true
		}
	}
	return false
}

// AllowedApps returns the application identifiers the role may reach.
// An unrecognized role yields an empty list.
func (p AccessPolicy) AllowedApps(role Role) []string {
	if role == RoleAdmin {
		apps := make([]string, len(p.Apps))
		copy(apps, p.Apps)
		return apps
	}

	grants, ok := p.Roles[role]
	if !ok {
		return []string{}
	}

	apps := make([]string, len(grants))
	copy(apps, grants)
	return apps
}

// Profile is the user profile snapshot fetched alongside a session. Only the
// role participates in authorization; the snapshot rides along for consumers.
type Profile struct {
	UserID   string
	Role     Role
	Snapshot map[string]any
}
