package rbac

// Catalog maps role names to permission sets. It is built once at startup
// and read-only afterwards, so concurrent lookups need no locking.
type Catalog struct {
	grants map[string]map[Permission]struct{}
}

// NewCatalog returns the platform's role catalog.
func NewCatalog() *Catalog {
	return newCatalog(map[string][]Permission{
		RoleAdmin:   {PermUsersView, PermUsersEdit, PermRolesView, PermRolesAssign},
		RoleUser:    {PermUsersView},
		RoleAuditor: {PermUsersView, PermRolesView},
	})
}

func newCatalog(roles map[string][]Permission) *Catalog {
	grants := make(map[string]map[Permission]struct{}, len(roles))
	for role, perms := range roles {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		grants[role] = set
	}
	return &Catalog{grants: grants}
}

// PermissionsFor returns the permission set for a role. Unknown roles yield
// an empty set rather than an error.
func (c *Catalog) PermissionsFor(role string) []Permission {
	set, ok := c.grants[role]
	if !ok {
		return nil
	}
	perms := make([]Permission, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	return perms
}

// Union collapses the permissions of several roles into one deduplicated
// set. Role order never affects the result.
func (c *Catalog) Union(roles []string) map[Permission]struct{} {
	union := make(map[Permission]struct{})
	for _, role := range roles {
		for p := range c.grants[role] {
			union[p] = struct{}{}
		}
	}
	return union
}

// Roles lists the known role names.
func (c *Catalog) Roles() []string {
	names := make([]string, 0, len(c.grants))
	for name := range c.grants {
		names = append(names, name)
	}
	return names
}

// Knows reports whether the catalog defines the given role.
func (c *Catalog) Knows(role string) bool {
	_, ok := c.grants[role]
	return ok
}
