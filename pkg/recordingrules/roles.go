package recordingrules

import "fmt"

// Role is the slot a template fills among the default rule groups. The
// recommendations API returns the default templates in role order.
type Role int

// Default rule-group roles, in provisioning order.
const (
	RoleNode Role = iota
	RoleKubernetes
	RoleNodeWindows
	RoleNodeKubernetesWindows
)

// Roles lists every role in provisioning order.
var Roles = []Role{RoleNode, RoleKubernetes, RoleNodeWindows, RoleNodeKubernetesWindows}

func (r Role) String() string {
	switch r {
	case RoleNode:
		return "node-recording"
	case RoleKubernetes:
		return "kubernetes-recording"
	case RoleNodeWindows:
		return "node-recording-win"
	case RoleNodeKubernetesWindows:
		return "node-kubernetes-recording-win"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Windows reports whether the role only applies to Windows node pools.
func (r Role) Windows() bool {
	return r == RoleNodeWindows || r == RoleNodeKubernetesWindows
}

// Assignment pairs a role with the template that provides it.
type Assignment struct {
	Role     Role
	Template Template
}

// AssignRoles maps the accepted templates onto Roles. It fails when fewer
// templates than roles were accepted, or when an assigned template has no
// resource to take rules from.
func AssignRoles(templates []Template) ([]Assignment, error) {
	if len(templates) < len(Roles) {
		return nil, fmt.Errorf("%w: found %d compliant templates, need %d",
			ErrInsufficientTemplates, len(templates), len(Roles))
	}

	out := make([]Assignment, 0, len(Roles))

	for i, role := range Roles {
		t := templates[i]
		if len(t.Resources) == 0 {
			return nil, fmt.Errorf("%w: %q for role %s", ErrTemplateWithoutResources, t.Name, role)
		}

		out = append(out, Assignment{Role: role, Template: t})
	}

	return out, nil
}
