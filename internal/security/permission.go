package security

import (
	"fmt"
	"strings"

	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

// Permission is a Unix-style resource access grant: resource[rwx].
type Permission struct {
	Resource string
	Read     bool
	Write    bool
	Execute  bool
}

// Allows reports whether action ("read"/"r", "write"/"w", "execute"/"x")
// is granted.
func (p Permission) Allows(action string) bool {
	switch action {
	case "read", "r":
		return p.Read
	case "write", "w":
		return p.Write
	case "execute", "x":
		return p.Execute
	default:
		return false
	}
}

// MatchesResource supports exact, wildcard ("*"), and hierarchical
// ("content/blog/*") resource matching.
func (p Permission) MatchesResource(resource string) bool {
	if p.Resource == "*" || p.Resource == resource {
		return true
	}
	if strings.HasSuffix(p.Resource, "/*") {
		prefix := p.Resource[:len(p.Resource)-2]
		return strings.HasPrefix(resource, prefix)
	}
	return false
}

func (p Permission) String() string {
	r, w, x := '-', '-', '-'
	if p.Read {
		r = 'r'
	}
	if p.Write {
		w = 'w'
	}
	if p.Execute {
		x = 'x'
	}
	return fmt.Sprintf("%s[%c%c%c]", p.Resource, r, w, x)
}

// ParsePermission parses "resource[rwx]" into a Permission, rejecting any
// deviation from the three-character rwx/--- format.
func ParsePermission(perm string) (Permission, error) {
	trimmed := strings.TrimSpace(perm)

	open := strings.IndexByte(trimmed, '[')
	if open < 0 {
		return Permission{}, reedstream.Validation("permission", perm, "missing opening bracket [")
	}
	close := strings.IndexByte(trimmed, ']')
	if close < 0 {
		return Permission{}, reedstream.Validation("permission", perm, "missing closing bracket ]")
	}
	if close != len(trimmed)-1 {
		return Permission{}, reedstream.Validation("permission", perm, "closing bracket ] must be at end")
	}

	resource := trimmed[:open]
	flags := trimmed[open+1 : close]

	if resource == "" {
		return Permission{}, reedstream.Validation("permission", perm, "resource name cannot be empty")
	}
	if len(flags) != 3 {
		return Permission{}, reedstream.Validation("permission", perm, "permissions must be exactly 3 characters (rwx format)")
	}

	read, err := parseFlag(flags[0], 'r', perm, "first")
	if err != nil {
		return Permission{}, err
	}
	write, err := parseFlag(flags[1], 'w', perm, "second")
	if err != nil {
		return Permission{}, err
	}
	execute, err := parseFlag(flags[2], 'x', perm, "third")
	if err != nil {
		return Permission{}, err
	}

	return Permission{Resource: resource, Read: read, Write: write, Execute: execute}, nil
}

func parseFlag(c byte, want byte, perm, position string) (bool, error) {
	switch c {
	case want:
		return true, nil
	case '-':
		return false, nil
	default:
		return false, reedstream.Validation("permission", perm, fmt.Sprintf("%s character must be '%c' or '-'", position, want))
	}
}

// ParsePermissions parses a comma-separated permission list, e.g.
// "text[rwx],route[rw-],*[r--]".
func ParsePermissions(perms string) ([]Permission, error) {
	var result []Permission
	for _, p := range strings.Split(perms, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		perm, err := ParsePermission(p)
		if err != nil {
			return nil, err
		}
		result = append(result, perm)
	}
	return result, nil
}

// FormatPermissions renders perms back to comma-separated string form.
func FormatPermissions(perms []Permission) string {
	parts := make([]string, len(perms))
	for i, p := range perms {
		parts[i] = p.String()
	}
	return strings.Join(parts, ",")
}
