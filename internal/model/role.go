package model

import (
	"errors"
	"strings"
)

// RoleName is the closed set of roles a user can hold.
type RoleName string

const (
	RoleAdmin    RoleName = "ADMIN"
	RoleCustomer RoleName = "CUSTOMER"
)

// ErrUnknownRole is returned by ParseRoleName for names outside the set.
var ErrUnknownRole = errors.New("unknown role")

// Capability names an action guarded by authorization.
type Capability string

const (
	CapProfileRead    Capability = "profile:read"
	CapOrdersPlace    Capability = "orders:place"
	CapInventoryRead  Capability = "inventory:read"
	CapInventoryWrite Capability = "inventory:write"
)

var capabilities = map[RoleName]map[Capability]bool{
	RoleAdmin: {
		CapProfileRead:    true,
		CapInventoryRead:  true,
		CapInventoryWrite: true,
	},
	RoleCustomer: {
		CapProfileRead: true,
		CapOrdersPlace: true,
	},
}

// ParseRoleName trims and upper-cases s and returns the matching role.
func ParseRoleName(s string) (RoleName, error) {
	r := RoleName(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r RoleName) Valid() bool {
	_, ok := capabilities[r]
	return ok
}

// Can reports whether the role's capability set contains c.
func (r RoleName) Can(c Capability) bool {
	return capabilities[r][c]
}

// Capabilities returns the role's capabilities in a stable order.
func (r RoleName) Capabilities() []Capability {
	all := []Capability{CapProfileRead, CapOrdersPlace, CapInventoryRead, CapInventoryWrite}
	out := make([]Capability, 0, len(all))
	for _, c := range all {
		if r.Can(c) {
			out = append(out, c)
		}
	}
	return out
}

func (r RoleName) String() string { return string(r) }
