package models

import "strings"

const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// Profile is the verified identity cached alongside the bearer token.
type Profile struct {
	UserID   string   `json:"userId"`
	NRP      string   `json:"nrp"`
	FullName *string  `json:"fullName"`
	Roles    []string `json:"roles"`
}

// HasRole matches case-insensitively against the role set.
func (p *Profile) HasRole(role string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

func (p *Profile) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}

// LoginRequest carries the campus id (NRP) and password. Field names follow
// the backend's PascalCase login contract.
type LoginRequest struct {
	NRP      string `json:"Nrp"`
	Password string `json:"Password"`
}

type LoginResponse struct {
	AccessToken      string   `json:"accessToken"`
	TokenType        string   `json:"tokenType"`
	ExpiresInMinutes int      `json:"expiresInMinutes"`
	UserID           string   `json:"userId"`
	NRP              string   `json:"nrp"`
	FullName         *string  `json:"fullName"`
	Roles            []string `json:"roles"`
}

// Profile extracts the identity part of a login response.
func (r *LoginResponse) Profile() Profile {
	roles := r.Roles
	if roles == nil {
		roles = []string{}
	}
	return Profile{
		UserID:   r.UserID,
		NRP:      r.NRP,
		FullName: r.FullName,
		Roles:    roles,
	}
}
