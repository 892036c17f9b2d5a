// Package identity exposes the authenticated actor's profile to the booking
// workflow. The portal's session service authenticates the user; this package
// only consumes the resulting claims.
package identity

import (
	"context"
	"errors"
)

// Roles recognized by the portal.
const (
	RolePatient = "patient"
	RoleStaff   = "staff"
	RoleAdmin   = "admin"
)

var (
	// ErrNotAuthenticated means no valid credentials accompanied the request.
	// Not retryable from within the workflow; the caller must re-authenticate.
	ErrNotAuthenticated = errors.New("identity: not authenticated")
	// ErrNotPatient means the actor is authenticated but cannot book
	// appointments for themselves.
	ErrNotPatient = errors.New("identity: actor is not a patient")
)

// Profile is the authenticated user's record as supplied by the identity
// service. It seeds the booking draft's patient section.
type Profile struct {
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	DateOfBirth  string `json:"date_of_birth"`
	Address      string `json:"address"`
	InsuranceRef string `json:"insurance_ref"`
}

// RequirePatient returns the profile if it belongs to a patient.
func RequirePatient(p *Profile) (*Profile, error) {
	if p == nil || p.UserID == "" {
		return nil, ErrNotAuthenticated
	}
	if p.Role != RolePatient {
		return nil, ErrNotPatient
	}
	return p, nil
}

type contextKey string

const profileKey contextKey = "identityProfile"

// WithProfile stores the authenticated profile on the context.
func WithProfile(ctx context.Context, p *Profile) context.Context {
	return context.WithValue(ctx, profileKey, p)
}

// FromContext returns the authenticated profile if present.
func FromContext(ctx context.Context) (*Profile, bool) {
	p, ok := ctx.Value(profileKey).(*Profile)
	return p, ok && p != nil
}
