package identity

import (
	"context"
	"errors"
	"testing"
)

func TestRequirePatient(t *testing.T) {
	tests := []struct {
		name    string
		profile *Profile
		wantErr error
	}{
		{"nil profile", nil, ErrNotAuthenticated},
		{"empty user id", &Profile{Role: RolePatient}, ErrNotAuthenticated},
		{"staff role", &Profile{UserID: "u1", Role: RoleStaff}, ErrNotPatient},
		{"admin role", &Profile{UserID: "u1", Role: RoleAdmin}, ErrNotPatient},
		{"patient", &Profile{UserID: "u1", Role: RolePatient}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RequirePatient(tt.profile)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil && got != tt.profile {
				t.Error("expected the profile back on success")
			}
		})
	}
}

func TestProfileContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if _, ok := FromContext(ctx); ok {
		t.Fatal("expected no profile on a fresh context")
	}

	p := &Profile{UserID: "u1", Role: RolePatient, FullName: "Pat Doe"}
	ctx = WithProfile(ctx, p)
	got, ok := FromContext(ctx)
	if !ok || got.FullName != "Pat Doe" {
		t.Fatalf("expected stored profile, got %v ok=%v", got, ok)
	}
}
