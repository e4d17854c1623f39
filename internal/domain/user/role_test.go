package user_test

import (
	"testing"

	"github.com/geocoder89/accounthub/internal/domain/user"
)

func TestRoleOf(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want user.Role
	}{
		{name: "admin", in: "admin", want: user.RoleAdmin},
		{name: "user", in: "user", want: user.RoleUser},
		{name: "anonymous", in: "", want: user.RoleGuest},
		{name: "unknown role degrades to guest", in: "superuser", want: user.RoleGuest},
		{name: "case sensitive", in: "Admin", want: user.RoleGuest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := user.RoleOf(tt.in); got != tt.want {
				t.Fatalf("RoleOf(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
