package suggestions

import (
	"testing"

	"suggestion-bot/internal/domain"
)

func TestAuthorize(t *testing.T) {
	cfg := &domain.ChannelConfig{GuildID: "G1", ChannelID: "C42", AllowedRoleID: "R7"}
	tests := []struct {
		name  string
		roles domain.RoleSet
		cfg   *domain.ChannelConfig
		want  bool
	}{
		{name: "holder of allowed role", roles: domain.RoleSet{"R1", "R7"}, cfg: cfg, want: true},
		{name: "missing role", roles: domain.RoleSet{"R1"}, cfg: cfg, want: false},
		{name: "no roles", roles: nil, cfg: cfg, want: false},
		{name: "no config means no restriction", roles: nil, cfg: nil, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Authorize(tt.roles, tt.cfg); got != tt.want {
				t.Fatalf("Authorize(%v) = %v, want %v", tt.roles, got, tt.want)
			}
		})
	}
}
