package discord

import (
	"slices"

	"github.com/bwmarrin/discordgo"
)

// PermissionChecker decides who may change a channel's translation settings.
type PermissionChecker struct {
	managerRoleID string
}

// NewPermissionChecker creates a PermissionChecker for the given manager
// role ID.
func NewPermissionChecker(managerRoleID string) *PermissionChecker {
	return &PermissionChecker{managerRoleID: managerRoleID}
}

// CanManage reports whether the interaction author may change settings.
// Without a configured role everyone may. Members with the Manage Channels
// permission always may. Interactions outside a guild are refused when a
// role is configured.
func (p *PermissionChecker) CanManage(i *discordgo.InteractionCreate) bool {
	if p.managerRoleID == "" {
		return true
	}
	if i.Member == nil {
		return false
	}
	if i.Member.Permissions&discordgo.PermissionManageChannels != 0 {
		return true
	}
	return slices.Contains(i.Member.Roles, p.managerRoleID)
}
