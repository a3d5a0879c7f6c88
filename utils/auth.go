package utils

import "github.com/bwmarrin/discordgo"

// CanManageGuild reports whether the invoking member may change guild
// settings.
func CanManageGuild(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	perms := i.Member.Permissions
	return perms&discordgo.PermissionAdministrator != 0 || perms&discordgo.PermissionManageGuild != 0
}
