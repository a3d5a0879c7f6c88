package utils

import (
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

var responseLog = logrus.WithField("module", "response")

// SendErrorResponse sends an ephemeral error message.
func SendErrorResponse(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	respond(s, i, "❌ "+message, true)
}

// SendSimpleResponse sends a simple ephemeral message.
func SendSimpleResponse(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	respond(s, i, message, true)
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, message string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: message}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		responseLog.WithError(err).Error("Failed to send interaction response")
	}
}

// DeferResponse defers an interaction response, optionally making it ephemeral.
func DeferResponse(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) error {
	response := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}
	if ephemeral {
		response.Data = &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		}
	}
	return s.InteractionRespond(i.Interaction, response)
}

// SendFollowUpEmbed replaces a deferred response with an embed.
func SendFollowUpEmbed(s *discordgo.Session, i *discordgo.Interaction, embed *discordgo.MessageEmbed) {
	embeds := []*discordgo.MessageEmbed{embed}
	if _, err := s.InteractionResponseEdit(i, &discordgo.WebhookEdit{Embeds: &embeds}); err != nil {
		responseLog.WithError(err).Error("Failed to send follow-up embed")
	}
}

// SendFollowUpError replaces a deferred response with an error message.
func SendFollowUpError(s *discordgo.Session, i *discordgo.Interaction, message string) {
	errorMsg := "❌ " + message
	if _, err := s.InteractionResponseEdit(i, &discordgo.WebhookEdit{Content: &errorMsg}); err != nil {
		responseLog.WithError(err).Error("Failed to send follow-up error")
	}
}
