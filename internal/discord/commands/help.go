package commands

import (
	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/lingvox/internal/discord"
)

// helpColor is the embed accent colour.
const helpColor = 0x5865F2

// HelpText is the body of the /help embed.
const HelpText = "💬 **Translation:** just write text or send voice messages and I translate them automatically.\n\n" +
	"📖 **Dictionary (when I get names wrong):**\n" +
	"• `/dict add source:Ян target:Ian` teaches me to translate 'Ян' as 'Ian' (I add the cases myself).\n" +
	"• `/dict list` shows the substitutions.\n" +
	"• `/dict remove source:Ян` forgets one.\n" +
	"• `/dict export` gives a code to copy the dictionary; `/dict import` loads one by code or JSON file.\n\n" +
	"🌍 **Languages:**\n" +
	"• `/lang set primary:ru secondary:de` switches the pair to Russian-German.\n" +
	"• `/lang reset` goes back to ru-en. `/lang list` lists every code.\n\n" +
	"🔊 **Voice:** `/voice gender` and `/voice preset` choose how the Speak button sounds.\n\n" +
	"⚙️ **Mode:** `/mode` switches between auto, interactive (Translate button), manual and off."

// HelpCommand handles /help.
type HelpCommand struct{}

// Register registers /help with the router.
func (HelpCommand) Register(router *discord.CommandRouter) {
	router.RegisterCommand("help", HelpCommand{}.Definition(), func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		discord.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "🤖 Help",
			Description: HelpText,
			Color:       helpColor,
		})
	})
}

// Definition returns the /help ApplicationCommand for Discord registration.
func (HelpCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "help",
		Description: "How to use the translator",
	}
}
