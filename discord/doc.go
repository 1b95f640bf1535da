// Package discord connects keybot to Discord through discordgo: the gateway
// session that receives slash commands, guild command registration and the
// REST backed IdentityVerifier.
package discord
