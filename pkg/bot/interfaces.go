package bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"socialsim/pkg/jobs"
	"socialsim/pkg/media"
	"socialsim/pkg/persona"
	"socialsim/pkg/sim"
	"socialsim/pkg/world"
)

// Session interface abstracts discordgo.Session for testing
type Session interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendReply(channelID string, content string, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) (err error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

// DiscordSession adapts discordgo.Session to the Session interface
type DiscordSession struct {
	*discordgo.Session
}

// Engine is the slice of sim.Engine the transport drives.
type Engine interface {
	Catalog() *persona.Catalog
	CreateProfile(ctx context.Context, userID string, age int) (*world.State, error)
	Reset(ctx context.Context, userID string) error
	Status(ctx context.Context, userID string, now time.Time) ([]sim.RosterEntry, error)
	Open(ctx context.Context, userID, key string, now time.Time) (*sim.OpenResult, error)
	Send(ctx context.Context, userID, key, text string, now time.Time) (*sim.TurnResult, error)
	Apologize(ctx context.Context, userID, key, text string) (*sim.ApologyResult, error)
	PollImage(id string) (jobs.Snapshot[*media.Image], error)
	CancelImage(id string) error
}

var _ Engine = (*sim.Engine)(nil)
