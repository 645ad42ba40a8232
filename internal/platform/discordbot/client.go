// internal/platform/discordbot/client.go

// Package discordbot adapts a discordgo session to the sync engine's
// ChatClient. Existence checks go through the session's State cache so a
// sync pass costs no extra REST round trips; only mutations hit the API.
package discordbot

import (
	"context"
	"slices"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Client struct {
	s   *discordgo.Session
	log *zap.Logger
}

// New creates the session without opening it; call Open once the app is
// ready to receive gateway events. Member, guild, and scheduled-event
// intents are required to keep the state cache usable for reconciliation.
func New(token string, logger *zap.Logger) (*Client, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildScheduledEvents
	s.StateEnabled = true
	return &Client{s: s, log: logger}, nil
}

// Open connects the gateway session and begins filling the state cache.
func (c *Client) Open() error {
	return c.s.Open()
}

func (c *Client) Close() error {
	return c.s.Close()
}

// ChannelExists reports whether the channel (or category; categories are
// channels) is present in the local state cache. A resource deleted
// out-of-band may appear to exist until the cache is invalidated; that
// staleness window is accepted.
func (c *Client) ChannelExists(channelID string) bool {
	if channelID == "" {
		return false
	}
	_, err := c.s.State.Channel(channelID)
	return err == nil
}

func (c *Client) CreateCategory(ctx context.Context, guildID, name string) (string, error) {
	ch, err := c.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name: name,
		Type: discordgo.ChannelTypeGuildCategory,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}

func (c *Client) CreateTextChannel(ctx context.Context, guildID, parentID, name string) (string, error) {
	ch, err := c.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:     name,
		Type:     discordgo.ChannelTypeGuildText,
		ParentID: parentID,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}

func (c *Client) CreateVoiceChannel(ctx context.Context, guildID, parentID, name string) (string, error) {
	ch, err := c.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:     name,
		Type:     discordgo.ChannelTypeGuildVoice,
		ParentID: parentID,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}

func (c *Client) CreateScheduledEvent(ctx context.Context, guildID, channelID, name string, start, end time.Time) (string, error) {
	ev, err := c.s.GuildScheduledEventCreate(guildID, &discordgo.GuildScheduledEventParams{
		Name:               name,
		ChannelID:          channelID,
		ScheduledStartTime: &start,
		ScheduledEndTime:   &end,
		EntityType:         discordgo.GuildScheduledEventEntityTypeVoice,
		PrivacyLevel:       discordgo.GuildScheduledEventPrivacyLevelGuildOnly,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return ev.ID, nil
}

// RoleMemberIDs reads the role's current holders from the cached guild
// member list.
func (c *Client) RoleMemberIDs(guildID, roleID string) ([]string, error) {
	g, err := c.s.State.Guild(guildID)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, m := range g.Members {
		if slices.Contains(m.Roles, roleID) {
			ids = append(ids, m.User.ID)
		}
	}
	return ids, nil
}

func (c *Client) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	return c.s.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
}

func (c *Client) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	return c.s.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx))
}

// VoiceConnectOverrideIDs reads the channel's overwrite table from the
// state cache and returns the members holding a connect allow.
func (c *Client) VoiceConnectOverrideIDs(channelID string) ([]string, error) {
	ch, err := c.s.State.Channel(channelID)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, ow := range ch.PermissionOverwrites {
		if ow.Type == discordgo.PermissionOverwriteTypeMember &&
			ow.Allow&discordgo.PermissionVoiceConnect != 0 {
			ids = append(ids, ow.ID)
		}
	}
	return ids, nil
}

func (c *Client) GrantVoiceConnect(ctx context.Context, channelID, userID string) error {
	allow := int64(discordgo.PermissionVoiceConnect | discordgo.PermissionViewChannel)
	return c.s.ChannelPermissionSet(channelID, userID,
		discordgo.PermissionOverwriteTypeMember, allow, 0, discordgo.WithContext(ctx))
}

func (c *Client) RevokeVoiceConnect(ctx context.Context, channelID, userID string) error {
	return c.s.ChannelPermissionDelete(channelID, userID, discordgo.WithContext(ctx))
}

func (c *Client) SendChannelMessage(ctx context.Context, channelID, content string) error {
	_, err := c.s.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return err
}

func (c *Client) SendDirectMessage(ctx context.Context, userID, content string) error {
	dm, err := c.s.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	_, err = c.s.ChannelMessageSend(dm.ID, content, discordgo.WithContext(ctx))
	return err
}
