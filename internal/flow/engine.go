package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rallypointza/rallypoint/internal/models"
)

// Engine resolves inbound chat requests into composed responses. It holds no
// conversation state; each call reconstructs continuity from the request and
// the directories.
type Engine struct {
	campaigns CampaignDirectory
	groups    GroupDirectory
	users     UserProfileStore
	location  LocationResolver
	share     OutboundSender // channel for share sends (WhatsApp)
	sms       OutboundSender // channel for campaign welcome texts
	catalog   *Catalog
	channel   models.Channel
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocationResolver enables GPS pin handling for province replies.
func WithLocationResolver(lr LocationResolver) Option {
	return func(e *Engine) { e.location = lr }
}

// WithShareSender sets the channel used to deliver campaign share messages.
func WithShareSender(s OutboundSender) Option {
	return func(e *Engine) { e.share = s }
}

// WithWelcomeSender sets the channel used to deliver campaign welcome texts.
func WithWelcomeSender(s OutboundSender) Option {
	return func(e *Engine) { e.sms = s }
}

// WithCatalog overrides the default message catalog.
func WithCatalog(c *Catalog) Option {
	return func(e *Engine) { e.catalog = c }
}

// NewEngine creates a flow engine over the given directories.
func NewEngine(campaigns CampaignDirectory, groups GroupDirectory, users UserProfileStore, opts ...Option) *Engine {
	e := &Engine{
		campaigns: campaigns,
		groups:    groups,
		users:     users,
		catalog:   NewCatalog(),
		channel:   models.ChannelWhatsApp,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// loadUser loads and requires a user.
func (e *Engine) loadUser(ctx context.Context, userUID string) (*models.ChatUser, error) {
	user, err := e.users.LoadUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", userUID, err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// messageIndex loads and indexes a campaign's action graph.
func (e *Engine) messageIndex(ctx context.Context, campaignUID string) (*MessageIndex, error) {
	messages, err := e.campaigns.CampaignMessages(ctx, campaignUID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages for campaign %s: %w", campaignUID, err)
	}
	return NewMessageIndex(messages), nil
}

// menuFromMessage renders a message's menu edges as ordered options: payload
// is the action, label is the 1-based ordinal plus the localized action text.
func (e *Engine) menuFromMessage(m *models.CampaignMessage) []models.MenuOption {
	if m == nil || !m.HasMenu() {
		return nil
	}
	menu := make([]models.MenuOption, 0, len(m.NextActions))
	for i, action := range m.NextActions {
		menu = append(menu, models.MenuOption{
			Payload: string(action),
			Label:   fmt.Sprintf("%d. %s", i+1, e.catalog.ActionLabel(action)),
		})
	}
	return menu
}

// dataRequestMessages returns the prompt texts for an outstanding profile
// data request. RequestNone yields the generic positive exit, matching the
// flow's guarantee that the user always gets some message.
func (e *Engine) dataRequestMessages(rt models.RequestDataType, et models.EntityType) []string {
	if key := dataRequestKey(rt, et); key != "" {
		return []string{e.catalog.Text(key)}
	}
	if rt == models.RequestNone {
		return []string{e.catalog.Text(keyGenericExit)}
	}
	slog.Info("no prompt text for data request", "requestDataType", rt, "entityType", et)
	return nil
}

// maybeSendWelcome sends the campaign's welcome text over SMS on first
// engagement, if the campaign pays for outbound messages. Delivery failures
// are logged, not surfaced: the chat flow must not stall on the SMS gateway.
func (e *Engine) maybeSendWelcome(ctx context.Context, campaign *models.Campaign, user *models.ChatUser) {
	if e.sms == nil || campaign.WelcomeText == "" {
		return
	}
	if !campaign.OutboundEnabled || campaign.OutboundBudgetLeft() == 0 {
		slog.Debug("skipping welcome text, no outbound budget", "campaign", campaign.UID)
		return
	}
	if err := e.sms.SendMessage(ctx, user.Msisdn, campaign.WelcomeText); err != nil {
		slog.Warn("failed to send campaign welcome text", "error", err, "campaign", campaign.UID, "user", user.UID)
		return
	}
	if err := e.campaigns.ConsumeOutboundBudget(ctx, campaign.UID, 1); err != nil {
		slog.Error("failed to consume outbound budget after welcome text", "error", err, "campaign", campaign.UID)
	}
	slog.Info("campaign welcome text sent", "campaign", campaign.UID, "user", user.UID)
}
