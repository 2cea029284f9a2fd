// Package flow implements the conversational flow-resolution engine for
// Rallypoint.
//
// The engine is stateless: every request carries the full conversation
// context (entity type and uid, prior message uid, outstanding data request)
// and the engine reconstructs continuity from that plus persisted state. It
// talks to campaigns, groups, and user profiles through the narrow
// collaborator interfaces defined here.
package flow

import (
	"context"
	"errors"

	"github.com/rallypointza/rallypoint/internal/models"
)

// ErrUserNotFound is returned when a request names a user uid that does not
// exist. Unlike a phrase that matches nothing, this is a hard error: the
// channel adapter should have bootstrapped the user first.
var ErrUserNotFound = errors.New("user not found")

// CampaignDirectory is the engine's view of campaign persistence and
// campaign side-effect actions. Every mutating call must be idempotent or
// naturally convergent, since concurrent replies may repeat an action.
type CampaignDirectory interface {
	// FindCampaignByJoinWord resolves an exact join-word match,
	// case-insensitively. Returns nil without error when nothing matches.
	FindCampaignByJoinWord(ctx context.Context, phrase string) (*models.Campaign, error)

	// BroadSearchCampaigns runs a fuzzy search over campaign names and join
	// words, ranked by the directory.
	BroadSearchCampaigns(ctx context.Context, userUID, phrase string) ([]models.Campaign, error)

	// LoadCampaign returns the campaign, or nil when unknown.
	LoadCampaign(ctx context.Context, uid string) (*models.Campaign, error)

	// CampaignMessages returns every authored message node of the campaign.
	// The engine indexes them itself.
	CampaignMessages(ctx context.Context, campaignUID string) ([]models.CampaignMessage, error)

	// RecordEngagement records that the user engaged with the campaign on
	// the given channel, with an optional context note.
	RecordEngagement(ctx context.Context, campaignUID, userUID string, channel models.Channel, note string) error

	// ConsumeOutboundBudget deducts n outbound messages from the campaign
	// budget.
	ConsumeOutboundBudget(ctx context.Context, campaignUID string, n int64) error

	HasUserShared(ctx context.Context, campaignUID, userUID string) (bool, error)
	HasUserSentMedia(ctx context.Context, campaignUID, userUID string) (bool, error)

	SignPetition(ctx context.Context, campaignUID, userUID string, channel models.Channel) error
	AddUserToMasterGroup(ctx context.Context, campaignUID, userUID string, channel models.Channel) error
	SetJoinTopic(ctx context.Context, campaignUID, userUID, topic string, channel models.Channel) error
	RecordShare(ctx context.Context, campaignUID, userUID string) error
	RecordUserSentMedia(ctx context.Context, campaignUID, userUID string, channel models.Channel) error
}

// GroupDirectory is the engine's view of group persistence.
type GroupDirectory interface {
	// SearchGroupByWord resolves an exact join-word match. Returns nil
	// without error when nothing matches.
	SearchGroupByWord(ctx context.Context, userUID, phrase string) (*models.Group, error)

	// BroadSearchGroups runs a fuzzy search over public group names.
	BroadSearchGroups(ctx context.Context, userUID, phrase string) ([]models.Group, error)

	// LoadGroup returns the group, or nil when unknown.
	LoadGroup(ctx context.Context, uid string) (*models.Group, error)

	// AddMember adds the user to the group. Adding an existing member is a
	// no-op.
	AddMember(ctx context.Context, groupUID, userUID string, channel models.Channel) error
}

// UserProfileStore is the engine's view of user profiles and audit logging.
type UserProfileStore interface {
	// LoadUser returns the user, or nil when unknown.
	LoadUser(ctx context.Context, uid string) (*models.ChatUser, error)

	UpdateDisplayName(ctx context.Context, userUID, name string) error
	UpdateProvince(ctx context.Context, userUID string, province models.Province) error

	// RecordUserLog writes an audit record for the user.
	RecordUserLog(ctx context.Context, userUID string, logType models.UserLogType, details string, channel models.Channel) error
}

// LocationResolver turns a GPS pin into a province.
type LocationResolver interface {
	ProvinceForLocation(ctx context.Context, loc models.GeoLocation) (models.Province, error)
}

// OutboundSender delivers a single outbound message on some channel. Share
// sends and welcome texts go through this; delivery is fire-and-forget from
// the engine's point of view.
type OutboundSender interface {
	SendMessage(ctx context.Context, to string, body string) error
}
