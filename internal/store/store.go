// Package store provides storage backends for Rallypoint's campaign, group,
// and user directories.
//
// Three implementations share one interface: an in-memory store for tests and
// development, an SQLite store (default), and a PostgreSQL store. The backend
// is picked by DSN detection, the same way the rest of the platform selects
// its database driver.
package store

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/rallypointza/rallypoint/internal/models"
)

// Store is the full persistence surface consumed by the flow engine and the
// API layer. It satisfies flow.CampaignDirectory, flow.GroupDirectory, and
// flow.UserProfileStore.
type Store interface {
	// Campaign directory.
	FindCampaignByJoinWord(ctx context.Context, phrase string) (*models.Campaign, error)
	BroadSearchCampaigns(ctx context.Context, userUID, phrase string) ([]models.Campaign, error)
	LoadCampaign(ctx context.Context, uid string) (*models.Campaign, error)
	CampaignMessages(ctx context.Context, campaignUID string) ([]models.CampaignMessage, error)
	RecordEngagement(ctx context.Context, campaignUID, userUID string, channel models.Channel, note string) error
	ConsumeOutboundBudget(ctx context.Context, campaignUID string, n int64) error
	HasUserShared(ctx context.Context, campaignUID, userUID string) (bool, error)
	HasUserSentMedia(ctx context.Context, campaignUID, userUID string) (bool, error)
	SignPetition(ctx context.Context, campaignUID, userUID string, channel models.Channel) error
	AddUserToMasterGroup(ctx context.Context, campaignUID, userUID string, channel models.Channel) error
	SetJoinTopic(ctx context.Context, campaignUID, userUID, topic string, channel models.Channel) error
	RecordShare(ctx context.Context, campaignUID, userUID string) error
	RecordUserSentMedia(ctx context.Context, campaignUID, userUID string, channel models.Channel) error

	// Group directory.
	SearchGroupByWord(ctx context.Context, userUID, phrase string) (*models.Group, error)
	BroadSearchGroups(ctx context.Context, userUID, phrase string) ([]models.Group, error)
	LoadGroup(ctx context.Context, uid string) (*models.Group, error)
	AddMember(ctx context.Context, groupUID, userUID string, channel models.Channel) error

	// User profiles and audit.
	LoadUser(ctx context.Context, uid string) (*models.ChatUser, error)
	LoadOrCreateUser(ctx context.Context, msisdn string) (*models.ChatUser, error)
	UpdateDisplayName(ctx context.Context, userUID, name string) error
	UpdateProvince(ctx context.Context, userUID string, province models.Province) error
	RecordUserLog(ctx context.Context, userUID string, logType models.UserLogType, details string, channel models.Channel) error

	// Admin seeding surface.
	CreateCampaign(ctx context.Context, req models.CreateCampaignRequest) (*models.Campaign, error)
	CreateCampaignMessage(ctx context.Context, campaignUID string, req models.CreateCampaignMessageRequest) (*models.CampaignMessage, error)
	CreateGroup(ctx context.Context, req models.CreateGroupRequest) (*models.Group, error)

	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType determines the database type from a DSN string. PostgreSQL
// URLs and key-value DSNs are recognized; everything else is treated as an
// SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	if strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname=") {
		return "postgres"
	}
	return "sqlite3"
}

// newUID generates a prefixed unique identifier for a new entity.
func newUID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
