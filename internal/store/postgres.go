package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/rallypointza/rallypoint/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists the directories in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store and runs migrations.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "dsn_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("failed to open PostgreSQL connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("PostgreSQL ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("failed to run PostgreSQL migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgreSQL migrations applied")

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) FindCampaignByJoinWord(ctx context.Context, phrase string) (*models.Campaign, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE LOWER(join_word) = LOWER($1)`, phrase)
	c, err := scanCampaign(row)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find campaign by join word: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) BroadSearchCampaigns(ctx context.Context, userUID, phrase string) ([]models.Campaign, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns
		 WHERE name ILIKE '%' || $1 || '%' OR join_word ILIKE '%' || $1 || '%'
		 ORDER BY name`, phrase)
	if err != nil {
		return nil, fmt.Errorf("failed to broad search campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate campaign rows: %w", err)
	}
	return campaigns, nil
}

func (s *PostgresStore) LoadCampaign(ctx context.Context, uid string) (*models.Campaign, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE uid = $1`, uid)
	c, err := scanCampaign(row)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign %s: %w", uid, err)
	}
	return c, nil
}

func (s *PostgresStore) CampaignMessages(ctx context.Context, campaignUID string) ([]models.CampaignMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM campaign_messages
		 WHERE campaign_uid = $1 ORDER BY sort_order, uid`, campaignUID)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign messages: %w", err)
	}
	defer rows.Close()

	var messages []models.CampaignMessage
	for rows.Next() {
		m, err := scanCampaignMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	return messages, nil
}

func (s *PostgresStore) RecordEngagement(ctx context.Context, campaignUID, userUID string, channel models.Channel, note string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO campaign_engagements (campaign_uid, user_uid, channel, note, created_at)
		 VALUES ($1, $2, $3, $4, $5)`, campaignUID, userUID, channel, note, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record engagement: %w", err)
	}
	slog.Debug("PostgresStore engagement recorded", "campaign", campaignUID, "user", userUID)
	return nil
}

func (s *PostgresStore) ConsumeOutboundBudget(ctx context.Context, campaignUID string, n int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE campaigns SET outbound_spent = outbound_spent + $1 WHERE uid = $2`, n, campaignUID)
	if err != nil {
		return fmt.Errorf("failed to consume outbound budget: %w", err)
	}
	return nil
}

func (s *PostgresStore) HasUserShared(ctx context.Context, campaignUID, userUID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM campaign_shares WHERE campaign_uid = $1 AND user_uid = $2)`,
		campaignUID, userUID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check share state: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) HasUserSentMedia(ctx context.Context, campaignUID, userUID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM campaign_media WHERE campaign_uid = $1 AND user_uid = $2)`,
		campaignUID, userUID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check media state: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) SignPetition(ctx context.Context, campaignUID, userUID string, channel models.Channel) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO petition_signatures (campaign_uid, user_uid, channel, signed_at)
		 VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
		campaignUID, userUID, channel, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to sign petition: %w", err)
	}
	slog.Debug("PostgresStore petition signed", "campaign", campaignUID, "user", userUID)
	return nil
}

func (s *PostgresStore) AddUserToMasterGroup(ctx context.Context, campaignUID, userUID string, channel models.Channel) error {
	campaign, err := s.LoadCampaign(ctx, campaignUID)
	if err != nil {
		return err
	}
	if campaign == nil {
		return fmt.Errorf("campaign %s not found", campaignUID)
	}
	if campaign.MasterGroupUID == "" {
		return fmt.Errorf("campaign %s has no master group", campaignUID)
	}
	return s.AddMember(ctx, campaign.MasterGroupUID, userUID, channel)
}

func (s *PostgresStore) SetJoinTopic(ctx context.Context, campaignUID, userUID, topic string, channel models.Channel) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO join_topics (campaign_uid, user_uid, topic, channel)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (campaign_uid, user_uid) DO UPDATE SET topic = excluded.topic`,
		campaignUID, userUID, topic, channel)
	if err != nil {
		return fmt.Errorf("failed to set join topic: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordShare(ctx context.Context, campaignUID, userUID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO campaign_shares (campaign_uid, user_uid, shared_at)
		 VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		campaignUID, userUID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record share: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordUserSentMedia(ctx context.Context, campaignUID, userUID string, channel models.Channel) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO campaign_media (campaign_uid, user_uid, channel, recorded_at)
		 VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
		campaignUID, userUID, channel, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record media: %w", err)
	}
	return nil
}

func (s *PostgresStore) SearchGroupByWord(ctx context.Context, userUID, phrase string) (*models.Group, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM chat_groups
		 WHERE join_word != '' AND LOWER(join_word) = LOWER($1)`, phrase)
	g, err := scanGroup(row)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search group by word: %w", err)
	}
	return g, nil
}

func (s *PostgresStore) BroadSearchGroups(ctx context.Context, userUID, phrase string) ([]models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM chat_groups
		 WHERE name ILIKE '%' || $1 || '%' ORDER BY name`, phrase)
	if err != nil {
		return nil, fmt.Errorf("failed to broad search groups: %w", err)
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group rows: %w", err)
	}
	return groups, nil
}

func (s *PostgresStore) LoadGroup(ctx context.Context, uid string) (*models.Group, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM chat_groups WHERE uid = $1`, uid)
	g, err := scanGroup(row)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load group %s: %w", uid, err)
	}
	return g, nil
}

func (s *PostgresStore) AddMember(ctx context.Context, groupUID, userUID string, channel models.Channel) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO group_memberships (group_uid, user_uid, channel, joined_at)
		 VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
		groupUID, userUID, channel, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to add member to group %s: %w", groupUID, err)
	}
	slog.Debug("PostgresStore member added", "group", groupUID, "user", userUID)
	return nil
}

func (s *PostgresStore) LoadUser(ctx context.Context, uid string) (*models.ChatUser, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM chat_users WHERE uid = $1`, uid)
	u, err := scanUser(row)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", uid, err)
	}
	return u, nil
}

func (s *PostgresStore) LoadOrCreateUser(ctx context.Context, msisdn string) (*models.ChatUser, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM chat_users WHERE msisdn = $1`, msisdn)
	u, err := scanUser(row)
	if err == nil {
		return u, nil
	}
	if !noRows(err) {
		return nil, fmt.Errorf("failed to look up user by msisdn: %w", err)
	}

	now := time.Now().UTC()
	user := &models.ChatUser{UID: newUID("user"), Msisdn: msisdn, CreatedAt: now, UpdatedAt: now}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chat_users (uid, msisdn, display_name, province, created_at, updated_at)
		 VALUES ($1, $2, '', '', $3, $4)`, user.UID, user.Msisdn, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create user for msisdn: %w", err)
	}
	slog.Info("PostgresStore user created", "uid", user.UID)
	return user, nil
}

func (s *PostgresStore) UpdateDisplayName(ctx context.Context, userUID, name string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chat_users SET display_name = $1, updated_at = $2 WHERE uid = $3`,
		name, time.Now().UTC(), userUID)
	if err != nil {
		return fmt.Errorf("failed to update display name: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateProvince(ctx context.Context, userUID string, province models.Province) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chat_users SET province = $1, updated_at = $2 WHERE uid = $3`,
		province, time.Now().UTC(), userUID)
	if err != nil {
		return fmt.Errorf("failed to update province: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordUserLog(ctx context.Context, userUID string, logType models.UserLogType, details string, channel models.Channel) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_logs (user_uid, log_type, details, channel, created_at)
		 VALUES ($1, $2, $3, $4, $5)`, userUID, logType, details, channel, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record user log: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateCampaign(ctx context.Context, req models.CreateCampaignRequest) (*models.Campaign, error) {
	campaign := &models.Campaign{
		UID:             newUID("camp"),
		Name:            req.Name,
		JoinWord:        req.JoinWord,
		MasterGroupUID:  req.MasterGroupUID,
		OutboundEnabled: req.OutboundEnabled,
		OutboundBudget:  req.OutboundBudget,
		WelcomeText:     req.WelcomeText,
		CreatedAt:       time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO campaigns (uid, name, join_word, master_group_uid, outbound_enabled, outbound_budget, outbound_spent, welcome_text, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8)`,
		campaign.UID, campaign.Name, campaign.JoinWord, campaign.MasterGroupUID,
		campaign.OutboundEnabled, campaign.OutboundBudget, campaign.WelcomeText, campaign.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}
	slog.Info("PostgresStore campaign created", "uid", campaign.UID, "join_word", campaign.JoinWord)
	return campaign, nil
}

func (s *PostgresStore) CreateCampaignMessage(ctx context.Context, campaignUID string, req models.CreateCampaignMessageRequest) (*models.CampaignMessage, error) {
	nextJSON, err := encodeNextActions(req.NextActions)
	if err != nil {
		return nil, err
	}
	message := &models.CampaignMessage{
		UID:         newUID("cmsg"),
		CampaignUID: campaignUID,
		ActionType:  req.ActionType,
		Channel:     req.Channel,
		Body:        req.Body,
		SortOrder:   req.SortOrder,
		ParentUID:   req.ParentUID,
		NextActions: req.NextActions,
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO campaign_messages (uid, campaign_uid, action_type, channel, body, sort_order, parent_uid, next_actions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		message.UID, message.CampaignUID, message.ActionType, message.Channel,
		message.Body, message.SortOrder, message.ParentUID, nextJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to create campaign message: %w", err)
	}
	return message, nil
}

func (s *PostgresStore) CreateGroup(ctx context.Context, req models.CreateGroupRequest) (*models.Group, error) {
	group := &models.Group{
		UID:       newUID("grp"),
		Name:      req.Name,
		JoinWord:  req.JoinWord,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_groups (uid, name, join_word, created_at) VALUES ($1, $2, $3, $4)`,
		group.UID, group.Name, group.JoinWord, group.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	slog.Info("PostgresStore group created", "uid", group.UID, "name", group.Name)
	return group, nil
}
