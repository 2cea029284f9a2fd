// Package store provides storage backends for Rallypoint.
//
// This file implements the SQLite-backed store, the default backend.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rallypointza/rallypoint/internal/models"
)

// DefaultDirPermissions defines the default permissions for database
// directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists the directories in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store. The DSN is a file path; its
// directory is created if missing, and migrations run on open.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "dsn_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied")

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) FindCampaignByJoinWord(ctx context.Context, phrase string) (*models.Campaign, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE LOWER(join_word) = LOWER(?)`, phrase)
	c, err := scanCampaign(row)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find campaign by join word: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) BroadSearchCampaigns(ctx context.Context, userUID, phrase string) ([]models.Campaign, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns
		 WHERE LOWER(name) LIKE '%' || LOWER(?) || '%'
		    OR LOWER(join_word) LIKE '%' || LOWER(?) || '%'
		 ORDER BY name`, phrase, phrase)
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

func (s *SQLiteStore) LoadCampaign(ctx context.Context, uid string) (*models.Campaign, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE uid = ?`, uid)
	c, err := scanCampaign(row)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign %s: %w", uid, err)
	}
	return c, nil
}

func (s *SQLiteStore) CampaignMessages(ctx context.Context, campaignUID string) ([]models.CampaignMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM campaign_messages
		 WHERE campaign_uid = ? ORDER BY sort_order, uid`, campaignUID)
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

func (s *SQLiteStore) RecordEngagement(ctx context.Context, campaignUID, userUID string, channel models.Channel, note string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO campaign_engagements (campaign_uid, user_uid, channel, note, created_at)
		 VALUES (?, ?, ?, ?, ?)`, campaignUID, userUID, channel, note, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record engagement: %w", err)
	}
	slog.Debug("SQLiteStore engagement recorded", "campaign", campaignUID, "user", userUID)
	return nil
}

func (s *SQLiteStore) ConsumeOutboundBudget(ctx context.Context, campaignUID string, n int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE campaigns SET outbound_spent = outbound_spent + ? WHERE uid = ?`, n, campaignUID)
	if err != nil {
		return fmt.Errorf("failed to consume outbound budget: %w", err)
	}
	return nil
}

func (s *SQLiteStore) HasUserShared(ctx context.Context, campaignUID, userUID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM campaign_shares WHERE campaign_uid = ? AND user_uid = ?)`,
		campaignUID, userUID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check share state: %w", err)
	}
	return exists, nil
}

func (s *SQLiteStore) HasUserSentMedia(ctx context.Context, campaignUID, userUID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM campaign_media WHERE campaign_uid = ? AND user_uid = ?)`,
		campaignUID, userUID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check media state: %w", err)
	}
	return exists, nil
}

func (s *SQLiteStore) SignPetition(ctx context.Context, campaignUID, userUID string, channel models.Channel) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO petition_signatures (campaign_uid, user_uid, channel, signed_at)
		 VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		campaignUID, userUID, channel, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to sign petition: %w", err)
	}
	slog.Debug("SQLiteStore petition signed", "campaign", campaignUID, "user", userUID)
	return nil
}

func (s *SQLiteStore) AddUserToMasterGroup(ctx context.Context, campaignUID, userUID string, channel models.Channel) error {
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

func (s *SQLiteStore) SetJoinTopic(ctx context.Context, campaignUID, userUID, topic string, channel models.Channel) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO join_topics (campaign_uid, user_uid, topic, channel)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (campaign_uid, user_uid) DO UPDATE SET topic = excluded.topic`,
		campaignUID, userUID, topic, channel)
	if err != nil {
		return fmt.Errorf("failed to set join topic: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordShare(ctx context.Context, campaignUID, userUID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO campaign_shares (campaign_uid, user_uid, shared_at)
		 VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
		campaignUID, userUID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record share: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordUserSentMedia(ctx context.Context, campaignUID, userUID string, channel models.Channel) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO campaign_media (campaign_uid, user_uid, channel, recorded_at)
		 VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		campaignUID, userUID, channel, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record media: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SearchGroupByWord(ctx context.Context, userUID, phrase string) (*models.Group, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM chat_groups
		 WHERE join_word != '' AND LOWER(join_word) = LOWER(?)`, phrase)
	g, err := scanGroup(row)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search group by word: %w", err)
	}
	return g, nil
}

func (s *SQLiteStore) BroadSearchGroups(ctx context.Context, userUID, phrase string) ([]models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM chat_groups
		 WHERE LOWER(name) LIKE '%' || LOWER(?) || '%' ORDER BY name`, phrase)
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

func (s *SQLiteStore) LoadGroup(ctx context.Context, uid string) (*models.Group, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM chat_groups WHERE uid = ?`, uid)
	g, err := scanGroup(row)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load group %s: %w", uid, err)
	}
	return g, nil
}

func (s *SQLiteStore) AddMember(ctx context.Context, groupUID, userUID string, channel models.Channel) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO group_memberships (group_uid, user_uid, channel, joined_at)
		 VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		groupUID, userUID, channel, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to add member to group %s: %w", groupUID, err)
	}
	slog.Debug("SQLiteStore member added", "group", groupUID, "user", userUID)
	return nil
}

func (s *SQLiteStore) LoadUser(ctx context.Context, uid string) (*models.ChatUser, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM chat_users WHERE uid = ?`, uid)
	u, err := scanUser(row)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", uid, err)
	}
	return u, nil
}

func (s *SQLiteStore) LoadOrCreateUser(ctx context.Context, msisdn string) (*models.ChatUser, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM chat_users WHERE msisdn = ?`, msisdn)
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
		 VALUES (?, ?, '', '', ?, ?)`, user.UID, user.Msisdn, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create user for msisdn: %w", err)
	}
	slog.Info("SQLiteStore user created", "uid", user.UID)
	return user, nil
}

func (s *SQLiteStore) UpdateDisplayName(ctx context.Context, userUID, name string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chat_users SET display_name = ?, updated_at = ? WHERE uid = ?`,
		name, time.Now().UTC(), userUID)
	if err != nil {
		return fmt.Errorf("failed to update display name: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateProvince(ctx context.Context, userUID string, province models.Province) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chat_users SET province = ?, updated_at = ? WHERE uid = ?`,
		province, time.Now().UTC(), userUID)
	if err != nil {
		return fmt.Errorf("failed to update province: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordUserLog(ctx context.Context, userUID string, logType models.UserLogType, details string, channel models.Channel) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_logs (user_uid, log_type, details, channel, created_at)
		 VALUES (?, ?, ?, ?, ?)`, userUID, logType, details, channel, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record user log: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateCampaign(ctx context.Context, req models.CreateCampaignRequest) (*models.Campaign, error) {
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
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		campaign.UID, campaign.Name, campaign.JoinWord, campaign.MasterGroupUID,
		campaign.OutboundEnabled, campaign.OutboundBudget, campaign.WelcomeText, campaign.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}
	slog.Info("SQLiteStore campaign created", "uid", campaign.UID, "join_word", campaign.JoinWord)
	return campaign, nil
}

func (s *SQLiteStore) CreateCampaignMessage(ctx context.Context, campaignUID string, req models.CreateCampaignMessageRequest) (*models.CampaignMessage, error) {
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
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		message.UID, message.CampaignUID, message.ActionType, message.Channel,
		message.Body, message.SortOrder, message.ParentUID, nextJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to create campaign message: %w", err)
	}
	return message, nil
}

func (s *SQLiteStore) CreateGroup(ctx context.Context, req models.CreateGroupRequest) (*models.Group, error) {
	group := &models.Group{
		UID:       newUID("grp"),
		Name:      req.Name,
		JoinWord:  req.JoinWord,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_groups (uid, name, join_word, created_at) VALUES (?, ?, ?, ?)`,
		group.UID, group.Name, group.JoinWord, group.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	slog.Info("SQLiteStore group created", "uid", group.UID, "name", group.Name)
	return group, nil
}
