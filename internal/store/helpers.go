package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rallypointza/rallypoint/internal/models"
)

// rowScanner abstracts sql.Row and sql.Rows so scan helpers serve both.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// campaignColumns is the column list every campaign query selects, in scan
// order.
const campaignColumns = "uid, name, join_word, master_group_uid, outbound_enabled, outbound_budget, outbound_spent, welcome_text, created_at"

func scanCampaign(s rowScanner) (*models.Campaign, error) {
	var c models.Campaign
	err := s.Scan(&c.UID, &c.Name, &c.JoinWord, &c.MasterGroupUID,
		&c.OutboundEnabled, &c.OutboundBudget, &c.OutboundSpent, &c.WelcomeText, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan campaign row: %w", err)
	}
	return &c, nil
}

// messageColumns is the column list every campaign message query selects.
const messageColumns = "uid, campaign_uid, action_type, channel, body, sort_order, parent_uid, next_actions"

func scanCampaignMessage(s rowScanner) (*models.CampaignMessage, error) {
	var m models.CampaignMessage
	var nextJSON string
	err := s.Scan(&m.UID, &m.CampaignUID, &m.ActionType, &m.Channel, &m.Body,
		&m.SortOrder, &m.ParentUID, &nextJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to scan campaign message row: %w", err)
	}
	if nextJSON != "" {
		if err := json.Unmarshal([]byte(nextJSON), &m.NextActions); err != nil {
			return nil, fmt.Errorf("failed to decode next actions for message %s: %w", m.UID, err)
		}
	}
	return &m, nil
}

// encodeNextActions serializes a message's menu edges for storage.
func encodeNextActions(actions []models.CampaignActionType) (string, error) {
	if len(actions) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal(actions)
	if err != nil {
		return "", fmt.Errorf("failed to encode next actions: %w", err)
	}
	return string(raw), nil
}

const groupColumns = "uid, name, join_word, created_at"

func scanGroup(s rowScanner) (*models.Group, error) {
	var g models.Group
	if err := s.Scan(&g.UID, &g.Name, &g.JoinWord, &g.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan group row: %w", err)
	}
	return &g, nil
}

const userColumns = "uid, msisdn, display_name, province, created_at, updated_at"

func scanUser(s rowScanner) (*models.ChatUser, error) {
	var u models.ChatUser
	err := s.Scan(&u.UID, &u.Msisdn, &u.DisplayName, &u.Province, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan user row: %w", err)
	}
	return &u, nil
}

// noRows reports whether err is the no-rows sentinel, which the directories
// translate into a nil result rather than an error.
func noRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
