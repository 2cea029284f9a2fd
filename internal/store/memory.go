package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rallypointza/rallypoint/internal/models"
)

type engagementRecord struct {
	CampaignUID string
	UserUID     string
	Channel     models.Channel
	Note        string
	CreatedAt   time.Time
}

type userLogRecord struct {
	UserUID   string
	LogType   models.UserLogType
	Details   string
	Channel   models.Channel
	CreatedAt time.Time
}

// InMemoryStore implements Store entirely in memory. It is intended for tests
// and local development; nothing survives a restart.
type InMemoryStore struct {
	mu sync.Mutex

	users     map[string]*models.ChatUser
	byMsisdn  map[string]string
	campaigns map[string]*models.Campaign
	messages  map[string][]models.CampaignMessage
	groups    map[string]*models.Group

	memberships map[string]map[string]bool
	signatures  map[string]map[string]bool
	shares      map[string]map[string]bool
	media       map[string]map[string]bool
	joinTopics  map[string]map[string]string

	engagements []engagementRecord
	userLogs    []userLogRecord
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:       make(map[string]*models.ChatUser),
		byMsisdn:    make(map[string]string),
		campaigns:   make(map[string]*models.Campaign),
		messages:    make(map[string][]models.CampaignMessage),
		groups:      make(map[string]*models.Group),
		memberships: make(map[string]map[string]bool),
		signatures:  make(map[string]map[string]bool),
		shares:      make(map[string]map[string]bool),
		media:       make(map[string]map[string]bool),
		joinTopics:  make(map[string]map[string]string),
	}
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }

func (s *InMemoryStore) FindCampaignByJoinWord(ctx context.Context, phrase string) (*models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.campaigns {
		if strings.EqualFold(c.JoinWord, phrase) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) BroadSearchCampaigns(ctx context.Context, userUID, phrase string) ([]models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	needle := strings.ToLower(phrase)
	var out []models.Campaign
	for _, c := range s.campaigns {
		if strings.Contains(strings.ToLower(c.Name), needle) ||
			strings.Contains(strings.ToLower(c.JoinWord), needle) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemoryStore) LoadCampaign(ctx context.Context, uid string) (*models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[uid]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *InMemoryStore) CampaignMessages(ctx context.Context, campaignUID string) ([]models.CampaignMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]models.CampaignMessage, len(s.messages[campaignUID]))
	copy(msgs, s.messages[campaignUID])
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].SortOrder != msgs[j].SortOrder {
			return msgs[i].SortOrder < msgs[j].SortOrder
		}
		return msgs[i].UID < msgs[j].UID
	})
	return msgs, nil
}

func (s *InMemoryStore) RecordEngagement(ctx context.Context, campaignUID, userUID string, channel models.Channel, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engagements = append(s.engagements, engagementRecord{
		CampaignUID: campaignUID,
		UserUID:     userUID,
		Channel:     channel,
		Note:        note,
		CreatedAt:   time.Now().UTC(),
	})
	return nil
}

func (s *InMemoryStore) ConsumeOutboundBudget(ctx context.Context, campaignUID string, n int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[campaignUID]
	if !ok {
		return fmt.Errorf("campaign %s not found", campaignUID)
	}
	c.OutboundSpent += n
	return nil
}

func (s *InMemoryStore) HasUserShared(ctx context.Context, campaignUID, userUID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shares[campaignUID][userUID], nil
}

func (s *InMemoryStore) HasUserSentMedia(ctx context.Context, campaignUID, userUID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.media[campaignUID][userUID], nil
}

func (s *InMemoryStore) SignPetition(ctx context.Context, campaignUID, userUID string, channel models.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signatures[campaignUID] == nil {
		s.signatures[campaignUID] = make(map[string]bool)
	}
	s.signatures[campaignUID][userUID] = true
	return nil
}

func (s *InMemoryStore) AddUserToMasterGroup(ctx context.Context, campaignUID, userUID string, channel models.Channel) error {
	s.mu.Lock()
	c, ok := s.campaigns[campaignUID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("campaign %s not found", campaignUID)
	}
	if c.MasterGroupUID == "" {
		return fmt.Errorf("campaign %s has no master group", campaignUID)
	}
	return s.AddMember(ctx, c.MasterGroupUID, userUID, channel)
}

func (s *InMemoryStore) SetJoinTopic(ctx context.Context, campaignUID, userUID, topic string, channel models.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.joinTopics[campaignUID] == nil {
		s.joinTopics[campaignUID] = make(map[string]string)
	}
	s.joinTopics[campaignUID][userUID] = topic
	return nil
}

func (s *InMemoryStore) RecordShare(ctx context.Context, campaignUID, userUID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shares[campaignUID] == nil {
		s.shares[campaignUID] = make(map[string]bool)
	}
	s.shares[campaignUID][userUID] = true
	return nil
}

func (s *InMemoryStore) RecordUserSentMedia(ctx context.Context, campaignUID, userUID string, channel models.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.media[campaignUID] == nil {
		s.media[campaignUID] = make(map[string]bool)
	}
	s.media[campaignUID][userUID] = true
	return nil
}

func (s *InMemoryStore) SearchGroupByWord(ctx context.Context, userUID, phrase string) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		if g.JoinWord != "" && strings.EqualFold(g.JoinWord, phrase) {
			cp := *g
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) BroadSearchGroups(ctx context.Context, userUID, phrase string) ([]models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	needle := strings.ToLower(phrase)
	var out []models.Group
	for _, g := range s.groups {
		if strings.Contains(strings.ToLower(g.Name), needle) {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemoryStore) LoadGroup(ctx context.Context, uid string) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[uid]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (s *InMemoryStore) AddMember(ctx context.Context, groupUID, userUID string, channel models.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.memberships[groupUID] == nil {
		s.memberships[groupUID] = make(map[string]bool)
	}
	s.memberships[groupUID][userUID] = true
	return nil
}

func (s *InMemoryStore) LoadUser(ctx context.Context, uid string) (*models.ChatUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *InMemoryStore) LoadOrCreateUser(ctx context.Context, msisdn string) (*models.ChatUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uid, ok := s.byMsisdn[msisdn]; ok {
		cp := *s.users[uid]
		return &cp, nil
	}
	now := time.Now().UTC()
	u := &models.ChatUser{UID: newUID("user"), Msisdn: msisdn, CreatedAt: now, UpdatedAt: now}
	s.users[u.UID] = u
	s.byMsisdn[msisdn] = u.UID
	cp := *u
	return &cp, nil
}

func (s *InMemoryStore) UpdateDisplayName(ctx context.Context, userUID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userUID]
	if !ok {
		return fmt.Errorf("user %s not found", userUID)
	}
	u.DisplayName = name
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) UpdateProvince(ctx context.Context, userUID string, province models.Province) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userUID]
	if !ok {
		return fmt.Errorf("user %s not found", userUID)
	}
	u.Province = province
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) RecordUserLog(ctx context.Context, userUID string, logType models.UserLogType, details string, channel models.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userLogs = append(s.userLogs, userLogRecord{
		UserUID:   userUID,
		LogType:   logType,
		Details:   details,
		Channel:   channel,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (s *InMemoryStore) CreateCampaign(ctx context.Context, req models.CreateCampaignRequest) (*models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.campaigns {
		if strings.EqualFold(c.JoinWord, req.JoinWord) {
			return nil, fmt.Errorf("join word %q already in use", req.JoinWord)
		}
	}
	c := &models.Campaign{
		UID:             newUID("camp"),
		Name:            req.Name,
		JoinWord:        req.JoinWord,
		MasterGroupUID:  req.MasterGroupUID,
		OutboundEnabled: req.OutboundEnabled,
		OutboundBudget:  req.OutboundBudget,
		WelcomeText:     req.WelcomeText,
		CreatedAt:       time.Now().UTC(),
	}
	s.campaigns[c.UID] = c
	cp := *c
	return &cp, nil
}

func (s *InMemoryStore) CreateCampaignMessage(ctx context.Context, campaignUID string, req models.CreateCampaignMessageRequest) (*models.CampaignMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.campaigns[campaignUID]; !ok {
		return nil, fmt.Errorf("campaign %s not found", campaignUID)
	}
	m := models.CampaignMessage{
		UID:         newUID("cmsg"),
		CampaignUID: campaignUID,
		ActionType:  req.ActionType,
		Channel:     req.Channel,
		Body:        req.Body,
		SortOrder:   req.SortOrder,
		ParentUID:   req.ParentUID,
		NextActions: req.NextActions,
	}
	s.messages[campaignUID] = append(s.messages[campaignUID], m)
	cp := m
	return &cp, nil
}

func (s *InMemoryStore) CreateGroup(ctx context.Context, req models.CreateGroupRequest) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := &models.Group{
		UID:       newUID("grp"),
		Name:      req.Name,
		JoinWord:  req.JoinWord,
		CreatedAt: time.Now().UTC(),
	}
	s.groups[g.UID] = g
	cp := *g
	return &cp, nil
}

// IsMember reports whether a user belongs to a group. Used by tests to verify
// join side effects.
func (s *InMemoryStore) IsMember(groupUID, userUID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memberships[groupUID][userUID]
}

// HasSigned reports whether a user has signed a campaign's petition.
func (s *InMemoryStore) HasSigned(campaignUID, userUID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signatures[campaignUID][userUID]
}

// JoinTopic returns the recorded join topic for a user on a campaign.
func (s *InMemoryStore) JoinTopic(campaignUID, userUID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joinTopics[campaignUID][userUID]
}

// EngagementCount returns how many engagements were recorded for a campaign.
func (s *InMemoryStore) EngagementCount(campaignUID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.engagements {
		if e.CampaignUID == campaignUID {
			n++
		}
	}
	return n
}

// UserLogCount returns how many logs of a given type were recorded for a user.
func (s *InMemoryStore) UserLogCount(userUID string, logType models.UserLogType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.userLogs {
		if l.UserUID == userUID && l.LogType == logType {
			n++
		}
	}
	return n
}
