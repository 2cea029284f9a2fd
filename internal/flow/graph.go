package flow

import (
	"sort"

	"github.com/rallypointza/rallypoint/internal/models"
)

// actionChannelKey keys messages by the action they respond to and the
// channel they are authored for.
type actionChannelKey struct {
	action  models.CampaignActionType
	channel models.Channel
}

// priorActionKey keys messages by the prior node they hang off.
type priorActionKey struct {
	parentUID string
	action    models.CampaignActionType
}

// MessageIndex is the adjacency structure over a campaign's authored action
// graph: an arena of message nodes plus lookups by (action, channel) and by
// (prior message, action). Lookups that match several messages return them in
// authoring order (SortOrder, then uid), so "first match" is deterministic
// and under the campaign author's control.
type MessageIndex struct {
	messages []models.CampaignMessage
	byAction map[actionChannelKey][]*models.CampaignMessage
	byPrior  map[priorActionKey]*models.CampaignMessage
}

// NewMessageIndex builds the index for one campaign's messages.
func NewMessageIndex(messages []models.CampaignMessage) *MessageIndex {
	idx := &MessageIndex{
		messages: make([]models.CampaignMessage, len(messages)),
		byAction: make(map[actionChannelKey][]*models.CampaignMessage),
		byPrior:  make(map[priorActionKey]*models.CampaignMessage),
	}
	copy(idx.messages, messages)
	sort.SliceStable(idx.messages, func(i, j int) bool {
		if idx.messages[i].SortOrder != idx.messages[j].SortOrder {
			return idx.messages[i].SortOrder < idx.messages[j].SortOrder
		}
		return idx.messages[i].UID < idx.messages[j].UID
	})
	for i := range idx.messages {
		m := &idx.messages[i]
		ak := actionChannelKey{action: m.ActionType, channel: m.Channel}
		idx.byAction[ak] = append(idx.byAction[ak], m)
		if m.ParentUID != "" {
			pk := priorActionKey{parentUID: m.ParentUID, action: m.ActionType}
			if _, exists := idx.byPrior[pk]; !exists {
				idx.byPrior[pk] = m
			}
		}
	}
	return idx
}

// ByAction returns the messages that respond to action on the given channel.
// Channel-specific messages win; messages authored for any channel are the
// fallback.
func (idx *MessageIndex) ByAction(action models.CampaignActionType, channel models.Channel) []*models.CampaignMessage {
	if channel != models.ChannelAny {
		if msgs := idx.byAction[actionChannelKey{action: action, channel: channel}]; len(msgs) > 0 {
			return msgs
		}
	}
	return idx.byAction[actionChannelKey{action: action, channel: models.ChannelAny}]
}

// FirstByAction returns the first message for action on channel, or nil.
func (idx *MessageIndex) FirstByAction(action models.CampaignActionType, channel models.Channel) *models.CampaignMessage {
	msgs := idx.ByAction(action, channel)
	if len(msgs) == 0 {
		return nil
	}
	return msgs[0]
}

// ByPrior traces the graph from a specific prior node along an action edge.
// Returns nil when the campaign authored no such edge.
func (idx *MessageIndex) ByPrior(priorUID string, action models.CampaignActionType) *models.CampaignMessage {
	if priorUID == "" {
		return nil
	}
	return idx.byPrior[priorActionKey{parentUID: priorUID, action: action}]
}

// Opening returns the campaign's opening message, preferring the given
// channel.
func (idx *MessageIndex) Opening(channel models.Channel) *models.CampaignMessage {
	return idx.FirstByAction(models.ActionOpening, channel)
}

// Empty reports whether the campaign has no authored messages at all.
func (idx *MessageIndex) Empty() bool {
	return len(idx.messages) == 0
}
