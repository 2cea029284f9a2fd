package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rallypointza/rallypoint/internal/models"
)

// PhraseSearch resolves a free-text phrase to a campaign, a group, or a
// ranked candidate set. Exact join-word matches short-circuit: campaigns
// first, groups second, broad search last and only when asked for. "No
// match" is a first-class not-found response, never an error.
func (e *Engine) PhraseSearch(ctx context.Context, req models.PhraseSearchRequest) (models.PhraseSearchResponse, error) {
	user, err := e.loadUser(ctx, req.UserID)
	if err != nil {
		return models.PhraseSearchResponse{}, err
	}

	campaign, err := e.campaigns.FindCampaignByJoinWord(ctx, req.Phrase)
	if err != nil {
		return models.PhraseSearchResponse{}, fmt.Errorf("campaign join-word lookup failed: %w", err)
	}
	var group *models.Group
	if campaign == nil {
		group, err = e.groups.SearchGroupByWord(ctx, user.UID, req.Phrase)
		if err != nil {
			return models.PhraseSearchResponse{}, fmt.Errorf("group join-word lookup failed: %w", err)
		}
	}
	slog.Info("incoming phrase checked", "phrase", req.Phrase, "campaign_found", campaign != nil, "group_found", group != nil)

	switch {
	case campaign != nil:
		return e.campaignResponse(ctx, user, campaign, "")
	case group != nil:
		return e.groupResponse(ctx, user, group)
	case req.BroadSearch:
		return e.broadPhraseSearch(ctx, user, req.Phrase)
	default:
		return models.NotFoundResponse(), nil
	}
}

// SelectEntity re-enters the flow for a candidate the user picked from an
// earlier disambiguation menu.
func (e *Engine) SelectEntity(ctx context.Context, et models.EntityType, entityUID, userUID string) (models.PhraseSearchResponse, error) {
	user, err := e.loadUser(ctx, userUID)
	if err != nil {
		return models.PhraseSearchResponse{}, err
	}

	if et == models.EntityTypeCampaign {
		campaign, err := e.campaigns.LoadCampaign(ctx, entityUID)
		if err != nil {
			return models.PhraseSearchResponse{}, fmt.Errorf("failed to load campaign %s: %w", entityUID, err)
		}
		if campaign == nil {
			slog.Warn("selected campaign not found", "uid", entityUID)
			return models.NotFoundResponse(), nil
		}
		return e.campaignResponse(ctx, user, campaign, "from search")
	}

	group, err := e.groups.LoadGroup(ctx, entityUID)
	if err != nil {
		return models.PhraseSearchResponse{}, fmt.Errorf("failed to load group %s: %w", entityUID, err)
	}
	if group == nil {
		slog.Warn("selected group not found", "uid", entityUID)
		return models.NotFoundResponse(), nil
	}
	return e.groupResponse(ctx, user, group)
}

// campaignResponse opens a campaign flow: record the engagement, send the
// welcome text if the campaign pays for one, and return the opening message
// with its menu. Even a misconfigured campaign with no opening message yields
// a message.
func (e *Engine) campaignResponse(ctx context.Context, user *models.ChatUser, campaign *models.Campaign, engagementNote string) (models.PhraseSearchResponse, error) {
	idx, err := e.messageIndex(ctx, campaign.UID)
	if err != nil {
		return models.PhraseSearchResponse{}, err
	}

	if err := e.campaigns.RecordEngagement(ctx, campaign.UID, user.UID, e.channel, engagementNote); err != nil {
		return models.PhraseSearchResponse{}, fmt.Errorf("failed to record engagement: %w", err)
	}
	e.maybeSendWelcome(ctx, campaign, user)

	opening := idx.Opening(e.channel)
	menu := e.menuFromMessage(opening)

	var messages []string
	if opening != nil {
		messages = append(messages, opening.Body)
		for _, opt := range menu {
			messages = append(messages, opt.Label)
		}
	} else {
		slog.Warn("campaign has no opening message", "campaign", campaign.UID)
		messages = append(messages, e.catalog.Text(keyMissingOpening))
	}

	return models.PhraseSearchResponse{
		EntityFound:      true,
		EntityType:       models.EntityTypeCampaign,
		EntityUID:        campaign.UID,
		ResponseMessages: messages,
		ResponseMenu:     menu,
		RequestDataType:  models.RequestNone,
	}, nil
}

// groupResponse joins the user to a group and, since a group join has no
// scripted follow-on, immediately interleaves the next profile-completion
// question.
func (e *Engine) groupResponse(ctx context.Context, user *models.ChatUser, group *models.Group) (models.PhraseSearchResponse, error) {
	if err := e.groups.AddMember(ctx, group.UID, user.UID, e.channel); err != nil {
		return models.PhraseSearchResponse{}, fmt.Errorf("failed to add user to group %s: %w", group.UID, err)
	}

	next := NextProfileRequest(user)
	messages := []string{e.catalog.Text(keyGroupJoined, group.Name)}
	// With nothing left to ask this appends the generic positive exit.
	messages = append(messages, e.dataRequestMessages(next, models.EntityTypeGroup)...)
	slog.Info("user joined group", "group", group.UID, "user", user.UID, "outstanding_request", next)

	return models.PhraseSearchResponse{
		EntityFound:      true,
		EntityType:       models.EntityTypeGroup,
		EntityUID:        group.UID,
		ResponseMessages: messages,
		RequestDataType:  next,
	}, nil
}

// broadPhraseSearch merges fuzzy matches over campaigns and groups into one
// ordered candidate list, campaigns first to bias toward curated content.
// One candidate means an implicit likely match (no menu); several mean a
// numbered disambiguation menu.
func (e *Engine) broadPhraseSearch(ctx context.Context, user *models.ChatUser, phrase string) (models.PhraseSearchResponse, error) {
	campaignHits, err := e.campaigns.BroadSearchCampaigns(ctx, user.UID, phrase)
	if err != nil {
		return models.PhraseSearchResponse{}, fmt.Errorf("campaign broad search failed: %w", err)
	}
	groupHits, err := e.groups.BroadSearchGroups(ctx, user.UID, phrase)
	if err != nil {
		return models.PhraseSearchResponse{}, fmt.Errorf("group broad search failed: %w", err)
	}
	slog.Info("broad phrase search", "phrase", phrase, "campaigns", len(campaignHits), "groups", len(groupHits))

	candidates := make([]models.EntityRef, 0, len(campaignHits)+len(groupHits))
	for _, c := range campaignHits {
		candidates = append(candidates, models.EntityRef{Type: models.EntityTypeCampaign, UID: c.UID, Name: c.Name})
	}
	for _, g := range groupHits {
		candidates = append(candidates, models.EntityRef{Type: models.EntityTypeGroup, UID: g.UID, Name: g.Name})
	}
	if len(candidates) == 0 {
		return models.NotFoundResponse(), nil
	}

	if len(candidates) == 1 {
		// Single likely match: no menu, the channel adapter confirms
		// yes/no and calls entity select with the possible entity.
		only := candidates[0]
		return models.PhraseSearchResponse{
			EntityFound:      false,
			ResponseMessages: []string{e.catalog.Text(keyPhraseResultsSingle, strings.ToLower(string(only.Type)), only.Name)},
			RequestDataType:  models.RequestNone,
			PossibleEntities: candidates,
		}, nil
	}

	messages := []string{e.catalog.Text(keyPhraseResultsMultiple)}
	menu := make([]models.MenuOption, 0, len(candidates))
	for i, ref := range candidates {
		messages = append(messages, fmt.Sprintf("%d. %s", i+1, ref.Name))
		menu = append(menu, models.MenuOption{
			Payload: string(ref.Type) + "::" + ref.UID,
			Label:   ref.Name,
		})
	}

	return models.PhraseSearchResponse{
		EntityFound:      false,
		ResponseMessages: messages,
		ResponseMenu:     menu,
		RequestDataType:  models.RequestMenuSelection,
		PossibleEntities: candidates,
	}, nil
}
