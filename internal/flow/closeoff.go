package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rallypointza/rallypoint/internal/models"
)

// closeOffPrompt picks the terminal-phase prompt once a campaign's action
// graph is exhausted. The order is a deliberate best-effort sequence and must
// not be reordered: the share opportunity is prioritized over media, and
// neither prompt is shown immediately after the user performed that very
// action.
func (e *Engine) closeOffPrompt(ctx context.Context, idx *MessageIndex, campaignUID, userUID string, priorAction models.CampaignActionType) (*models.CampaignMessage, error) {
	wasShare := priorAction == models.ActionShareSend
	wasMedia := priorAction == models.ActionRecordMedia
	slog.Debug("looking for close-off prompt", "campaign", campaignUID, "was_share", wasShare, "was_media", wasMedia)

	if !wasShare {
		prompt, err := e.sharePrompt(ctx, idx, campaignUID, userUID)
		if err != nil {
			return nil, err
		}
		if prompt != nil {
			return prompt, nil
		}
	}
	if !wasMedia {
		return idx.FirstByAction(models.ActionMediaPrompt, e.channel), nil
	}
	return nil, nil
}

// sharePrompt returns the campaign's share prompt if the campaign can still
// pay for outbound sends and this user has not already shared.
func (e *Engine) sharePrompt(ctx context.Context, idx *MessageIndex, campaignUID, userUID string) (*models.CampaignMessage, error) {
	campaign, err := e.campaigns.LoadCampaign(ctx, campaignUID)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign %s: %w", campaignUID, err)
	}
	if campaign == nil || !campaign.OutboundEnabled || campaign.OutboundBudgetLeft() == 0 {
		return nil, nil
	}

	shared, err := e.campaigns.HasUserShared(ctx, campaignUID, userUID)
	if err != nil {
		return nil, fmt.Errorf("failed to check share state: %w", err)
	}
	slog.Debug("share prompt check", "campaign", campaignUID, "user_has_shared", shared)
	if shared {
		return nil, nil
	}
	return idx.FirstByAction(models.ActionSharePrompt, e.channel), nil
}

// nextActionForPrompt maps a close-off prompt to the action the user's next
// reply should carry.
func nextActionForPrompt(prompt *models.CampaignMessage) models.CampaignActionType {
	switch prompt.ActionType {
	case models.ActionMediaPrompt:
		return models.ActionRecordMedia
	case models.ActionSharePrompt:
		return models.ActionShareSend
	default:
		return models.ActionExitPositive
	}
}
