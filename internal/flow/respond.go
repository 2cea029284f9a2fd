package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rallypointza/rallypoint/internal/models"
)

// Respond processes a structured reply to an entity: either an answer to an
// outstanding profile data request, or a campaign action selection. The
// action taken is applied first (side effects), then the next scripted
// message is located, then end-of-flow interleaving runs if the script is
// exhausted.
func (e *Engine) Respond(ctx context.Context, et models.EntityType, entityUID string, req models.EntityRespondRequest) (models.EntityResponseToUser, error) {
	user, err := e.loadUser(ctx, req.UserID)
	if err != nil {
		return models.EntityResponseToUser{}, err
	}
	reply := req.Reply
	slog.Info("processing entity reply", "entityType", et, "entityUid", entityUID, "user", user.UID,
		"payload", reply.MenuOptionPayload, "has_location", reply.Location != nil)

	if reply.Aux(models.AuxKeyRequestDataType) != "" {
		return e.replyToDataRequest(ctx, user, et, entityUID, reply)
	}
	if et == models.EntityTypeCampaign {
		return e.replyToCampaignMessage(ctx, user, entityUID, reply)
	}

	// Groups have no action graph; a group reply without an outstanding
	// data request is nothing we can act on.
	slog.Warn("group reply with no outstanding data request", "entityUid", entityUID, "user", user.UID)
	return e.cannotRespond(et, entityUID), nil
}

// cannotRespond builds the reply for something the engine cannot act on. The
// channel must still get a message, so the neutral catalog text rides along.
func (e *Engine) cannotRespond(et models.EntityType, entityUID string) models.EntityResponseToUser {
	resp := models.CannotRespond(et, entityUID)
	resp.Messages = append(resp.Messages, e.catalog.Text(keyCannotRespond))
	return resp
}

// replyToDataRequest handles the user's answer (or skip) to the profile data
// request echoed back in the reply's aux properties.
func (e *Engine) replyToDataRequest(ctx context.Context, user *models.ChatUser, et models.EntityType, entityUID string, reply models.EntityReply) (models.EntityResponseToUser, error) {
	rt, ok := models.ParseRequestDataType(reply.Aux(models.AuxKeyRequestDataType))
	if !ok {
		slog.Warn("unrecognized request data type in reply", "value", reply.Aux(models.AuxKeyRequestDataType), "user", user.UID)
		return e.cannotRespond(et, entityUID), nil
	}

	if reply.MenuOptionPayload == models.SkipPayload {
		return e.requestSkipped(ctx, user, rt, et, entityUID)
	}

	switch rt {
	case models.RequestUserName:
		if err := e.users.UpdateDisplayName(ctx, user.UID, reply.UserMessage); err != nil {
			return models.EntityResponseToUser{}, fmt.Errorf("failed to update display name: %w", err)
		}
	case models.RequestProvinceOkay, models.RequestGPSRequired:
		if err := e.handleLocationReply(ctx, user, reply); err != nil {
			return models.EntityResponseToUser{}, err
		}
	default:
		slog.Info("reply to a data request we cannot act on", "requestDataType", rt, "user", user.UID)
	}

	// Reload so the completeness flags reflect the update just made.
	user, err := e.loadUser(ctx, user.UID)
	if err != nil {
		return models.EntityResponseToUser{}, err
	}

	var messages []string
	var menu []models.MenuOption
	var next models.RequestDataType
	if et == models.EntityTypeCampaign {
		next, err = e.endOfCampaignFlow(ctx, user, entityUID, "", &messages, &menu)
		if err != nil {
			return models.EntityResponseToUser{}, err
		}
	} else {
		next = NextProfileRequest(user)
		messages = append(messages, e.dataRequestMessages(next, et)...)
	}

	return models.EntityResponseToUser{
		EntityType:      et,
		EntityUID:       entityUID,
		Messages:        messages,
		Menu:            menu,
		RequestDataType: next,
	}, nil
}

// requestSkipped records the skip and moves to the next request in the fixed
// order rather than re-asking.
func (e *Engine) requestSkipped(ctx context.Context, user *models.ChatUser, skipped models.RequestDataType, et models.EntityType, entityUID string) (models.EntityResponseToUser, error) {
	skippingName := skipped == models.RequestUserName
	logType := models.LogUserSkippedProvince
	msgKey := keySkippedProvince
	if skippingName {
		logType = models.LogUserSkippedName
		msgKey = keySkippedName
	}
	if err := e.users.RecordUserLog(ctx, user.UID, logType, "skipped setting detail in chat", e.channel); err != nil {
		return models.EntityResponseToUser{}, fmt.Errorf("failed to record skip: %w", err)
	}
	slog.Info("user skipped data request", "requestDataType", skipped, "user", user.UID)

	return models.EntityResponseToUser{
		EntityType:      et,
		EntityUID:       entityUID,
		Messages:        []string{e.catalog.Text(msgKey)},
		RequestDataType: NextAfterSkip(skipped),
	}, nil
}

// handleLocationReply stores the user's province, either from a GPS pin via
// the location resolver or from a province menu payload.
func (e *Engine) handleLocationReply(ctx context.Context, user *models.ChatUser, reply models.EntityReply) error {
	if reply.Location != nil && e.location != nil {
		province, err := e.location.ProvinceForLocation(ctx, *reply.Location)
		if err != nil {
			return fmt.Errorf("failed to resolve province from location: %w", err)
		}
		if err := e.users.UpdateProvince(ctx, user.UID, province); err != nil {
			return fmt.Errorf("failed to update province: %w", err)
		}
		if err := e.users.RecordUserLog(ctx, user.UID, models.LogUserSentLocation, "precise location pin", e.channel); err != nil {
			return fmt.Errorf("failed to record location log: %w", err)
		}
		slog.Info("province set from GPS pin", "user", user.UID, "province", province)
		return nil
	}

	province, ok := models.ParseProvince(reply.MenuOptionPayload)
	if !ok {
		slog.Info("could not extract province from reply", "payload", reply.MenuOptionPayload, "user", user.UID)
		return nil
	}
	if err := e.users.UpdateProvince(ctx, user.UID, province); err != nil {
		return fmt.Errorf("failed to update province: %w", err)
	}
	slog.Info("province set from menu payload", "user", user.UID, "province", province)
	return nil
}

// replyToCampaignMessage advances the campaign action graph for the action
// the user just took.
func (e *Engine) replyToCampaignMessage(ctx context.Context, user *models.ChatUser, campaignUID string, reply models.EntityReply) (models.EntityResponseToUser, error) {
	action, ok := models.ParseActionType(reply.MenuOptionPayload)
	if !ok {
		slog.Error("missing or unknown action on campaign reply", "payload", reply.MenuOptionPayload, "campaign", campaignUID)
		return e.cannotRespond(models.EntityTypeCampaign, campaignUID), nil
	}

	if err := e.applyActionEffect(ctx, user, campaignUID, action, reply); err != nil {
		return models.EntityResponseToUser{}, err
	}

	var messages []string
	var menu []models.MenuOption
	aux := map[string]string{}

	// Terminal actions are fire-and-forget: the side effect ran, no
	// scripted reply is expected from them.
	if !models.IsTerminalAction(action) {
		idx, err := e.messageIndex(ctx, campaignUID)
		if err != nil {
			return models.EntityResponseToUser{}, err
		}
		next := idx.ByAction(action, e.channel)
		if len(next) == 0 {
			prior := reply.Aux(models.AuxKeyPriorMessage)
			slog.Info("no message keyed by action, tracing from prior", "action", action, "prior", prior)
			if m := idx.ByPrior(prior, action); m != nil {
				next = []*models.CampaignMessage{m}
			}
		}

		for _, m := range next {
			messages = append(messages, m.Body)
		}
		for _, m := range next {
			if m.HasMenu() {
				menu = e.menuFromMessage(m)
				aux[models.AuxKeyPriorMessage] = m.UID
				break
			}
		}
		for _, opt := range menu {
			messages = append(messages, opt.Label)
		}
	}

	next := models.RequestNone
	if len(menu) == 0 {
		// Authored flow is exhausted here; interleave profile questions
		// or close off.
		var err error
		next, err = e.endOfCampaignFlow(ctx, user, campaignUID, action, &messages, &menu)
		if err != nil {
			return models.EntityResponseToUser{}, err
		}
	}

	if len(aux) == 0 {
		aux = nil
	}
	return models.EntityResponseToUser{
		EntityType:      models.EntityTypeCampaign,
		EntityUID:       campaignUID,
		Messages:        messages,
		Menu:            menu,
		RequestDataType: next,
		AuxProperties:   aux,
	}, nil
}

// applyActionEffect runs the side effect for the action the user just took.
// The switch is exhaustive over the action set; actions without side effects
// fall through deliberately.
func (e *Engine) applyActionEffect(ctx context.Context, user *models.ChatUser, campaignUID string, action models.CampaignActionType, reply models.EntityReply) error {
	var err error
	switch action {
	case models.ActionSignPetition:
		err = e.campaigns.SignPetition(ctx, campaignUID, user.UID, e.channel)
	case models.ActionJoinGroup:
		err = e.campaigns.AddUserToMasterGroup(ctx, campaignUID, user.UID, e.channel)
	case models.ActionTagMe:
		err = e.campaigns.SetJoinTopic(ctx, campaignUID, user.UID, reply.UserMessage, e.channel)
	case models.ActionShareSend:
		err = e.sendShare(ctx, user, campaignUID, reply.UserMessage)
	case models.ActionRecordMedia:
		err = e.campaigns.RecordUserSentMedia(ctx, campaignUID, user.UID, e.channel)
	case models.ActionOpening, models.ActionMoreInfo, models.ActionSharePrompt,
		models.ActionMediaPrompt, models.ActionExitPositive, models.ActionExitNegative:
		slog.Debug("no side effect for action", "action", action)
	default:
		slog.Info("no side effect possible for action", "action", action)
	}
	if err != nil {
		return fmt.Errorf("action %s failed for campaign %s: %w", action, campaignUID, err)
	}
	return nil
}

// sendShare records the share and forwards the campaign's share text to the
// number the user supplied. The send itself is asynchronous best-effort; the
// recorded share and budget spend are not.
func (e *Engine) sendShare(ctx context.Context, user *models.ChatUser, campaignUID, target string) error {
	if err := e.campaigns.RecordShare(ctx, campaignUID, user.UID); err != nil {
		return fmt.Errorf("failed to record share: %w", err)
	}
	if e.share == nil {
		slog.Warn("no share sender configured, share recorded only", "campaign", campaignUID)
		return nil
	}
	idx, err := e.messageIndex(ctx, campaignUID)
	if err != nil {
		return err
	}
	shareMsg := idx.FirstByAction(models.ActionShareSend, e.channel)
	if shareMsg == nil {
		slog.Warn("campaign has no share text authored", "campaign", campaignUID)
		return nil
	}
	if err := e.share.SendMessage(ctx, target, shareMsg.Body); err != nil {
		slog.Warn("share send failed", "error", err, "campaign", campaignUID)
		return nil
	}
	if err := e.campaigns.ConsumeOutboundBudget(ctx, campaignUID, 1); err != nil {
		return fmt.Errorf("failed to consume outbound budget after share: %w", err)
	}
	slog.Info("share message sent", "campaign", campaignUID, "from_user", user.UID)
	return nil
}

// endOfCampaignFlow runs once the authored action graph yields no further
// menu: first the profile-completion interleave, then the close-off prompt
// sequence, finally the campaign's positive exit or the generic one. Appends
// to messages/menu in place and returns the outstanding data request.
func (e *Engine) endOfCampaignFlow(ctx context.Context, user *models.ChatUser, campaignUID string, priorAction models.CampaignActionType, messages *[]string, menu *[]models.MenuOption) (models.RequestDataType, error) {
	next := NextProfileRequest(user)
	slog.Debug("end of campaign flow", "campaign", campaignUID, "user", user.UID, "outstanding_request", next)
	if next.IsProfileRequest() {
		*messages = append(*messages, e.dataRequestMessages(next, models.EntityTypeCampaign)...)
		return next, nil
	}

	idx, err := e.messageIndex(ctx, campaignUID)
	if err != nil {
		return models.RequestNone, err
	}
	closeOff, err := e.closeOffPrompt(ctx, idx, campaignUID, user.UID, priorAction)
	if err != nil {
		return models.RequestNone, err
	}
	if closeOff != nil {
		*messages = append(*messages, closeOff.Body)
		// The menu carries the follow-up action so the next reply is
		// routable; there is no label since the prompt text is the ask.
		*menu = append(*menu, models.MenuOption{Payload: string(nextActionForPrompt(closeOff))})
		return models.RequestFreeFormOrMedia, nil
	}

	if exit := idx.FirstByAction(models.ActionExitPositive, e.channel); exit != nil {
		*messages = append(*messages, exit.Body)
	} else {
		*messages = append(*messages, e.catalog.Text(keyGenericExit))
	}
	return models.RequestNone, nil
}
