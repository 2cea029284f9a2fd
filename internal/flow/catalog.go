package flow

import (
	"fmt"
	"strings"

	"github.com/rallypointza/rallypoint/internal/models"
)

// Catalog message keys. The naming mirrors the channel + entity + prompt
// convention of the platform's message bundles.
const (
	keyGroupJoined           = "group.joined"
	keyPhraseResultsSingle   = "phrase.results.single"
	keyPhraseResultsMultiple = "phrase.results.multiple"
	keyCampaignPromptName    = "user.campaign.prompt.name"
	keyCampaignPromptProv    = "user.campaign.prompt.province"
	keyGroupPromptName       = "user.group.prompt.name"
	keyGroupPromptProv       = "user.group.prompt.province"
	keySkippedName           = "user.skipped.name"
	keySkippedProvince       = "user.skipped.province"
	keyGenericExit           = "campaign.exit_positive.generic"
	keyMissingOpening        = "campaign.opening.missing"
	keyCannotRespond         = "reply.cannot_respond"
)

// defaultTexts are the built-in English texts. Arguments are fmt verbs.
var defaultTexts = map[string]string{
	keyGroupJoined:           "You have been added to %s. Welcome!",
	keyPhraseResultsSingle:   "We found one %s matching that phrase: %s. Reply yes to continue.",
	keyPhraseResultsMultiple: "We found a few possible matches. Reply with a number to choose:",
	keyCampaignPromptName:    "Before you go: what name should we use for you? Reply with your name, or reply skip.",
	keyCampaignPromptProv:    "One more thing: which province are you in? Send a pin or reply with your province, or reply skip.",
	keyGroupPromptName:       "So the group knows who joined: what name should we use for you? Reply with your name, or reply skip.",
	keyGroupPromptProv:       "Which province are you in? Send a pin or reply with your province, or reply skip.",
	keySkippedName:           "No problem, we won't ask for your name now.",
	keySkippedProvince:       "No problem, we won't ask for your province now.",
	keyGenericExit:           "Thank you for taking action with us. Together we are stronger!",
	keyMissingOpening:        "This campaign is still being set up. Please try again a little later.",
	keyCannotRespond:         "Sorry, we could not understand that reply. Please pick one of the options we sent.",
}

// actionLabels are the localized menu texts for campaign actions.
var actionLabels = map[models.CampaignActionType]string{
	models.ActionMoreInfo:     "Find out more",
	models.ActionSignPetition: "Sign the petition",
	models.ActionJoinGroup:    "Join the campaign group",
	models.ActionTagMe:        "Tag me for updates",
	models.ActionSharePrompt:  "Share this campaign",
	models.ActionShareSend:    "Send to a friend",
	models.ActionMediaPrompt:  "Record a message",
	models.ActionRecordMedia:  "Record now",
	models.ActionExitPositive: "Done for now",
	models.ActionExitNegative: "Not interested",
}

// Catalog resolves message keys to user-facing text. Texts can be overridden
// per deployment; unknown keys fall back to the key itself so a missing
// bundle entry never yields an empty message.
type Catalog struct {
	texts map[string]string
}

// NewCatalog creates a catalog with the built-in English texts.
func NewCatalog() *Catalog {
	texts := make(map[string]string, len(defaultTexts))
	for k, v := range defaultTexts {
		texts[k] = v
	}
	return &Catalog{texts: texts}
}

// Override replaces the text for a key.
func (c *Catalog) Override(key, text string) {
	c.texts[key] = text
}

// Text resolves and formats the message for key.
func (c *Catalog) Text(key string, args ...interface{}) string {
	tmpl, ok := c.texts[key]
	if !ok {
		return key
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

// ActionLabel returns the menu text for a campaign action.
func (c *Catalog) ActionLabel(action models.CampaignActionType) string {
	if label, ok := actionLabels[action]; ok {
		return label
	}
	// Fall back to a readable form of the action name.
	readable := strings.ToLower(strings.ReplaceAll(string(action), "_", " "))
	if readable == "" {
		return string(action)
	}
	return strings.ToUpper(readable[:1]) + readable[1:]
}

// dataRequestKey maps a profile data request to its prompt key for the given
// entity type.
func dataRequestKey(rt models.RequestDataType, et models.EntityType) string {
	campaign := et == models.EntityTypeCampaign
	switch rt {
	case models.RequestUserName:
		if campaign {
			return keyCampaignPromptName
		}
		return keyGroupPromptName
	case models.RequestProvinceOkay, models.RequestGPSRequired:
		if campaign {
			return keyCampaignPromptProv
		}
		return keyGroupPromptProv
	default:
		return ""
	}
}
