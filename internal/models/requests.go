// Package models defines request and response value objects for the chat API.
package models

// Aux property keys and sentinel payloads echoed between the engine and the
// channel adapter. These are the only conversation "state" in the system; the
// client carries them end to end.
const (
	// AuxKeyPriorMessage carries the uid of the last scripted message shown.
	AuxKeyPriorMessage = "PRIOR"
	// AuxKeyRequestDataType carries the outstanding profile data request.
	AuxKeyRequestDataType = "requestDataType"
	// SkipPayload is the menu payload a client sends to skip the current
	// profile data request.
	SkipPayload = "<<SKIP>>"
)

// UserIDRequest asks for the chat user behind an msisdn, creating one if
// needed.
type UserIDRequest struct {
	Msisdn string `json:"msisdn"`
}

// Validate checks required fields on a UserIDRequest.
func (r *UserIDRequest) Validate() error {
	if r.Msisdn == "" {
		return ErrEmptyMsisdn
	}
	return nil
}

// PhraseSearchRequest is an inbound free-text phrase from the chat channel.
type PhraseSearchRequest struct {
	Phrase      string `json:"phrase"`
	UserID      string `json:"userId"`
	BroadSearch bool   `json:"broadSearch"`
}

// Validate checks required fields on a PhraseSearchRequest.
func (r *PhraseSearchRequest) Validate() error {
	if r.Phrase == "" {
		return ErrEmptyPhrase
	}
	if r.UserID == "" {
		return ErrEmptyUserID
	}
	return nil
}

// EntitySelectRequest confirms one candidate from an earlier broad search.
type EntitySelectRequest struct {
	UserID string `json:"userId"`
}

// Validate checks required fields on an EntitySelectRequest.
func (r *EntitySelectRequest) Validate() error {
	if r.UserID == "" {
		return ErrEmptyUserID
	}
	return nil
}

// EntityReply is a structured reply to an entity the user is interacting
// with: free text, a selected menu payload, echoed aux properties, and an
// optional GPS pin.
type EntityReply struct {
	UserMessage       string            `json:"userMessage,omitempty"`
	MenuOptionPayload string            `json:"menuOptionPayload,omitempty"`
	AuxProperties     map[string]string `json:"auxProperties,omitempty"`
	Location          *GeoLocation      `json:"location,omitempty"`
}

// Aux returns the aux property for key, or empty if unset.
func (r *EntityReply) Aux(key string) string {
	if r.AuxProperties == nil {
		return ""
	}
	return r.AuxProperties[key]
}

// EntityRespondRequest wraps an EntityReply with the replying user.
type EntityRespondRequest struct {
	UserID string      `json:"userId"`
	Reply  EntityReply `json:"reply"`
}

// Validate checks required fields on an EntityRespondRequest.
func (r *EntityRespondRequest) Validate() error {
	if r.UserID == "" {
		return ErrEmptyUserID
	}
	return nil
}

// MenuOption is one ordered menu entry. Payload is what the client echoes
// back when the option is chosen; Label is the rendered text.
type MenuOption struct {
	Payload string `json:"payload"`
	Label   string `json:"label"`
}

// EntityRef names a candidate entity in a disambiguation set.
type EntityRef struct {
	Type EntityType `json:"type"`
	UID  string     `json:"uid"`
	Name string     `json:"name,omitempty"`
}

// PhraseSearchResponse is the composed answer to a phrase search or entity
// selection. Menu order is significant and preserved.
type PhraseSearchResponse struct {
	EntityFound      bool            `json:"entityFound"`
	EntityType       EntityType      `json:"entityType,omitempty"`
	EntityUID        string          `json:"entityUid,omitempty"`
	ResponseMessages []string        `json:"responseMessages"`
	ResponseMenu     []MenuOption    `json:"responseMenu,omitempty"`
	RequestDataType  RequestDataType `json:"requestDataType"`
	PossibleEntities []EntityRef     `json:"possibleEntities,omitempty"`
}

// NotFoundResponse is the first-class "phrase matched nothing" result.
func NotFoundResponse() PhraseSearchResponse {
	return PhraseSearchResponse{
		EntityFound:     false,
		RequestDataType: RequestNone,
	}
}

// EntityResponseToUser is the composed answer to a structured entity reply.
type EntityResponseToUser struct {
	EntityType      EntityType        `json:"entityType"`
	EntityUID       string            `json:"entityUid"`
	Messages        []string          `json:"messages"`
	Menu            []MenuOption      `json:"menu,omitempty"`
	RequestDataType RequestDataType   `json:"requestDataType"`
	AuxProperties   map[string]string `json:"auxProperties,omitempty"`
}

// CannotRespond is the skeleton result for a reply the engine cannot act on
// (missing or unrecognized action). It names the entity so the channel
// adapter keeps its context; the flow engine adds the user-facing text, since
// the channel must never receive an empty message list.
func CannotRespond(et EntityType, uid string) EntityResponseToUser {
	return EntityResponseToUser{
		EntityType:      et,
		EntityUID:       uid,
		Messages:        []string{},
		RequestDataType: RequestNone,
	}
}

// CreateCampaignRequest seeds a campaign through the admin surface.
type CreateCampaignRequest struct {
	Name            string `json:"name"`
	JoinWord        string `json:"join_word"`
	MasterGroupUID  string `json:"master_group_uid,omitempty"`
	OutboundEnabled bool   `json:"outbound_enabled"`
	OutboundBudget  int64  `json:"outbound_budget"`
	WelcomeText     string `json:"welcome_text,omitempty"`
}

// Validate checks required fields on a CreateCampaignRequest.
func (r *CreateCampaignRequest) Validate() error {
	if r.Name == "" {
		return ErrEmptyName
	}
	if r.JoinWord == "" {
		return ErrEmptyJoinWord
	}
	return nil
}

// CreateCampaignMessageRequest seeds one node of a campaign's action graph.
type CreateCampaignMessageRequest struct {
	ActionType  CampaignActionType   `json:"action_type"`
	Channel     Channel              `json:"channel,omitempty"`
	Body        string               `json:"body"`
	SortOrder   int                  `json:"sort_order"`
	ParentUID   string               `json:"parent_uid,omitempty"`
	NextActions []CampaignActionType `json:"next_actions,omitempty"`
}

// Validate checks required fields on a CreateCampaignMessageRequest.
func (r *CreateCampaignMessageRequest) Validate() error {
	if !IsValidActionType(r.ActionType) {
		return ErrInvalidActionType
	}
	if r.Body == "" {
		return ErrEmptyMessageBody
	}
	for _, next := range r.NextActions {
		if !IsValidActionType(next) {
			return ErrInvalidActionType
		}
	}
	return nil
}

// CreateGroupRequest seeds a group through the admin surface.
type CreateGroupRequest struct {
	Name     string `json:"name"`
	JoinWord string `json:"join_word,omitempty"`
}

// Validate checks required fields on a CreateGroupRequest.
func (r *CreateGroupRequest) Validate() error {
	if r.Name == "" {
		return ErrEmptyName
	}
	return nil
}
