// Package models defines the core data structures for Rallypoint.
//
// It includes the campaign/group/user domain types, the enumerations that
// drive the chat flow engine, and the request/response value objects shared
// across modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// EntityType identifies which kind of joinable entity a request refers to.
type EntityType string

const (
	// EntityTypeCampaign refers to an authored, multi-step campaign script.
	EntityTypeCampaign EntityType = "CAMPAIGN"
	// EntityTypeGroup refers to a plain membership group.
	EntityTypeGroup EntityType = "GROUP"
)

// IsValidEntityType checks if the given entity type is supported.
func IsValidEntityType(et EntityType) bool {
	switch et {
	case EntityTypeCampaign, EntityTypeGroup:
		return true
	default:
		return false
	}
}

// ParseEntityType parses a path or payload segment into an EntityType.
func ParseEntityType(s string) (EntityType, bool) {
	et := EntityType(strings.ToUpper(strings.TrimSpace(s)))
	return et, IsValidEntityType(et)
}

// Channel identifies the delivery channel a campaign message is authored for.
// Empty channel means the message applies to any channel.
type Channel string

const (
	ChannelAny      Channel = ""
	ChannelWhatsApp Channel = "WHATSAPP"
	ChannelUSSD     Channel = "USSD"
)

// CampaignActionType labels the directed edges of a campaign's action graph.
// The action on an inbound reply is what the user just chose to do; the action
// on a stored message is the action that message follows.
type CampaignActionType string

const (
	ActionOpening      CampaignActionType = "OPENING"
	ActionMoreInfo     CampaignActionType = "MORE_INFO"
	ActionSignPetition CampaignActionType = "SIGN_PETITION"
	ActionJoinGroup    CampaignActionType = "JOIN_GROUP"
	ActionTagMe        CampaignActionType = "TAG_ME"
	ActionSharePrompt  CampaignActionType = "SHARE_PROMPT"
	ActionShareSend    CampaignActionType = "SHARE_SEND"
	ActionMediaPrompt  CampaignActionType = "MEDIA_PROMPT"
	ActionRecordMedia  CampaignActionType = "RECORD_MEDIA"
	ActionExitPositive CampaignActionType = "EXIT_POSITIVE"
	ActionExitNegative CampaignActionType = "EXIT_NEGATIVE"
)

// IsValidActionType checks if the given action type is part of the closed set.
func IsValidActionType(at CampaignActionType) bool {
	switch at {
	case ActionOpening, ActionMoreInfo, ActionSignPetition, ActionJoinGroup,
		ActionTagMe, ActionSharePrompt, ActionShareSend, ActionMediaPrompt,
		ActionRecordMedia, ActionExitPositive, ActionExitNegative:
		return true
	default:
		return false
	}
}

// ParseActionType parses a menu payload into an action type. The boolean is
// false for empty or unrecognized payloads; callers treat that as a
// cannot-respond situation rather than an error.
func ParseActionType(s string) (CampaignActionType, bool) {
	at := CampaignActionType(strings.ToUpper(strings.TrimSpace(s)))
	return at, IsValidActionType(at)
}

// IsTerminalAction reports whether the action is fire-and-forget: its side
// effect runs but no scripted next message is looked up for it.
func IsTerminalAction(at CampaignActionType) bool {
	return at == ActionShareSend || at == ActionRecordMedia
}

// RequestDataType tags which piece of missing user profile data is currently
// being solicited from the user.
type RequestDataType string

const (
	RequestUserName        RequestDataType = "USER_NAME"
	RequestProvinceOkay    RequestDataType = "LOCATION_PROVINCE_OKAY"
	RequestGPSRequired     RequestDataType = "LOCATION_GPS_REQUIRED"
	RequestFreeFormOrMedia RequestDataType = "FREE_FORM_OR_MEDIA"
	RequestMenuSelection   RequestDataType = "MENU_SELECTION"
	RequestNone            RequestDataType = "NONE"
)

// ParseRequestDataType parses an echoed aux property value.
func ParseRequestDataType(s string) (RequestDataType, bool) {
	rt := RequestDataType(strings.ToUpper(strings.TrimSpace(s)))
	switch rt {
	case RequestUserName, RequestProvinceOkay, RequestGPSRequired,
		RequestFreeFormOrMedia, RequestMenuSelection, RequestNone:
		return rt, true
	default:
		return "", false
	}
}

// IsProfileRequest reports whether the request type solicits profile data
// that carries its own prompt message.
func (rt RequestDataType) IsProfileRequest() bool {
	return rt == RequestUserName || rt == RequestProvinceOkay || rt == RequestGPSRequired
}

// Province is a coarse user location tag.
type Province string

const (
	ProvinceUnknown      Province = ""
	ProvinceEasternCape  Province = "ZA_EC"
	ProvinceFreeState    Province = "ZA_FS"
	ProvinceGauteng      Province = "ZA_GP"
	ProvinceKwaZuluNatal Province = "ZA_KZN"
	ProvinceLimpopo      Province = "ZA_LP"
	ProvinceMpumalanga   Province = "ZA_MP"
	ProvinceNorthWest    Province = "ZA_NW"
	ProvinceNorthernCape Province = "ZA_NC"
	ProvinceWesternCape  Province = "ZA_WC"
)

// ParseProvince parses a menu payload into a Province.
func ParseProvince(s string) (Province, bool) {
	p := Province(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case ProvinceEasternCape, ProvinceFreeState, ProvinceGauteng,
		ProvinceKwaZuluNatal, ProvinceLimpopo, ProvinceMpumalanga,
		ProvinceNorthWest, ProvinceNorthernCape, ProvinceWesternCape:
		return p, true
	default:
		return ProvinceUnknown, false
	}
}

// UserLogType classifies audit log records written during chat sessions.
type UserLogType string

const (
	LogUserSession         UserLogType = "USER_SESSION"
	LogUserSkippedName     UserLogType = "USER_SKIPPED_NAME"
	LogUserSkippedProvince UserLogType = "USER_SKIPPED_PROVINCE"
	LogUserSentLocation    UserLogType = "USER_SENT_LOCATION"
)

// GeoLocation is a GPS pin sent by the user.
type GeoLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ChatUser is the chat-facing view of a platform user. The flow engine only
// reads it; profile mutations go through the user store.
type ChatUser struct {
	UID         string    `json:"uid"`
	Msisdn      string    `json:"msisdn"`
	DisplayName string    `json:"display_name,omitempty"`
	Province    Province  `json:"province,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasSetName reports whether the user has a usable display name.
func (u *ChatUser) HasSetName() bool {
	return strings.TrimSpace(u.DisplayName) != ""
}

// HasSetProvince reports whether the user has a province on record.
func (u *ChatUser) HasSetProvince() bool {
	return u.Province != ProvinceUnknown
}

// Campaign is an authored engagement script with a join word and an outbound
// messaging budget.
type Campaign struct {
	UID             string    `json:"uid"`
	Name            string    `json:"name"`
	JoinWord        string    `json:"join_word"`
	MasterGroupUID  string    `json:"master_group_uid,omitempty"`
	OutboundEnabled bool      `json:"outbound_enabled"`
	OutboundBudget  int64     `json:"outbound_budget"`
	OutboundSpent   int64     `json:"outbound_spent"`
	WelcomeText     string    `json:"welcome_text,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// OutboundBudgetLeft returns the number of outbound messages the campaign can
// still pay for.
func (c *Campaign) OutboundBudgetLeft() int64 {
	left := c.OutboundBudget - c.OutboundSpent
	if left < 0 {
		return 0
	}
	return left
}

// Group is a plain membership group with an optional join word.
type Group struct {
	UID       string    `json:"uid"`
	Name      string    `json:"name"`
	JoinWord  string    `json:"join_word,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CampaignMessage is a node in a campaign's authored action graph. ActionType
// is the action whose completion this message responds to; NextActions is the
// ordered menu of actions the user can take from here. ParentUID links the
// message to a specific prior node for prior-keyed lookups. SortOrder breaks
// ties deterministically when several messages share an action/channel key.
type CampaignMessage struct {
	UID         string               `json:"uid"`
	CampaignUID string               `json:"campaign_uid"`
	ActionType  CampaignActionType   `json:"action_type"`
	Channel     Channel              `json:"channel,omitempty"`
	Body        string               `json:"body"`
	SortOrder   int                  `json:"sort_order"`
	ParentUID   string               `json:"parent_uid,omitempty"`
	NextActions []CampaignActionType `json:"next_actions,omitempty"`
}

// HasMenu reports whether the message carries menu edges.
func (m *CampaignMessage) HasMenu() bool {
	return len(m.NextActions) > 0
}

// Validation errors shared across request types.
var (
	ErrEmptyPhrase       = errors.New("phrase cannot be empty")
	ErrEmptyUserID       = errors.New("user id cannot be empty")
	ErrEmptyMsisdn       = errors.New("msisdn cannot be empty")
	ErrInvalidEntityType = errors.New("invalid entity type")
	ErrEmptyEntityUID    = errors.New("entity uid cannot be empty")
	ErrEmptyName         = errors.New("name cannot be empty")
	ErrEmptyJoinWord     = errors.New("join word cannot be empty")
	ErrEmptyMessageBody  = errors.New("message body cannot be empty")
	ErrInvalidActionType = errors.New("invalid campaign action type")
)
