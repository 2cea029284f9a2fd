package models

import "testing"

func TestParseEntityType(t *testing.T) {
	cases := []struct {
		in   string
		want EntityType
		ok   bool
	}{
		{"CAMPAIGN", EntityTypeCampaign, true},
		{"campaign", EntityTypeCampaign, true},
		{" group ", EntityTypeGroup, true},
		{"OTHER", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := ParseEntityType(c.in)
		if ok != c.ok {
			t.Errorf("ParseEntityType(%q) ok = %v, want %v", c.in, ok, c.ok)
			continue
		}
		if ok && got != c.want {
			t.Errorf("ParseEntityType(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseActionType(t *testing.T) {
	if got, ok := ParseActionType("sign_petition"); !ok || got != ActionSignPetition {
		t.Errorf("ParseActionType(sign_petition) = %q, %v", got, ok)
	}
	if _, ok := ParseActionType("NOT_AN_ACTION"); ok {
		t.Error("unknown action must not parse")
	}
	if _, ok := ParseActionType(""); ok {
		t.Error("empty action must not parse")
	}
}

func TestIsTerminalAction(t *testing.T) {
	if !IsTerminalAction(ActionShareSend) {
		t.Error("SHARE_SEND is terminal")
	}
	if !IsTerminalAction(ActionRecordMedia) {
		t.Error("RECORD_MEDIA is terminal")
	}
	if IsTerminalAction(ActionMoreInfo) {
		t.Error("MORE_INFO is not terminal")
	}
}

func TestParseRequestDataType(t *testing.T) {
	if got, ok := ParseRequestDataType("USER_NAME"); !ok || got != RequestUserName {
		t.Errorf("ParseRequestDataType(USER_NAME) = %q, %v", got, ok)
	}
	if _, ok := ParseRequestDataType("SOMETHING_ELSE"); ok {
		t.Error("unknown request type must not parse")
	}
}

func TestIsProfileRequest(t *testing.T) {
	if !RequestUserName.IsProfileRequest() {
		t.Error("USER_NAME is a profile request")
	}
	if !RequestProvinceOkay.IsProfileRequest() {
		t.Error("LOCATION_PROVINCE_OKAY is a profile request")
	}
	if RequestNone.IsProfileRequest() {
		t.Error("NONE is not a profile request")
	}
	if RequestMenuSelection.IsProfileRequest() {
		t.Error("MENU_SELECTION is not a profile request")
	}
}

func TestParseProvince(t *testing.T) {
	if got, ok := ParseProvince("za_wc"); !ok || got != ProvinceWesternCape {
		t.Errorf("ParseProvince(za_wc) = %q, %v", got, ok)
	}
	if _, ok := ParseProvince("ZA_XX"); ok {
		t.Error("unknown province must not parse")
	}
}

func TestChatUserCompleteness(t *testing.T) {
	u := &ChatUser{}
	if u.HasSetName() || u.HasSetProvince() {
		t.Error("fresh user has nothing set")
	}
	u.DisplayName = "   "
	if u.HasSetName() {
		t.Error("whitespace name does not count")
	}
	u.DisplayName = "Thandi"
	u.Province = ProvinceGauteng
	if !u.HasSetName() || !u.HasSetProvince() {
		t.Error("expected complete profile")
	}
}

func TestCampaignOutboundBudgetLeft(t *testing.T) {
	c := &Campaign{OutboundBudget: 5, OutboundSpent: 3}
	if got := c.OutboundBudgetLeft(); got != 2 {
		t.Errorf("budget left = %d, want 2", got)
	}
	c.OutboundSpent = 9
	if got := c.OutboundBudgetLeft(); got != 0 {
		t.Errorf("overspent budget must clamp to 0, got %d", got)
	}
}

func TestRequestValidation(t *testing.T) {
	if err := (&PhraseSearchRequest{UserID: "u"}).Validate(); err != ErrEmptyPhrase {
		t.Errorf("expected ErrEmptyPhrase, got %v", err)
	}
	if err := (&PhraseSearchRequest{Phrase: "x"}).Validate(); err != ErrEmptyUserID {
		t.Errorf("expected ErrEmptyUserID, got %v", err)
	}
	if err := (&PhraseSearchRequest{Phrase: "x", UserID: "u"}).Validate(); err != nil {
		t.Errorf("expected valid request, got %v", err)
	}

	if err := (&CreateCampaignRequest{JoinWord: "X"}).Validate(); err != ErrEmptyName {
		t.Errorf("expected ErrEmptyName, got %v", err)
	}
	if err := (&CreateCampaignRequest{Name: "X"}).Validate(); err != ErrEmptyJoinWord {
		t.Errorf("expected ErrEmptyJoinWord, got %v", err)
	}

	if err := (&CreateCampaignMessageRequest{ActionType: "BAD", Body: "x"}).Validate(); err != ErrInvalidActionType {
		t.Errorf("expected ErrInvalidActionType, got %v", err)
	}
	if err := (&CreateCampaignMessageRequest{ActionType: ActionOpening}).Validate(); err != ErrEmptyMessageBody {
		t.Errorf("expected ErrEmptyMessageBody, got %v", err)
	}
	bad := &CreateCampaignMessageRequest{ActionType: ActionOpening, Body: "x", NextActions: []CampaignActionType{"BAD"}}
	if err := bad.Validate(); err != ErrInvalidActionType {
		t.Errorf("expected ErrInvalidActionType for bad next action, got %v", err)
	}
}

func TestEntityReplyAux(t *testing.T) {
	r := &EntityReply{}
	if got := r.Aux(AuxKeyPriorMessage); got != "" {
		t.Errorf("nil aux map should yield empty, got %q", got)
	}
	r.AuxProperties = map[string]string{AuxKeyPriorMessage: "cmsg_1"}
	if got := r.Aux(AuxKeyPriorMessage); got != "cmsg_1" {
		t.Errorf("aux lookup = %q", got)
	}
}
