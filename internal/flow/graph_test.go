package flow

import (
	"testing"

	"github.com/rallypointza/rallypoint/internal/models"
)

func TestMessageIndexOrdersBySortOrderThenUID(t *testing.T) {
	idx := NewMessageIndex([]models.CampaignMessage{
		{UID: "cmsg_b", ActionType: models.ActionMoreInfo, Body: "second", SortOrder: 2},
		{UID: "cmsg_c", ActionType: models.ActionMoreInfo, Body: "tied-c", SortOrder: 1},
		{UID: "cmsg_a", ActionType: models.ActionMoreInfo, Body: "tied-a", SortOrder: 1},
	})

	msgs := idx.ByAction(models.ActionMoreInfo, models.ChannelWhatsApp)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Body != "tied-a" || msgs[1].Body != "tied-c" || msgs[2].Body != "second" {
		t.Errorf("wrong order: %q %q %q", msgs[0].Body, msgs[1].Body, msgs[2].Body)
	}
}

func TestMessageIndexChannelSpecificWins(t *testing.T) {
	idx := NewMessageIndex([]models.CampaignMessage{
		{UID: "cmsg_any", ActionType: models.ActionOpening, Body: "generic", Channel: models.ChannelAny},
		{UID: "cmsg_wa", ActionType: models.ActionOpening, Body: "whatsapp", Channel: models.ChannelWhatsApp},
	})

	if got := idx.Opening(models.ChannelWhatsApp); got == nil || got.Body != "whatsapp" {
		t.Errorf("expected the WhatsApp opening, got %+v", got)
	}
	if got := idx.Opening(models.ChannelUSSD); got == nil || got.Body != "generic" {
		t.Errorf("expected the generic fallback for USSD, got %+v", got)
	}
}

func TestMessageIndexByPrior(t *testing.T) {
	idx := NewMessageIndex([]models.CampaignMessage{
		{UID: "cmsg_root", ActionType: models.ActionOpening, Body: "root"},
		{UID: "cmsg_child", ActionType: models.ActionMoreInfo, Body: "child", ParentUID: "cmsg_root"},
	})

	if got := idx.ByPrior("cmsg_root", models.ActionMoreInfo); got == nil || got.Body != "child" {
		t.Errorf("expected the prior-keyed child, got %+v", got)
	}
	if got := idx.ByPrior("cmsg_root", models.ActionSignPetition); got != nil {
		t.Errorf("no edge authored, expected nil, got %+v", got)
	}
	if got := idx.ByPrior("", models.ActionMoreInfo); got != nil {
		t.Errorf("empty prior must not match, got %+v", got)
	}
}

func TestMessageIndexEmpty(t *testing.T) {
	idx := NewMessageIndex(nil)
	if !idx.Empty() {
		t.Error("expected empty index")
	}
	if idx.FirstByAction(models.ActionOpening, models.ChannelWhatsApp) != nil {
		t.Error("expected no opening")
	}
}

func TestNextProfileRequestOrder(t *testing.T) {
	u := &models.ChatUser{}
	if got := NextProfileRequest(u); got != models.RequestUserName {
		t.Errorf("fresh user: got %s, want %s", got, models.RequestUserName)
	}
	u.DisplayName = "Thandi"
	if got := NextProfileRequest(u); got != models.RequestProvinceOkay {
		t.Errorf("named user: got %s, want %s", got, models.RequestProvinceOkay)
	}
	u.Province = models.ProvinceGauteng
	if got := NextProfileRequest(u); got != models.RequestNone {
		t.Errorf("complete user: got %s, want %s", got, models.RequestNone)
	}
}

func TestNextAfterSkip(t *testing.T) {
	if got := NextAfterSkip(models.RequestUserName); got != models.RequestProvinceOkay {
		t.Errorf("after name skip: got %s", got)
	}
	if got := NextAfterSkip(models.RequestProvinceOkay); got != models.RequestNone {
		t.Errorf("after province skip: got %s", got)
	}
}

func TestCatalogOverrideAndFallback(t *testing.T) {
	c := NewCatalog()
	if got := c.Text(keyGroupJoined, "Ward 12"); got != "You have been added to Ward 12. Welcome!" {
		t.Errorf("unexpected text: %q", got)
	}

	c.Override(keyGroupJoined, "Welcome to %s.")
	if got := c.Text(keyGroupJoined, "Ward 12"); got != "Welcome to Ward 12." {
		t.Errorf("override not applied: %q", got)
	}

	if got := c.Text("no.such.key"); got != "no.such.key" {
		t.Errorf("unknown key should fall back to itself, got %q", got)
	}
}

func TestCatalogActionLabelFallback(t *testing.T) {
	c := NewCatalog()
	if got := c.ActionLabel(models.ActionSignPetition); got != "Sign the petition" {
		t.Errorf("unexpected label: %q", got)
	}
	if got := c.ActionLabel(models.CampaignActionType("SOME_NEW_ACTION")); got != "Some new action" {
		t.Errorf("unexpected fallback label: %q", got)
	}
}
