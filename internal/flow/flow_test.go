package flow

import (
	"context"
	"testing"

	"github.com/rallypointza/rallypoint/internal/models"
	"github.com/rallypointza/rallypoint/internal/store"
)

// fakeSender records outbound sends for assertions.
type fakeSender struct {
	sent []struct {
		To   string
		Body string
	}
}

func (f *fakeSender) SendMessage(ctx context.Context, to string, body string) error {
	f.sent = append(f.sent, struct {
		To   string
		Body string
	}{To: to, Body: body})
	return nil
}

// fixedResolver resolves every pin to the same province.
type fixedResolver struct {
	province models.Province
}

func (r fixedResolver) ProvinceForLocation(ctx context.Context, loc models.GeoLocation) (models.Province, error) {
	return r.province, nil
}

type fixture struct {
	st     *store.InMemoryStore
	engine *Engine
	share  *fakeSender
	sms    *fakeSender
	user   *models.ChatUser
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewInMemoryStore()
	share := &fakeSender{}
	sms := &fakeSender{}
	engine := NewEngine(st, st, st,
		WithShareSender(share),
		WithWelcomeSender(sms),
		WithLocationResolver(fixedResolver{province: models.ProvinceGauteng}),
	)

	user, err := st.LoadOrCreateUser(context.Background(), "27820001111")
	if err != nil {
		t.Fatalf("LoadOrCreateUser failed: %v", err)
	}
	return &fixture{st: st, engine: engine, share: share, sms: sms, user: user}
}

// completeProfile fills in the user's name and province so profile interleaving
// does not fire.
func (f *fixture) completeProfile(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if err := f.st.UpdateDisplayName(ctx, f.user.UID, "Thandi"); err != nil {
		t.Fatalf("UpdateDisplayName failed: %v", err)
	}
	if err := f.st.UpdateProvince(ctx, f.user.UID, models.ProvinceGauteng); err != nil {
		t.Fatalf("UpdateProvince failed: %v", err)
	}
}

func (f *fixture) seedCampaign(t *testing.T, req models.CreateCampaignRequest) *models.Campaign {
	t.Helper()
	campaign, err := f.st.CreateCampaign(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateCampaign failed: %v", err)
	}
	return campaign
}

func (f *fixture) seedMessage(t *testing.T, campaignUID string, req models.CreateCampaignMessageRequest) *models.CampaignMessage {
	t.Helper()
	msg, err := f.st.CreateCampaignMessage(context.Background(), campaignUID, req)
	if err != nil {
		t.Fatalf("CreateCampaignMessage failed: %v", err)
	}
	return msg
}

func (f *fixture) seedGroup(t *testing.T, name, joinWord string) *models.Group {
	t.Helper()
	group, err := f.st.CreateGroup(context.Background(), models.CreateGroupRequest{Name: name, JoinWord: joinWord})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return group
}

// seedScriptedCampaign builds a campaign with an opening message that offers
// more info and petition signing, plus the follow-on messages.
func (f *fixture) seedScriptedCampaign(t *testing.T) *models.Campaign {
	t.Helper()
	campaign := f.seedCampaign(t, models.CreateCampaignRequest{Name: "Water For All", JoinWord: "WATER"})
	f.seedMessage(t, campaign.UID, models.CreateCampaignMessageRequest{
		ActionType:  models.ActionOpening,
		Body:        "Welcome to Water For All. What would you like to do?",
		SortOrder:   1,
		NextActions: []models.CampaignActionType{models.ActionMoreInfo, models.ActionSignPetition},
	})
	f.seedMessage(t, campaign.UID, models.CreateCampaignMessageRequest{
		ActionType: models.ActionMoreInfo,
		Body:       "We are campaigning for clean water in every ward.",
		SortOrder:  2,
	})
	f.seedMessage(t, campaign.UID, models.CreateCampaignMessageRequest{
		ActionType: models.ActionSignPetition,
		Body:       "Thank you for signing!",
		SortOrder:  3,
	})
	return campaign
}

func TestPhraseSearchCampaignJoinWord(t *testing.T) {
	f := newFixture(t)
	campaign := f.seedScriptedCampaign(t)

	resp, err := f.engine.PhraseSearch(context.Background(), models.PhraseSearchRequest{
		Phrase: "water", UserID: f.user.UID,
	})
	if err != nil {
		t.Fatalf("PhraseSearch failed: %v", err)
	}
	if !resp.EntityFound {
		t.Fatal("expected entity to be found")
	}
	if resp.EntityType != models.EntityTypeCampaign || resp.EntityUID != campaign.UID {
		t.Errorf("wrong entity: got %s %s", resp.EntityType, resp.EntityUID)
	}
	if len(resp.ResponseMessages) == 0 || resp.ResponseMessages[0] != "Welcome to Water For All. What would you like to do?" {
		t.Errorf("unexpected messages: %v", resp.ResponseMessages)
	}
	if len(resp.ResponseMenu) != 2 {
		t.Fatalf("expected 2 menu options, got %d", len(resp.ResponseMenu))
	}
	if resp.ResponseMenu[0].Payload != string(models.ActionMoreInfo) {
		t.Errorf("first menu payload = %q", resp.ResponseMenu[0].Payload)
	}
	if resp.ResponseMenu[1].Payload != string(models.ActionSignPetition) {
		t.Errorf("second menu payload = %q", resp.ResponseMenu[1].Payload)
	}
	// Menu labels are appended to the messages so plain-text channels can
	// render them.
	if len(resp.ResponseMessages) != 3 {
		t.Errorf("expected opening plus 2 labels, got %v", resp.ResponseMessages)
	}
	if f.st.EngagementCount(campaign.UID) != 1 {
		t.Error("expected one engagement record")
	}
}

func TestPhraseSearchCampaignBeatsGroupOnSameWord(t *testing.T) {
	f := newFixture(t)
	campaign := f.seedScriptedCampaign(t)
	f.seedGroup(t, "Water Watchers", "WATER")

	resp, err := f.engine.PhraseSearch(context.Background(), models.PhraseSearchRequest{
		Phrase: "WATER", UserID: f.user.UID,
	})
	if err != nil {
		t.Fatalf("PhraseSearch failed: %v", err)
	}
	if resp.EntityType != models.EntityTypeCampaign || resp.EntityUID != campaign.UID {
		t.Errorf("campaign should win over group: got %s %s", resp.EntityType, resp.EntityUID)
	}
}

func TestPhraseSearchGroupJoinAddsMemberAndAsksName(t *testing.T) {
	f := newFixture(t)
	group := f.seedGroup(t, "Ward 12 Forum", "WARD12")

	resp, err := f.engine.PhraseSearch(context.Background(), models.PhraseSearchRequest{
		Phrase: "ward12", UserID: f.user.UID,
	})
	if err != nil {
		t.Fatalf("PhraseSearch failed: %v", err)
	}
	if !resp.EntityFound || resp.EntityType != models.EntityTypeGroup {
		t.Fatalf("expected group result, got %+v", resp)
	}
	if !f.st.IsMember(group.UID, f.user.UID) {
		t.Error("user should have been added to the group")
	}
	if resp.RequestDataType != models.RequestUserName {
		t.Errorf("expected name request, got %s", resp.RequestDataType)
	}
	if len(resp.ResponseMessages) != 2 {
		t.Errorf("expected joined message plus name prompt, got %v", resp.ResponseMessages)
	}
}

func TestPhraseSearchGroupJoinCompleteProfileGetsExit(t *testing.T) {
	f := newFixture(t)
	f.completeProfile(t)
	group := f.seedGroup(t, "Ward 12 Forum", "WARD12")

	resp, err := f.engine.PhraseSearch(context.Background(), models.PhraseSearchRequest{
		Phrase: "ward12", UserID: f.user.UID,
	})
	if err != nil {
		t.Fatalf("PhraseSearch failed: %v", err)
	}
	if !f.st.IsMember(group.UID, f.user.UID) {
		t.Error("user should have been added to the group")
	}
	if resp.RequestDataType != models.RequestNone {
		t.Errorf("expected no outstanding request, got %s", resp.RequestDataType)
	}
	if len(resp.ResponseMessages) != 2 || resp.ResponseMessages[1] != defaultTexts[keyGenericExit] {
		t.Errorf("expected joined message plus positive exit, got %v", resp.ResponseMessages)
	}
}

func TestPhraseSearchNoMatchNoBroadSearch(t *testing.T) {
	f := newFixture(t)

	resp, err := f.engine.PhraseSearch(context.Background(), models.PhraseSearchRequest{
		Phrase: "nothing", UserID: f.user.UID,
	})
	if err != nil {
		t.Fatalf("PhraseSearch failed: %v", err)
	}
	if resp.EntityFound {
		t.Error("expected no entity")
	}
	if len(resp.PossibleEntities) != 0 {
		t.Errorf("expected no candidates, got %v", resp.PossibleEntities)
	}
}

func TestPhraseSearchUnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.PhraseSearch(context.Background(), models.PhraseSearchRequest{
		Phrase: "water", UserID: "user_missing",
	})
	if err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestBroadSearchMultipleCandidates(t *testing.T) {
	f := newFixture(t)
	f.seedCampaign(t, models.CreateCampaignRequest{Name: "Housing Action", JoinWord: "HOUSING"})
	f.seedGroup(t, "Housing Forum", "")

	resp, err := f.engine.PhraseSearch(context.Background(), models.PhraseSearchRequest{
		Phrase: "housing", UserID: f.user.UID, BroadSearch: true,
	})
	if err != nil {
		t.Fatalf("PhraseSearch failed: %v", err)
	}
	if resp.EntityFound {
		t.Error("a candidate list is not a found entity")
	}
	if resp.RequestDataType != models.RequestMenuSelection {
		t.Errorf("expected menu selection request, got %s", resp.RequestDataType)
	}
	if len(resp.PossibleEntities) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(resp.PossibleEntities))
	}
	// Campaigns rank before groups.
	if resp.PossibleEntities[0].Type != models.EntityTypeCampaign {
		t.Errorf("campaigns should rank first, got %s", resp.PossibleEntities[0].Type)
	}
	wantPayload := string(models.EntityTypeCampaign) + "::" + resp.PossibleEntities[0].UID
	if resp.ResponseMenu[0].Payload != wantPayload {
		t.Errorf("menu payload = %q, want %q", resp.ResponseMenu[0].Payload, wantPayload)
	}
	// Intro message plus one numbered line per candidate.
	if len(resp.ResponseMessages) != 3 {
		t.Errorf("unexpected messages: %v", resp.ResponseMessages)
	}
}

func TestBroadSearchSingleCandidate(t *testing.T) {
	f := newFixture(t)
	f.seedCampaign(t, models.CreateCampaignRequest{Name: "Housing Action", JoinWord: "HOUSING"})

	resp, err := f.engine.PhraseSearch(context.Background(), models.PhraseSearchRequest{
		Phrase: "housing", UserID: f.user.UID, BroadSearch: true,
	})
	if err != nil {
		t.Fatalf("PhraseSearch failed: %v", err)
	}
	if resp.EntityFound {
		t.Error("single likely match still needs confirmation")
	}
	if len(resp.PossibleEntities) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(resp.PossibleEntities))
	}
	if len(resp.ResponseMenu) != 0 {
		t.Errorf("single candidate should not render a menu, got %v", resp.ResponseMenu)
	}
}

func TestSelectEntityCampaign(t *testing.T) {
	f := newFixture(t)
	campaign := f.seedScriptedCampaign(t)

	resp, err := f.engine.SelectEntity(context.Background(), models.EntityTypeCampaign, campaign.UID, f.user.UID)
	if err != nil {
		t.Fatalf("SelectEntity failed: %v", err)
	}
	if !resp.EntityFound || resp.EntityUID != campaign.UID {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if f.st.EngagementCount(campaign.UID) != 1 {
		t.Error("selection should record an engagement")
	}
}

func TestSelectEntityMissingCampaign(t *testing.T) {
	f := newFixture(t)

	resp, err := f.engine.SelectEntity(context.Background(), models.EntityTypeCampaign, "camp_gone", f.user.UID)
	if err != nil {
		t.Fatalf("SelectEntity failed: %v", err)
	}
	if resp.EntityFound {
		t.Error("missing campaign must not be found")
	}
}

func TestCampaignWelcomeTextSentOnce(t *testing.T) {
	f := newFixture(t)
	campaign := f.seedCampaign(t, models.CreateCampaignRequest{
		Name:            "Clinic Watch",
		JoinWord:        "CLINIC",
		OutboundEnabled: true,
		OutboundBudget:  1,
		WelcomeText:     "Thanks for joining Clinic Watch!",
	})
	f.seedMessage(t, campaign.UID, models.CreateCampaignMessageRequest{
		ActionType: models.ActionOpening, Body: "Hello.", SortOrder: 1,
	})

	ctx := context.Background()
	if _, err := f.engine.PhraseSearch(ctx, models.PhraseSearchRequest{Phrase: "clinic", UserID: f.user.UID}); err != nil {
		t.Fatalf("PhraseSearch failed: %v", err)
	}
	if len(f.sms.sent) != 1 {
		t.Fatalf("expected 1 welcome text, got %d", len(f.sms.sent))
	}
	if f.sms.sent[0].To != f.user.Msisdn || f.sms.sent[0].Body != "Thanks for joining Clinic Watch!" {
		t.Errorf("unexpected welcome text: %+v", f.sms.sent[0])
	}

	// Budget is spent; a second engagement must not send again.
	if _, err := f.engine.PhraseSearch(ctx, models.PhraseSearchRequest{Phrase: "clinic", UserID: f.user.UID}); err != nil {
		t.Fatalf("PhraseSearch failed: %v", err)
	}
	if len(f.sms.sent) != 1 {
		t.Errorf("expected no further welcome texts, got %d", len(f.sms.sent))
	}
}

func TestCampaignWithoutOpeningStillReplies(t *testing.T) {
	f := newFixture(t)
	f.seedCampaign(t, models.CreateCampaignRequest{Name: "Bare", JoinWord: "BARE"})

	resp, err := f.engine.PhraseSearch(context.Background(), models.PhraseSearchRequest{
		Phrase: "bare", UserID: f.user.UID,
	})
	if err != nil {
		t.Fatalf("PhraseSearch failed: %v", err)
	}
	if len(resp.ResponseMessages) == 0 {
		t.Fatal("a misconfigured campaign must still produce a message")
	}
}
