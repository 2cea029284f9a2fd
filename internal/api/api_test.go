package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rallypointza/rallypoint/internal/flow"
	"github.com/rallypointza/rallypoint/internal/messaging"
	"github.com/rallypointza/rallypoint/internal/models"
	"github.com/rallypointza/rallypoint/internal/store"
)

type testHarness struct {
	st     *store.InMemoryStore
	ts     *httptest.Server
	client *http.Client
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	st := store.NewInMemoryStore()
	engine := flow.NewEngine(st, st, st)
	server := NewServer(st, engine, messaging.NewRecorderService())

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return &testHarness{st: st, ts: ts, client: ts.Client()}
}

func (h *testHarness) post(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	resp, err := h.client.Post(h.ts.URL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func (h *testHarness) seedUser(t *testing.T, msisdn string) *models.ChatUser {
	t.Helper()
	user, err := h.st.LoadOrCreateUser(context.Background(), msisdn)
	if err != nil {
		t.Fatalf("LoadOrCreateUser failed: %v", err)
	}
	return user
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestHarness(t)

	resp, err := h.client.Get(h.ts.URL + "/v1/health")
	if err != nil {
		t.Fatalf("GET /v1/health failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var envelope models.APIResponse
	decodeBody(t, resp, &envelope)
	if envelope.Status != models.APIStatusOK {
		t.Errorf("status field = %q", envelope.Status)
	}
}

func TestUserIDEndpoint(t *testing.T) {
	h := newTestHarness(t)

	resp := h.post(t, "/v1/user/id", models.UserIDRequest{Msisdn: "+27 82 000 1111"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var envelope struct {
		Status string            `json:"status"`
		Result map[string]string `json:"result"`
	}
	decodeBody(t, resp, &envelope)
	uid := envelope.Result["userUid"]
	if uid == "" {
		t.Fatal("expected a user uid in the response")
	}

	// The same msisdn, differently formatted, resolves to the same user.
	resp = h.post(t, "/v1/user/id", models.UserIDRequest{Msisdn: "27820001111"})
	var second struct {
		Result map[string]string `json:"result"`
	}
	decodeBody(t, resp, &second)
	if second.Result["userUid"] != uid {
		t.Errorf("expected stable uid, got %q and %q", uid, second.Result["userUid"])
	}

	if h.st.UserLogCount(uid, models.LogUserSession) != 2 {
		t.Error("each bootstrap should record a session log")
	}
}

func TestUserIDEndpointRejectsBadInput(t *testing.T) {
	h := newTestHarness(t)

	resp := h.post(t, "/v1/user/id", models.UserIDRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty msisdn: status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()

	resp = h.post(t, "/v1/user/id", models.UserIDRequest{Msisdn: "abc"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("non-numeric msisdn: status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestPhraseSearchEndpoint(t *testing.T) {
	h := newTestHarness(t)
	user := h.seedUser(t, "27820001111")

	campaign, err := h.st.CreateCampaign(context.Background(), models.CreateCampaignRequest{
		Name: "Water For All", JoinWord: "WATER",
	})
	if err != nil {
		t.Fatalf("CreateCampaign failed: %v", err)
	}

	resp := h.post(t, "/v1/phrase/search", models.PhraseSearchRequest{Phrase: "water", UserID: user.UID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var result models.PhraseSearchResponse
	decodeBody(t, resp, &result)
	if !result.EntityFound || result.EntityUID != campaign.UID {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestPhraseSearchEndpointValidation(t *testing.T) {
	h := newTestHarness(t)

	resp := h.post(t, "/v1/phrase/search", models.PhraseSearchRequest{UserID: "user_1"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty phrase: status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()

	resp = h.post(t, "/v1/phrase/search", models.PhraseSearchRequest{Phrase: "x", UserID: "user_missing"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown user: status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestEntitySelectEndpoint(t *testing.T) {
	h := newTestHarness(t)
	user := h.seedUser(t, "27820001111")

	campaign, err := h.st.CreateCampaign(context.Background(), models.CreateCampaignRequest{
		Name: "Water For All", JoinWord: "WATER",
	})
	if err != nil {
		t.Fatalf("CreateCampaign failed: %v", err)
	}

	resp := h.post(t, "/v1/entity/select/CAMPAIGN/"+campaign.UID, models.EntitySelectRequest{UserID: user.UID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var result models.PhraseSearchResponse
	decodeBody(t, resp, &result)
	if !result.EntityFound || result.EntityUID != campaign.UID {
		t.Errorf("unexpected result: %+v", result)
	}

	resp = h.post(t, "/v1/entity/select/BOGUS/"+campaign.UID, models.EntitySelectRequest{UserID: user.UID})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad entity type: status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestEntityRespondEndpoint(t *testing.T) {
	h := newTestHarness(t)
	user := h.seedUser(t, "27820001111")
	ctx := context.Background()

	campaign, err := h.st.CreateCampaign(ctx, models.CreateCampaignRequest{Name: "Water", JoinWord: "WATER"})
	if err != nil {
		t.Fatalf("CreateCampaign failed: %v", err)
	}
	if _, err := h.st.CreateCampaignMessage(ctx, campaign.UID, models.CreateCampaignMessageRequest{
		ActionType: models.ActionMoreInfo, Body: "Some detail.", SortOrder: 1,
	}); err != nil {
		t.Fatalf("CreateCampaignMessage failed: %v", err)
	}

	resp := h.post(t, "/v1/entity/respond/CAMPAIGN/"+campaign.UID, models.EntityRespondRequest{
		UserID: user.UID,
		Reply:  models.EntityReply{MenuOptionPayload: string(models.ActionMoreInfo)},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var result models.EntityResponseToUser
	decodeBody(t, resp, &result)
	if len(result.Messages) == 0 || result.Messages[0] != "Some detail." {
		t.Errorf("unexpected messages: %v", result.Messages)
	}
	// A fresh user gets the name prompt interleaved after the script.
	if result.RequestDataType != models.RequestUserName {
		t.Errorf("requestDataType = %s, want %s", result.RequestDataType, models.RequestUserName)
	}
}

func TestAdminCreateCampaignAndMessages(t *testing.T) {
	h := newTestHarness(t)

	resp := h.post(t, "/v1/admin/campaigns", models.CreateCampaignRequest{Name: "Water", JoinWord: "WATER"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var envelope struct {
		Status string          `json:"status"`
		Result models.Campaign `json:"result"`
	}
	decodeBody(t, resp, &envelope)
	if envelope.Result.UID == "" {
		t.Fatal("expected a campaign uid")
	}

	// Duplicate join words conflict, case-insensitively.
	resp = h.post(t, "/v1/admin/campaigns", models.CreateCampaignRequest{Name: "Other", JoinWord: "water"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate join word: status = %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()

	resp = h.post(t, "/v1/admin/campaigns/"+envelope.Result.UID+"/messages", models.CreateCampaignMessageRequest{
		ActionType: models.ActionOpening, Body: "Welcome!",
		NextActions: []models.CampaignActionType{models.ActionMoreInfo},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create message: status = %d, want 201", resp.StatusCode)
	}
	resp.Body.Close()

	resp = h.post(t, "/v1/admin/campaigns/camp_missing/messages", models.CreateCampaignMessageRequest{
		ActionType: models.ActionOpening, Body: "Welcome!",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing campaign: status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAdminCreateGroup(t *testing.T) {
	h := newTestHarness(t)

	resp := h.post(t, "/v1/admin/groups", models.CreateGroupRequest{Name: "Ward 12 Forum", JoinWord: "WARD12"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	resp.Body.Close()

	resp = h.post(t, "/v1/admin/groups", models.CreateGroupRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty name: status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}
