package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/susu3304/lootsplit/internal/bless"
	"github.com/susu3304/lootsplit/internal/config"
	"github.com/susu3304/lootsplit/internal/db"
	"github.com/susu3304/lootsplit/internal/hunt"
	"github.com/susu3304/lootsplit/internal/lootsplit"
	"go.uber.org/zap"
)

type fakeStore struct {
	users       map[string]string
	groups      map[int64]*db.Group
	invitations map[string]*db.Invitation
	transfers   map[int64]*db.Transfer
	reminders   map[int64]int
	failGroups  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       map[string]string{},
		groups:      map[int64]*db.Group{},
		invitations: map[string]*db.Invitation{},
		transfers:   map[int64]*db.Transfer{},
		reminders:   map[int64]int{},
	}
}

func (f *fakeStore) UpsertUser(_ context.Context, id, name string) error {
	f.users[id] = name
	return nil
}

func (f *fakeStore) CreateGroup(_ context.Context, name, ownerID string) (*db.Group, error) {
	g := &db.Group{ID: int64(len(f.groups) + 1), Name: name, OwnerID: ownerID, Members: []db.Member{{ID: ownerID}}}
	f.groups[g.ID] = g
	return f.withNames(g), nil
}

// withNames resolves stored user names the way the users join does.
func (f *fakeStore) withNames(g *db.Group) *db.Group {
	out := *g
	out.OwnerName = f.users[g.OwnerID]
	out.Members = make([]db.Member, len(g.Members))
	for i, m := range g.Members {
		out.Members[i] = db.Member{ID: m.ID, Name: f.users[m.ID]}
	}
	return &out
}

func (f *fakeStore) Group(_ context.Context, id int64) (*db.Group, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return f.withNames(g), nil
}

func (f *fakeStore) GroupsForUser(_ context.Context, userID string) ([]db.Group, error) {
	if f.failGroups != nil {
		return nil, f.failGroups
	}
	var out []db.Group
	for id := int64(1); id <= int64(len(f.groups)); id++ {
		if g, ok := f.groups[id]; ok && g.HasMember(userID) {
			out = append(out, *f.withNames(g))
		}
	}
	return out, nil
}

func (f *fakeStore) CreateInvitation(_ context.Context, groupID int64, createdBy string) (*db.Invitation, error) {
	inv := &db.Invitation{ID: int64(len(f.invitations) + 1), GroupID: groupID, Token: "tok-1", CreatedBy: createdBy}
	f.invitations[inv.Token] = inv
	return inv, nil
}

func (f *fakeStore) InvitationByToken(_ context.Context, token string) (*db.Invitation, error) {
	inv, ok := f.invitations[token]
	if !ok {
		return nil, db.ErrNotFound
	}
	out := *inv
	out.InviterName = f.users[inv.CreatedBy]
	return &out, nil
}

func (f *fakeStore) RespondInvitation(_ context.Context, token, userID string, accept bool) (*db.Invitation, error) {
	inv, ok := f.invitations[token]
	if !ok {
		return nil, db.ErrNotFound
	}
	if inv.Used {
		return nil, db.ErrInvitationUsed
	}
	inv.Used = true
	inv.Accepted = accept
	if accept {
		g := f.groups[inv.GroupID]
		g.Members = append(g.Members, db.Member{ID: userID})
	}
	return inv, nil
}

func (f *fakeStore) Transfer(_ context.Context, id int64) (*db.Transfer, error) {
	t, ok := f.transfers[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) ListTransfers(_ context.Context, groupID int64, status string) ([]db.Transfer, error) {
	var out []db.Transfer
	for id := int64(1); id <= int64(len(f.transfers)); id++ {
		t, ok := f.transfers[id]
		if ok && t.GroupID == groupID && (status == "" || t.Status == status) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateTransferStatus(_ context.Context, id int64, status string) (*db.Transfer, error) {
	t, ok := f.transfers[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	t.Status = status
	return t, nil
}

func (f *fakeStore) ConfigureReminders(_ context.Context, groupID int64, channelID string, intervalMinutes int) error {
	g := f.groups[groupID]
	g.ChannelID = &channelID
	g.ReminderEnabled = intervalMinutes > 0
	g.ReminderIntervalMinutes = intervalMinutes
	f.reminders[groupID] = intervalMinutes
	return nil
}

type fakeSaver struct {
	got     []hunt.Transfer
	created int
	err     error
}

func (f *fakeSaver) SaveTransfers(_ context.Context, _ int64, _ string, transfers []hunt.Transfer) (int, error) {
	f.got = transfers
	return f.created, f.err
}

func newTestAPI(t *testing.T) (*API, *fakeStore, *fakeSaver) {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:          "test-secret",
		DiscordRedirectURI: "http://localhost:3000/api/auth/callback",
		WebUIBaseURL:       "http://localhost:3000",
	}
	store := newFakeStore()
	saver := &fakeSaver{}
	return New(cfg, store, saver, zap.NewNop()), store, saver
}

func do(t *testing.T, a *API, method, path, body, user string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		token, err := a.issueToken(user, "name-"+user)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestParseHunt(t *testing.T) {
	a, _, _ := newTestAPI(t)

	body := `{"text":"Session: 00:30h\nAlice (Leader)\n\tBalance: 300\nBob\n\tBalance: 100\n","extraWaste":{"Alice":100}}`
	w := do(t, a, "POST", "/api/hunts/parse", body, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var sess hunt.Session
	decode(t, w, &sess)
	require.Len(t, sess.Players, 2)
	assert.True(t, sess.Players[0].IsLeader)
	assert.Equal(t, int64(200), sess.Players[0].Balance)
	assert.Equal(t, int64(300), sess.TotalProfit)
	assert.Equal(t, []hunt.Transfer{{From: "Alice", To: "Bob", Amount: 50}}, sess.Transfers)
	require.NotNil(t, sess.Duration)
	assert.Equal(t, "00:30h", *sess.Duration)
}

func TestParseHuntErrors(t *testing.T) {
	a, _, _ := newTestAPI(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"empty text", `{"text":"  "}`, http.StatusBadRequest},
		{"no players", `{"text":"Session: 01:00h\nLoot: 5\n"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, a, "POST", "/api/hunts/parse", tt.body, "")
			assert.Equal(t, tt.want, w.Code)
			var resp map[string]string
			decode(t, w, &resp)
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestSettleHandler(t *testing.T) {
	a, _, _ := newTestAPI(t)

	body := `{"players":[{"name":"A","balance":10},{"name":"B","balance":10},{"name":"C","balance":11}]}`
	w := do(t, a, "POST", "/api/hunts/settle", body, "")
	require.Equal(t, http.StatusOK, w.Code)

	var s hunt.Settlement
	decode(t, w, &s)
	assert.Equal(t, int64(31), s.TotalProfit)
	assert.Equal(t, []hunt.Transfer{{From: "C", To: "A", Amount: 1}}, s.Transfers)

	w = do(t, a, "POST", "/api/hunts/settle", `{"players":[]}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"transfers":[]`)
}

func TestBlessings(t *testing.T) {
	a, _, _ := newTestAPI(t)

	w := do(t, a, "GET", "/api/blessings?level=300&inquisition=true", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got bless.Costs
	decode(t, w, &got)
	want, err := bless.Cost(300, true)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	for _, q := range []string{"level=0", "level=abc", "level=10&inquisition=maybe", ""} {
		w := do(t, a, "GET", "/api/blessings?"+q, "", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestAuthMiddleware(t *testing.T) {
	a, _, _ := newTestAPI(t)

	w := do(t, a, "GET", "/api/groups", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest("GET", "/api/groups", nil)
	req.Header.Set("Authorization", "Token abc")
	w = httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	other := &API{jwtSecret: []byte("other-secret")}
	token, err := other.issueToken("1", "x")
	require.NoError(t, err)
	req = httptest.NewRequest("GET", "/api/groups", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, a, "GET", "/api/groups", "", "1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestGroupsAndInvitations(t *testing.T) {
	a, store, _ := newTestAPI(t)

	w := do(t, a, "POST", "/api/groups", `{"name":"  "}`, "owner")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, a, "POST", "/api/groups", `{"name":"Knights"}`, "owner")
	require.Equal(t, http.StatusCreated, w.Code)
	var g db.Group
	decode(t, w, &g)
	assert.Equal(t, "Knights", g.Name)

	w = do(t, a, "GET", "/api/groups/1", "", "stranger")
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = do(t, a, "GET", "/api/groups/99", "", "owner")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, a, "GET", "/api/groups/abc", "", "owner")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, a, "POST", "/api/groups/1/invitations", "", "stranger")
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = do(t, a, "POST", "/api/groups/1/invitations", "", "owner")
	require.Equal(t, http.StatusCreated, w.Code)
	var inv map[string]string
	decode(t, w, &inv)
	assert.Equal(t, "tok-1", inv["token"])
	assert.Equal(t, "http://localhost:3000/invite/tok-1", inv["link"])

	w = do(t, a, "GET", "/api/invitations/tok-1", "", "stranger")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"group_name":"Knights"`)

	w = do(t, a, "POST", "/api/invitations/tok-1/accept", "", "stranger")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []db.Member{{ID: "owner"}, {ID: "stranger"}}, store.groups[1].Members)

	w = do(t, a, "POST", "/api/invitations/tok-1/reject", "", "third")
	assert.Equal(t, http.StatusConflict, w.Code)
	w = do(t, a, "POST", "/api/invitations/missing/accept", "", "third")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, a, "GET", "/api/groups/1", "", "stranger")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGroupAndInvitationShowNames(t *testing.T) {
	a, store, _ := newTestAPI(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertUser(ctx, "owner", "Gandalf"))
	require.NoError(t, store.UpsertUser(ctx, "friend", "Frodo"))
	_, err := store.CreateGroup(ctx, "Knights", "owner")
	require.NoError(t, err)
	_, err = store.CreateInvitation(ctx, 1, "owner")
	require.NoError(t, err)
	_, err = store.RespondInvitation(ctx, "tok-1", "friend", true)
	require.NoError(t, err)
	store.groups[1].Members = append(store.groups[1].Members, db.Member{ID: "ghost"})

	w := do(t, a, "GET", "/api/groups/1", "", "friend")
	require.Equal(t, http.StatusOK, w.Code)
	var g db.Group
	decode(t, w, &g)
	assert.Equal(t, "Gandalf", g.OwnerName)
	assert.Equal(t, []db.Member{{ID: "owner", Name: "Gandalf"}, {ID: "friend", Name: "Frodo"}, {ID: "ghost"}}, g.Members)

	w = do(t, a, "GET", "/api/invitations/tok-1", "", "someone")
	require.Equal(t, http.StatusOK, w.Code)
	var view struct {
		OwnerName   string      `json:"owner_name"`
		InviterID   string      `json:"inviter_id"`
		InviterName string      `json:"inviter_name"`
		Members     []db.Member `json:"members"`
	}
	decode(t, w, &view)
	assert.Equal(t, "Gandalf", view.OwnerName)
	assert.Equal(t, "owner", view.InviterID)
	assert.Equal(t, "Gandalf", view.InviterName)
	assert.Len(t, view.Members, 3)
	assert.Equal(t, "Frodo", view.Members[1].Name)
}

func TestTransfers(t *testing.T) {
	a, store, saver := newTestAPI(t)
	_, err := store.CreateGroup(context.Background(), "Knights", "owner")
	require.NoError(t, err)
	store.transfers[1] = &db.Transfer{ID: 1, GroupID: 1, From: "A", To: "B", Amount: 5, Status: db.StatusPending}
	store.transfers[2] = &db.Transfer{ID: 2, GroupID: 1, From: "C", To: "B", Amount: 7, Status: db.StatusPaid}

	w := do(t, a, "GET", "/api/groups/1/transfers?status=pending", "", "owner")
	require.Equal(t, http.StatusOK, w.Code)
	var list []db.Transfer
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].ID)

	w = do(t, a, "GET", "/api/groups/1/transfers?status=lost", "", "owner")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	saver.created = 2
	w = do(t, a, "POST", "/api/groups/1/transfers", `{"transfers":[{"from":"A","to":"B","amount":3},{"from":"C","to":"B","amount":4}]}`, "owner")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"created":2}`, w.Body.String())
	assert.Equal(t, []hunt.Transfer{{From: "A", To: "B", Amount: 3}, {From: "C", To: "B", Amount: 4}}, saver.got)

	saver.created = 1
	saver.err = errors.Join(
		&lootsplit.TransferError{Transfer: hunt.Transfer{From: "C", To: "B", Amount: 4}, Err: errors.New(`duplicate key value violates unique constraint "transfers_pkey"`)},
		context.Canceled,
	)
	w = do(t, a, "POST", "/api/groups/1/transfers", `{"transfers":[{"from":"A","to":"B","amount":3},{"from":"C","to":"B","amount":4}]}`, "owner")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"created":1,"errors":["could not save C -> B (4)","could not save transfer"]}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "duplicate key")

	w = do(t, a, "POST", "/api/groups/1/transfers", `{"transfers":[]}`, "owner")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, a, "POST", "/api/groups/1/transfers", `{"transfers":[{"from":"A","to":"B","amount":3}]}`, "stranger")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, a, "PUT", "/api/transfers/1/status", `{"status":"paid"}`, "owner")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, db.StatusPaid, store.transfers[1].Status)

	w = do(t, a, "PUT", "/api/transfers/1/status", `{"status":"gone"}`, "owner")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, a, "PUT", "/api/transfers/2/status", `{"status":"pending"}`, "stranger")
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = do(t, a, "PUT", "/api/transfers/42/status", `{"status":"paid"}`, "owner")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConfigureReminders(t *testing.T) {
	a, store, _ := newTestAPI(t)
	_, err := store.CreateGroup(context.Background(), "Knights", "owner")
	require.NoError(t, err)

	w := do(t, a, "PUT", "/api/groups/1/reminders", `{"channel_id":"555","interval_minutes":60}`, "owner")
	require.Equal(t, http.StatusOK, w.Code)
	var g db.Group
	decode(t, w, &g)
	require.NotNil(t, g.ChannelID)
	assert.Equal(t, "555", *g.ChannelID)
	assert.True(t, g.ReminderEnabled)
	assert.Equal(t, 60, store.reminders[1])

	w = do(t, a, "PUT", "/api/groups/1/reminders", `{"channel_id":"","interval_minutes":60}`, "owner")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, a, "PUT", "/api/groups/1/reminders", `{"channel_id":"555","interval_minutes":-1}`, "owner")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInternalErrorsAreHidden(t *testing.T) {
	a, store, _ := newTestAPI(t)
	store.failGroups = errors.New("connection refused on 10.0.0.3")

	w := do(t, a, "GET", "/api/groups", "", "owner")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.3")
}

func TestLoginReturnsAuthURL(t *testing.T) {
	a, _, _ := newTestAPI(t)
	w := do(t, a, "GET", "/api/auth/login", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	decode(t, w, &resp)
	assert.NoError(t, a.verifyState(resp["state"]))
	assert.Contains(t, resp["auth_url"], "https://discord.com/api/oauth2/authorize")
	assert.Contains(t, resp["auth_url"], "state="+resp["state"])

	w = do(t, a, "GET", "/api/auth/callback", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCallbackRejectsBadState(t *testing.T) {
	a, _, _ := newTestAPI(t)

	session, err := a.issueToken("1", "x")
	require.NoError(t, err)
	other := &API{jwtSecret: []byte("other-secret")}
	forged, err := other.issueState()
	require.NoError(t, err)

	for name, state := range map[string]string{
		"missing":       "",
		"garbage":       "not-a-token",
		"session token": session,
		"wrong secret":  forged,
	} {
		w := do(t, a, "GET", "/api/auth/callback?code=abc&state="+state, "", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
		assert.Contains(t, w.Body.String(), "invalid state", name)
	}
}

func TestStateIsNotASessionToken(t *testing.T) {
	a, _, _ := newTestAPI(t)
	state, err := a.issueState()
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/groups", nil)
	req.Header.Set("Authorization", "Bearer "+state)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStripDiscriminator(t *testing.T) {
	tests := map[string]string{
		"Knight#1234": "Knight",
		"Knight":      "Knight",
		"Sir#Knight":  "Sir",
		"#1234":       "#1234",
		"Knight#":     "Knight",
		"a#b#0001":    "a",
	}
	for in, want := range tests {
		assert.Equal(t, want, stripDiscriminator(in), in)
	}
}
