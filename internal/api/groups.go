package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/susu3304/lootsplit/internal/db"
)

// memberGroup loads the group named in the path and checks the caller belongs to it.
func (a *API) memberGroup(r *http.Request) (*db.Group, error) {
	groupID, err := pathID(r, "group_id")
	if err != nil {
		return nil, err
	}
	return a.groupForUser(r, groupID)
}

func (a *API) groupForUser(r *http.Request, groupID int64) (*db.Group, error) {
	g, err := a.store.Group(r.Context(), groupID)
	if err != nil {
		return nil, err
	}
	if !g.HasMember(claimsFrom(r.Context()).UserID) {
		return nil, errForbidden
	}
	return g, nil
}

// Protected handlers
func (a *API) handleListGroups(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	groups, err := a.store.GroupsForUser(r.Context(), claims.UserID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if groups == nil {
		groups = []db.Group{}
	}
	writeJSON(w, http.StatusOK, groups)
}

func (a *API) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeMessage(w, http.StatusBadRequest, "name is required")
		return
	}

	g, err := a.store.CreateGroup(r.Context(), name, claims.UserID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (a *API) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	g, err := a.memberGroup(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (a *API) handleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	g, err := a.memberGroup(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	inv, err := a.store.CreateInvitation(r.Context(), g.ID, claimsFrom(r.Context()).UserID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"token": inv.Token,
		"link":  a.config.WebUIBaseURL + "/invite/" + inv.Token,
	})
}

func (a *API) handleGetInvitation(w http.ResponseWriter, r *http.Request) {
	inv, err := a.store.InvitationByToken(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	g, err := a.store.Group(r.Context(), inv.GroupID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":        inv.Token,
		"group_id":     g.ID,
		"group_name":   g.Name,
		"owner_id":     g.OwnerID,
		"owner_name":   g.OwnerName,
		"members":      g.Members,
		"inviter_id":   inv.CreatedBy,
		"inviter_name": inv.InviterName,
		"used":         inv.Used,
	})
}

func (a *API) handleRespondInvitation(accept bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		inv, err := a.store.RespondInvitation(r.Context(), mux.Vars(r)["token"], claims.UserID, accept)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	}
}

func (a *API) handleConfigureReminders(w http.ResponseWriter, r *http.Request) {
	g, err := a.memberGroup(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	var req struct {
		ChannelID       string `json:"channel_id"`
		IntervalMinutes int    `json:"interval_minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ChannelID) == "" {
		writeMessage(w, http.StatusBadRequest, "channel_id is required")
		return
	}
	if req.IntervalMinutes < 0 {
		writeMessage(w, http.StatusBadRequest, "interval_minutes must not be negative")
		return
	}

	if err := a.store.ConfigureReminders(r.Context(), g.ID, req.ChannelID, req.IntervalMinutes); err != nil {
		a.writeError(w, r, err)
		return
	}
	updated, err := a.store.Group(r.Context(), g.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
