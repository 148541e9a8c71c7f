package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/susu3304/lootsplit/internal/db"
	"github.com/susu3304/lootsplit/internal/hunt"
	"github.com/susu3304/lootsplit/internal/lootsplit"
	"go.uber.org/zap"
)

func (a *API) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	g, err := a.memberGroup(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	status := r.URL.Query().Get("status")
	if status != "" && !db.ValidStatus(status) {
		a.writeError(w, r, db.ErrInvalidStatus)
		return
	}

	transfers, err := a.store.ListTransfers(r.Context(), g.ID, status)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if transfers == nil {
		transfers = []db.Transfer{}
	}
	writeJSON(w, http.StatusOK, transfers)
}

func (a *API) handleSaveTransfers(w http.ResponseWriter, r *http.Request) {
	g, err := a.memberGroup(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	var req struct {
		Transfers []hunt.Transfer `json:"transfers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Transfers) == 0 {
		writeMessage(w, http.StatusBadRequest, "no transfers to save")
		return
	}

	created, err := a.transfers.SaveTransfers(r.Context(), g.ID, claimsFrom(r.Context()).UserID, req.Transfers)
	resp := map[string]interface{}{"created": created}
	if err != nil {
		a.logger.Warn("some transfers were not saved",
			zap.Int64("group_id", g.ID),
			zap.Int("created", created),
			zap.Error(err))
		resp["errors"] = errorMessages(err)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleUpdateTransferStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !db.ValidStatus(req.Status) {
		a.writeError(w, r, db.ErrInvalidStatus)
		return
	}

	t, err := a.store.Transfer(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if _, err := a.groupForUser(r, t.GroupID); err != nil {
		a.writeError(w, r, err)
		return
	}

	updated, err := a.store.UpdateTransferStatus(r.Context(), id, req.Status)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// errorMessages turns a joined save error into one client-safe message per
// failed record. Error details stay in the log.
func errorMessages(err error) []string {
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		var te *lootsplit.TransferError
		if errors.As(e, &te) {
			msgs = append(msgs, fmt.Sprintf("could not save %s -> %s (%d)", te.Transfer.From, te.Transfer.To, te.Transfer.Amount))
			continue
		}
		msgs = append(msgs, "could not save transfer")
	}
	return msgs
}
