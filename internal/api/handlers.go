package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/susu3304/lootsplit/internal/bless"
	"github.com/susu3304/lootsplit/internal/hunt"
	"github.com/susu3304/lootsplit/internal/lootsplit"
)

// Public handlers
func (a *API) handleParseHunt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text       string           `json:"text"`
		ExtraWaste map[string]int64 `json:"extraWaste"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		a.writeError(w, r, lootsplit.ErrEmptyInput)
		return
	}

	sess, err := hunt.Parse(req.Text)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if len(req.ExtraWaste) > 0 {
		sess = sess.WithExtraWaste(req.ExtraWaste)
	}
	writeJSON(w, http.StatusOK, sess)
}

func (a *API) handleSettle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Players    []hunt.Player    `json:"players"`
		ExtraWaste map[string]int64 `json:"extraWaste"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	players := hunt.ApplyExtraWaste(req.Players, req.ExtraWaste)
	writeJSON(w, http.StatusOK, hunt.Settle(players))
}

func (a *API) handleBlessings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	level, err := strconv.Atoi(q.Get("level"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "level must be an integer")
		return
	}
	inquisition := false
	if v := q.Get("inquisition"); v != "" {
		inquisition, err = strconv.ParseBool(v)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "inquisition must be true or false")
			return
		}
	}

	costs, err := bless.Cost(level, inquisition)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, costs)
}
