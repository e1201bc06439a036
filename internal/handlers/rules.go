package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"ruletracker/internal/middleware"
	"ruletracker/internal/models"
	"ruletracker/internal/store"
)

// ListRules returns rules ordered by a tally. With categoryId, rules of
// that category and all its descendants are returned.
func (a *API) ListRules(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sortBy, ok := models.ParseRuleSortField(q.Get("sortBy"))
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "sortBy must be follow_count or violate_count.")
		return
	}
	dir, ok := models.ParseSortDirection(q.Get("sortOrder"))
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "sortOrder must be asc or desc.")
		return
	}

	filter := store.RuleFilter{SortBy: sortBy, Direction: dir}
	if raw := q.Get("categoryId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid categoryId.")
			return
		}
		filter.CategoryID = &id
	}

	rules, err := a.rules.List(r.Context(), filter)
	if err != nil {
		a.fail(w, "list rules", err)
		return
	}
	if rules == nil {
		rules = []models.Rule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

// CreateRule adds a rule with zero tallies to an existing category.
func (a *API) CreateRule(w http.ResponseWriter, r *http.Request) {
	var in ruleInput
	if !decodeJSON(w, r, &in, false) {
		return
	}
	if in.CategoryID == uuid.Nil {
		middleware.WriteError(w, http.StatusBadRequest, "Category is required.")
		return
	}
	if msg := validateRule(&in); msg != "" {
		middleware.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	rule, err := a.rules.Create(r.Context(), in.CategoryID, in.Content)
	if err != nil {
		a.fail(w, "create rule", err)
		return
	}
	a.logRule(r, rule.ID, "create")
	writeJSON(w, http.StatusCreated, rule)
}

// UpdateRule replaces a rule's content. Tallies are untouched.
func (a *API) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in ruleInput
	if !decodeJSON(w, r, &in, false) {
		return
	}
	if msg := validateRule(&in); msg != "" {
		middleware.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	rule, err := a.rules.UpdateContent(r.Context(), id, in.Content)
	if err != nil {
		a.fail(w, "update rule", err)
		return
	}
	a.logRule(r, id, "update")
	writeJSON(w, http.StatusOK, rule)
}

// DeleteRule removes a rule and its count history.
func (a *API) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.rules.Delete(r.Context(), id); err != nil {
		a.fail(w, "delete rule", err)
		return
	}
	a.logRule(r, id, "delete")
	w.WriteHeader(http.StatusNoContent)
}

// FollowRule increments a rule's follow tally.
func (a *API) FollowRule(w http.ResponseWriter, r *http.Request) {
	a.count(w, r, models.RecordFollow)
}

// ViolateRule increments a rule's violate tally.
func (a *API) ViolateRule(w http.ResponseWriter, r *http.Request) {
	a.count(w, r, models.RecordViolate)
}

func (a *API) count(w http.ResponseWriter, r *http.Request, kind models.RecordType) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in countInput
	if !decodeJSON(w, r, &in, true) {
		return
	}
	if msg := validateCount(&in); msg != "" {
		middleware.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	var (
		rule *models.Rule
		err  error
	)
	if kind == models.RecordFollow {
		rule, err = a.rules.Follow(r.Context(), id, in.Note)
	} else {
		rule, err = a.rules.Violate(r.Context(), id, in.Note)
	}
	if err != nil {
		a.fail(w, string(kind)+" rule", err)
		return
	}
	a.logRule(r, id, string(kind))
	writeJSON(w, http.StatusOK, rule)
}

// RuleRecords returns a rule's follow/violate history, newest first.
// The optional limit query parameter caps the result (default 50, max 500).
func (a *API) RuleRecords(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}

	rule, err := a.rules.FindByID(r.Context(), id)
	if err != nil {
		a.fail(w, "find rule", err)
		return
	}
	if rule == nil {
		middleware.WriteError(w, http.StatusNotFound, "Not found.")
		return
	}

	records, err := a.rules.Records(r.Context(), id, limit)
	if err != nil {
		a.fail(w, "rule records", err)
		return
	}
	if records == nil {
		records = []models.CountRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// logRule records a rule write in the invalidation log. Rules are not part
// of the tree snapshot, so the snapshot itself stays valid.
func (a *API) logRule(r *http.Request, id uuid.UUID, action string) {
	if a.cacheLog != nil {
		a.cacheLog.Log(r.Context(), "rule", id, action)
	}
}
