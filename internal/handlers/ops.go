package handlers

import (
	"net/http"

	"ruletracker/internal/store"
)

// RecentInvalidations lists the latest snapshot invalidations, newest
// first. The optional limit query parameter caps the result (default 50,
// max 500). Without an invalidation log the list is empty.
func (a *API) RecentInvalidations(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	var entries []store.CacheLogEntry
	if a.cacheLog != nil {
		var err error
		entries, err = a.cacheLog.RecentEntries(r.Context(), limit)
		if err != nil {
			a.fail(w, "recent invalidations", err)
			return
		}
	}
	if entries == nil {
		entries = []store.CacheLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
