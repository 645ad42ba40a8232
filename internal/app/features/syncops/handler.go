// internal/app/features/syncops/handler.go

// Package syncops is the thin command surface over the sync engine: one
// endpoint to realize/synchronize a group and one to re-sync after a
// member moves between groups. It owns no reconciliation logic.
package syncops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	groupstore "github.com/dalemusser/cohortsync/internal/app/store/groups"
	groupsync "github.com/dalemusser/cohortsync/internal/app/sync"
	"github.com/dalemusser/cohortsync/internal/app/system/timeouts"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Engine *groupsync.Engine
	Log    *zap.Logger
}

func NewHandler(engine *groupsync.Engine, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, Log: logger}
}

// Sync handles POST /groups/{groupID}/sync.
//
// With ?allow_create=true the call is a realization: missing
// infrastructure is provisioned before membership is reconciled. Without
// it, only the diff against existing resources is applied.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	groupID, ok := parseGroupID(w, r, "groupID")
	if !ok {
		return
	}
	allowCreate := r.URL.Query().Get("allow_create") == "true"

	reqID := uuid.NewString()
	log := h.Log.With(
		zap.String("request_id", reqID),
		zap.String("group_id", groupID.Hex()))
	log.Info("sync requested", zap.Bool("allow_create", allowCreate))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	res, err := h.Engine.SyncGroup(ctx, groupID, allowCreate)
	if err != nil {
		writeSyncError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Switch handles POST /groups/{groupID}/switch?previous={groupID}.
//
// The vacated group (when given) is synchronized first so stale access is
// revoked before the new group's access is granted. Infrastructure is
// never created on this path.
func (h *Handler) Switch(w http.ResponseWriter, r *http.Request) {
	groupID, ok := parseGroupID(w, r, "groupID")
	if !ok {
		return
	}
	var previous *primitive.ObjectID
	if raw := r.URL.Query().Get("previous"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			http.Error(w, "invalid previous group id", http.StatusBadRequest)
			return
		}
		previous = &id
	}

	log := h.Log.With(
		zap.String("request_id", uuid.NewString()),
		zap.String("group_id", groupID.Hex()))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	res, err := h.Engine.SyncAfterGroupChange(ctx, groupID, previous)
	if err != nil {
		writeSyncError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func parseGroupID(w http.ResponseWriter, r *http.Request, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, param))
	if err != nil {
		http.Error(w, "invalid group id", http.StatusBadRequest)
		return primitive.NilObjectID, false
	}
	return id, true
}

func writeSyncError(w http.ResponseWriter, log *zap.Logger, err error) {
	if errors.Is(err, groupstore.ErrNotFound) {
		http.Error(w, "group not found", http.StatusNotFound)
		return
	}
	log.Error("sync failed", zap.Error(err))
	http.Error(w, "sync failed", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
