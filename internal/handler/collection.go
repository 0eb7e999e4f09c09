package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-sync/internal/repo"
	"github.com/BuzzLyutic/task-sync/pkg/respond"
)

const maxBodyBytes = 1 << 20

// CollectionHandler serves one JSON collection with Firebase REST semantics:
// GET <root>.json, PUT and DELETE <root>/<key>.json.
type CollectionHandler struct {
	store  repo.CollectionStore
	logger *zap.Logger
}

func NewCollectionHandler(store repo.CollectionStore, logger *zap.Logger) *CollectionHandler {
	return &CollectionHandler{
		store:  store,
		logger: logger,
	}
}

// Register mounts the collection routes under root ("tasks", "users/u1/tasks", or "").
func (h *CollectionHandler) Register(r chi.Router, root string) {
	prefix := "/" + strings.Trim(root, "/")
	if prefix == "/" {
		prefix = ""
	}

	if prefix == "" {
		r.Get("/.json", h.List)
	} else {
		r.Get(prefix+".json", h.List)
	}
	r.Put(prefix+"/{key}.json", h.Put)
	r.Delete(prefix+"/{key}.json", h.Delete)
}

func (h *CollectionHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.Snapshot(r.Context())
	if err != nil {
		h.logger.Error("failed to read collection", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if len(docs) == 0 {
		respond.Null(w, r)
		return
	}
	respond.JSON(w, r, http.StatusOK, docs)
}

func (h *CollectionHandler) Put(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		respond.Error(w, r, http.StatusBadRequest, "missing key")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "unreadable body")
		return
	}
	if len(body) > maxBodyBytes {
		respond.Error(w, r, http.StatusRequestEntityTooLarge, "body too large")
		return
	}
	if !json.Valid(body) {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.store.Put(r.Context(), key, body); err != nil {
		h.logger.Error("failed to store document", zap.String("key", key), zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Debug("document stored", zap.String("key", key))
	respond.Raw(w, r, http.StatusOK, body)
}

func (h *CollectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	if err := h.store.Delete(r.Context(), key); err != nil {
		h.logger.Error("failed to delete document", zap.String("key", key), zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Debug("document deleted", zap.String("key", key))
	respond.Null(w, r)
}
