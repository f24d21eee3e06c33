package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/foodcourt/internal/domain/menu"
)

// ListMenu returns available items, optionally filtered by ?category=.
func (h *Handler) ListMenu(w http.ResponseWriter, r *http.Request) {
	m, err := h.menu.ListMenu(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("categories")
		encodeStrings(e, m.Categories)
		e.FieldStart("items")
		h.encodeMenuItems(e, m.Items)
		e.ObjEnd()
	})
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.menu.Categories(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeStrings(e, categories)
	})
}

// SearchMenu matches ?q= against item names, descriptions and categories.
func (h *Handler) SearchMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.menu.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("items")
		h.encodeMenuItems(e, items)
		e.ObjEnd()
	})
}

func (h *Handler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.menu.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.writeMenuItem(w, http.StatusOK, item)
}

func (h *Handler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	var in menu.CreateInput
	if err := h.decodeBody(r, func(d *jx.Decoder) (err error) {
		in, err = decodeCreateItem(d)
		return err
	}); err != nil {
		h.respondError(w, r, err)
		return
	}

	item, err := h.menu.CreateItem(r.Context(), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	zctx.From(r.Context()).Info("Menu item created",
		zap.String("id", item.ID),
		zap.String("name", item.Name),
	)
	h.writeMenuItem(w, http.StatusCreated, item)
}

func (h *Handler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	var in menu.UpdateInput
	if err := h.decodeBody(r, func(d *jx.Decoder) (err error) {
		in, err = decodeUpdateItem(d)
		return err
	}); err != nil {
		h.respondError(w, r, err)
		return
	}

	item, err := h.menu.UpdateItem(r.Context(), r.PathValue("id"), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.writeMenuItem(w, http.StatusOK, item)
}

// DeleteMenuItem marks the item unavailable and answers 204.
func (h *Handler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.menu.DeleteItem(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	zctx.From(r.Context()).Info("Menu item deleted", zap.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeMenuItem(w http.ResponseWriter, status int, item *menu.Item) {
	writeJSON(w, status, func(e *jx.Encoder) {
		h.encodeMenuItem(e, *item)
	})
}
