package handler

import (
	"github.com/gin-gonic/gin"

	"hostel/internal/hostel"
)

// AddLedgerEntry appends a rent or extra-food payment for /students/:id.
func (h *Handler) AddLedgerEntry(kind hostel.LedgerKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, okID := idParam(c)
		if !okID {
			return
		}
		var req hostel.LedgerInput
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		entry, err := h.svc.AddLedgerEntry(c.Request.Context(), kind, id, req)
		if err != nil {
			h.fail(c, err)
			return
		}
		created(c, entry)
	}
}

// ListLedgerEntries returns a student's payment rows, newest first.
func (h *Handler) ListLedgerEntries(kind hostel.LedgerKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, okID := idParam(c)
		if !okID {
			return
		}
		entries, err := h.svc.LedgerEntries(c.Request.Context(), kind, id)
		if err != nil {
			h.fail(c, err)
			return
		}
		if entries == nil {
			entries = []hostel.LedgerEntry{}
		}
		ok(c, entries)
	}
}

// EditLedgerEntry updates a payment row by its own id.
func (h *Handler) EditLedgerEntry(kind hostel.LedgerKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, okID := idParam(c)
		if !okID {
			return
		}
		var req hostel.LedgerUpdate
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if err := h.svc.EditLedgerEntry(c.Request.Context(), kind, id, req); err != nil {
			h.fail(c, err)
			return
		}
		okMessage(c, "entry updated")
	}
}

// DeleteLedgerEntry removes a payment row by its own id.
func (h *Handler) DeleteLedgerEntry(kind hostel.LedgerKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, okID := idParam(c)
		if !okID {
			return
		}
		if err := h.svc.RemoveLedgerEntry(c.Request.Context(), kind, id); err != nil {
			h.fail(c, err)
			return
		}
		okMessage(c, "entry deleted")
	}
}
