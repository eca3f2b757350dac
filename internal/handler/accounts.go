package handler

import (
	"github.com/gin-gonic/gin"

	"hostel/internal/hostel"
)

// AllocateRoomEB splits a room's electricity bill across its active
// students. Body carries hostel_code, date and eb_total; the room comes
// from the path.
func (h *Handler) AllocateRoomEB(c *gin.Context) {
	var req hostel.EBBatch
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	req.RoomNumber = c.Param("room")
	result, err := h.svc.AllocateRoomEB(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, result)
}

// AddMonthlyAccount creates a month's account row for a student by hand.
func (h *Handler) AddMonthlyAccount(c *gin.Context) {
	id, okID := idParam(c)
	if !okID {
		return
	}
	var req hostel.AccountInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	acc, err := h.svc.AddMonthlyAccount(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	created(c, acc)
}

// StudentAccounts lists a student's monthly rows, newest first.
func (h *Handler) StudentAccounts(c *gin.Context) {
	id, okID := idParam(c)
	if !okID {
		return
	}
	accounts, err := h.svc.StudentAccounts(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if accounts == nil {
		accounts = []hostel.MonthlyAccount{}
	}
	ok(c, accounts)
}

// EditMonthlyAccount updates a monthly account row by its own id.
func (h *Handler) EditMonthlyAccount(c *gin.Context) {
	id, okID := idParam(c)
	if !okID {
		return
	}
	var req hostel.AccountUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.svc.EditMonthlyAccount(c.Request.Context(), id, req); err != nil {
		h.fail(c, err)
		return
	}
	okMessage(c, "monthly account updated")
}

// DeleteMonthlyAccount removes a monthly account row by its own id.
func (h *Handler) DeleteMonthlyAccount(c *gin.Context) {
	id, okID := idParam(c)
	if !okID {
		return
	}
	if err := h.svc.RemoveMonthlyAccount(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	okMessage(c, "monthly account deleted")
}

// RoomStatement returns a room's roster joined with its monthly accounts
// for ?hostel=&date=.
func (h *Handler) RoomStatement(c *gin.Context) {
	rows, err := h.svc.RoomStatement(c.Request.Context(),
		c.Query("hostel"), c.Param("room"), c.Query("date"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if rows == nil {
		rows = []hostel.RoomAccountRow{}
	}
	ok(c, rows)
}
