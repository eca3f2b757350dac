package handler

import (
	"github.com/gin-gonic/gin"

	"hostel/internal/hostel"
)

// MarkRoomAttendance runs the daily batch for /rooms/:room. Body carries
// hostel_code, date and absent_ids; the room comes from the path.
func (h *Handler) MarkRoomAttendance(c *gin.Context) {
	var req hostel.AttendanceBatch
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	req.RoomNumber = c.Param("room")
	count, err := h.svc.MarkRoomAttendance(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, gin.H{"marked": count})
}

// RoomAttendance lists a room's marks for ?hostel=&date=.
func (h *Handler) RoomAttendance(c *gin.Context) {
	records, err := h.svc.RoomAttendance(c.Request.Context(),
		c.Query("hostel"), c.Param("room"), c.Query("date"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if records == nil {
		records = []hostel.AttendanceRecord{}
	}
	ok(c, records)
}

// StudentAttendance lists one student's history, newest first.
func (h *Handler) StudentAttendance(c *gin.Context) {
	id, okID := idParam(c)
	if !okID {
		return
	}
	records, err := h.svc.StudentAttendance(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if records == nil {
		records = []hostel.AttendanceRecord{}
	}
	ok(c, records)
}

// EditAttendance rewrites the status of one mark.
func (h *Handler) EditAttendance(c *gin.Context) {
	id, okID := idParam(c)
	if !okID {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.svc.EditAttendance(c.Request.Context(), id, hostel.AttendanceStatus(req.Status)); err != nil {
		h.fail(c, err)
		return
	}
	okMessage(c, "attendance updated")
}

// DeleteAttendance removes one mark.
func (h *Handler) DeleteAttendance(c *gin.Context) {
	id, okID := idParam(c)
	if !okID {
		return
	}
	if err := h.svc.RemoveAttendance(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	okMessage(c, "attendance deleted")
}
