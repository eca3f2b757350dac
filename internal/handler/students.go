package handler

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"hostel/internal/hostel"
)

// CreateStudent registers a new resident.
func (h *Handler) CreateStudent(c *gin.Context) {
	var req hostel.NewStudent
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	st, err := h.svc.RegisterStudent(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	created(c, st)
}

func (h *Handler) respondRoster(c *gin.Context, students []hostel.Student, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	if students == nil {
		students = []hostel.Student{}
	}
	ok(c, students)
}

// ListStudents returns the active roster for ?hostel=.
func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.svc.ActiveRoster(c.Request.Context(), c.Query("hostel"))
	h.respondRoster(c, students, err)
}

// ListFormerStudents returns soft-deleted students for ?hostel=.
func (h *Handler) ListFormerStudents(c *gin.Context) {
	students, err := h.svc.FormerResidents(c.Request.Context(), c.Query("hostel"))
	h.respondRoster(c, students, err)
}

// ListStudentsByRoom returns active students for ?hostel=&room=.
func (h *Handler) ListStudentsByRoom(c *gin.Context) {
	students, err := h.svc.RoomRoster(c.Request.Context(), c.Query("hostel"), c.Query("room"))
	h.respondRoster(c, students, err)
}

// ListStudentsByRoomType returns active students for ?hostel=&room_type=.
func (h *Handler) ListStudentsByRoomType(c *gin.Context) {
	students, err := h.svc.RosterByRoomType(c.Request.Context(), c.Query("hostel"), c.Query("room_type"))
	h.respondRoster(c, students, err)
}

// SearchStudents finds active students by exact name for ?hostel=&name=,
// ignoring case.
func (h *Handler) SearchStudents(c *gin.Context) {
	students, err := h.svc.SearchByName(c.Request.Context(), c.Query("hostel"), c.Query("name"))
	h.respondRoster(c, students, err)
}

// GetStudent returns one student; ?include_deleted=true also finds
// soft-deleted ones.
func (h *Handler) GetStudent(c *gin.Context) {
	id, okID := idParam(c)
	if !okID {
		return
	}
	include := c.Query("include_deleted")
	st, err := h.svc.GetStudent(c.Request.Context(), id, include == "true" || include == "1")
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, st)
}

// UpdateStudent applies a partial profile update to an active student.
func (h *Handler) UpdateStudent(c *gin.Context) {
	id, okID := idParam(c)
	if !okID {
		return
	}
	var req hostel.StudentUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.svc.UpdateStudent(c.Request.Context(), id, req); err != nil {
		h.fail(c, err)
		return
	}
	okMessage(c, "student updated")
}

// DeleteStudent soft-deletes a student; history stays behind.
func (h *Handler) DeleteStudent(c *gin.Context) {
	id, okID := idParam(c)
	if !okID {
		return
	}
	if err := h.svc.SoftDelete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	okMessage(c, "student deleted")
}

// RestoreStudent reactivates a soft-deleted student.
func (h *Handler) RestoreStudent(c *gin.Context) {
	id, okID := idParam(c)
	if !okID {
		return
	}
	if err := h.svc.Restore(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	okMessage(c, "student restored")
}

// PurgeStudent permanently deletes a student and all dependent rows.
func (h *Handler) PurgeStudent(c *gin.Context) {
	id, okID := idParam(c)
	if !okID {
		return
	}
	if err := h.svc.PermanentlyDelete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	okMessage(c, "student permanently deleted")
}

var photoExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

const maxPhotoBytes = 5 << 20

// UploadPhoto accepts a multipart "photo" file, stores it, and records the
// path on the student. A previously stored photo is replaced.
func (h *Handler) UploadPhoto(c *gin.Context) {
	id, okID := idParam(c)
	if !okID {
		return
	}
	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		badRequest(c, "photo file is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !photoExts[ext] {
		badRequest(c, "photo must be jpg, jpeg, png or webp")
		return
	}
	if header.Size > maxPhotoBytes {
		badRequest(c, "photo too large (max 5MB)")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.fail(c, err)
		return
	}
	path, err := h.photos.Save(c.Request.Context(), data, header.Filename)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.svc.AttachPhoto(c.Request.Context(), id, path); err != nil {
		// the student refused the photo, don't leave the file behind
		_ = h.photos.Remove(c.Request.Context(), path)
		h.fail(c, err)
		return
	}
	ok(c, gin.H{"photo_path": path})
}
