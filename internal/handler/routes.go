package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hostel/internal/auth"
	"hostel/internal/hostel"
)

// Routes registers the whole API surface on r. When an admin password is
// configured everything under /api except login requires a bearer token.
func (h *Handler) Routes(r *gin.Engine) {
	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Static("/uploads", h.photos.Dir())

	api := r.Group("/api")
	api.POST("/auth/login", h.Login)

	protected := api.Group("")
	if h.cfg.AdminPassword != "" {
		protected.Use(auth.StaffAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))
	}

	protected.POST("/students", h.CreateStudent)
	protected.GET("/students", h.SearchStudents)
	protected.GET("/students/list", h.ListStudents)
	protected.GET("/students/old", h.ListFormerStudents)
	protected.GET("/students/by-room", h.ListStudentsByRoom)
	protected.GET("/students/by-roomtype", h.ListStudentsByRoomType)
	protected.GET("/students/export", h.ExportStudents)
	protected.GET("/students/:id", h.GetStudent)
	protected.PUT("/students/:id", h.UpdateStudent)
	protected.DELETE("/students/:id", h.DeleteStudent)
	protected.POST("/students/:id/restore", h.RestoreStudent)
	protected.DELETE("/students/:id/permanent", h.PurgeStudent)
	protected.POST("/students/:id/photo", h.UploadPhoto)

	protected.GET("/students/:id/rent", h.ListLedgerEntries(hostel.LedgerRent))
	protected.POST("/students/:id/rent", h.AddLedgerEntry(hostel.LedgerRent))
	protected.GET("/students/:id/extra-food", h.ListLedgerEntries(hostel.LedgerFood))
	protected.POST("/students/:id/extra-food", h.AddLedgerEntry(hostel.LedgerFood))
	protected.PUT("/rent_payments/:id", h.EditLedgerEntry(hostel.LedgerRent))
	protected.DELETE("/rent_payments/:id", h.DeleteLedgerEntry(hostel.LedgerRent))
	protected.PUT("/extra_food/:id", h.EditLedgerEntry(hostel.LedgerFood))
	protected.DELETE("/extra_food/:id", h.DeleteLedgerEntry(hostel.LedgerFood))

	protected.GET("/students/:id/attendance", h.StudentAttendance)
	protected.POST("/rooms/:room/attendance", h.MarkRoomAttendance)
	protected.GET("/rooms/:room/attendance", h.RoomAttendance)
	protected.PUT("/attendance/:id", h.EditAttendance)
	protected.DELETE("/attendance/:id", h.DeleteAttendance)

	protected.GET("/students/:id/monthly-account", h.StudentAccounts)
	protected.POST("/students/:id/monthly-account", h.AddMonthlyAccount)
	protected.PUT("/monthly_accounts/:id", h.EditMonthlyAccount)
	protected.DELETE("/monthly_accounts/:id", h.DeleteMonthlyAccount)
	protected.POST("/rooms/:room/eb-batch", h.AllocateRoomEB)
	protected.GET("/rooms/:room/monthly-account", h.RoomStatement)
}
