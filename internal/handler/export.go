package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"hostel/internal/hostel"
)

var rosterExportHeader = []string{
	"ID",
	"Name",
	"Room",
	"Room Type",
	"Course",
	"Phone",
	"Monthly Rent",
	"Advance Paid",
	"Advance Remaining",
	"Date Joined",
}

// ExportStudents streams the active roster for ?hostel= as an .xlsx
// attachment.
func (h *Handler) ExportStudents(c *gin.Context) {
	hostelCode := c.Query("hostel")
	students, err := h.svc.ActiveRoster(c.Request.Context(), hostelCode)
	if err != nil {
		h.fail(c, err)
		return
	}
	data, err := rosterWorkbook(students)
	if err != nil {
		h.fail(c, err)
		return
	}
	filename := fmt.Sprintf("students_%s_%s.xlsx", hostelCode, time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func rosterWorkbook(students []hostel.Student) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Students"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	for col, header := range rosterExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("set header style: %w", err)
		}
	}

	for i, st := range students {
		values := []any{
			st.ID, st.Name, st.RoomNumber, st.RoomType, st.Course, st.Phone,
			st.MonthlyRent, st.AdvancePaid, st.AdvanceRemaining, st.DateJoin,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
