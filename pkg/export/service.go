package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/paperhub/admindata/pkg/models"
)

const earningsSheet = "Earnings"

// Service builds downloadable reports from cached admin collections
type Service struct{}

// NewService creates a new export service
func NewService() *Service {
	return &Service{}
}

// WriteEarningsReport writes an Excel workbook with one row per earning to w
func (s *Service) WriteEarningsReport(w io.Writer, earnings []models.Earning) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(earningsSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	headers := []string{"ID", "Partner", "Referred User", "Amount", "Type", "Paid", "Created At"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(earningsSheet, cell, header)
		f.SetCellStyle(earningsSheet, cell, cell, headerStyle)
	}

	for rowIdx, e := range earnings {
		row := rowIdx + 2 // data starts after the header row
		f.SetCellValue(earningsSheet, fmt.Sprintf("A%d", row), e.ID)
		f.SetCellValue(earningsSheet, fmt.Sprintf("B%d", row), e.PartnerName)
		f.SetCellValue(earningsSheet, fmt.Sprintf("C%d", row), e.ReferredUser)
		f.SetCellValue(earningsSheet, fmt.Sprintf("D%d", row), e.Amount)
		f.SetCellValue(earningsSheet, fmt.Sprintf("E%d", row), e.EarningType)
		f.SetCellValue(earningsSheet, fmt.Sprintf("F%d", row), e.IsPaid)
		f.SetCellValue(earningsSheet, fmt.Sprintf("G%d", row), e.CreatedAt.Format("2006-01-02 15:04"))
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
