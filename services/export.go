package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"pdf-rag-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// DocumentExport is one row of the exported inventory.
type DocumentExport struct {
	ID           string `json:"id"`
	OriginalName string `json:"original_name"`
	Status       string `json:"status"`
	FileSize     int64  `json:"file_size"`
	PageCount    int    `json:"page_count"`
	ChunkCount   int    `json:"chunk_count"`
	UploadedAt   string `json:"uploaded_at"`
	ProcessedAt  string `json:"processed_at,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// ExportSummary aggregates the inventory for the summary sheet.
type ExportSummary struct {
	ExportDate     time.Time      `json:"export_date"`
	TotalDocuments int            `json:"total_documents"`
	TotalPages     int            `json:"total_pages"`
	TotalChunks    int            `json:"total_chunks"`
	TotalBytes     int64          `json:"total_bytes"`
	ByStatus       map[string]int `json:"by_status"`
}

// ExportService renders the document inventory as JSON or Excel.
type ExportService struct {
	documents *DocumentService
}

func NewExportService(documents *DocumentService) *ExportService {
	return &ExportService{documents: documents}
}

// BuildExport collects documents and summary statistics for export.
func (es *ExportService) BuildExport(ctx context.Context) ([]DocumentExport, *ExportSummary, error) {
	docs, err := es.documents.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	rows := make([]DocumentExport, len(docs))
	summary := &ExportSummary{
		ExportDate:     time.Now(),
		TotalDocuments: len(docs),
		ByStatus:       make(map[string]int),
	}
	for i, doc := range docs {
		row := DocumentExport{
			ID:           doc.ID,
			OriginalName: doc.OriginalName,
			Status:       doc.Status,
			FileSize:     doc.FileSize,
			PageCount:    doc.PageCount,
			ChunkCount:   doc.ChunkCount,
			UploadedAt:   doc.UploadedAt.Format("2006-01-02 15:04:05"),
			ErrorMessage: doc.ErrorMessage,
		}
		if doc.ProcessedAt != nil {
			row.ProcessedAt = doc.ProcessedAt.Format("2006-01-02 15:04:05")
		}
		rows[i] = row

		summary.TotalPages += doc.PageCount
		summary.TotalChunks += doc.ChunkCount
		summary.TotalBytes += doc.FileSize
		summary.ByStatus[doc.Status]++
	}
	return rows, summary, nil
}

// StreamExport writes the inventory to the HTTP response in the requested
// format, json or excel.
func (es *ExportService) StreamExport(ctx *gin.Context, rows []DocumentExport, summary *ExportSummary, format string) error {
	switch format {
	case "json":
		ctx.Header("Content-Type", "application/json")
		ctx.Header("Content-Disposition", "attachment; filename=documents_export.json")

		jsonData, err := json.MarshalIndent(gin.H{"documents": rows, "summary": summary}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}

		ctx.Header("Content-Length", strconv.Itoa(len(jsonData)))
		ctx.Data(http.StatusOK, "application/json", jsonData)

	case "excel":
		ctx.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		ctx.Header("Content-Disposition", "attachment; filename=documents_export.xlsx")

		f := excelize.NewFile()
		defer f.Close()

		sheetName := "Documents"
		index, err := f.NewSheet(sheetName)
		if err != nil {
			return fmt.Errorf("failed to create sheet: %w", err)
		}
		f.SetActiveSheet(index)
		f.DeleteSheet("Sheet1")

		headers := []string{
			"ID", "Original Name", "Status", "File Size", "Page Count",
			"Chunk Count", "Uploaded At", "Processed At", "Error Message",
		}
		for i, header := range headers {
			cell := fmt.Sprintf("%c1", 'A'+i)
			f.SetCellValue(sheetName, cell, header)
		}

		for rowIdx, doc := range rows {
			row := rowIdx + 2
			f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), doc.ID)
			f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), doc.OriginalName)
			f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), doc.Status)
			f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), doc.FileSize)
			f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), doc.PageCount)
			f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), doc.ChunkCount)
			f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), doc.UploadedAt)
			f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), doc.ProcessedAt)
			f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), doc.ErrorMessage)
		}

		for i := 0; i < len(headers); i++ {
			col := fmt.Sprintf("%c:%c", 'A'+i, 'A'+i)
			f.SetColWidth(sheetName, col, col, 18)
		}

		summarySheetName := "Summary"
		if _, err := f.NewSheet(summarySheetName); err != nil {
			return fmt.Errorf("failed to create summary sheet: %w", err)
		}

		summaryData := [][]interface{}{
			{"Export Date", summary.ExportDate.Format("2006-01-02 15:04:05")},
			{"Total Documents", summary.TotalDocuments},
			{"Total Pages", summary.TotalPages},
			{"Total Chunks", summary.TotalChunks},
			{"Total Bytes", summary.TotalBytes},
		}
		for i, row := range summaryData {
			for j, cell := range row {
				cellRef := fmt.Sprintf("%c%d", 'A'+j, i+1)
				f.SetCellValue(summarySheetName, cellRef, cell)
			}
		}
		statusRow := len(summaryData) + 2
		f.SetCellValue(summarySheetName, fmt.Sprintf("A%d", statusRow), "Status")
		f.SetCellValue(summarySheetName, fmt.Sprintf("B%d", statusRow), "Count")
		statusRow++
		for _, status := range []string{models.StatusPending, models.StatusProcessing, models.StatusCompleted, models.StatusFailed} {
			if count, ok := summary.ByStatus[status]; ok {
				f.SetCellValue(summarySheetName, fmt.Sprintf("A%d", statusRow), status)
				f.SetCellValue(summarySheetName, fmt.Sprintf("B%d", statusRow), count)
				statusRow++
			}
		}

		var buf bytes.Buffer
		if err := f.Write(&buf); err != nil {
			return fmt.Errorf("failed to write Excel file: %w", err)
		}

		ctx.Header("Content-Length", strconv.Itoa(buf.Len()))
		ctx.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())

	default:
		return fmt.Errorf("unsupported format: %s", format)
	}

	return nil
}
