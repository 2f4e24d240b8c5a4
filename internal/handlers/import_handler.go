package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"bomtrack/internal/middleware"
	"bomtrack/internal/models"
	"bomtrack/internal/repository"
	"bomtrack/internal/services"
)

const maxImportRows = 10000

// RowError reports a rejected import row. Row numbers are 1-indexed over
// data rows, excluding the header.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ImportResult summarizes one import run.
type ImportResult struct {
	Total   int        `json:"total"`
	Success int        `json:"success"`
	Failed  int        `json:"failed"`
	Skipped int        `json:"skipped"`
	Errors  []RowError `json:"errors"`
}

type ImportHandler struct {
	componentRepo *repository.ComponentRepository
	locationRepo  *repository.LocationRepository
	skuRepo       *repository.SKURepository
	ledgerRepo    *repository.LedgerRepository
	txService     *services.TransactionService
	forecast      *services.ForecastService
	logger        *logrus.Logger
}

func NewImportHandler(
	componentRepo *repository.ComponentRepository,
	locationRepo *repository.LocationRepository,
	skuRepo *repository.SKURepository,
	ledgerRepo *repository.LedgerRepository,
	txService *services.TransactionService,
	forecast *services.ForecastService,
	logger *logrus.Logger,
) *ImportHandler {
	return &ImportHandler{
		componentRepo: componentRepo,
		locationRepo:  locationRepo,
		skuRepo:       skuRepo,
		ledgerRepo:    ledgerRepo,
		txService:     txService,
		forecast:      forecast,
		logger:        logger,
	}
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func uuidDeref(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func decimalDeref(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

// readTabular reads an uploaded CSV or XLSX file into string records,
// header row included.
func readTabular(filename string, reader io.Reader) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		r := csv.NewReader(reader)
		r.TrimLeadingSpace = true
		return r.ReadAll()
	case ".xlsx":
		f, err := excelize.OpenReader(reader)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		return f.GetRows(sheets[0])
	default:
		return nil, fmt.Errorf("unsupported file type; upload .csv or .xlsx")
	}
}

// headerIndex maps column names to positions, case-insensitively.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return idx
}

func cell(record []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// ParseComponentRows converts raw records into components plus per-row
// errors. The first record is the header. rowNums holds the original
// 1-indexed data-row number for each parsed component, so downstream bulk
// errors can be attributed to the right file row even after invalid rows
// were filtered out here.
func ParseComponentRows(records [][]string) ([]*models.Component, []int, []RowError) {
	if len(records) < 2 {
		return nil, nil, []RowError{{Row: 0, Message: "file has no data rows"}}
	}

	idx := headerIndex(records[0])
	var components []*models.Component
	var rowNums []int
	var rowErrors []RowError

	for i, record := range records[1:] {
		row := i + 1

		code := cell(record, idx, "code")
		name := cell(record, idx, "name")
		if code == "" {
			rowErrors = append(rowErrors, RowError{Row: row, Field: "code", Message: "code is required"})
			continue
		}
		if name == "" {
			rowErrors = append(rowErrors, RowError{Row: row, Field: "name", Message: "name is required"})
			continue
		}

		component := &models.Component{
			Code:          code,
			Name:          name,
			UnitOfMeasure: "each",
			CostPerUnit:   decimal.Zero,
			IsActive:      true,
		}
		if uom := cell(record, idx, "unit_of_measure"); uom != "" {
			component.UnitOfMeasure = uom
		}
		if raw := cell(record, idx, "cost_per_unit"); raw != "" {
			cost, err := decimal.NewFromString(raw)
			if err != nil || cost.IsNegative() {
				rowErrors = append(rowErrors, RowError{Row: row, Field: "cost_per_unit", Message: "must be a non-negative number"})
				continue
			}
			component.CostPerUnit = cost
		}
		if raw := cell(record, idx, "reorder_point"); raw != "" {
			rp, err := strconv.Atoi(raw)
			if err != nil || rp < 0 {
				rowErrors = append(rowErrors, RowError{Row: row, Field: "reorder_point", Message: "must be a non-negative integer"})
				continue
			}
			component.ReorderPoint = rp
		}
		if raw := cell(record, idx, "lead_time_days"); raw != "" {
			lt, err := strconv.Atoi(raw)
			if err != nil || lt < 0 {
				rowErrors = append(rowErrors, RowError{Row: row, Field: "lead_time_days", Message: "must be a non-negative integer"})
				continue
			}
			component.LeadTimeDays = lt
		}
		if raw := cell(record, idx, "track_lots"); raw != "" {
			component.TrackLots = strings.EqualFold(raw, "true") || raw == "1" || strings.EqualFold(raw, "yes")
		}
		if supplier := cell(record, idx, "supplier"); supplier != "" {
			component.Supplier = &supplier
		}
		if notes := cell(record, idx, "notes"); notes != "" {
			component.Notes = &notes
		}

		components = append(components, component)
		rowNums = append(rowNums, row)
	}

	return components, rowNums, rowErrors
}

// ParseSKURows converts raw records into SKUs plus per-row errors. rowNums
// carries the original 1-indexed data-row number of each parsed SKU.
func ParseSKURows(records [][]string) ([]*models.SKU, []int, []RowError) {
	if len(records) < 2 {
		return nil, nil, []RowError{{Row: 0, Message: "file has no data rows"}}
	}

	idx := headerIndex(records[0])
	var skus []*models.SKU
	var rowNums []int
	var rowErrors []RowError

	for i, record := range records[1:] {
		row := i + 1

		code := cell(record, idx, "code")
		name := cell(record, idx, "name")
		if code == "" {
			rowErrors = append(rowErrors, RowError{Row: row, Field: "code", Message: "code is required"})
			continue
		}
		if name == "" {
			rowErrors = append(rowErrors, RowError{Row: row, Field: "name", Message: "name is required"})
			continue
		}

		sku := &models.SKU{Code: code, Name: name, IsActive: true}
		if notes := cell(record, idx, "notes"); notes != "" {
			sku.Notes = &notes
		}
		skus = append(skus, sku)
		rowNums = append(rowNums, row)
	}

	return skus, rowNums, rowErrors
}

// InitialInventoryRow is one parsed initial-balance row.
type InitialInventoryRow struct {
	Row           int
	ComponentCode string
	Quantity      int
	LocationCode  string
	LotCode       string
	ExpiryDate    *time.Time
}

// ParseInitialInventoryRows converts raw records into initial-balance rows
// plus per-row errors.
func ParseInitialInventoryRows(records [][]string) ([]InitialInventoryRow, []RowError) {
	if len(records) < 2 {
		return nil, []RowError{{Row: 0, Message: "file has no data rows"}}
	}

	idx := headerIndex(records[0])
	var rows []InitialInventoryRow
	var rowErrors []RowError

	for i, record := range records[1:] {
		row := i + 1

		code := cell(record, idx, "component_code")
		if code == "" {
			rowErrors = append(rowErrors, RowError{Row: row, Field: "component_code", Message: "component_code is required"})
			continue
		}
		rawQty := cell(record, idx, "quantity")
		qty, err := strconv.Atoi(rawQty)
		if err != nil || qty <= 0 {
			rowErrors = append(rowErrors, RowError{Row: row, Field: "quantity", Message: "must be a positive integer"})
			continue
		}

		parsed := InitialInventoryRow{
			Row:           row,
			ComponentCode: code,
			Quantity:      qty,
			LocationCode:  cell(record, idx, "location_code"),
			LotCode:       cell(record, idx, "lot_code"),
		}
		if raw := cell(record, idx, "expiry_date"); raw != "" {
			expiry, err := time.Parse("2006-01-02", raw)
			if err != nil {
				rowErrors = append(rowErrors, RowError{Row: row, Field: "expiry_date", Message: "must be YYYY-MM-DD"})
				continue
			}
			parsed.ExpiryDate = &expiry
		}

		rows = append(rows, parsed)
	}

	return rows, rowErrors
}

// bulkRowErrors maps bulk-create errors back to the original file rows of
// the items that reached the repository. Bulk indexes point into the
// parse-valid slice, not the file, so rowNums translates them.
func bulkRowErrors(bulkErrors []repository.BulkCreateError, rowNums []int) []RowError {
	out := make([]RowError, 0, len(bulkErrors))
	for _, e := range bulkErrors {
		row := 0
		if e.Index >= 0 && e.Index < len(rowNums) {
			row = rowNums[e.Index]
		}
		out = append(out, RowError{Row: row, Message: e.Message})
	}
	return out
}

func (h *ImportHandler) readUpload(c *gin.Context) ([][]string, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondBadRequest(c, "file is required")
		return nil, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	defer file.Close()

	records, err := readTabular(fileHeader.Filename, file)
	if err != nil {
		respondBadRequest(c, err.Error())
		return nil, false
	}
	if len(records) > maxImportRows+1 {
		respondBadRequest(c, fmt.Sprintf("file exceeds %d rows", maxImportRows))
		return nil, false
	}
	return records, true
}

// ImportComponents handles POST /api/v1/import/components
func (h *ImportHandler) ImportComponents(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	records, ok := h.readUpload(c)
	if !ok {
		return
	}

	components, rowNums, rowErrors := ParseComponentRows(records)
	result := ImportResult{
		Total:  len(records) - 1,
		Errors: rowErrors,
	}

	if len(components) > 0 {
		bulk, err := h.componentRepo.BulkCreateComponents(tenantID, components)
		if err != nil {
			respondError(c, err)
			return
		}
		result.Success = bulk.Success
		result.Skipped = bulk.Skipped
		result.Errors = append(result.Errors, bulkRowErrors(bulk.Errors, rowNums)...)
	}
	result.Failed = len(result.Errors)

	h.logger.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"total":     result.Total,
		"success":   result.Success,
		"failed":    result.Failed,
	}).Info("Component import completed")

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// ImportSKUs handles POST /api/v1/import/skus
func (h *ImportHandler) ImportSKUs(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	records, ok := h.readUpload(c)
	if !ok {
		return
	}

	skus, rowNums, rowErrors := ParseSKURows(records)
	result := ImportResult{
		Total:  len(records) - 1,
		Errors: rowErrors,
	}

	if len(skus) > 0 {
		bulk, err := h.skuRepo.BulkCreateSKUs(tenantID, skus)
		if err != nil {
			respondError(c, err)
			return
		}
		result.Success = bulk.Success
		result.Skipped = bulk.Skipped
		result.Errors = append(result.Errors, bulkRowErrors(bulk.Errors, rowNums)...)
	}
	result.Failed = len(result.Errors)

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// ImportInitialInventory handles POST /api/v1/import/initial-inventory
// Each valid row becomes an INITIAL transaction; rows referencing unknown
// component or location codes fail individually without aborting the file.
func (h *ImportHandler) ImportInitialInventory(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	createdBy := strPtr(middleware.GetUserID(c))

	records, ok := h.readUpload(c)
	if !ok {
		return
	}

	rows, rowErrors := ParseInitialInventoryRows(records)
	result := ImportResult{
		Total:  len(records) - 1,
		Errors: rowErrors,
	}

	for _, row := range rows {
		component, err := h.componentRepo.GetComponentByCode(tenantID, row.ComponentCode)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: row.Row, Field: "component_code", Message: "component not found: " + row.ComponentCode})
			continue
		}

		req := models.ReceiptRequest{
			ComponentID: component.ID,
			Quantity:    row.Quantity,
		}
		if row.LocationCode != "" {
			location, err := h.locationRepo.GetLocationByCode(tenantID, row.LocationCode)
			if err != nil {
				result.Errors = append(result.Errors, RowError{Row: row.Row, Field: "location_code", Message: "location not found: " + row.LocationCode})
				continue
			}
			req.LocationID = &location.ID
		}
		if row.LotCode != "" {
			req.Lot = &models.NewLotRequest{
				LotCode:    row.LotCode,
				ExpiryDate: row.ExpiryDate,
			}
		}

		if _, err := h.txService.Initial(tenantID, &req, createdBy); err != nil {
			result.Errors = append(result.Errors, RowError{Row: row.Row, Message: err.Error()})
			continue
		}
		result.Success++
	}
	result.Failed = len(result.Errors)

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

var templateColumns = map[string][]string{
	"components":        {"code", "name", "unit_of_measure", "cost_per_unit", "reorder_point", "lead_time_days", "track_lots", "supplier", "notes"},
	"skus":              {"code", "name", "notes"},
	"initial-inventory": {"component_code", "quantity", "location_code", "lot_code", "expiry_date"},
}

// DownloadTemplate handles GET /api/v1/import/templates/:type?format=csv|xlsx|json
func (h *ImportHandler) DownloadTemplate(c *gin.Context) {
	templateType := c.Param("type")
	columns, ok := templateColumns[templateType]
	if !ok {
		respondBadRequest(c, "Unknown template type: "+templateType)
		return
	}

	switch c.DefaultQuery("format", "csv") {
	case "csv":
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-template.csv", templateType))
		c.Data(http.StatusOK, "text/csv", []byte(strings.Join(columns, ",")+"\n"))

	case "xlsx":
		f := excelize.NewFile()
		defer f.Close()
		sheet := f.GetSheetName(0)
		for i, col := range columns {
			colName, _ := excelize.ColumnNumberToName(i + 1)
			f.SetCellValue(sheet, colName+"1", col)
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-template.xlsx", templateType))
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := f.Write(c.Writer); err != nil {
			h.logger.WithError(err).Warn("Failed to write xlsx template")
		}

	case "json":
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"type": templateType, "columns": columns}})

	default:
		respondBadRequest(c, "format must be csv, xlsx or json")
	}
}

// ExportTransactions handles GET /api/v1/export/transactions
// Streams the ledger as CSV, one row per transaction line, newest first.
// Supports the same since filter as the list endpoint.
func (h *ImportHandler) ExportTransactions(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var filter repository.TransactionFilter
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondBadRequest(c, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = &since
	}

	transactions, _, err := h.ledgerRepo.ListTransactions(tenantID, filter, 0, 0)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=transactions.csv")
	c.Header("Content-Type", "text/csv")

	w := csv.NewWriter(c.Writer)
	defer w.Flush()

	w.Write([]string{"transaction_id", "type", "created_at", "reference", "reason_code", "component_id", "sku_id", "location_id", "lot_id", "quantity_change", "unit_cost"})

	for i := range transactions {
		txn := &transactions[i]
		for j := range txn.Lines {
			line := &txn.Lines[j]
			w.Write([]string{
				txn.ID.String(),
				string(txn.Type),
				txn.CreatedAt.Format(time.RFC3339),
				strDeref(txn.Reference),
				strDeref(txn.ReasonCode),
				uuidDeref(line.ComponentID),
				uuidDeref(line.SKUID),
				line.LocationID.String(),
				uuidDeref(line.LotID),
				strconv.Itoa(line.QuantityChange),
				decimalDeref(line.UnitCost),
			})
		}
	}
}

// ExportComponents handles GET /api/v1/export/components
// Streams a CSV of all components with their ledger-derived on-hand quantity
// and reorder status.
func (h *ImportHandler) ExportComponents(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	components, _, err := h.componentRepo.ListComponents(tenantID, false, 0, 0)
	if err != nil {
		respondError(c, err)
		return
	}

	settings, err := h.forecast.ResolveSettings(tenantID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=components.csv")
	c.Header("Content-Type", "text/csv")

	w := csv.NewWriter(c.Writer)
	defer w.Flush()

	w.Write([]string{"code", "name", "unit_of_measure", "cost_per_unit", "quantity_on_hand", "reorder_point", "reorder_status", "lead_time_days", "track_lots", "supplier", "is_active"})

	for i := range components {
		comp := &components[i]
		onHand, status, err := h.forecast.StatusFor(tenantID, comp.ID, comp.ReorderPoint, settings.WarningMultiplier)
		if err != nil {
			h.logger.WithError(err).WithField("component_id", comp.ID).Warn("Failed to derive on-hand for export")
			continue
		}
		supplier := ""
		if comp.Supplier != nil {
			supplier = *comp.Supplier
		}
		w.Write([]string{
			comp.Code,
			comp.Name,
			comp.UnitOfMeasure,
			comp.CostPerUnit.String(),
			strconv.Itoa(onHand),
			strconv.Itoa(comp.ReorderPoint),
			string(status),
			strconv.Itoa(comp.LeadTimeDays),
			strconv.FormatBool(comp.TrackLots),
			supplier,
			strconv.FormatBool(comp.IsActive),
		})
	}
}
