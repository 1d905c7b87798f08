package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/mosaictheory-jt/unstructured-analytics/internal/metrics"
	"github.com/mosaictheory-jt/unstructured-analytics/internal/prose"
	"github.com/mosaictheory-jt/unstructured-analytics/internal/query"
	"github.com/mosaictheory-jt/unstructured-analytics/internal/store"
	"github.com/mosaictheory-jt/unstructured-analytics/pkg/logger"
)

// DataHandler serves dataset previews, schema, per-table rows, and the ad
// hoc analytical query endpoint.
type DataHandler struct {
	store       *store.Store
	renderer    *prose.Renderer
	queryEngine *query.Engine
}

func NewDataHandler(s *store.Store, r *prose.Renderer, q *query.Engine) *DataHandler {
	return &DataHandler{store: s, renderer: r, queryEngine: q}
}

// GetPreview returns the dataset rendered in every promptable shape.
func (h *DataHandler) GetPreview(c *fiber.Ctx) error {
	tables, err := h.store.LoadAllTables()
	if err != nil {
		return internalError(c, "Failed to load tables", err)
	}
	rawCSV, err := h.store.AllRawText()
	if err != nil {
		return internalError(c, "Failed to read raw data", err)
	}
	metadata, err := h.store.LoadMetadata()
	if err != nil {
		return internalError(c, "Failed to load schema metadata", err)
	}
	english, err := h.renderer.RenderAll()
	if err != nil {
		return internalError(c, "Failed to render prose", err)
	}

	tableCounts := make(map[string]int, len(tables))
	for name, table := range tables {
		tableCounts[name] = len(table.Rows)
	}

	return c.JSON(fiber.Map{
		"raw_csv": rawCSV,
		"csv_with_metadata": fiber.Map{
			"metadata": metadata,
			"csv_data": rawCSV,
		},
		"english":      english,
		"table_counts": tableCounts,
	})
}

// GetSchema merges the discovered tables with the schema metadata
// document.
func (h *DataHandler) GetSchema(c *fiber.Ctx) error {
	tables, err := h.store.LoadAllTables()
	if err != nil {
		return internalError(c, "Failed to load tables", err)
	}
	metadata, err := h.store.LoadMetadata()
	if err != nil {
		return internalError(c, "Failed to load schema metadata", err)
	}

	schema := make(fiber.Map, len(tables))
	for name, table := range tables {
		tableMeta := metadata.Tables[name]

		columns := make([]fiber.Map, 0, len(table.Columns))
		for _, col := range table.Columns {
			colInfo := fiber.Map{
				"name":  col,
				"dtype": columnKind(table, col),
			}
			if fieldMeta, ok := tableMeta.Fields[col]; ok {
				colInfo["description"] = fieldMeta.Description
				colInfo["type"] = fieldMeta.Type
			}
			columns = append(columns, colInfo)
		}

		schema[name] = fiber.Map{
			"columns":      columns,
			"row_count":    len(table.Rows),
			"description":  tableMeta.Description,
			"primary_key":  tableMeta.PrimaryKey,
			"foreign_keys": tableMeta.ForeignKeys,
		}
	}

	return c.JSON(fiber.Map{"schema": schema})
}

// GetTable returns one table's rows.
func (h *DataHandler) GetTable(c *fiber.Ctx) error {
	name := c.Params("name")

	table, err := h.store.LoadTable(name)
	if err != nil {
		if errors.Is(err, store.ErrTableNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Table '" + name + "' not found",
			})
		}
		return internalError(c, "Failed to load table", err)
	}

	rows := table.Rows
	if rows == nil {
		rows = []store.Row{}
	}

	return c.JSON(fiber.Map{
		"table_name": table.Name,
		"columns":    table.Columns,
		"data":       rows,
		"row_count":  len(table.Rows),
	})
}

// ExecuteQuery runs one ad hoc SQL statement against the dataset. Query
// failures are reported in the response envelope, not as HTTP errors.
func (h *DataHandler) ExecuteQuery(c *fiber.Ctx) error {
	var req struct {
		Query string `json:"query"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Query == "" {
		return badRequest(c, "Query is required")
	}

	result, err := h.queryEngine.Execute(c.Context(), req.Query)
	if err != nil {
		logger.Warn("analytical query failed", zap.Error(err))
		metrics.AnalyticalQueryTotal.WithLabelValues("error").Inc()
		return c.JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	metrics.AnalyticalQueryTotal.WithLabelValues("ok").Inc()
	return c.JSON(fiber.Map{
		"success":   true,
		"columns":   result.Columns,
		"data":      result.Rows,
		"row_count": len(result.Rows),
	})
}

// columnKind names the scalar kind observed in a column, for callers that
// inspect the schema without the metadata document.
func columnKind(table *store.Table, col string) string {
	for _, row := range table.Rows {
		switch row[col].(type) {
		case int64:
			return "integer"
		case float64:
			return "decimal"
		case string:
			return "text"
		}
	}
	return "text"
}
