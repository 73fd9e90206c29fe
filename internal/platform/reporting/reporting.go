// Package reporting exposes read-only aggregate measures for the admin
// dashboard: enrollment, registration, claim and revenue statistics
// computed directly in SQL over the primary store.
package reporting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/verimed/insure/internal/platform/auth"
)

// MeasureDefinition defines a reporting measure with its SQL query.
// Every measure's SQL takes a single $1 parameter: the start of the
// reporting window.
type MeasureDefinition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	SQL         string   `json:"sql"`
	Parameters  []string `json:"parameters"`
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	WindowStart time.Time                `json:"window_start"`
	Results     []map[string]interface{} `json:"results"`
	Parameters  map[string]string        `json:"parameters,omitempty"`
}

// PredefinedMeasures is the list of available reporting measures.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "user-stats",
		Name:        "User Statistics",
		Description: "Total users, users signed up within the window, and users able to log in",
		SQL: `SELECT COUNT(*) AS total,
       COALESCE(SUM(CASE WHEN created_at >= $1 THEN 1 ELSE 0 END), 0) AS new_in_window,
       COALESCE(SUM(CASE WHEN status IN ('approved', 'active') THEN 1 ELSE 0 END), 0) AS active
  FROM users`,
		Parameters: []string{"since", "period"},
	},
	{
		ID:          "registration-stats",
		Name:        "Policy Registration Statistics",
		Description: "Total registrations, registrations created within the window, and unexpired registrations",
		SQL: `SELECT COUNT(*) AS total,
       COALESCE(SUM(CASE WHEN registered_at >= $1 THEN 1 ELSE 0 END), 0) AS new_in_window,
       COALESCE(SUM(CASE WHEN status = 'active' AND expires_at > NOW() THEN 1 ELSE 0 END), 0) AS active
  FROM policy_registrations`,
		Parameters: []string{"since", "period"},
	},
	{
		ID:          "claim-status-breakdown",
		Name:        "Claim Status Breakdown",
		Description: "Number of claims filed within the window grouped by status",
		SQL: `SELECT status, COUNT(*) AS total
  FROM claims
 WHERE created_at >= $1
 GROUP BY status
 ORDER BY total DESC`,
		Parameters: []string{"since", "period"},
	},
	{
		ID:          "revenue",
		Name:        "Premium Revenue",
		Description: "Premium revenue from registrations created within the window, with a 20% growth projection",
		SQL: `SELECT COALESCE(SUM(p.price), 0) AS revenue,
       ROUND(COALESCE(SUM(p.price), 0) * 1.2, 2) AS projected_revenue,
       COUNT(r.id) AS registrations
  FROM policy_registrations r
  JOIN policies p ON p.id = r.policy_id
 WHERE r.registered_at >= $1`,
		Parameters: []string{"since", "period"},
	},
}

// Handler provides HTTP handlers for the reporting API.
type Handler struct {
	pool *pgxpool.Pool
}

// NewHandler creates a new reporting handler.
func NewHandler(pool *pgxpool.Pool) *Handler {
	return &Handler{pool: pool}
}

// RegisterRoutes registers the reporting API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	reportGroup := api.Group("/reports", auth.RequireRole(auth.RoleAdmin))
	reportGroup.GET("/measures", h.ListMeasures)
	reportGroup.GET("/measures/:id/evaluate", h.EvaluateMeasure)
}

// ListMeasures returns all available measure definitions.
func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

// EvaluateMeasure executes a measure's SQL over the requested window
// and returns the results. The window is controlled by `since` (RFC
// 3339 timestamp or YYYY-MM-DD date) or `period` (weekly|monthly);
// `since` wins when both are present.
func (h *Handler) EvaluateMeasure(c echo.Context) error {
	measureID := c.Param("id")

	measure := FindMeasure(measureID)
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}

	params := map[string]string{}
	for _, p := range measure.Parameters {
		if v := c.QueryParam(p); v != "" {
			params[p] = v
		}
	}

	start, err := WindowStart(params["since"], params["period"], time.Now())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	results, err := h.executeSQL(c.Request().Context(), measure.SQL, start)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	report := MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		GeneratedAt: time.Now(),
		WindowStart: start,
		Results:     results,
		Parameters:  params,
	}

	return c.JSON(http.StatusOK, report)
}

// WindowStart resolves the reporting window start from the `since` and
// `period` parameters. An explicit since takes precedence; period
// defaults to monthly; an empty window means monthly.
func WindowStart(since, period string, now time.Time) (time.Time, error) {
	if since != "" {
		if t, err := time.Parse(time.RFC3339, since); err == nil {
			return t, nil
		}
		if t, err := time.Parse("2006-01-02", since); err == nil {
			return t, nil
		}
		return time.Time{}, fmt.Errorf("invalid since parameter: %q", since)
	}

	switch period {
	case "weekly":
		return now.AddDate(0, 0, -7), nil
	case "monthly", "":
		return now.AddDate(0, 0, -30), nil
	default:
		return time.Time{}, fmt.Errorf("period must be weekly or monthly, got %q", period)
	}
}

// executeSQL runs a parameterized query and returns rows as maps.
func (h *Handler) executeSQL(ctx context.Context, sql string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := h.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	var results []map[string]interface{}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[string(fd.Name)] = values[i]
		}
		results = append(results, row)
	}

	if results == nil {
		results = []map[string]interface{}{}
	}

	return results, nil
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}
