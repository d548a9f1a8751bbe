package luxmeter

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/ztkent/lux-meter/internal/tools"
)

// Reference levels drawn behind the lux series.
var lightLevels = []struct {
	Lux   int
	Title string
	Color string
}{
	{500, "Shade", "DarkGrey"},
	{1000, "Partial Shade", "WhiteSmoke"},
	{10000, "Partial Sun", "SkyBlue"},
	{25000, "Full Sun", "Yellow"},
}

// Serve the sqlite db for download
func (m *LuxMeter) ServeResultsDB() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbPath := m.DBPath
		if dbPath == "" {
			dbPath = DB_PATH
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filepath.Base(dbPath)))
		w.Header().Set("Content-Type", "application/octet-stream")
		http.ServeFile(w, r, dbPath)
	}
}

// Serve the results graph
func (m *LuxMeter) ServeResultsGraph() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Get the date range for the graph from the request
		startDate, endDate, err := tools.ParseStartAndEndDate(r, m.Location, time.Now())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		rows, err := m.ResultsDB.Query("SELECT lux, created_at FROM readings WHERE created_at BETWEEN ? AND ? ORDER BY created_at", startDate, endDate)
		if err != nil {
			m.Log.WithError(err).Error("Failed to query readings")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer rows.Close()

		var luxValues []opts.LineData
		var timeValues []string
		var maxLux int
		for rows.Next() {
			var lux float64
			var createdAt time.Time
			if err := rows.Scan(&lux, &createdAt); err != nil {
				m.Log.WithError(err).Error("Failed to scan reading")
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if lux > float64(maxLux) {
				// Round up to the nearest 5000
				maxLux = int(math.Ceil(lux/5000) * 5000)
			}
			luxValues = append(luxValues, opts.LineData{Value: lux})
			timeValues = append(timeValues, createdAt.In(m.location()).Format(tools.LayoutDB))
		}
		if err := rows.Err(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		line := newLuxChart(timeValues, luxValues, maxLux)
		page := components.NewPage()
		page.PageTitle = "Lux Meter"
		page.AddCharts(line)

		w.Header().Set("Content-Type", "text/html")
		if err := page.Render(w); err != nil {
			m.Log.WithError(err).Error("Failed to render graph")
		}
	}
}

func newLuxChart(timeValues []string, luxValues []opts.LineData, maxLux int) *charts.Line {
	line := charts.NewLine()
	for _, level := range lightLevels {
		data := make([]opts.LineData, len(timeValues))
		for i := range data {
			data[i] = opts.LineData{Value: level.Lux}
		}
		line.AddSeries(level.Title, data, charts.WithLineChartOpts(opts.LineChart{
			Color: level.Color,
		}))
	}

	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeChalk,
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "Time",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "Lux",
			Min:  "0",
			Max:  fmt.Sprintf("%d", maxLux),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:      true,
			Trigger:   "axis",
			TriggerOn: "mousemove",
			Formatter: "{a4}: {c4}<br> Time: {b0}",
		}),
		charts.WithToolboxOpts(opts.Toolbox{
			Show: true,
			Feature: &opts.ToolBoxFeature{
				SaveAsImage: &opts.ToolBoxFeatureSaveAsImage{
					Show:  true,
					Title: "Save as Image",
					Name:  "lux-meter",
				},
			},
		}),
	)
	line.SetXAxis(timeValues).AddSeries("Lux", luxValues)
	return line
}

// Summarise the readings recorded in a date range
func (m *LuxMeter) HistoricalConditions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startDate, endDate, err := tools.ParseStartAndEndDate(r, m.Location, time.Now())
		if err != nil {
			ServeResponse(w, r, err.Error(), http.StatusBadRequest)
			return
		}
		conditions, err := m.getCurrentConditions()
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			ServeResponse(w, r, err.Error(), http.StatusInternalServerError)
			return
		}
		conditions, err = m.getHistoricalConditions(conditions, startDate, endDate)
		if err != nil {
			m.Log.WithError(err).Error("Failed to load historical conditions")
			ServeResponse(w, r, err.Error(), http.StatusInternalServerError)
			return
		}
		serveJSON(w, conditions, http.StatusOK)
	}
}

func (m *LuxMeter) getHistoricalConditions(conditions Conditions, startDate string, endDate string) (Conditions, error) {
	if m.ResultsDB == nil {
		return conditions, nil
	}
	conditions.DateRange = fmt.Sprintf("%s - %s UTC", startDate, endDate)

	// Get the average lux for the date range
	row := m.ResultsDB.QueryRow(`
    SELECT
        COALESCE(AVG(lux), 0),
        COALESCE(MIN(created_at), ''),
        COALESCE(MAX(created_at), '')
    FROM readings
    WHERE created_at BETWEEN ? AND ?`, startDate, endDate)
	var oldest, mostRecent string
	if err := row.Scan(&conditions.AverageLuxInRange, &oldest, &mostRecent); err != nil {
		return conditions, err
	}
	if oldest == "" {
		conditions.LightConditionInRange = "No Data in Range"
		return conditions, nil
	}

	// Count the minutes where the average lux was above 10k
	var fullSunMinutes int
	err := m.ResultsDB.QueryRow(`
    SELECT COUNT(*)
    FROM (
        SELECT AVG(lux) as avg_lux
        FROM readings
        WHERE created_at BETWEEN ? AND ?
        GROUP BY strftime('%Y-%m-%d %H:%M', created_at)
    )
    WHERE avg_lux > 10000`, startDate, endDate).Scan(&fullSunMinutes)
	if err != nil {
		return conditions, err
	}
	conditions.FullSunlightInRange = float64(fullSunMinutes) / 60

	first, last, err := tools.StartAndEndDateToTime(oldest, mostRecent)
	if err != nil {
		return conditions, err
	}
	conditions.RecordedHoursInRange = last.Sub(first).Hours()
	conditions.LightConditionInRange = classifyLight(conditions.FullSunlightInRange, conditions.RecordedHoursInRange)
	return conditions, nil
}

// classifyLight buckets a range by the share of recorded time spent above 10k lux.
func classifyLight(fullSunHours, recordedHours float64) string {
	if recordedHours <= 0 {
		recordedHours = 1.0 / 60
	}
	share := fullSunHours / recordedHours
	switch {
	case share > 0.5:
		return "Full Sun"
	case share > 0.25:
		return "Partial Sun"
	case share > 0.1:
		return "Partial Shade"
	default:
		return "Shade"
	}
}

func (m *LuxMeter) location() *time.Location {
	if m.Location == nil {
		return time.UTC
	}
	return m.Location
}
