package models

import "time"

// ReportingAnalytics is a periodic rollup over reports created within the
// requested timeframe.
type ReportingAnalytics struct {
	Timeframe              string          `json:"timeframe"` // hour, day, week, month
	GeneratedAt            time.Time       `json:"generatedAt"`
	TotalReports           int             `json:"totalReports"`
	VerifiedReports        int             `json:"verifiedReports"`
	FalseReports           int             `json:"falseReports"`
	AvgVerificationMinutes float64         `json:"avgVerificationMinutes"`
	TopIncidentTypes       []IncidentCount `json:"topIncidentTypes"`
	TopReporters           []ReporterCount `json:"topReporters"`
	Hotspots               []Hotspot       `json:"hotspots"`
	ResponseRate           float64         `json:"responseRate"` // fraction with an official response
	AvgResponseMinutes     float64         `json:"avgResponseMinutes"`
}

type IncidentCount struct {
	Type  IncidentType `json:"type"`
	Count int          `json:"count"`
}

type ReporterCount struct {
	ReporterID string `json:"reporterId"`
	Name       string `json:"name"`
	Count      int    `json:"count"`
	Reputation int    `json:"reputation"`
}

// Hotspot is a ~0.01 degree grid cell containing more than one incident.
type Hotspot struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Count       int     `json:"count"`
	AvgSeverity float64 `json:"avgSeverity"` // low=1 .. critical=4
}

// Valid analytics timeframes.
const (
	TimeframeHour  = "hour"
	TimeframeDay   = "day"
	TimeframeWeek  = "week"
	TimeframeMonth = "month"
)

// TimeframeDuration maps a timeframe name to its window length; the second
// return is false for unknown names.
func TimeframeDuration(timeframe string) (time.Duration, bool) {
	switch timeframe {
	case TimeframeHour:
		return time.Hour, true
	case TimeframeDay:
		return 24 * time.Hour, true
	case TimeframeWeek:
		return 7 * 24 * time.Hour, true
	case TimeframeMonth:
		return 30 * 24 * time.Hour, true
	default:
		return 0, false
	}
}
