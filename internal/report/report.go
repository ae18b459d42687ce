// Package report renders a monitoring session into downloadable summaries.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"quest-lookout/internal/journal"
	lookout "quest-lookout/internal/lookout/domain"
)

// RuleStats aggregates one rule's activity over a session.
type RuleStats struct {
	RuleIndex      int
	ScansCompleted int
	ScansStarted   int
	AlarmsSounded  int
	AlarmRepeats   int
	AlarmSilences  int
	// MeanScanGap is the mean interval between consecutive completed
	// scans, zero when fewer than two scans completed.
	MeanScanGap time.Duration

	firstScanAt time.Time
	lastScanAt  time.Time
}

// SessionSummary is the aggregate view of one session.
type SessionSummary struct {
	Session      journal.Session
	Rules        []RuleStats
	SensorLosses int
	CenterResets int
}

// Summarize folds a session's events into per-rule statistics.
func Summarize(session journal.Session, events []journal.EventRecord) SessionSummary {
	summary := SessionSummary{Session: session}
	byRule := map[int]*RuleStats{}
	var order []int
	ruleStats := func(idx int) *RuleStats {
		if st, ok := byRule[idx]; ok {
			return st
		}
		st := &RuleStats{RuleIndex: idx}
		byRule[idx] = st
		order = append(order, idx)
		return st
	}

	for _, ev := range events {
		switch ev.Type {
		case lookout.EventScanCompleted:
			st := ruleStats(ev.RuleIndex)
			st.ScansCompleted++
			if st.firstScanAt.IsZero() {
				st.firstScanAt = ev.At
			}
			st.lastScanAt = ev.At
		case lookout.EventScanStarted:
			ruleStats(ev.RuleIndex).ScansStarted++
		case lookout.EventAlarmSounding:
			ruleStats(ev.RuleIndex).AlarmsSounded++
		case lookout.EventAlarmRepeat:
			ruleStats(ev.RuleIndex).AlarmRepeats++
		case lookout.EventAlarmSilenced:
			ruleStats(ev.RuleIndex).AlarmSilences++
		case lookout.EventSensorLost:
			summary.SensorLosses++
		case lookout.EventCenterReset:
			summary.CenterResets++
		}
	}
	for _, idx := range order {
		st := byRule[idx]
		if st.ScansCompleted > 1 {
			st.MeanScanGap = st.lastScanAt.Sub(st.firstScanAt) / time.Duration(st.ScansCompleted-1)
		}
		summary.Rules = append(summary.Rules, *st)
	}
	return summary
}

func sessionDuration(s journal.Session) time.Duration {
	if s.EndedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// BuildSessionPDF renders a session summary plus event log as PDF.
func BuildSessionPDF(summary SessionSummary, events []journal.EventRecord) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Lookout Session Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Session: %s", summary.Session.ID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Started: %s", summary.Session.StartedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	if !summary.Session.EndedAt.IsZero() {
		pdf.Cell(0, 6, fmt.Sprintf("Ended: %s", summary.Session.EndedAt.Format(time.RFC3339)))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Duration: %s", sessionDuration(summary.Session).Round(time.Second)))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Sensor losses: %d", summary.SensorLosses))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Center resets: %d", summary.CenterResets))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(20, 6, "Rule", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Scans", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Alarms", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Repeats", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Silences", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Scan gap", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, rs := range summary.Rules {
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", rs.RuleIndex), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", rs.ScansCompleted), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", rs.AlarmsSounded), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", rs.AlarmRepeats), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", rs.AlarmSilences), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, rs.MeanScanGap.Round(time.Millisecond).String(), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(50, 6, "Time", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Rule", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Event", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, ev := range events {
		pdf.CellFormat(50, 5, ev.At.Format("15:04:05.000"), "1", 0, "C", false, 0, "")
		rule := fmt.Sprintf("%d", ev.RuleIndex)
		if ev.RuleIndex < 0 {
			rule = "-"
		}
		pdf.CellFormat(20, 5, rule, "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 5, ev.Type, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildSessionXLSX renders a session summary plus event log as XLSX.
func BuildSessionXLSX(summary SessionSummary, events []journal.EventRecord) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	eventsSheet := "events"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(eventsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Lookout Session Report")
	_ = f.SetCellValue(summarySheet, "A3", "Session")
	_ = f.SetCellValue(summarySheet, "B3", summary.Session.ID)
	_ = f.SetCellValue(summarySheet, "A4", "Started")
	_ = f.SetCellValue(summarySheet, "B4", summary.Session.StartedAt.Format(time.RFC3339))
	if !summary.Session.EndedAt.IsZero() {
		_ = f.SetCellValue(summarySheet, "A5", "Ended")
		_ = f.SetCellValue(summarySheet, "B5", summary.Session.EndedAt.Format(time.RFC3339))
	}
	_ = f.SetCellValue(summarySheet, "A6", "Sensor losses")
	_ = f.SetCellValue(summarySheet, "B6", summary.SensorLosses)
	_ = f.SetCellValue(summarySheet, "A7", "Center resets")
	_ = f.SetCellValue(summarySheet, "B7", summary.CenterResets)

	_ = f.SetCellValue(summarySheet, "A9", "Rule")
	_ = f.SetCellValue(summarySheet, "B9", "Scans")
	_ = f.SetCellValue(summarySheet, "C9", "Alarms")
	_ = f.SetCellValue(summarySheet, "D9", "Repeats")
	_ = f.SetCellValue(summarySheet, "E9", "Silences")
	_ = f.SetCellValue(summarySheet, "F9", "Mean scan gap")
	for i, rs := range summary.Rules {
		row := i + 10
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), rs.RuleIndex)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), rs.ScansCompleted)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), rs.AlarmsSounded)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("D%d", row), rs.AlarmRepeats)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("E%d", row), rs.AlarmSilences)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("F%d", row), rs.MeanScanGap.Round(time.Millisecond).String())
	}

	_ = f.SetCellValue(eventsSheet, "A1", "Time")
	_ = f.SetCellValue(eventsSheet, "B1", "Rule")
	_ = f.SetCellValue(eventsSheet, "C1", "Event")
	_ = f.SetCellValue(eventsSheet, "D1", "DYaw")
	_ = f.SetCellValue(eventsSheet, "E1", "DPitch")
	for i, ev := range events {
		row := i + 2
		_ = f.SetCellValue(eventsSheet, fmt.Sprintf("A%d", row), ev.At.Format(time.RFC3339Nano))
		_ = f.SetCellValue(eventsSheet, fmt.Sprintf("B%d", row), ev.RuleIndex)
		_ = f.SetCellValue(eventsSheet, fmt.Sprintf("C%d", row), ev.Type)
		_ = f.SetCellValue(eventsSheet, fmt.Sprintf("D%d", row), ev.DYaw)
		_ = f.SetCellValue(eventsSheet, fmt.Sprintf("E%d", row), ev.DPitch)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
