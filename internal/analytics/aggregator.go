package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"presence/internal/identity"
	"presence/internal/ledger"
	"presence/internal/roster"
)

// LowAttendanceCutoff is the fixed policy percentage below which a person
// lands on the watchlist. Callers wanting a different threshold post-filter.
const LowAttendanceCutoff = 75.0

// LedgerReader is the read-only slice of the ledger the aggregator consumes.
type LedgerReader interface {
	FindByGroup(ctx context.Context, groupID string) ([]ledger.Record, error)
	DistinctSessionDates(ctx context.Context, groupID string) ([]time.Time, error)
	CountByDay(ctx context.Context, groupID string) ([]ledger.DayCount, error)
	CountPresent(ctx context.Context, groupID, personID string) (int, error)
}

// RosterReader enumerates groups and their expected participants.
type RosterReader interface {
	GetGroup(ctx context.Context, id string) (roster.Group, error)
	ListMembers(ctx context.Context, groupID string) ([]roster.Member, error)
	ListByMember(ctx context.Context, personID string) ([]roster.Group, error)
}

// Directory resolves principal display info.
type Directory interface {
	GetByID(ctx context.Context, id string) (identity.User, error)
}

// TrendReader serves cached per-day presence counts. ok false means the
// cache cannot answer for those days and the ledger should be queried.
type TrendReader interface {
	Counts(ctx context.Context, groupID string, days []time.Time) ([]ledger.DayCount, bool, error)
}

// PersonStats is one enrolled person's standing within a group. Absent is
// inferred from the session-date count, never read from storage.
type PersonStats struct {
	PersonID   string  `json:"person_id"`
	Name       string  `json:"name"`
	StudentRef *string `json:"student_ref,omitempty"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Percentage float64 `json:"percentage"`
}

// GroupReport is the full analytics view of one group.
type GroupReport struct {
	Group          roster.Group      `json:"group"`
	TotalMembers   int               `json:"total_members"`
	TotalSessions  int               `json:"total_sessions"`
	PersonStats    []PersonStats     `json:"person_stats"`
	DateWiseCounts []ledger.DayCount `json:"date_wise_counts"`
	LowAttendance  []PersonStats     `json:"low_attendance"`
}

// GroupStats is a person's standing within one of their groups.
type GroupStats struct {
	GroupID       string  `json:"group_id"`
	GroupName     string  `json:"group_name"`
	GroupCode     string  `json:"group_code"`
	TotalSessions int     `json:"total_sessions"`
	Present       int     `json:"present"`
	Absent        int     `json:"absent"`
	Percentage    float64 `json:"percentage"`
}

// PersonReport spans every group a person belongs to.
type PersonReport struct {
	Person identity.User `json:"person"`
	// OverallPercentage is the unweighted mean of the per-group percentages.
	// A zero-session group contributes 0 to that mean; it is not excluded.
	GroupStats        []GroupStats `json:"group_stats"`
	OverallPercentage float64      `json:"overall_percentage"`
}

// Aggregator computes attendance statistics from the ledger. It never fails
// on missing data: no records means zero-valued statistics.
type Aggregator struct {
	ledger LedgerReader
	roster RosterReader
	users  Directory
	trend  TrendReader // nil reads the trend straight from the ledger
}

// NewAggregator creates an aggregator.
func NewAggregator(led LedgerReader, ros RosterReader, users Directory) *Aggregator {
	return &Aggregator{ledger: led, roster: ros, users: users}
}

// UseTrendCache makes the aggregator try cached per-day counters before
// counting in the ledger.
func (a *Aggregator) UseTrendCache(t TrendReader) {
	a.trend = t
}

// GroupReport builds the per-group view: per-member stats, a per-day trend
// series and the low-attendance watchlist.
func (a *Aggregator) GroupReport(ctx context.Context, groupID string) (GroupReport, error) {
	g, err := a.roster.GetGroup(ctx, groupID)
	if err != nil {
		return GroupReport{}, err
	}

	dates, err := a.ledger.DistinctSessionDates(ctx, groupID)
	if err != nil {
		return GroupReport{}, fmt.Errorf("session dates: %w", err)
	}
	totalSessions := len(dates)

	members, err := a.roster.ListMembers(ctx, groupID)
	if err != nil {
		return GroupReport{}, fmt.Errorf("members: %w", err)
	}

	records, err := a.ledger.FindByGroup(ctx, groupID)
	if err != nil {
		return GroupReport{}, fmt.Errorf("records: %w", err)
	}
	presentByPerson := make(map[string]int, len(members))
	for _, rec := range records {
		if rec.Status == ledger.StatusPresent || rec.Status == ledger.StatusLate {
			presentByPerson[rec.PersonID]++
		}
	}

	report := GroupReport{
		Group:         g,
		TotalMembers:  len(members),
		TotalSessions: totalSessions,
		PersonStats:   make([]PersonStats, 0, len(members)),
	}
	for _, m := range members {
		present := presentByPerson[m.PersonID]
		ps := PersonStats{
			PersonID:   m.PersonID,
			Name:       m.Name,
			StudentRef: m.StudentRef,
			Present:    present,
			Absent:     totalSessions - present,
			Percentage: percentage(present, totalSessions),
		}
		report.PersonStats = append(report.PersonStats, ps)
		if ps.Percentage < LowAttendanceCutoff {
			report.LowAttendance = append(report.LowAttendance, ps)
		}
	}

	if a.trend != nil {
		if counts, ok, err := a.trend.Counts(ctx, groupID, dates); err == nil && ok {
			report.DateWiseCounts = counts
			return report, nil
		}
	}
	report.DateWiseCounts, err = a.ledger.CountByDay(ctx, groupID)
	if err != nil {
		return GroupReport{}, fmt.Errorf("trend: %w", err)
	}
	return report, nil
}

// PersonReport builds per-group stats for every group the person belongs to,
// plus the unweighted overall mean.
func (a *Aggregator) PersonReport(ctx context.Context, personID string) (PersonReport, error) {
	u, err := a.users.GetByID(ctx, personID)
	if err != nil {
		return PersonReport{}, err
	}

	groups, err := a.roster.ListByMember(ctx, personID)
	if err != nil {
		return PersonReport{}, fmt.Errorf("groups: %w", err)
	}

	report := PersonReport{Person: u, GroupStats: make([]GroupStats, 0, len(groups))}
	var sum float64
	for _, g := range groups {
		dates, err := a.ledger.DistinctSessionDates(ctx, g.ID)
		if err != nil {
			return PersonReport{}, fmt.Errorf("session dates for %s: %w", g.ID, err)
		}
		present, err := a.ledger.CountPresent(ctx, g.ID, personID)
		if err != nil {
			return PersonReport{}, fmt.Errorf("present count for %s: %w", g.ID, err)
		}
		total := len(dates)
		gs := GroupStats{
			GroupID:       g.ID,
			GroupName:     g.Name,
			GroupCode:     g.Code,
			TotalSessions: total,
			Present:       present,
			Absent:        total - present,
			Percentage:    percentage(present, total),
		}
		report.GroupStats = append(report.GroupStats, gs)
		sum += gs.Percentage
	}
	if len(report.GroupStats) > 0 {
		report.OverallPercentage = round2(sum / float64(len(report.GroupStats)))
	}
	return report, nil
}

// percentage is present/total as a percent, rounded to two decimals, 0 when
// no sessions occurred.
func percentage(present, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round2(float64(present) / float64(total) * 100)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
