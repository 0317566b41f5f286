package service

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/dafibh/gehalt/gehalt-backend/internal/domain"
	"github.com/dafibh/gehalt/gehalt-backend/internal/util"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var hundred = decimal.NewFromInt(100)

// JSONCache caches loader results per user
type JSONCache interface {
	FetchJSON(ctx context.Context, userID uuid.UUID, name string, dest interface{}, loader func(context.Context) (interface{}, error)) error
}

// DashboardService aggregates statements for the dashboard
type DashboardService struct {
	repo  domain.StatementRepository
	cache JSONCache
	now   func() time.Time
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(repo domain.StatementRepository) *DashboardService {
	return &DashboardService{repo: repo, now: time.Now}
}

// SetCache sets the cache used for summaries and year lists
func (s *DashboardService) SetCache(cache JSONCache) {
	s.cache = cache
}

func (s *DashboardService) fetch(ctx context.Context, userID uuid.UUID, name string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		return assign(dest, value)
	}
	return s.cache.FetchJSON(ctx, userID, name, dest, loader)
}

// GetYears returns the years the user has statements for, newest first
func (s *DashboardService) GetYears(ctx context.Context, userID uuid.UUID) ([]int, error) {
	years := []int{}
	err := s.fetch(ctx, userID, "dashboard:years", &years, func(ctx context.Context) (interface{}, error) {
		return s.repo.GetYears(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	if years == nil {
		years = []int{}
	}
	return years, nil
}

// GetSummary builds the dashboard for a year. Without a year the latest year
// with data is used, falling back to the current year.
func (s *DashboardService) GetSummary(ctx context.Context, userID uuid.UUID, year *int) (*domain.DashboardSummary, error) {
	target := s.now().Year()
	if year != nil {
		if *year < domain.MinStatementYear || *year > domain.MaxStatementYear {
			return nil, domain.ErrInvalidPeriod
		}
		target = *year
	} else {
		years, err := s.GetYears(ctx, userID)
		if err != nil {
			return nil, err
		}
		if len(years) > 0 {
			target = years[0]
		}
	}

	var summary domain.DashboardSummary
	err := s.fetch(ctx, userID, "dashboard:summary:"+strconv.Itoa(target), &summary, func(ctx context.Context) (interface{}, error) {
		return s.buildSummary(ctx, userID, target)
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *DashboardService) buildSummary(ctx context.Context, userID uuid.UUID, year int) (*domain.DashboardSummary, error) {
	var current, previous []*domain.Statement

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.repo.List(gctx, userID, domain.StatementFilter{Year: &year})
		current = list
		return err
	})
	g.Go(func() error {
		prevYear := year - 1
		list, err := s.repo.List(gctx, userID, domain.StatementFilter{Year: &prevYear})
		previous = list
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortChronologically(current)
	sortChronologically(previous)

	trends := []domain.TrendCard{}
	if len(current) > 0 {
		// the first month of a year is compared with the last one before it
		trends = BuildTrends(append(previous, current...))
	}

	return &domain.DashboardSummary{
		Year:   year,
		Series: BuildSeries(current),
		Totals: BuildTotals(year, current),
		Trends: trends,
	}, nil
}

// BuildSeries turns chronologically sorted statements into monthly points
func BuildSeries(statements []*domain.Statement) []domain.MonthlyPoint {
	series := make([]domain.MonthlyPoint, 0, len(statements))
	for _, st := range statements {
		year, month := st.Period()
		series = append(series, domain.MonthlyPoint{
			Year:       year,
			Month:      month,
			Gross:      st.BruttoTax.Value,
			Net:        st.PayoutNetto.Value,
			Deductions: st.Sum(domain.DeductionFields),
			Social:     st.Sum(domain.SocialFields),
			Income:     st.TotalIncome(),
		})
	}
	return series
}

// BuildTotals sums a year's statements
func BuildTotals(year int, statements []*domain.Statement) domain.YearTotals {
	totals := domain.YearTotals{
		Year:       year,
		Gross:      decimal.Zero,
		Net:        decimal.Zero,
		Deductions: decimal.Zero,
		Social:     decimal.Zero,
		AverageNet: decimal.Zero,
	}
	for _, st := range statements {
		totals.StatementCount++
		totals.Gross = totals.Gross.Add(st.BruttoTax.Value)
		totals.Net = totals.Net.Add(st.PayoutNetto.Value)
		totals.Deductions = totals.Deductions.Add(st.Sum(domain.DeductionFields))
		totals.Social = totals.Social.Add(st.Sum(domain.SocialFields))
	}
	if totals.StatementCount > 0 {
		totals.AverageNet = totals.Net.Div(decimal.NewFromInt(int64(totals.StatementCount))).Round(2)
	}
	return totals
}

// BuildTrends compares the last two of the chronologically sorted statements.
// Fewer than two statements yield no trends.
func BuildTrends(statements []*domain.Statement) []domain.TrendCard {
	if len(statements) < 2 {
		return []domain.TrendCard{}
	}
	latest := statements[len(statements)-1]
	prior := statements[len(statements)-2]

	return []domain.TrendCard{
		trendCard("net", "Netto", latest.PayoutNetto.Value, prior.PayoutNetto.Value),
		trendCard("gross", "Brutto", latest.BruttoTax.Value, prior.BruttoTax.Value),
		trendCard("deductions", "Abzüge", latest.Sum(domain.DeductionFields), prior.Sum(domain.DeductionFields)),
	}
}

func trendCard(key, label string, current, previous decimal.Decimal) domain.TrendCard {
	card := domain.TrendCard{
		Key:      key,
		Label:    label,
		Current:  current,
		Previous: previous,
		Change:   current.Sub(previous),
	}
	if !previous.IsZero() {
		pct := card.Change.Div(previous).Mul(hundred).Round(2)
		card.ChangePercent = &pct
	}
	return card
}

// assign copies a loader result into dest the same way a cache hit would
func assign(dest, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

func sortChronologically(statements []*domain.Statement) {
	sort.SliceStable(statements, func(i, j int) bool {
		iy, im := statements[i].Period()
		jy, jm := statements[j].Period()
		return util.ComparePeriods(iy, im, jy, jm) < 0
	})
}
