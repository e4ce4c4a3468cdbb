package provider

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
)

// resultsTables lists the views probed for an indicator, in order, with the
// column holding its value.
var resultsTables = []struct {
	table, column string
}{
	{"v_flux_indicator_aggregates", "flux_tc"},
	{"v_flux_indicators", "flux_tc"},
	{"v_pool_indicators", "pool_tc"},
	{"v_stock_change_indicators", "flux_tc"},
}

// SQLite reads annual results from a compiled GCBM results database.
type SQLite struct {
	path   string
	db     *sql.DB
	logger *log.Logger
}

// SQLiteOption configures a SQLite provider.
type SQLiteOption func(*SQLite)

// WithSQLiteLogger sets the logger.
func WithSQLiteLogger(l *log.Logger) SQLiteOption {
	return func(s *SQLite) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSQLite opens the results database at path.
func NewSQLite(path string, opts ...SQLiteOption) (*SQLite, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "results database %s not found", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "open results database %s", path)
	}
	s := &SQLite{path: path, db: db, logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error { return s.db.Close() }

// SimulationYears implements ResultsProvider.
func (s *SQLite) SimulationYears(ctx context.Context) (int, int, error) {
	var start, end sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT MIN(year), MAX(year) FROM v_age_indicators").Scan(&start, &end)
	if err != nil {
		return 0, 0, errors.Wrap(errors.ErrCodeIO, err, "read simulation years from %s", s.path)
	}
	if !start.Valid || !end.Valid {
		return 0, 0, errors.New(errors.ErrCodeIO, "%s has no simulation years", s.path)
	}
	return int(start.Int64), int(end.Int64), nil
}

// AnnualResult implements ResultsProvider. Values are divided by the query
// units' scale.
func (s *SQLite) AnnualResult(ctx context.Context, q Query) (Series, error) {
	if q.Indicator == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no indicator given")
	}
	table, column, err := s.findIndicatorTable(ctx, q.Indicator)
	if err != nil {
		return nil, err
	}

	start, end := q.StartYear, q.EndYear
	if start == 0 || end == 0 {
		if start, end, err = s.SimulationYears(ctx); err != nil {
			return nil, err
		}
	}
	if err := errors.ValidateYearRange(start, end); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT years.year, COALESCE(SUM(i.%[2]s), 0) AS value
		FROM (SELECT DISTINCT year FROM v_age_indicators) AS years
		LEFT JOIN %[1]s i
			ON years.year = i.year AND i.indicator = ?
		WHERE years.year BETWEEN ? AND ?
		GROUP BY years.year
		ORDER BY years.year`, table, column)

	rows, err := s.db.QueryContext(ctx, query, q.Indicator, start, end)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "query %s", q.Indicator)
	}
	defer rows.Close()

	scale := q.units().Scale
	values := make(map[int]float64)
	for rows.Next() {
		var year int
		var value float64
		if err := rows.Scan(&year, &value); err != nil {
			return nil, errors.Wrap(errors.ErrCodeIO, err, "scan %s", q.Indicator)
		}
		values[year] = value / scale
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "query %s", q.Indicator)
	}

	s.logger.Debug("read annual result", "indicator", q.Indicator, "table", table, "years", len(values))
	return fill(start, end, values), nil
}

// findIndicatorTable returns the first results view that has rows for
// indicator. Views missing from the database are skipped.
func (s *SQLite) findIndicatorTable(ctx context.Context, indicator string) (string, string, error) {
	for _, t := range resultsTables {
		var one int
		err := s.db.QueryRowContext(ctx,
			fmt.Sprintf("SELECT 1 FROM %s WHERE indicator = ? LIMIT 1", t.table), indicator).Scan(&one)
		switch {
		case err == nil:
			return t.table, t.column, nil
		case err == sql.ErrNoRows:
		default:
			if ctx.Err() != nil {
				return "", "", ctx.Err()
			}
			s.logger.Debug("skipping results table", "table", t.table, "err", err)
		}
	}
	return "", "", errors.New(errors.ErrCodeNotFound, "indicator %q not found in %s", indicator, s.path)
}
