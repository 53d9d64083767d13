package datasource

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-quant/internal/logger"
	"github.com/rxtech-lab/argo-quant/internal/types"
	"github.com/rxtech-lab/argo-quant/pkg/errors"
	"go.uber.org/zap"
)

// DuckDBSource reads candle data out of Parquet or CSV files through an
// in-process DuckDB instance. Files must carry time, symbol, open, high,
// low, close, and volume columns.
type DuckDBSource struct {
	db  *sql.DB
	log *logger.Logger
	sq  squirrel.StatementBuilderType
}

// NewDuckDBSource opens an in-memory DuckDB instance over the given data
// file. Glob patterns are accepted, so a directory of yearly files loads as
// one series.
func NewDuckDBSource(dataPath string, log *logger.Logger) (*DuckDBSource, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open DuckDB", err)
	}

	source := &DuckDBSource{
		db:  db,
		log: log,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}

	if err := source.createView(dataPath); err != nil {
		db.Close()

		return nil, err
	}

	return source, nil
}

// createView materializes the data file as a candles view. CREATE VIEW has
// no builder support, so this stays raw SQL.
func (d *DuckDBSource) createView(dataPath string) error {
	d.log.Debug("initializing DuckDB candle view", zap.String("path", dataPath))

	reader := "read_parquet"
	if strings.HasSuffix(strings.ToLower(dataPath), ".csv") {
		reader = "read_csv_auto"
	}

	query := fmt.Sprintf(`
		CREATE OR REPLACE VIEW candles AS
		SELECT * FROM %s('%s');
	`, reader, strings.ReplaceAll(dataPath, "'", "''"))

	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err,
			"failed to load candle data from %s", dataPath)
	}

	return nil
}

// LoadCandles implements CandleSource.
func (d *DuckDBSource) LoadCandles(symbol string, start, end optional.Option[time.Time]) ([]types.Candle, error) {
	query := d.sq.
		Select("time", "open", "high", "low", "close", "volume").
		From("candles").
		OrderBy("time ASC")

	query = d.applyFilters(query, symbol, start, end)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build candle query", err)
	}

	rows, err := d.db.Query(sqlStr, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "candle query failed", err)
	}
	defer rows.Close()

	var candles []types.Candle

	for rows.Next() {
		var c types.Candle
		if err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan candle row", err)
		}

		c.Time = c.Time.UTC()
		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "candle row iteration failed", err)
	}

	if len(candles) == 0 {
		return nil, errors.Newf(errors.ErrCodeNoDataFound, "no candles found for symbol %q", symbol)
	}

	return candles, nil
}

// Count implements CandleSource.
func (d *DuckDBSource) Count(symbol string, start, end optional.Option[time.Time]) (int, error) {
	query := d.sq.Select("COUNT(*)").From("candles")
	query = d.applyFilters(query, symbol, start, end)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build count query", err)
	}

	var count int
	if err := d.db.QueryRow(sqlStr, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "count query failed", err)
	}

	return count, nil
}

// Close implements CandleSource.
func (d *DuckDBSource) Close() error {
	return d.db.Close()
}

func (d *DuckDBSource) applyFilters(query squirrel.SelectBuilder, symbol string, start, end optional.Option[time.Time]) squirrel.SelectBuilder {
	if symbol != "" {
		query = query.Where(squirrel.Eq{"symbol": symbol})
	}

	if start.IsSome() {
		query = query.Where(squirrel.GtOrEq{"time": start.Unwrap()})
	}

	if end.IsSome() {
		query = query.Where(squirrel.Lt{"time": end.Unwrap()})
	}

	return query
}
