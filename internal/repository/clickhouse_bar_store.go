package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"QuantSig/internal/domain/models"
	domrepo "QuantSig/internal/domain/repository"
	pkgch "QuantSig/pkg/clickhouse"
	applogger "QuantSig/pkg/logger"
)

// barsTable holds the materialized 1m bars; coarser timeframes are rolled up
// at query time with toStartOfInterval.
const barsTable = "quantsig.rt_bars_1m"

// CHBarStore implements BarStore backed by ClickHouse.
type CHBarStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHBarStore(ch *pkgch.Client) *CHBarStore {
	return &CHBarStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHBarStore) SetLogger(l *applogger.Logger) { s.l = l }

// rollupSelect aggregates 1m rows into tf-sized bars. Column names must
// match the rt_bars_1m schema the materialized view fills.
func rollupSelect(interval string) string {
	return fmt.Sprintf(`
        SELECT toStartOfInterval(bucket, INTERVAL %s) AS b,
               symbol,
               argMin(open, bucket)  AS open,
               max(high)             AS high,
               min(low)              AS low,
               argMax(close, bucket) AS close,
               sum(volume)           AS volume
        FROM %s`, interval, barsTable)
}

func (s *CHBarStore) GetBars(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Bar, error) {
	start := time.Now()
	interval, err := intervalForTF(tf)
	if err != nil {
		return nil, err
	}
	q := rollupSelect(interval) + `
        WHERE symbol = ? AND bucket >= ? AND bucket <= ?
        GROUP BY b, symbol
        ORDER BY b ASC
    `
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_bars query error",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(tf)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 1024)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Bucket, &b.Symbol, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse get_bars ok",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHBarStore) GetLatestNBars(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Bar, error) {
	start := time.Now()
	interval, err := intervalForTF(tf)
	if err != nil {
		return nil, err
	}
	q := rollupSelect(interval) + `
        WHERE symbol = ?
        GROUP BY b, symbol
        ORDER BY b DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, symbol, n)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse latest_bars query error",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(tf)),
				applogger.Int("limit", n),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get latest bars: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.Bar, 0, n)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Bucket, &b.Symbol, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		tmp = append(tmp, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	if s.l != nil {
		s.l.Debug("clickhouse latest_bars ok",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Int("limit", n),
			applogger.Int("rows", len(tmp)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return tmp, nil
}

func intervalForTF(tf domrepo.Timeframe) (string, error) {
	switch tf {
	case domrepo.TF1m:
		return "1 minute", nil
	case domrepo.TF5m:
		return "5 minute", nil
	case domrepo.TF15m:
		return "15 minute", nil
	case domrepo.TF1h:
		return "1 hour", nil
	case domrepo.TF4h:
		return "4 hour", nil
	case domrepo.TF1d:
		return "1 day", nil
	case domrepo.TF1w:
		return "1 week", nil
	default:
		return "", fmt.Errorf("unsupported timeframe: %s", tf)
	}
}

var _ domrepo.BarStore = (*CHBarStore)(nil)
