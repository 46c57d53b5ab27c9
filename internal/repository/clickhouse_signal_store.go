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

// signalsTable is a ReplacingMergeTree keyed by signal id; status updates
// re-insert the row with a newer version.
const signalsTable = "quantsig.signals"

// CHSignalStore implements SignalStore backed by ClickHouse.
type CHSignalStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHSignalStore(ch *pkgch.Client) *CHSignalStore {
	return &CHSignalStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHSignalStore) SetLogger(l *applogger.Logger) { s.l = l }

const signalColumns = `id, symbol, timeframe, direction, confidence, entry_price, target_price,
    stop_price, risk_reward, expected_return_pct, rationale, created_at, expires_at, status,
    quick_win_rate, quick_trades, version`

func (s *CHSignalStore) Save(ctx context.Context, sig *models.Signal) error {
	return s.insert(ctx, sig, uint64(time.Now().UnixNano()))
}

// UpdateStatus re-inserts the signal row with a newer ReplacingMergeTree
// version carrying the current status.
func (s *CHSignalStore) UpdateStatus(ctx context.Context, sig *models.Signal) error {
	return s.insert(ctx, sig, uint64(time.Now().UnixNano()))
}

func (s *CHSignalStore) insert(ctx context.Context, sig *models.Signal, version uint64) error {
	start := time.Now()
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", signalsTable, signalColumns)
	_, err := s.db.ExecContext(ctx, q,
		sig.ID, sig.Symbol, sig.Timeframe, string(sig.Direction), sig.Confidence,
		sig.EntryPrice, sig.TargetPrice, sig.StopPrice, sig.RiskRewardRatio,
		sig.ExpectedReturnPct, sig.Rationale, sig.CreatedAt, sig.ExpiresAt,
		string(sig.Status), sig.QuickWinRate, int32(sig.QuickTrades), version,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse signal insert error",
				applogger.String("signal_id", sig.ID),
				applogger.String("symbol", sig.Symbol),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("save signal: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse signal saved",
			applogger.String("signal_id", sig.ID),
			applogger.String("status", string(sig.Status)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// FindRecent returns the newest signal for symbol+timeframe, or nil when
// none exists.
func (s *CHSignalStore) FindRecent(ctx context.Context, symbol string, tf domrepo.Timeframe) (*models.Signal, error) {
	q := fmt.Sprintf(`
        SELECT %s FROM %s FINAL
        WHERE symbol = ? AND timeframe = ?
        ORDER BY created_at DESC
        LIMIT 1
    `, selectColumns, signalsTable)
	row := s.db.QueryRowContext(ctx, q, symbol, string(tf))
	sig, err := scanSignal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find recent signal: %w", err)
	}
	return sig, nil
}

func (s *CHSignalStore) ListActive(ctx context.Context, symbol string, limit int) ([]models.Signal, error) {
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf(`
        SELECT %s FROM %s FINAL
        WHERE status = 'generated' AND (? = '' OR symbol = ?)
        ORDER BY created_at DESC
        LIMIT ?
    `, selectColumns, signalsTable)
	rows, err := s.db.QueryContext(ctx, q, symbol, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("list active signals: %w", err)
	}
	defer rows.Close()
	return collectSignals(rows)
}

// ListExpirable returns generated signals whose expiry has passed.
func (s *CHSignalStore) ListExpirable(ctx context.Context, asOf time.Time, limit int) ([]models.Signal, error) {
	if limit <= 0 {
		limit = 500
	}
	q := fmt.Sprintf(`
        SELECT %s FROM %s FINAL
        WHERE status = 'generated' AND expires_at < ?
        ORDER BY expires_at ASC
        LIMIT ?
    `, selectColumns, signalsTable)
	rows, err := s.db.QueryContext(ctx, q, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("list expirable signals: %w", err)
	}
	defer rows.Close()
	return collectSignals(rows)
}

func (s *CHSignalStore) Stats(ctx context.Context, symbol string) (*models.SignalStats, error) {
	q := fmt.Sprintf(`
        SELECT count(),
               countIf(status = 'generated'),
               countIf(status = 'executed'),
               countIf(status = 'cancelled'),
               countIf(status = 'expired'),
               avg(confidence)
        FROM %s FINAL
        WHERE ? = '' OR symbol = ?
    `, signalsTable)
	var st models.SignalStats
	st.Symbol = symbol
	var avgConf sql.NullFloat64
	err := s.db.QueryRowContext(ctx, q, symbol, symbol).Scan(
		&st.Total, &st.Generated, &st.Executed, &st.Cancelled, &st.Expired, &avgConf,
	)
	if err != nil {
		return nil, fmt.Errorf("signal stats: %w", err)
	}
	if avgConf.Valid {
		st.AvgConf = avgConf.Float64
	}
	return &st, nil
}

const selectColumns = `id, symbol, timeframe, direction, confidence, entry_price, target_price,
    stop_price, risk_reward, expected_return_pct, rationale, created_at, expires_at, status,
    quick_win_rate, quick_trades`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSignal(r rowScanner) (*models.Signal, error) {
	var sig models.Signal
	var dir, status string
	var quickTrades int32
	if err := r.Scan(
		&sig.ID, &sig.Symbol, &sig.Timeframe, &dir, &sig.Confidence,
		&sig.EntryPrice, &sig.TargetPrice, &sig.StopPrice, &sig.RiskRewardRatio,
		&sig.ExpectedReturnPct, &sig.Rationale, &sig.CreatedAt, &sig.ExpiresAt,
		&status, &sig.QuickWinRate, &quickTrades,
	); err != nil {
		return nil, err
	}
	sig.Direction = models.Direction(dir)
	sig.Status = models.SignalStatus(status)
	sig.QuickTrades = int(quickTrades)
	return &sig, nil
}

func collectSignals(rows *sql.Rows) ([]models.Signal, error) {
	out := make([]models.Signal, 0, 64)
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		out = append(out, *sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

var _ domrepo.SignalStore = (*CHSignalStore)(nil)
