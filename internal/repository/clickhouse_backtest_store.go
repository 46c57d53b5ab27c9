package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"QuantSig/internal/domain/models"
	domrepo "QuantSig/internal/domain/repository"
	pkgch "QuantSig/pkg/clickhouse"
	applogger "QuantSig/pkg/logger"
)

const backtestsTable = "quantsig.backtest_results"

// CHBacktestStore persists backtest summaries. The trade ledger and metric
// set are stored as JSON columns; the equity curve is summarized, not
// persisted point-by-point.
type CHBacktestStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHBacktestStore(ch *pkgch.Client) *CHBacktestStore {
	return &CHBacktestStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHBacktestStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHBacktestStore) Save(ctx context.Context, r *models.BacktestResult) error {
	start := time.Now()
	trades, err := json.Marshal(r.Trades)
	if err != nil {
		return fmt.Errorf("marshal trades: %w", err)
	}
	metrics, err := json.Marshal(r.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	q := fmt.Sprintf(`INSERT INTO %s
        (id, symbol, strategy, timeframe, start, end, initial_capital, final_capital,
         total_trades, total_return_pct, sharpe, max_drawdown_pct, trades_json, metrics_json, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, backtestsTable)
	_, err = s.db.ExecContext(ctx, q,
		r.ID, r.Symbol, r.Strategy, r.Timeframe, r.Start, r.End,
		r.InitialCapital, r.FinalCapital, int32(len(r.Trades)),
		r.Metrics.TotalReturnPct, r.Metrics.SharpeRatio, r.Metrics.MaxDrawdownPct,
		string(trades), string(metrics), time.Now().UTC(),
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse backtest insert error",
				applogger.String("id", r.ID),
				applogger.String("symbol", r.Symbol),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("save backtest result: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse backtest saved",
			applogger.String("id", r.ID),
			applogger.Int("trades", len(r.Trades)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

var _ domrepo.BacktestStore = (*CHBacktestStore)(nil)
