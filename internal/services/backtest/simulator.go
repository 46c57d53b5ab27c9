package backtest

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"QuantSig/internal/domain/models"
	"QuantSig/internal/services/features"
)

// SignalFunc decides whether to open a position at bar i. It is only
// consulted while the simulator is flat. The bars slice is the full run;
// implementations must only look at bars[:i+1].
type SignalFunc func(ctx context.Context, i int, bars []models.Bar) (models.Direction, bool)

// Simulator replays bars through a deterministic single-position long/short
// trading model. It is pure over its inputs and safe to run in parallel.
type Simulator struct {
	cfg Config
}

func NewSimulator(cfg Config) *Simulator {
	return &Simulator{cfg: cfg.WithDefaults()}
}

type position struct {
	side       models.TradeSide
	entryIdx   int
	entryTime  time.Time
	entryPrice float64
	quantity   float64
	stop       float64
	target     float64
	maxFav     float64
	maxAdv     float64
}

// Run simulates the bar sequence. Input must be strictly timestamp-ascending
// with valid OHLC bars; violations fail the run rather than being reordered.
func (s *Simulator) Run(ctx context.Context, symbol string, bars []models.Bar, barDur time.Duration, signal SignalFunc) (*models.BacktestResult, error) {
	if err := models.ValidateBarSeries(bars); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: empty bar series", models.ErrInsufficientData)
	}

	maxHoldingBars := int(s.cfg.MaxHolding / barDur)
	if maxHoldingBars < 1 {
		maxHoldingBars = 1
	}

	capital := s.cfg.InitialCapital
	var pos *position
	trades := make([]models.BacktestTrade, 0, 16)
	curve := make([]models.EquityPoint, 0, len(bars))

	for i, bar := range bars {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if pos != nil {
			s.trackExcursion(pos, bar)
			if reason, price, hit := s.checkExit(pos, bar, i, maxHoldingBars, i == len(bars)-1); hit {
				capital = s.close(&trades, pos, bar, price, reason, capital, i)
				pos = nil
			}
		} else if signal != nil {
			if dir, fire := signal(ctx, i, bars); fire && i < len(bars)-1 {
				pos = s.open(dir, i, bars, capital)
			}
		}

		curve = append(curve, models.EquityPoint{Time: bar.Bucket, Equity: s.markToMarket(capital, pos, bar)})
	}

	res := &models.BacktestResult{
		ID:             uuid.NewString(),
		Symbol:         symbol,
		Start:          bars[0].Bucket,
		End:            bars[len(bars)-1].Bucket,
		InitialCapital: s.cfg.InitialCapital,
		FinalCapital:   capital,
		Trades:         trades,
		EquityCurve:    curve,
	}
	res.Metrics = Analyze(res.InitialCapital, res.FinalCapital, trades, curve, s.cfg.RiskFreeRate)
	return res, nil
}

func (s *Simulator) open(dir models.Direction, i int, bars []models.Bar, capital float64) *position {
	bar := bars[i]
	side := models.SideLong
	if dir == models.DirectionSell || dir == models.DirectionStrongSell {
		side = models.SideShort
	}

	entry := bar.Close * (1 + s.cfg.SlippageRate)
	if side == models.SideShort {
		entry = bar.Close * (1 - s.cfg.SlippageRate)
	}
	if entry <= 0 {
		return nil
	}

	qty := s.sizePosition(entry, i, bars, capital)
	if qty < 1 {
		return nil
	}

	stopDist, targetDist := s.stopDistances(i, bars, entry)
	stop, target := entry-stopDist, entry+targetDist
	if side == models.SideShort {
		stop, target = entry+stopDist, entry-targetDist
	}

	return &position{
		side:       side,
		entryIdx:   i,
		entryTime:  bar.Bucket,
		entryPrice: entry,
		quantity:   qty,
		stop:       stop,
		target:     target,
	}
}

func (s *Simulator) sizePosition(entry float64, i int, bars []models.Bar, capital float64) float64 {
	pct := s.cfg.MaxPositionSizePct
	if s.cfg.Mode == ModeComprehensive {
		vol := features.Volatility20(features.Closes(bars[:i+1]))
		if vol < 0.01 {
			vol = 0.01
		}
		pct = s.cfg.RiskPerTrade / vol
		if pct > s.cfg.MaxPositionSizePct {
			pct = s.cfg.MaxPositionSizePct
		}
	}
	return math.Floor(capital * pct / entry)
}

func (s *Simulator) stopDistances(i int, bars []models.Bar, entry float64) (stop, target float64) {
	if s.cfg.Mode == ModeComprehensive {
		if atr := features.ATR(bars[:i+1], 14); atr > 0 {
			return 1.5 * atr, 2.5 * atr
		}
	}
	rng := bars[i].High - bars[i].Low
	if rng <= 0 {
		rng = entry * 0.01
	}
	return rng, 2 * rng
}

func (s *Simulator) trackExcursion(pos *position, bar models.Bar) {
	var fav, adv float64
	if pos.side == models.SideLong {
		fav = (bar.High - pos.entryPrice) / pos.entryPrice
		adv = (bar.Low - pos.entryPrice) / pos.entryPrice
	} else {
		fav = (pos.entryPrice - bar.Low) / pos.entryPrice
		adv = (pos.entryPrice - bar.High) / pos.entryPrice
	}
	if fav > pos.maxFav {
		pos.maxFav = fav
	}
	if adv < pos.maxAdv {
		pos.maxAdv = adv
	}
}

// checkExit applies the fixed exit priority: stop-loss, take-profit,
// timeout, end-of-data. First match wins.
func (s *Simulator) checkExit(pos *position, bar models.Bar, i, maxHoldingBars int, lastBar bool) (models.ExitReason, float64, bool) {
	if pos.side == models.SideLong {
		if bar.Low <= pos.stop {
			return models.ExitStopLoss, pos.stop, true
		}
		if bar.High >= pos.target {
			return models.ExitTakeProfit, pos.target, true
		}
	} else {
		if bar.High >= pos.stop {
			return models.ExitStopLoss, pos.stop, true
		}
		if bar.Low <= pos.target {
			return models.ExitTakeProfit, pos.target, true
		}
	}
	if i-pos.entryIdx >= maxHoldingBars {
		return models.ExitTimeout, bar.Close, true
	}
	if lastBar {
		return models.ExitEndOfData, bar.Close, true
	}
	return "", 0, false
}

func (s *Simulator) close(trades *[]models.BacktestTrade, pos *position, bar models.Bar, rawExit float64, reason models.ExitReason, capital float64, i int) float64 {
	exit := rawExit * (1 - s.cfg.SlippageRate)
	if pos.side == models.SideShort {
		exit = rawExit * (1 + s.cfg.SlippageRate)
	}

	gross := (exit - pos.entryPrice) * pos.quantity
	if pos.side == models.SideShort {
		gross = (pos.entryPrice - exit) * pos.quantity
	}
	commission := s.cfg.CommissionRate * pos.quantity * (pos.entryPrice + exit)
	pnl := gross - commission

	notional := pos.entryPrice * pos.quantity
	t := models.BacktestTrade{
		ID:           uuid.NewString(),
		Symbol:       bar.Symbol,
		Side:         pos.side,
		EntryTime:    pos.entryTime,
		ExitTime:     bar.Bucket,
		EntryPrice:   pos.entryPrice,
		ExitPrice:    exit,
		Quantity:     pos.quantity,
		PnL:          pnl,
		HoldingBars:  i - pos.entryIdx,
		ExitReason:   reason,
		MaxFavorable: pos.maxFav * 100,
		MaxAdverse:   pos.maxAdv * 100,
	}
	if notional > 0 {
		t.PnLPct = pnl / notional * 100
	}
	*trades = append(*trades, t)
	return capital + pnl
}

func (s *Simulator) markToMarket(capital float64, pos *position, bar models.Bar) float64 {
	if pos == nil {
		return capital
	}
	if pos.side == models.SideLong {
		return capital + (bar.Close-pos.entryPrice)*pos.quantity
	}
	return capital + (pos.entryPrice-bar.Close)*pos.quantity
}
