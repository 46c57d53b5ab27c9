package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	models "QuantSig/internal/domain/models"
	domrepo "QuantSig/internal/domain/repository"
	icache "QuantSig/internal/service/cache"
	"QuantSig/internal/service/metrics"
	"QuantSig/internal/service/ratelimit"
	"QuantSig/internal/usecase"
	xhttp "QuantSig/pkg/http"
	xlogger "QuantSig/pkg/logger"
)

// SignalsEchoHandler exposes the engine operations over Echo following Clean
// Architecture. Read endpoints are rate limited and cached; mutation
// endpoints hit the usecases directly.
type SignalsEchoHandler struct {
	logger    *xlogger.Logger
	engine    *usecase.SignalEngine
	backtests *usecase.BacktestUseCase
	models    *usecase.ModelUseCase
	lifecycle *usecase.LifecycleUseCase
	bars      *usecase.BarsUseCase

	cache icache.BytesCache
	rl    *ratelimit.Limiter
}

func NewSignalsEchoHandler(
	logger *xlogger.Logger,
	engine *usecase.SignalEngine,
	backtests *usecase.BacktestUseCase,
	modelsUC *usecase.ModelUseCase,
	lifecycle *usecase.LifecycleUseCase,
	bars *usecase.BarsUseCase,
) *SignalsEchoHandler {
	metrics.Register()
	return &SignalsEchoHandler{
		logger:    logger,
		engine:    engine,
		backtests: backtests,
		models:    modelsUC,
		lifecycle: lifecycle,
		bars:      bars,
		rl:        ratelimit.New(),
	}
}

// SetCache injects the read-endpoint byte cache.
func (h *SignalsEchoHandler) SetCache(c icache.BytesCache) { h.cache = c }

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.POST("/signal", h.GenerateSignal)
	g.GET("/backtest/quick", h.QuickBacktest)
	g.POST("/backtest/full", h.FullBacktest)
	g.GET("/model", h.ModelInfo)
	g.POST("/model/retrain", h.Retrain)
	g.GET("/signals/active", h.ActiveSignals)
	g.GET("/stats", h.Stats)
	g.GET("/bars", h.Bars)
}

func (h *SignalsEchoHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *SignalsEchoHandler) GenerateSignal(c echo.Context) error {
	req := &models.GenerateSignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.engine.GenerateSignal(c.Request().Context(), req.Symbol, domrepo.Timeframe(req.Timeframe))
	if err != nil {
		h.logger.Error("generate signal error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, engineError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) QuickBacktest(c echo.Context) error {
	req := &models.QuickBacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":bt_quick", 5, 2) {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limited"})
	}

	res, err := h.backtests.QuickDirectional(
		c.Request().Context(),
		req.Symbol,
		domrepo.Timeframe(req.Timeframe),
		models.Direction(req.Direction),
		time.Duration(req.LookbackDays)*24*time.Hour,
	)
	if err != nil {
		h.logger.Error("quick backtest error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, engineError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) FullBacktest(c echo.Context) error {
	req := &models.FullBacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, err := parseDay(req.Start)
	if err != nil {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestErrorf("start: %v", err))
	}
	to, err := parseDay(req.End)
	if err != nil {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestErrorf("end: %v", err))
	}

	res, err := h.backtests.RunFullBacktest(c.Request().Context(), usecase.BacktestParams{
		Symbol:             req.Symbol,
		Strategy:           req.Strategy,
		Timeframe:          domrepo.Timeframe(req.Timeframe),
		From:               from,
		To:                 to,
		InitialCapital:     req.InitialCapital,
		MaxPositionSizePct: req.MaxPositionPct,
		RiskPerTrade:       req.RiskPerTrade,
	})
	if err != nil {
		h.logger.Error("full backtest error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, engineError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) ModelInfo(c echo.Context) error {
	req := &models.ModelInfoRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	info, err := h.models.GetModelInfo(c.Request().Context(), req.Symbol)
	if err != nil {
		return xhttp.AppErrorResponse(c, engineError(err))
	}
	return xhttp.SuccessResponse(c, info)
}

func (h *SignalsEchoHandler) Retrain(c echo.Context) error {
	req := &models.RetrainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":retrain", 2, 0.2) {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limited"})
	}

	v, err := h.models.ForceRetrain(c.Request().Context(), req.Symbol)
	if err != nil {
		h.logger.Error("retrain error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, engineError(err))
	}
	return xhttp.SuccessResponse(c, v)
}

func (h *SignalsEchoHandler) ActiveSignals(c echo.Context) error {
	req := &models.ActiveSignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":active", 10, 5) {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limited"})
	}

	cacheKey := "active:" + req.Symbol
	if b, ok := h.cacheGet(cacheKey); ok {
		return xhttp.SuccessResponse(c, json.RawMessage(b))
	}
	sigs, err := h.lifecycle.ListActive(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		h.logger.Error("active signals error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, engineError(err))
	}
	return h.cachedSuccess(c, cacheKey, sigs, 10*time.Second)
}

func (h *SignalsEchoHandler) Stats(c echo.Context) error {
	req := &models.SignalStatsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":stats", 10, 5) {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limited"})
	}

	cacheKey := "stats:" + req.Symbol
	if b, ok := h.cacheGet(cacheKey); ok {
		return xhttp.SuccessResponse(c, json.RawMessage(b))
	}
	st, err := h.lifecycle.Stats(c.Request().Context(), req.Symbol)
	if err != nil {
		h.logger.Error("signal stats error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, engineError(err))
	}
	return h.cachedSuccess(c, cacheKey, st, 30*time.Second)
}

func (h *SignalsEchoHandler) Bars(c echo.Context) error {
	req := &models.GetBarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.bars.GetLatestBars(c.Request().Context(), req.Symbol, req.N, domrepo.Timeframe(req.Timeframe))
	if err != nil {
		h.logger.Error("bars error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, engineError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) cacheGet(key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	b, ok, err := h.cache.GetBytes(key)
	if err != nil {
		h.logger.Warn("cache get error", xlogger.String("key", key), xlogger.Error(err))
		return nil, false
	}
	return b, ok
}

// cachedSuccess responds with the success envelope and stores the raw body
// for subsequent cache hits.
func (h *SignalsEchoHandler) cachedSuccess(c echo.Context, key string, data interface{}, ttl time.Duration) error {
	if h.cache != nil {
		if b, err := json.Marshal(data); err == nil {
			if err := h.cache.SetBytes(key, b, ttl); err != nil {
				h.logger.Warn("cache set error", xlogger.String("key", key), xlogger.Error(err))
			}
		}
	}
	return xhttp.SuccessResponse(c, data)
}

// engineError maps domain sentinels onto transport errors.
func engineError(err error) error {
	switch {
	case errors.Is(err, models.ErrInsufficientData):
		return xhttp.NewAppError("ERR_INSUFFICIENT_DATA", "", err.Error(), http.StatusUnprocessableEntity).WithError(err)
	case errors.Is(err, models.ErrModelUnavailable):
		return xhttp.NewAppError("ERR_MODEL_UNAVAILABLE", "", err.Error(), http.StatusServiceUnavailable).WithError(err)
	case errors.Is(err, models.ErrInvalidBarSequence):
		return xhttp.NewAppError("ERR_INVALID_BAR_SEQUENCE", "", err.Error(), http.StatusUnprocessableEntity).WithError(err)
	case errors.Is(err, models.ErrEvaluatorTimeout):
		return xhttp.NewAppError("ERR_EVALUATOR_TIMEOUT", "", err.Error(), http.StatusGatewayTimeout).WithError(err)
	default:
		return err
	}
}

// parseDay accepts RFC3339 timestamps, unix seconds, or bare dates.
func parseDay(s string) (time.Time, error) {
	if t, ok := xhttp.ParseTime(s); ok {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
