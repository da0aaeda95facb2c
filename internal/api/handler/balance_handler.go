package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/99minutos/ledger-system/internal/api/metrics"
	"github.com/99minutos/ledger-system/internal/core/ports"
)

// HeaderIdempotentReplay is set on responses served from the replay cache.
const HeaderIdempotentReplay = "Idempotent-Replay"

// BalanceHandler handles HTTP requests for money-moving operations.
type BalanceHandler struct {
	service ports.BalanceService
}

func NewBalanceHandler(service ports.BalanceService) *BalanceHandler {
	return &BalanceHandler{service: service}
}

// PayJob handles POST /jobs/:job_id/pay.
//
// @Summary      Pay a job
// @Description  Moves the job price from the calling client to the contractor and marks the job paid. Paying a paid job returns it unchanged.
// @Tags         jobs
// @Produce      json
// @Security     BearerAuth
// @Param        job_id  path      string  true  "Job id"
// @Success      200     {object}  jobResponse
// @Failure      401     {object}  map[string]string
// @Failure      403     {object}  map[string]string
// @Failure      404     {object}  map[string]string
// @Failure      409     {object}  map[string]string
// @Failure      500     {object}  map[string]string
// @Router       /jobs/{job_id}/pay [post]
func (h *BalanceHandler) PayJob(c echo.Context) error {
	caller, err := ctxProfile(c)
	if err != nil {
		return err
	}

	started := time.Now()
	job, err := h.service.PayJob(c.Request().Context(), caller, c.Param("job_id"))
	if err != nil {
		metrics.Observe(metrics.OpPayJob, metrics.Outcome(err), started, decimal.Zero)
		return err
	}
	metrics.Observe(metrics.OpPayJob, metrics.Outcome(nil), started, job.Price)

	return c.JSON(http.StatusOK, toJobResponse(job))
}

// Deposit handles POST /balances/deposit/:userId.
//
// @Summary      Deposit into another client's balance
// @Description  Transfers from the calling client to userId. The amount may not exceed 25% of the caller's unpaid exposure and the caller must keep that reserve.
// @Tags         balances
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        userId           path      string          true   "Target client id"
// @Param        Idempotency-Key  header    string          false  "Replays the first result for a repeated key"
// @Param        body             body      depositRequest  true   "Amount to transfer"
// @Success      200              {object}  depositResponse
// @Failure      400              {object}  map[string]string
// @Failure      401              {object}  map[string]string
// @Failure      403              {object}  map[string]string
// @Failure      409              {object}  map[string]string
// @Failure      422              {object}  map[string]string
// @Failure      500              {object}  map[string]string
// @Router       /balances/deposit/{userId} [post]
func (h *BalanceHandler) Deposit(c echo.Context) error {
	caller, err := ctxProfile(c)
	if err != nil {
		return err
	}

	var req depositRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	amount, err := req.amount()
	if err != nil {
		return err
	}

	started := time.Now()
	result, err := h.service.Deposit(c.Request().Context(), ports.DepositInput{
		Caller:         caller,
		TargetID:       c.Param("userId"),
		Amount:         amount,
		IdempotencyKey: c.Request().Header.Get("Idempotency-Key"),
	})
	if err != nil {
		metrics.Observe(metrics.OpDeposit, metrics.Outcome(err), started, decimal.Zero)
		return err
	}

	if result.Replayed {
		metrics.Observe(metrics.OpDeposit, "replayed", started, decimal.Zero)
		c.Response().Header().Set(HeaderIdempotentReplay, "true")
	} else {
		metrics.Observe(metrics.OpDeposit, metrics.Outcome(nil), started, amount)
	}

	return c.JSON(http.StatusOK, toDepositResponse(result))
}
