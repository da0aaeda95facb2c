package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"

	"github.com/99minutos/ledger-system/internal/core/domain"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{domain.ErrJobNotFound, "not_found"},
		{domain.ErrSelfDeposit, "forbidden"},
		{domain.ErrInvalidAmount, "validation"},
		{fmt.Errorf("pay: %w", domain.ErrInsufficientFunds), "insufficient_funds"},
		{domain.ErrInsufficientReserve, "insufficient_reserve"},
		{fmt.Errorf("%w: %w", domain.ErrTransactionFailure, errors.New("io")), "transaction_failure"},
	}
	for _, tt := range tests {
		if got := Outcome(tt.err); got != tt.want {
			t.Errorf("Outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestObserve(t *testing.T) {
	before := counterValue(t, OperationsTotal.WithLabelValues(OpDeposit, "ok"))
	movedBefore := counterValue(t, MovedAmountTotal.WithLabelValues(OpDeposit))

	Observe(OpDeposit, "ok", time.Now(), decimal.RequireFromString("12.5"))
	Observe(OpDeposit, "insufficient_reserve", time.Now(), decimal.RequireFromString("99"))

	if got := counterValue(t, OperationsTotal.WithLabelValues(OpDeposit, "ok")); got != before+1 {
		t.Errorf("ok counter = %v, want %v", got, before+1)
	}
	if got := counterValue(t, MovedAmountTotal.WithLabelValues(OpDeposit)); got != movedBefore+12.5 {
		t.Errorf("moved = %v, want %v", got, movedBefore+12.5)
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}
