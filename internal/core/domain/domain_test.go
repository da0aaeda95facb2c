package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseRole(t *testing.T) {
	for _, raw := range []string{"client", "contractor"} {
		r, err := ParseRole(raw)
		if err != nil {
			t.Fatalf("ParseRole(%q): %v", raw, err)
		}
		if string(r) != raw {
			t.Errorf("ParseRole(%q) = %q", raw, r)
		}
	}

	if _, err := ParseRole("admin"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for unknown role, got %v", err)
	}
}

func TestJob_MarkPaid_OneWay(t *testing.T) {
	j := &Job{ID: "j1", Price: decimal.NewFromInt(10)}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := j.MarkPaid(now); err != nil {
		t.Fatalf("first MarkPaid: %v", err)
	}
	if !j.Paid || j.PaidAt == nil || !j.PaidAt.Equal(now) {
		t.Fatalf("job not marked paid: %+v", j)
	}
	if err := j.MarkPaid(now.Add(time.Hour)); !errors.Is(err, ErrJobAlreadyPaid) {
		t.Fatalf("expected ErrJobAlreadyPaid, got %v", err)
	}
	if !j.PaidAt.Equal(now) {
		t.Error("second MarkPaid must not move PaidAt")
	}
}

func TestValidateAmount(t *testing.T) {
	cases := []struct {
		amount string
		ok     bool
	}{
		{"10", true},
		{"0.01", true},
		{"12.50", true},
		{"0", false},
		{"-5", false},
		{"1.005", false},
	}
	for _, tc := range cases {
		err := ValidateAmount(decimal.RequireFromString(tc.amount))
		if tc.ok && err != nil {
			t.Errorf("ValidateAmount(%s): unexpected error %v", tc.amount, err)
		}
		if !tc.ok && !errors.Is(err, ErrValidation) {
			t.Errorf("ValidateAmount(%s): expected ErrValidation, got %v", tc.amount, err)
		}
	}
}

func TestErrorTaxonomy(t *testing.T) {
	if !errors.Is(ErrJobNotFound, ErrNotFound) {
		t.Error("ErrJobNotFound must match ErrNotFound")
	}
	if !errors.Is(ErrSelfDeposit, ErrForbidden) {
		t.Error("ErrSelfDeposit must match ErrForbidden")
	}
	if !errors.Is(ErrTargetNotClient, ErrValidation) {
		t.Error("ErrTargetNotClient must match ErrValidation")
	}
}
