package service

import (
	"context"
	"errors"
	"testing"

	"github.com/99minutos/ledger-system/internal/core/domain"
)

func TestContractService_GetContract(t *testing.T) {
	store := seedExposure()
	svc := NewContractService(store, discardLogger)
	ctx := context.Background()

	c, err := svc.GetContract(ctx, store.profile("k1"), "running")
	if err != nil {
		t.Fatalf("contractor party: %v", err)
	}
	if c.ID != "running" {
		t.Errorf("got contract %s", c.ID)
	}

	if _, err := svc.GetContract(ctx, store.profile("c2"), "running"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("non-party: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.GetContract(ctx, store.profile("c1"), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.GetContract(ctx, nil, "running"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("nil caller: expected ErrForbidden, got %v", err)
	}
}

func TestContractService_ListContracts(t *testing.T) {
	store := seedExposure()
	svc := NewContractService(store, discardLogger)
	ctx := context.Background()

	client, err := svc.ListContracts(ctx, store.profile("c1"))
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if len(client) != 3 {
		t.Errorf("client contracts = %d, want 3", len(client))
	}

	contractor, err := svc.ListContracts(ctx, store.profile("k1"))
	if err != nil {
		t.Fatalf("contractor: %v", err)
	}
	if len(contractor) != 4 {
		t.Errorf("contractor contracts = %d, want 4", len(contractor))
	}
}

func TestContractService_ListUnpaidJobs(t *testing.T) {
	store := seedExposure()
	svc := NewContractService(store, discardLogger)

	jobs, err := svc.ListUnpaidJobs(context.Background(), store.profile("c1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := map[string]bool{}
	for _, j := range jobs {
		got[j.ID] = true
	}
	if len(got) != 2 || !got["j1"] || !got["j2"] {
		t.Errorf("expected j1 and j2 from active contracts, got %v", got)
	}
}

func TestContractService_ListContractsWithUnpaidJobs(t *testing.T) {
	store := seedExposure()
	store.addContract("settled", "c1", "k1", domain.ContractTerminated)
	store.addJob("j6", "settled", "3", true)
	svc := NewContractService(store, discardLogger)
	ctx := context.Background()

	items, err := svc.ListContractsWithUnpaidJobs(ctx, store.profile("c1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := map[string][]string{}
	for _, it := range items {
		for _, j := range it.Jobs {
			if j.ContractID != it.Contract.ID {
				t.Errorf("job %s grouped under contract %s", j.ID, it.Contract.ID)
			}
			got[it.Contract.ID] = append(got[it.Contract.ID], j.ID)
		}
	}
	if len(items) != 3 || len(got["new"]) != 1 || len(got["running"]) != 1 || len(got["done"]) != 1 {
		t.Errorf("expected new, running and done with one unpaid job each, got %v", got)
	}
	if _, ok := got["settled"]; ok {
		t.Error("contract without unpaid jobs must be left out")
	}
	if _, ok := got["other"]; ok {
		t.Error("another client's contract must not be listed")
	}

	none, err := svc.ListContractsWithUnpaidJobs(ctx, store.profile("c2"))
	if err != nil {
		t.Fatalf("c2: %v", err)
	}
	if len(none) != 1 || none[0].Contract.ID != "other" {
		t.Errorf("c2 contracts = %+v, want only other", none)
	}

	if _, err := svc.ListContractsWithUnpaidJobs(ctx, nil); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("nil caller: expected ErrForbidden, got %v", err)
	}
}
