package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/ledger-system/internal/core/ports"
)

// ContractHandler serves the read-only contract and job listings.
type ContractHandler struct {
	service ports.ContractService
}

func NewContractHandler(service ports.ContractService) *ContractHandler {
	return &ContractHandler{service: service}
}

// Get handles GET /contracts/:id.
//
// @Summary      Get a contract the caller is party to
// @Tags         contracts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Contract id"
// @Success      200  {object}  contractResponse
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /contracts/{id} [get]
func (h *ContractHandler) Get(c echo.Context) error {
	caller, err := ctxProfile(c)
	if err != nil {
		return err
	}

	contract, err := h.service.GetContract(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toContractResponse(contract))
}

// List handles GET /contracts.
//
// @Summary      List the caller's contracts
// @Tags         contracts
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   contractResponse
// @Failure      401  {object}  map[string]string
// @Router       /contracts [get]
func (h *ContractHandler) List(c echo.Context) error {
	caller, err := ctxProfile(c)
	if err != nil {
		return err
	}

	contracts, err := h.service.ListContracts(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toContractResponses(contracts))
}

// UnpaidJobs handles GET /jobs/unpaid.
//
// @Summary      List unpaid jobs on the caller's active contracts
// @Tags         jobs
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   jobResponse
// @Failure      401  {object}  map[string]string
// @Router       /jobs/unpaid [get]
func (h *ContractHandler) UnpaidJobs(c echo.Context) error {
	caller, err := ctxProfile(c)
	if err != nil {
		return err
	}

	jobs, err := h.service.ListUnpaidJobs(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toJobResponses(jobs))
}

// ContractsWithUnpaidJobs handles GET /jobs.
//
// @Summary      List the caller's contracts that have unpaid jobs
// @Tags         jobs
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   contractJobsResponse
// @Failure      401  {object}  map[string]string
// @Router       /jobs [get]
func (h *ContractHandler) ContractsWithUnpaidJobs(c echo.Context) error {
	caller, err := ctxProfile(c)
	if err != nil {
		return err
	}

	items, err := h.service.ListContractsWithUnpaidJobs(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toContractJobsResponses(items))
}
