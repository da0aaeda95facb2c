package commands

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/99minutos/ledger-system/internal/api/middleware"
	"github.com/99minutos/ledger-system/internal/core/domain"
)

func seedCmd() *cobra.Command {
	var tokenTTL time.Duration

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a demo marketplace and print bearer tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, closeStore, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore(ctx)

			fx := newFixtures(time.Now().UTC())
			for _, p := range fx.profiles {
				if err := store.CreateProfile(ctx, p); err != nil {
					return fmt.Errorf("seed profile %s: %w", p.FirstName, err)
				}
			}
			for _, c := range fx.contracts {
				if err := store.CreateContract(ctx, c); err != nil {
					return fmt.Errorf("seed contract: %w", err)
				}
			}
			for _, j := range fx.jobs {
				if err := store.CreateJob(ctx, j); err != nil {
					return fmt.Errorf("seed job %s: %w", j.Description, err)
				}
			}
			log.Info().
				Int("profiles", len(fx.profiles)).
				Int("contracts", len(fx.contracts)).
				Int("jobs", len(fx.jobs)).
				Msg("seeded ledger")

			out := cmd.OutOrStdout()
			for _, p := range fx.profiles {
				tok, err := middleware.IssueToken(cfg.JWTSecret, p.ID, tokenTTL)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-10s %-10s %s %s\n", p.FirstName, p.Role, p.ID, tok)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "lifetime of the printed bearer tokens")
	return cmd
}

type fixtures struct {
	profiles  []*domain.Profile
	contracts []*domain.Contract
	jobs      []*domain.Job
}

// newFixtures builds two clients and two contractors with one unpaid job per
// contract, plus one paid job.
func newFixtures(now time.Time) fixtures {
	profile := func(first, last, profession string, role domain.Role, balance string) *domain.Profile {
		return &domain.Profile{
			ID:         uuid.NewString(),
			FirstName:  first,
			LastName:   last,
			Profession: profession,
			Role:       role,
			Balance:    decimal.RequireFromString(balance),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}

	harry := profile("Harry", "Potter", "Wizard", domain.RoleClient, "1150")
	mr := profile("Mr", "Robot", "Hacker", domain.RoleClient, "231.11")
	john := profile("John", "Lenon", "Musician", domain.RoleContractor, "64")
	linus := profile("Linus", "Torvalds", "Programmer", domain.RoleContractor, "1214")

	contract := func(client, contractor *domain.Profile, status domain.ContractStatus, terms string) *domain.Contract {
		return &domain.Contract{
			ID:           uuid.NewString(),
			Terms:        terms,
			ClientID:     client.ID,
			ContractorID: contractor.ID,
			Status:       status,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}

	c1 := contract(harry, john, domain.ContractTerminated, "bla bla bla")
	c2 := contract(harry, linus, domain.ContractInProgress, "bla bla bla")
	c3 := contract(mr, linus, domain.ContractInProgress, "bla bla bla")
	c4 := contract(mr, john, domain.ContractNew, "bla bla bla")

	job := func(c *domain.Contract, description, price string, paid bool) *domain.Job {
		j := &domain.Job{
			ID:          uuid.NewString(),
			ContractID:  c.ID,
			Description: description,
			Price:       decimal.RequireFromString(price),
			CreatedAt:   now,
		}
		if paid {
			_ = j.MarkPaid(now)
		}
		return j
	}

	return fixtures{
		profiles:  []*domain.Profile{harry, mr, john, linus},
		contracts: []*domain.Contract{c1, c2, c3, c4},
		jobs: []*domain.Job{
			job(c1, "work", "200", false),
			job(c2, "work", "201", false),
			job(c3, "work", "202", false),
			job(c4, "work", "200", false),
			job(c2, "work", "2020", true),
		},
	}
}
