package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Users      *UserRepository
	Seasons    *SeasonRepository
	Periods    *PeriodRepository
	Candidates *CandidateRepository
	Votes      *VoteRepository
	Audit      *AuditRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Users:      NewUserRepository(pool),
		Seasons:    NewSeasonRepository(pool),
		Periods:    NewPeriodRepository(pool),
		Candidates: NewCandidateRepository(pool),
		Votes:      NewVoteRepository(pool),
		Audit:      NewAuditRepository(pool),
	}
}
