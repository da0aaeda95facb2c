package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/99minutos/ledger-system/internal/core/domain"
	"github.com/99minutos/ledger-system/internal/core/ports"
)

const (
	collectionProfiles  = "profiles"
	collectionContracts = "contracts"
	collectionJobs      = "jobs"
)

const (
	labelUnknownCommit = "UnknownTransactionCommitResult"
	maxCommitAttempts  = 3
)

// collections implements ports.LedgerReader. The same value serves plain
// reads and reads inside a transaction: the session travels in the context.
type collections struct {
	profiles  *mongo.Collection
	contracts *mongo.Collection
	jobs      *mongo.Collection
}

// LedgerStore is the MongoDB implementation of ports.LedgerStore. Transactions
// need a replica set or sharded cluster.
type LedgerStore struct {
	collections
	client *mongo.Client
}

func NewLedgerStore(db *mongo.Database) *LedgerStore {
	return &LedgerStore{
		collections: collections{
			profiles:  db.Collection(collectionProfiles),
			contracts: db.Collection(collectionContracts),
			jobs:      db.Collection(collectionJobs),
		},
		client: db.Client(),
	}
}

// Ping verifies the primary is reachable.
func (s *LedgerStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// WithinTx runs fn in a multi-document transaction with snapshot reads and
// majority writes. A write conflict aborts the transaction; it is not retried.
func (s *LedgerStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.LedgerTx) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority()).
		SetReadPreference(readpref.Primary())
	if err := session.StartTransaction(txOpts); err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}

	sessCtx := mongo.NewSessionContext(ctx, session)
	if err := fn(sessCtx, &ledgerTx{collections: s.collections}); err != nil {
		_ = session.AbortTransaction(context.WithoutCancel(ctx))
		return err
	}
	if err := commitWithRetry(sessCtx, session); err != nil {
		if commitUnknown(err) {
			// The commit may have applied; aborting now is not allowed.
			return fmt.Errorf("commit transaction: %w: %w", domain.ErrCommitUnknown, err)
		}
		_ = session.AbortTransaction(context.WithoutCancel(ctx))
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type committer interface {
	CommitTransaction(ctx context.Context) error
}

// commitWithRetry repeats a commit whose outcome the server reports as
// unknown, while attempts and the context deadline allow. commitTransaction
// is idempotent for the same session.
func commitWithRetry(ctx context.Context, c committer) error {
	var err error
	for range maxCommitAttempts {
		err = c.CommitTransaction(ctx)
		if err == nil || !commitUnknown(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

func commitUnknown(err error) bool {
	var le mongo.LabeledError
	return errors.As(err, &le) && le.HasErrorLabel(labelUnknownCommit)
}

// EnsureIndexes creates the indexes backing the party and unpaid-job queries.
func (s *LedgerStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := s.contracts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "contractor_id", Value: 1}, {Key: "status", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("contract indexes: %w", err)
	}
	if _, err := s.jobs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "contract_id", Value: 1}, {Key: "paid", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("job indexes: %w", err)
	}
	return nil
}

// CreateProfile inserts a profile document.
func (s *LedgerStore) CreateProfile(ctx context.Context, p *domain.Profile) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := newProfileDoc(p)
	if err != nil {
		return err
	}
	_, err = s.profiles.InsertOne(ctx, doc)
	return err
}

// CreateContract inserts a contract document.
func (s *LedgerStore) CreateContract(ctx context.Context, c *domain.Contract) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.contracts.InsertOne(ctx, newContractDoc(c))
	return err
}

// CreateJob inserts a job document.
func (s *LedgerStore) CreateJob(ctx context.Context, j *domain.Job) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := newJobDoc(j)
	if err != nil {
		return err
	}
	_, err = s.jobs.InsertOne(ctx, doc)
	return err
}

func (c collections) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc profileDoc
	if err := c.profiles.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return doc.toDomain()
}

func (c collections) GetContract(ctx context.Context, id string) (*domain.Contract, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc contractDoc
	if err := c.contracts.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrContractNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

// GetJob loads the job, its contract and both parties.
func (c collections) GetJob(ctx context.Context, id string) (*domain.JobDetail, error) {
	job, err := c.findJob(ctx, id)
	if err != nil {
		return nil, err
	}
	contract, err := c.GetContract(ctx, job.ContractID)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", id, err)
	}
	client, err := c.GetProfile(ctx, contract.ClientID)
	if err != nil {
		return nil, fmt.Errorf("job %s client: %w", id, err)
	}
	contractor, err := c.GetProfile(ctx, contract.ContractorID)
	if err != nil {
		return nil, fmt.Errorf("job %s contractor: %w", id, err)
	}
	return &domain.JobDetail{
		Job:        *job,
		Contract:   *contract,
		Client:     *client,
		Contractor: *contractor,
	}, nil
}

func (c collections) findJob(ctx context.Context, id string) (*domain.Job, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc jobDoc
	if err := c.jobs.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	return doc.toDomain()
}

func (c collections) ListContracts(ctx context.Context, f ports.ContractFilter) ([]*domain.Contract, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := c.contracts.Find(ctx, contractQuery(f), options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []contractDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domain.Contract, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (c collections) ListUnpaidJobs(ctx context.Context, f ports.ContractFilter) ([]*domain.Job, error) {
	ids, err := c.contractIDs(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*domain.Job{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := c.jobs.Find(ctx, unpaidJobsQuery(ids), options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []jobDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domain.Job, 0, len(docs))
	for _, d := range docs {
		j, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

// SumUnpaidJobPrices resolves the matching contracts, then sums unpaid prices
// with a $group stage.
func (c collections) SumUnpaidJobPrices(ctx context.Context, f ports.ContractFilter) (decimal.Decimal, error) {
	ids, err := c.contractIDs(ctx, f)
	if err != nil {
		return decimal.Zero, err
	}
	if len(ids) == 0 {
		return decimal.Zero, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: unpaidJobsQuery(ids)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$price"}}},
		}}},
	}
	cur, err := c.jobs.Aggregate(ctx, pipeline)
	if err != nil {
		return decimal.Zero, fmt.Errorf("aggregate unpaid: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Total bson.RawValue `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return decimal.Zero, fmt.Errorf("aggregate unpaid: %w", err)
	}
	if len(rows) == 0 {
		return decimal.Zero, nil
	}
	return numericValue(rows[0].Total)
}

func (c collections) contractIDs(ctx context.Context, f ports.ContractFilter) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := c.contracts.Find(ctx, contractQuery(f), options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("find contracts: %w", err)
	}
	defer cur.Close(ctx)

	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("find contracts: %w", err)
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func contractQuery(f ports.ContractFilter) bson.M {
	q := bson.M{}
	if f.ClientID != "" {
		q["client_id"] = f.ClientID
	}
	if f.ContractorID != "" {
		q["contractor_id"] = f.ContractorID
	}
	if len(f.Statuses) > 0 {
		q["status"] = bson.M{"$in": f.Statuses}
	}
	return q
}

func unpaidJobsQuery(contractIDs []string) bson.M {
	return bson.M{"contract_id": bson.M{"$in": contractIDs}, "paid": false}
}

// numericValue decodes the result of $sum, which is Decimal128 for decimal
// inputs and an integer when nothing matched.
func numericValue(v bson.RawValue) (decimal.Decimal, error) {
	switch v.Type {
	case bson.TypeDecimal128:
		return fromDecimal128(v.Decimal128())
	case bson.TypeInt32:
		return decimal.NewFromInt32(v.Int32()), nil
	case bson.TypeInt64:
		return decimal.NewFromInt(v.Int64()), nil
	case bson.TypeDouble:
		return decimal.NewFromFloat(v.Double()), nil
	default:
		return decimal.Zero, fmt.Errorf("unexpected sum type %s", v.Type)
	}
}

// ledgerTx adds the conditional writes. Every call must receive the session
// context passed to the WithinTx callback.
type ledgerTx struct {
	collections
}

func (t *ledgerTx) DebitBalance(ctx context.Context, profileID string, amount, floor decimal.Decimal) error {
	neg, err := toDecimal128(amount.Neg())
	if err != nil {
		return err
	}
	required, err := toDecimal128(floor.Add(amount))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := t.profiles.UpdateOne(ctx,
		bson.M{"_id": profileID, "balance": bson.M{"$gte": required}},
		bson.M{
			"$inc": bson.M{"balance": neg},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := t.GetProfile(ctx, profileID); err != nil {
			return err
		}
		return domain.ErrBalanceConflict
	}
	return nil
}

func (t *ledgerTx) CreditBalance(ctx context.Context, profileID string, amount decimal.Decimal) error {
	inc, err := toDecimal128(amount)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := t.profiles.UpdateOne(ctx,
		bson.M{"_id": profileID},
		bson.M{
			"$inc": bson.M{"balance": inc},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (t *ledgerTx) MarkJobPaid(ctx context.Context, jobID string, paidAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := t.jobs.UpdateOne(ctx,
		bson.M{"_id": jobID, "paid": false},
		bson.M{"$set": bson.M{"paid": true, "paid_at": paidAt}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := t.findJob(ctx, jobID); err != nil {
			return err
		}
		return domain.ErrJobAlreadyPaid
	}
	return nil
}
