package store

import (
	"context"
	"errors"
	"fmt"

	"bizonboard/internal/logging"
	"bizonboard/internal/profile"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// errCreateRace marks an Update that found no row but lost the insert to a
// concurrent writer. The attempt is retried and then sees the row.
var errCreateRace = errors.New("concurrent create")

// Postgres stores one JSONB document per account. Update locks the row with
// SELECT ... FOR UPDATE for the length of the transaction.
type Postgres struct {
	pool       *pgxpool.Pool
	table      string
	maxRetries int
}

// NewPostgres connects a pool to url and ensures the table exists.
func NewPostgres(ctx context.Context, url, table string, maxConns int32, maxRetries int) (*Postgres, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewPostgres")
	defer timer.Stop()

	if err := checkCollection(table); err != nil {
		return nil, err
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, unavailable("connect postgres", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, unavailable("ping postgres", err)
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}

	p := &Postgres{
		pool:       pool,
		table:      pgx.Identifier{table}.Sanitize(),
		maxRetries: maxRetries,
	}
	if err := p.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logging.Store("Postgres profile store ready (table=%s)", table)
	return p, nil
}

func (p *Postgres) initialize(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		account_id TEXT PRIMARY KEY,
		doc JSONB NOT NULL,
		onboarding_status TEXT NOT NULL,
		last_saved_at TIMESTAMPTZ NOT NULL
	)`, p.table))
	if err != nil {
		return unavailable("create table", err)
	}
	return nil
}

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) Get(ctx context.Context, accountID string) (*profile.Profile, error) {
	var doc []byte
	err := p.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT doc FROM %s WHERE account_id = $1", p.table), accountID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, profile.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get", err)
	}
	return decode(doc)
}

func (p *Postgres) Create(ctx context.Context, doc *profile.Profile) error {
	data, err := encode(doc)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, p.insertSQL(), doc.AccountID, data, string(doc.OnboardingStatus), doc.LastSavedAt)
	if err != nil {
		return unavailable("create", err)
	}
	if tag.RowsAffected() == 0 {
		return profile.ErrAlreadyExists
	}
	return nil
}

func (p *Postgres) Put(ctx context.Context, doc *profile.Profile) error {
	data, err := encode(doc)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (account_id, doc, onboarding_status, last_saved_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id) DO UPDATE SET
			doc = EXCLUDED.doc,
			onboarding_status = EXCLUDED.onboarding_status,
			last_saved_at = EXCLUDED.last_saved_at`, p.table),
		doc.AccountID, data, string(doc.OnboardingStatus), doc.LastSavedAt)
	if err != nil {
		return unavailable("put", err)
	}
	return nil
}

// Update retries when a missing row was created concurrently or the server
// reports a serialization failure or deadlock.
func (p *Postgres) Update(ctx context.Context, accountID string, fn profile.UpdateFunc) (*profile.Profile, error) {
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		var out *profile.Profile
		var fnErr error

		err := pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
			var cur *profile.Profile
			var doc []byte
			err := tx.QueryRow(ctx,
				fmt.Sprintf("SELECT doc FROM %s WHERE account_id = $1 FOR UPDATE", p.table), accountID).Scan(&doc)
			switch {
			case errors.Is(err, pgx.ErrNoRows):
			case err != nil:
				return err
			default:
				if cur, err = decode(doc); err != nil {
					return err
				}
			}

			next, err := fn(cur)
			if err != nil {
				fnErr = err
				return err
			}
			if next, err = prepare(accountID, next); err != nil {
				fnErr = err
				return err
			}
			data, err := encode(next)
			if err != nil {
				return err
			}

			if cur == nil {
				tag, err := tx.Exec(ctx, p.insertSQL(), accountID, data, string(next.OnboardingStatus), next.LastSavedAt)
				if err != nil {
					return err
				}
				if tag.RowsAffected() == 0 {
					return errCreateRace
				}
			} else {
				_, err = tx.Exec(ctx,
					fmt.Sprintf(`UPDATE %s SET doc = $2, onboarding_status = $3, last_saved_at = $4 WHERE account_id = $1`, p.table),
					accountID, data, string(next.OnboardingStatus), next.LastSavedAt)
				if err != nil {
					return err
				}
			}
			out = next
			return nil
		})

		switch {
		case err == nil:
			return out, nil
		case fnErr != nil:
			return nil, fnErr
		case errors.Is(err, errCreateRace) || retryablePg(err):
			logging.StoreDebug("postgres update %s conflicted (attempt %d/%d)", accountID, attempt, p.maxRetries)
			continue
		default:
			return nil, unavailable("update", err)
		}
	}
	return nil, profile.ErrTransactionConflict
}

func (p *Postgres) insertSQL() string {
	return fmt.Sprintf(`INSERT INTO %s (account_id, doc, onboarding_status, last_saved_at)
		VALUES ($1, $2, $3, $4) ON CONFLICT (account_id) DO NOTHING`, p.table)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func retryablePg(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
