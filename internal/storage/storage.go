// Package storage mirrors the latest samples to a database or a file so that
// they can be read without scraping the exporter.
package storage

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	exporter "github.com/a-tho/sunexporter/internal"
	"github.com/a-tho/sunexporter/internal/retry"
)

// Mirror holds the latest samples either in a PostgreSQL table or in a JSON
// file, overwriting the previous copy on every Save.
type Mirror struct {
	// Database
	db         *sqlx.DB
	stmtUpsert *sqlx.Stmt

	// File
	file *os.File
	m    sync.Mutex
}

type fileSnapshot struct {
	Updated time.Time         `json:"updated"`
	Samples []exporter.Sample `json:"samples"`
}

// New returns a mirror backed by the database when dsn is set, otherwise by
// the file at fileStoragePath. It returns nil when neither is configured.
func New(ctx context.Context, dsn string, fileStoragePath string) (*Mirror, error) {
	if dsn != "" {
		mirror, err := NewDBMirror(ctx, dsn)
		if err == nil {
			return mirror, nil
		}
		if fileStoragePath == "" {
			return nil, err
		}
		log.Err(err).Msg("Failed to init DB mirror. Now trying to init file mirror...")
	}

	if fileStoragePath != "" {
		return NewFileMirror(ctx, fileStoragePath)
	}
	return nil, nil
}

func NewDBMirror(ctx context.Context, dsn string) (*Mirror, error) {
	mirror := Mirror{}

	err := retry.Do(ctx, func(context.Context) error {
		db, err := sqlx.Open("pgx", dsn)
		if err != nil {
			return retry.RetriableError(err)
		}

		_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS samples (
			"name" VARCHAR(50) PRIMARY KEY,
			"metric" VARCHAR(100) NOT NULL,
			"value" BIGINT NOT NULL,
			"updated" TIMESTAMPTZ NOT NULL DEFAULT now()
		);`)
		if err != nil {
			db.Close()
			return retryIfPgConnException(err)
		}

		stmtUpsert, err := db.PreparexContext(ctx, `
		INSERT INTO samples (name, metric, value, updated)
		VALUES
			($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET metric = EXCLUDED.metric, value = EXCLUDED.value, updated = EXCLUDED.updated;`)
		if err != nil {
			db.Close()
			return retryIfPgConnException(err)
		}

		mirror.db = db
		mirror.stmtUpsert = stmtUpsert

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "init DB mirror")
	}

	log.Info().Msg("Initialized DB mirror successfully")

	return &mirror, nil
}

func NewFileMirror(ctx context.Context, fileStoragePath string) (*Mirror, error) {
	var file *os.File

	err := retry.Do(ctx, func(ctx context.Context) (err error) {
		file, err = os.OpenFile(fileStoragePath, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			return retry.RetriableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", fileStoragePath)
	}

	log.Info().Str("path", fileStoragePath).Msg("Initialized file mirror successfully")

	return &Mirror{file: file}, nil
}

// Save replaces the mirrored samples.
func (s *Mirror) Save(ctx context.Context, samples []exporter.Sample) error {
	if s.db != nil {
		return retry.Do(ctx, func(context.Context) error {
			tx, err := s.db.BeginTxx(ctx, nil)
			if err != nil {
				return retryIfPgConnException(err)
			}
			defer tx.Rollback()

			stmt := tx.StmtxContext(ctx, s.stmtUpsert)
			defer stmt.Close()

			for _, sample := range samples {
				_, err = stmt.ExecContext(ctx, sample.Name, sample.Metric, sample.Value)
				if err != nil {
					return retryIfPgConnException(err)
				}
			}
			err = tx.Commit()
			return retryIfPgConnException(err)
		})
	}

	return s.writeToFile(ctx, samples)
}

// PingContext checks that the database behind the mirror is reachable. File
// mirrors are always reachable.
func (s *Mirror) PingContext(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return retry.Do(ctx, func(context.Context) error {
		err := s.db.PingContext(ctx)
		return retryIfPgConnException(err)
	})
}

func (s *Mirror) Close() error {
	if s.db != nil {
		s.stmtUpsert.Close()
		return s.db.Close()
	}

	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

func (s *Mirror) writeToFile(ctx context.Context, samples []exporter.Sample) error {
	if s.file == nil {
		return nil
	}

	s.m.Lock()
	defer s.m.Unlock()

	snap := fileSnapshot{Updated: time.Now().UTC(), Samples: samples}
	return retry.Do(ctx, func(context.Context) error {
		if err := s.file.Truncate(0); err != nil {
			return retry.RetriableError(err)
		}
		if _, err := s.file.Seek(0, 0); err != nil {
			return retry.RetriableError(err)
		}
		enc := json.NewEncoder(s.file)
		if err := enc.Encode(snap); err != nil {
			return retry.RetriableError(err)
		}
		return nil
	})
}

func retryIfPgConnException(err error) error {
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgerrcode.IsConnectionException(pgErr.Code) {
				return retry.RetriableError(err)
			}
		}
	}
	return err
}
