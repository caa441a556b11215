// Package history persists a record of every download job so completed
// and failed jobs survive restarts and remain queryable after the
// in-memory job state is gone.
package history

import (
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/snagd/snagd/internal/database"
)

var ErrRecordNotFound = errors.New("download record does not exist")

type (
	Record struct {
		ID             uuid.UUID  `db:"id" json:"id"`
		MediaURL       string     `db:"media_url" json:"media_url"`
		State          string     `db:"state" json:"state"`
		Title          *string    `db:"title" json:"title,omitempty"`
		MediaRemoteURL *string    `db:"media_remote_url" json:"media_remote_url,omitempty"`
		AudioRemoteURL *string    `db:"audio_remote_url" json:"audio_remote_url,omitempty"`
		FailureReason  *string    `db:"failure_reason" json:"failure_reason,omitempty"`
		CreatedAt      time.Time  `db:"created_at" json:"created_at"`
		UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
	}

	Store struct{}
)

func NewStore() *Store {
	return &Store{}
}

func (store *Store) Create(db database.Queryable, id uuid.UUID, mediaURL string) error {
	_, err := db.Exec(`
		INSERT INTO downloads(id, media_url, state, created_at, updated_at)
		VALUES ($1, $2, 'PENDING', current_timestamp, current_timestamp)
	`, id, mediaURL)
	if err != nil {
		return fmt.Errorf("failed to insert download record: %w", err)
	}

	return nil
}

func (store *Store) RecordState(db database.Queryable, id uuid.UUID, state string) error {
	_, err := db.Exec(`UPDATE downloads SET state=$1, updated_at=current_timestamp WHERE id=$2`, state, id)
	return err
}

// RecordCompletion stores the final artifact locations. Nil URL
// arguments leave the corresponding column NULL.
func (store *Store) RecordCompletion(db database.Queryable, id uuid.UUID, title string, mediaURL *string, audioURL *string) error {
	_, err := db.Exec(`
		UPDATE downloads
		SET state='COMPLETE', title=$1, media_remote_url=$2, audio_remote_url=$3, updated_at=current_timestamp
		WHERE id=$4
	`, title, mediaURL, audioURL, id)
	return err
}

func (store *Store) RecordFailure(db database.Queryable, id uuid.UUID, reason string) error {
	_, err := db.Exec(`
		UPDATE downloads
		SET state='FAILED', failure_reason=$1, updated_at=current_timestamp
		WHERE id=$2
	`, reason, id)
	return err
}

func (store *Store) List(db database.Queryable, limit int) ([]*Record, error) {
	builder := selectDownloadBuilder().Limit(uint64(limit))
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct list downloads query: %w", err)
	}

	var results []Record
	if err := db.Select(&results, db.Rebind(query), args...); err != nil {
		return nil, err
	}

	output := make([]*Record, len(results))
	for k := range results {
		output[k] = &results[k]
	}

	return output, nil
}

func (store *Store) GetWithID(db database.Queryable, id uuid.UUID) (*Record, error) {
	query, args, err := selectDownloadBuilder().Where("downloads.id=?", id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct select download query: %w", err)
	}

	var record Record
	if err := db.Get(&record, db.Rebind(query), args...); err != nil {
		return nil, ErrRecordNotFound
	}

	return &record, nil
}

func selectDownloadBuilder() squirrel.SelectBuilder {
	return squirrel.
		Select("downloads.*").
		From("downloads").
		OrderBy("downloads.created_at DESC")
}
