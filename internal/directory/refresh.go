package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// maxLiveTokens caps the refresh-token set per principal. The oldest
// token is evicted when a new one would exceed the cap, so a principal
// logging in from many devices cannot grow the set without bound.
const maxLiveTokens = 5

// InsertRefreshToken adds a token to the owner's set. Expired rows for
// that owner are swept first, and the set is capped at maxLiveTokens with
// oldest-first eviction.
func (s *SQLiteStore) InsertRefreshToken(
	ctx context.Context,
	owner string,
	token string,
	expiration time.Time,
) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("couldn't begin refresh insert: %v", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM refresh
		WHERE owner=? AND expiration<?;`,
		owner,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("couldn't sweep expired refresh tokens: %v", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO refresh (owner, token, expiration, issued_at)
		SELECT p.id, ?, ?, ?
		FROM principal p
		WHERE p.id=?;`,
		token,
		expiration.Unix(),
		time.Now().Unix(),
		owner,
	)
	if err != nil {
		return fmt.Errorf("couldn't insert into refresh: %v", err)
	}
	if resultsEmpty(result) {
		return ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM refresh
		WHERE owner=? AND id NOT IN (
			SELECT id FROM refresh
			WHERE owner=?
			ORDER BY issued_at DESC, id DESC
			LIMIT ?
		);`,
		owner,
		owner,
		maxLiveTokens,
	)
	if err != nil {
		return fmt.Errorf("couldn't evict refresh tokens over cap: %v", err)
	}

	return tx.Commit()
}

// DeleteRefreshToken removes a token from the owner's set. Removing an
// absent token is not an error; the returned bool reports whether a row
// was actually deleted.
func (s *SQLiteStore) DeleteRefreshToken(
	ctx context.Context,
	owner string,
	token string,
) (
	bool,
	error,
) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM refresh
		WHERE owner=? AND token=?;`,
		owner,
		token,
	)
	if err != nil {
		return false, fmt.Errorf("couldn't delete from refresh: %v", err)
	}
	return !resultsEmpty(result), nil
}

// ContainsRefreshToken reports whether the literal token value is
// currently in the owner's set.
func (s *SQLiteStore) ContainsRefreshToken(
	ctx context.Context,
	owner string,
	token string,
) (
	bool,
	error,
) {
	row := s.db.QueryRowContext(ctx, `
		SELECT 1
		FROM refresh
		WHERE owner=? AND token=?;`,
		owner,
		token,
	)

	var one int
	err := row.Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("couldn't scan refresh membership: %v", err)
	}
	return true, nil
}

// DeleteAllRefreshTokens empties the owner's set (logout-everywhere,
// account deactivation).
func (s *SQLiteStore) DeleteAllRefreshTokens(
	ctx context.Context,
	owner string,
) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM refresh
		WHERE owner=?;`,
		owner,
	)
	if err != nil {
		return fmt.Errorf("couldn't clear refresh tokens: %v", err)
	}
	return nil
}

// CountRefreshTokens reports the size of the owner's set.
func (s *SQLiteStore) CountRefreshTokens(
	ctx context.Context,
	owner string,
) (
	int,
	error,
) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM refresh
		WHERE owner=?;`,
		owner,
	)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("couldn't count refresh tokens: %v", err)
	}
	return count, nil
}
