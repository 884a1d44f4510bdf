package directory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const principalColumns = `id, email, role, active, first_name, last_name, phone, business, created_at`

// InsertPrincipal assigns the principal a fresh id and persists it
// alongside its password hash.
func (s *SQLiteStore) InsertPrincipal(
	ctx context.Context,
	p *Principal,
	secret []byte,
) error {
	business, err := encodeBusiness(p.Provider)
	if err != nil {
		return err
	}

	p.ID = uuid.NewString()
	p.CreatedAt = time.Now().UTC().Truncate(time.Second)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO principal (id, email, secret, role, active, first_name, last_name, phone, business, created_at)
		VALUES (?, ?, ?, ?, 1, ?, ?, ?, ?, ?);`,
		p.ID,
		p.Email,
		secret,
		string(p.Role),
		p.FirstName,
		p.LastName,
		p.Phone,
		business,
		p.CreatedAt.Unix(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %s", ErrEmailExists, p.Email)
		}
		return fmt.Errorf("couldn't insert into principal: %v", err)
	}
	return nil
}

func (s *SQLiteStore) FindByID(
	ctx context.Context,
	id string,
) (
	*Principal,
	error,
) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+principalColumns+`
		FROM principal
		WHERE id=?;`,
		id,
	)
	return scanPrincipal(row)
}

func (s *SQLiteStore) FindByEmail(
	ctx context.Context,
	email string,
) (
	*Principal,
	error,
) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+principalColumns+`
		FROM principal
		WHERE email=?;`,
		email,
	)
	return scanPrincipal(row)
}

// GetSecret returns the password hash for an email, for credential checks.
func (s *SQLiteStore) GetSecret(
	ctx context.Context,
	email string,
) (
	[]byte,
	error,
) {
	row := s.db.QueryRowContext(ctx, `
		SELECT secret
		FROM principal
		WHERE email=?;`,
		email,
	)

	var secret []byte
	err := row.Scan(&secret)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't scan principal secret: %v", err)
	}
	return secret, nil
}

func (s *SQLiteStore) UpdateProfile(
	ctx context.Context,
	id string,
	update ProfileUpdate,
) (
	*Principal,
	error,
) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE principal
		SET first_name=?, last_name=?, phone=?
		WHERE id=?;`,
		update.FirstName,
		update.LastName,
		update.Phone,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't update principal profile: %v", err)
	}
	if resultsEmpty(result) {
		return nil, ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s *SQLiteStore) UpdateBusiness(
	ctx context.Context,
	id string,
	profile ProviderProfile,
) (
	*Principal,
	error,
) {
	business, err := encodeBusiness(&profile)
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE principal
		SET business=?
		WHERE id=? AND role=?;`,
		business,
		id,
		string(RoleProvider),
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't update principal business: %v", err)
	}
	if resultsEmpty(result) {
		return nil, ErrNotFound
	}
	return s.FindByID(ctx, id)
}

// Deactivate soft-deletes the principal and clears its refresh-token set.
// Already-issued access tokens die on their next live check.
func (s *SQLiteStore) Deactivate(
	ctx context.Context,
	id string,
) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE principal
		SET active=0
		WHERE id=?;`,
		id,
	)
	if err != nil {
		return fmt.Errorf("couldn't deactivate principal: %v", err)
	}
	if resultsEmpty(result) {
		return ErrNotFound
	}
	return s.DeleteAllRefreshTokens(ctx, id)
}

// List returns active principals matching the filter plus the total
// match count for pagination.
func (s *SQLiteStore) List(
	ctx context.Context,
	filter Filter,
) (
	[]*Principal,
	int,
	error,
) {
	where := "active=1"
	args := []any{}
	if filter.Role != "" {
		where += " AND role=?"
		args = append(args, string(filter.Role))
	}
	if filter.Search != "" {
		where += " AND (first_name LIKE ? OR last_name LIKE ? OR email LIKE ? OR business LIKE ?)"
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern, pattern, pattern)
	}

	var total int
	row := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM principal WHERE "+where+";", args...)
	if err := row.Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("couldn't count principals: %v", err)
	}

	limit := filter.Limit
	if limit < 1 || limit > 100 {
		limit = 10
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+principalColumns+" FROM principal WHERE "+where+
			" ORDER BY created_at DESC LIMIT ? OFFSET ?;", args...)
	if err != nil {
		return nil, 0, fmt.Errorf("couldn't query principals: %v", err)
	}
	defer rows.Close()

	principals := []*Principal{}
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, 0, err
		}
		principals = append(principals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("couldn't iterate principals: %v", err)
	}
	return principals, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrincipal(row rowScanner) (*Principal, error) {
	var (
		p         Principal
		role      string
		active    int
		business  sql.NullString
		createdAt int64
	)
	err := row.Scan(
		&p.ID,
		&p.Email,
		&role,
		&active,
		&p.FirstName,
		&p.LastName,
		&p.Phone,
		&business,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't scan principal: %v", err)
	}

	p.Role = Role(role)
	p.Active = active != 0
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	if business.Valid && business.String != "" {
		profile := &ProviderProfile{}
		if err := json.Unmarshal([]byte(business.String), profile); err != nil {
			return nil, fmt.Errorf("couldn't decode business payload: %v", err)
		}
		p.Provider = profile
	}
	return &p, nil
}

func encodeBusiness(profile *ProviderProfile) (sql.NullString, error) {
	if profile == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("couldn't encode business payload: %v", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
