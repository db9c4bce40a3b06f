package repository

import (
	"context"
	"database/sql"
	"go-auth-api/logger"
	"go-auth-api/model"

	"github.com/sirupsen/logrus"
)

// IUserRepository defines the contract for user database operations.
type IUserRepository interface {
	Create(ctx context.Context, q Querier, user *model.User) error
	GetByID(ctx context.Context, q Querier, id string) (*model.User, error)
	GetByEmail(ctx context.Context, q Querier, email string) (*model.User, error)
	GetByGoogleID(ctx context.Context, q Querier, googleID string) (*model.User, error)
	LinkGoogleAccount(ctx context.Context, q Querier, userID, googleID, name string) (*model.User, error)
	List(ctx context.Context, q Querier) ([]*model.User, error)
	UpdateRole(ctx context.Context, q Querier, userID string, role model.Role) error
}

// UserRepository implements IUserRepository.
type UserRepository struct{}

func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

const userColumns = `id, name, email, password_hash, google_id, date_of_birth, role, created_at, updated_at`

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.GoogleID,
		&user.DateOfBirth, &user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create inserts user. ID must be set; timestamps are filled from the database.
func (r *UserRepository) Create(ctx context.Context, q Querier, user *model.User) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	})
	log.Info("Executing query to create a new user")

	query := `INSERT INTO users (id, name, email, password_hash, google_id, date_of_birth, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at, updated_at`
	err := q.QueryRowContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.GoogleID, user.DateOfBirth, user.Role,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		err = translateUniqueViolation(err)
		log.WithError(err).Error("Failed to execute create user query")
		return err
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, q Querier, id string) (*model.User, error) {
	return r.getOne(ctx, q, logrus.Fields{"user_id": id}, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, q Querier, email string) (*model.User, error) {
	return r.getOne(ctx, q, logrus.Fields{"lookup": "email"}, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) GetByGoogleID(ctx context.Context, q Querier, googleID string) (*model.User, error) {
	return r.getOne(ctx, q, logrus.Fields{"lookup": "google_id"}, `SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID)
}

func (r *UserRepository) getOne(ctx context.Context, q Querier, fields logrus.Fields, query string, arg any) (*model.User, error) {
	log := logger.Log.WithFields(fields)
	log.Info("Executing query to get user")

	user, err := scanUser(q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			log.Info("User not found")
		} else {
			log.WithError(err).Error("Failed to execute get user query")
		}
		return nil, err
	}
	return user, nil
}

// LinkGoogleAccount attaches a Google subject to an existing account and
// refreshes its display name.
func (r *UserRepository) LinkGoogleAccount(ctx context.Context, q Querier, userID, googleID, name string) (*model.User, error) {
	log := logger.Log.WithField("user_id", userID)
	log.Info("Executing query to link a google account")

	query := `UPDATE users SET google_id = $1, name = $2, updated_at = NOW() WHERE id = $3 RETURNING ` + userColumns
	user, err := scanUser(q.QueryRowContext(ctx, query, googleID, name, userID))
	if err != nil {
		err = translateUniqueViolation(err)
		log.WithError(err).Error("Failed to execute link google account query")
		return nil, err
	}
	return user, nil
}

// List returns every user, newest first.
func (r *UserRepository) List(ctx context.Context, q Querier) ([]*model.User, error) {
	log := logger.Log
	log.Info("Executing query to get all users")

	rows, err := q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		log.WithError(err).Error("Failed to execute query for all users")
		return nil, err
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			log.WithError(err).Error("Failed to scan user row")
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateRole sets a user's role. It returns sql.ErrNoRows for an unknown id.
func (r *UserRepository) UpdateRole(ctx context.Context, q Querier, userID string, role model.Role) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id": userID,
		"role":    role,
	})
	log.Info("Executing query to update user role")

	res, err := q.ExecContext(ctx, `UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2`, role, userID)
	if err != nil {
		log.WithError(err).Error("Failed to execute update user role query")
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
