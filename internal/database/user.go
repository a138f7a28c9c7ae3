package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jason-s-yu/uno/internal/auth"
	"github.com/jason-s-yu/uno/internal/models"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const userColumns = `id, COALESCE(email, ''), password, username, is_ephemeral, is_admin,
	rating, rating_deviation, volatility`

// CreateUser inserts user, hashing its password. Ephemeral guests have no
// email or password.
func CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		user.ID = id
	}
	if user.Password != "" {
		hash, err := auth.HashPassword(user.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = hash
	}
	var email *string
	if user.Email != "" {
		email = &user.Email
	}

	q := `INSERT INTO users (id, email, password, username, is_ephemeral, is_admin)
	      VALUES ($1, $2, $3, $4, $5, $6)
	      RETURNING rating, rating_deviation, volatility`
	err := beginTxFunc(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, q,
			user.ID, email, user.Password, user.Username,
			user.IsEphemeral, user.IsAdmin,
		).Scan(&user.Rating, &user.RatingDeviation, &user.Volatility)
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Password, &u.Username,
		&u.IsEphemeral, &u.IsAdmin,
		&u.Rating, &u.RatingDeviation, &u.Volatility,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email))
}

func GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

// GetUsersByID loads the users among ids that exist, in no particular order.
func GetUsersByID(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	rows, err := DB.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1::uuid[])`, strs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// AuthenticateUser checks the credentials and returns the user with a fresh session token.
func AuthenticateUser(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("db error: %w", err)
	}

	ok, err := auth.ComparePasswordAndHash(password, user.Password)
	if err != nil || !ok {
		return nil, "", ErrInvalidCredentials
	}

	token, err := auth.CreateJWT(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create jwt: %w", err)
	}
	return user, token, nil
}

// UserStore exposes the user queries above as a value for the handlers.
type UserStore struct{}

func (UserStore) CreateUser(ctx context.Context, user *models.User) error {
	return CreateUser(ctx, user)
}

func (UserStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return GetUserByID(ctx, id)
}

func (UserStore) AuthenticateUser(ctx context.Context, email, password string) (*models.User, string, error) {
	return AuthenticateUser(ctx, email, password)
}
