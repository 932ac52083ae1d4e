package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"roadassist/internal/models"
)

type UserRepository struct {
	DB *sql.DB
}

func (r *UserRepository) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	query := `
        INSERT INTO users (name, phone, email, password, city, role, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	user.CreatedAt = time.Now()
	res, err := r.DB.ExecContext(ctx, query,
		user.Name, user.Phone, user.Email, user.Password, user.City, user.Role, user.CreatedAt)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			if strings.Contains(mysqlErr.Message, "email") {
				return models.User{}, models.ErrDuplicateEmail
			}
			return models.User{}, models.ErrDuplicatePhone
		}
		return models.User{}, err
	}
	user.ID, err = res.LastInsertId()
	if err != nil {
		return models.User{}, err
	}
	user.Password = ""
	return user, nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	query := `
        SELECT id, name, phone, email, city, role, created_at, updated_at
        FROM users
        WHERE id = ?
    `
	var user models.User
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Name, &user.Phone, &user.Email, &user.City, &user.Role,
		&user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, models.ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// GetUserByLogin looks the user up by phone or email, whichever is set, and
// returns the stored password hash for the credential check.
func (r *UserRepository) GetUserByLogin(ctx context.Context, phone, email string) (models.User, error) {
	query := `
        SELECT id, name, phone, email, password, city, role, created_at, updated_at
        FROM users
        WHERE phone = ? OR email = ?
        LIMIT 1
    `
	var user models.User
	err := r.DB.QueryRowContext(ctx, query, phone, email).Scan(
		&user.ID, &user.Name, &user.Phone, &user.Email, &user.Password, &user.City, &user.Role,
		&user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, models.ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetUsers(ctx context.Context, role string, limit int) ([]models.User, error) {
	query := `
        SELECT id, name, phone, email, city, role, created_at, updated_at
        FROM users
    `
	args := []interface{}{}
	if role != "" {
		query += ` WHERE role = ?`
		args = append(args, role)
	}
	query += ` ORDER BY id LIMIT ?`
	args = append(args, limit)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Phone, &user.Email, &user.City, &user.Role,
			&user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) UpdateUser(ctx context.Context, user models.User) (models.User, error) {
	query := `
        UPDATE users
        SET name = ?, city = ?, updated_at = NOW()
        WHERE id = ?
    `
	res, err := r.DB.ExecContext(ctx, query, user.Name, user.City, user.ID)
	if err != nil {
		return models.User{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.User{}, err
	}
	if affected == 0 {
		return models.User{}, models.ErrUserNotFound
	}
	return r.GetUserByID(ctx, user.ID)
}

func (r *UserRepository) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SetSession(ctx context.Context, userID int64, session models.Session) error {
	query := `
        UPDATE users
        SET refresh_token = ?, expires_at = ?
        WHERE id = ?
    `
	res, err := r.DB.ExecContext(ctx, query, session.RefreshToken, session.ExpiresAt, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) GetSessionByToken(ctx context.Context, refreshToken string) (models.Session, error) {
	query := `
        SELECT id, role, refresh_token, expires_at
        FROM users
        WHERE refresh_token = ?
    `
	var session models.Session
	err := r.DB.QueryRowContext(ctx, query, refreshToken).Scan(
		&session.UserID, &session.Role, &session.RefreshToken, &session.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, nil
	}
	if err != nil {
		return models.Session{}, err
	}
	return session, nil
}

func (r *UserRepository) ClearSession(ctx context.Context, userID int64) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE users SET refresh_token = '' WHERE id = ?`, userID)
	return err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE users SET password = ?, updated_at = NOW() WHERE id = ?`, hash, userID)
	return err
}
