package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

const dbTimeout = 5 * time.Second

// Roles. Staff and admin may manage content.
const (
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleViewer = "viewer"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// IsStaff reports whether role may use the content admin endpoints.
func IsStaff(role string) bool {
	return role == RoleStaff || role == RoleAdmin
}

// StaffUser is an account that can sign in to the admin API.
type StaffUser struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// UserStore persists staff accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u StaffUser) (StaffUser, error)
	GetUserByEmail(ctx context.Context, email string) (StaffUser, error)
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// dummyHash is compared against for unknown emails.
var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	return h
})

// Authenticate checks email and password against store.
func Authenticate(ctx context.Context, store UserStore, email, password string) (StaffUser, error) {
	user, err := store.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return StaffUser{}, ErrInvalidCredentials
	}
	if err != nil {
		return StaffUser{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return StaffUser{}, ErrInvalidCredentials
	}
	return user, nil
}

// NewStaffUser validates the fields and hashes password.
func NewStaffUser(email, name, password, role string) (StaffUser, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return StaffUser{}, fmt.Errorf("invalid email %q", email)
	}
	if strings.TrimSpace(name) == "" {
		return StaffUser{}, fmt.Errorf("name is required")
	}
	if role == "" {
		role = RoleStaff
	}
	if role != RoleAdmin && role != RoleStaff && role != RoleViewer {
		return StaffUser{}, fmt.Errorf("unknown role %q", role)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return StaffUser{}, err
	}
	return StaffUser{Email: email, Name: strings.TrimSpace(name), PasswordHash: hash, Role: role}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MemoryUserStore is an in-memory UserStore.
type MemoryUserStore struct {
	users map[string]StaffUser // by email
	mu    sync.RWMutex
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]StaffUser)}
}

func (s *MemoryUserStore) CreateUser(_ context.Context, u StaffUser) (StaffUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.Email = normalizeEmail(u.Email)
	if _, ok := s.users[u.Email]; ok {
		return StaffUser{}, fmt.Errorf("%w: %s", ErrUserExists, u.Email)
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	s.users[u.Email] = u
	return u, nil
}

func (s *MemoryUserStore) GetUserByEmail(_ context.Context, email string) (StaffUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[normalizeEmail(email)]
	if !ok {
		return StaffUser{}, ErrUserNotFound
	}
	return u, nil
}

// PostgresUserStore stores accounts in the staff_users table.
type PostgresUserStore struct {
	pool *pgxpool.Pool
}

func NewPostgresUserStore(pool *pgxpool.Pool) (*PostgresUserStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresUserStore{pool: pool}, nil
}

func (s *PostgresUserStore) CreateUser(ctx context.Context, u StaffUser) (StaffUser, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	u.Email = normalizeEmail(u.Email)
	err := s.pool.QueryRow(ctx,
		`INSERT INTO staff_users (email, name, password_hash, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id::text, created_at`,
		u.Email,
		u.Name,
		u.PasswordHash,
		u.Role,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return StaffUser{}, fmt.Errorf("%w: %s", ErrUserExists, u.Email)
		}
		return StaffUser{}, fmt.Errorf("insert staff user: %w", err)
	}
	return u, nil
}

func (s *PostgresUserStore) GetUserByEmail(ctx context.Context, email string) (StaffUser, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var u StaffUser
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, email, name, password_hash, role, created_at
		 FROM staff_users
		 WHERE email = $1`,
		normalizeEmail(email),
	).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return StaffUser{}, ErrUserNotFound
	}
	if err != nil {
		return StaffUser{}, fmt.Errorf("query staff user: %w", err)
	}
	return u, nil
}
