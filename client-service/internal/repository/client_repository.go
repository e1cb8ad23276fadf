package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/eaglebank/corebank/shared/apperrors"
	"github.com/eaglebank/corebank/shared/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations returns the client schema files, rooted at the directory.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

const uniqueViolation = "23505"

// ClientStore is the durable client record store. Soft-deleted rows are
// invisible to every read.
type ClientStore interface {
	Create(ctx context.Context, client *models.Client) error
	GetByID(ctx context.Context, id int64) (*models.Client, error)
	GetByKey(ctx context.Context, clientKey string) (*models.Client, error)
	List(ctx context.Context) ([]models.Client, error)
	Update(ctx context.Context, client *models.Client) error
	SoftDelete(ctx context.Context, id int64) error
}

// ClientRepository is the PostgreSQL ClientStore.
type ClientRepository struct {
	pool *pgxpool.Pool
}

func NewClientRepository(pool *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{pool: pool}
}

const clientColumns = `id, client_key, name, gender, age, id_number, address, phone, state, created_at, updated_at`

func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	query := `
		INSERT INTO clients (client_key, name, gender, age, id_number, address, phone, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := r.pool.QueryRow(ctx, query,
		client.ClientKey, client.Name, client.Gender, client.Age, client.IDNumber,
		client.Address, client.Phone, client.State, client.CreatedAt, client.UpdatedAt,
	).Scan(&client.ID)
	if err != nil {
		return translate(err, "create client")
	}
	return nil
}

func (r *ClientRepository) GetByID(ctx context.Context, id int64) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1 AND deleted_at IS NULL`
	client, err := scanClient(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("client %d", id))
	}
	return client, nil
}

func (r *ClientRepository) GetByKey(ctx context.Context, clientKey string) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE client_key = $1 AND deleted_at IS NULL`
	client, err := scanClient(r.pool.QueryRow(ctx, query, clientKey))
	if err != nil {
		return nil, translate(err, "client "+clientKey)
	}
	return client, nil
}

func (r *ClientRepository) List(ctx context.Context) ([]models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE deleted_at IS NULL ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	clients := []models.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, nil
}

func (r *ClientRepository) Update(ctx context.Context, client *models.Client) error {
	query := `
		UPDATE clients
		SET name = $2, gender = $3, age = $4, id_number = $5, address = $6,
			phone = $7, state = $8, updated_at = $9
		WHERE id = $1 AND deleted_at IS NULL
	`
	tag, err := r.pool.Exec(ctx, query,
		client.ID, client.Name, client.Gender, client.Age, client.IDNumber,
		client.Address, client.Phone, client.State, client.UpdatedAt,
	)
	if err != nil {
		return translate(err, "update client")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: client %d", apperrors.ErrNotFound, client.ID)
	}
	return nil
}

func (r *ClientRepository) SoftDelete(ctx context.Context, id int64) error {
	query := `
		UPDATE clients SET state = $2, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	tag, err := r.pool.Exec(ctx, query, id, models.ClientStateInactive)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: client %d", apperrors.ErrNotFound, id)
	}
	return nil
}

func scanClient(row pgx.Row) (*models.Client, error) {
	var c models.Client
	err := row.Scan(&c.ID, &c.ClientKey, &c.Name, &c.Gender, &c.Age, &c.IDNumber,
		&c.Address, &c.Phone, &c.State, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// translate maps driver errors onto the shared taxonomy.
func translate(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", apperrors.ErrNotFound, what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s violates %s", apperrors.ErrConflict, what, pgErr.ConstraintName)
	}
	return fmt.Errorf("%s: %w", what, err)
}
