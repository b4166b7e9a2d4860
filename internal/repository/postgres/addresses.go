package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/inbound/internal/domain"
	"github.com/ignite/inbound/internal/service/domains"
	"github.com/ignite/inbound/internal/service/routing"
)

// AddressRepo implements routing.Store against PostgreSQL. Domain lookups
// are delegated to DomainRepo so the scan logic lives in one place.
type AddressRepo struct {
	db      *sql.DB
	domains *DomainRepo
}

// NewAddressRepo creates a Postgres-backed address repository.
func NewAddressRepo(db *sql.DB) *AddressRepo {
	return &AddressRepo{db: db, domains: NewDomainRepo(db)}
}

func (r *AddressRepo) GetDomain(ctx context.Context, userID, hostname string) (*domain.Domain, error) {
	d, err := r.domains.GetDomain(ctx, userID, hostname)
	if err == domains.ErrNotFound {
		return nil, routing.ErrDomainNotFound
	}
	return d, err
}

func (r *AddressRepo) GetDomainByID(ctx context.Context, id string) (*domain.Domain, error) {
	d, err := r.domains.GetDomainByID(ctx, id)
	if err == domains.ErrNotFound {
		return nil, routing.ErrDomainNotFound
	}
	return d, err
}

func (r *AddressRepo) GetDomainByHostname(ctx context.Context, hostname string) (*domain.Domain, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT`+domainCols+`
		FROM inbound_domains
		WHERE hostname = $1
		ORDER BY (status = 'verified') DESC, created_at ASC
		LIMIT 1
	`, hostname)
	d, err := scanDomain(row)
	if err == sql.ErrNoRows {
		return nil, routing.ErrDomainNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get domain by hostname: %w", err)
	}
	return d, nil
}

const addressCols = `
	id, domain_id, user_id, address, endpoint_id, webhook_id,
	active, rule_configured, COALESCE(rule_name,''), created_at, updated_at`

func scanAddress(row interface{ Scan(...interface{}) error }) (*domain.RecipientAddress, error) {
	a := &domain.RecipientAddress{}
	var endpointID, webhookID sql.NullString
	err := row.Scan(
		&a.ID, &a.DomainID, &a.UserID, &a.Address, &endpointID, &webhookID,
		&a.Active, &a.RuleConfigured, &a.RuleName, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if endpointID.Valid {
		a.EndpointID = &endpointID.String
	}
	if webhookID.Valid {
		a.WebhookID = &webhookID.String
	}
	return a, nil
}

func (r *AddressRepo) CreateAddress(ctx context.Context, a *domain.RecipientAddress) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO inbound_addresses
			(id, domain_id, user_id, address, endpoint_id, webhook_id,
			 active, rule_configured, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8, $8)
	`, a.ID, a.DomainID, a.UserID, a.Address, a.EndpointID, a.WebhookID,
		a.Active, a.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return routing.ErrAddressExists
		}
		return fmt.Errorf("create address: %w", err)
	}
	return nil
}

func (r *AddressRepo) GetAddress(ctx context.Context, userID, address string) (*domain.RecipientAddress, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT`+addressCols+`
		FROM inbound_addresses
		WHERE user_id = $1 AND address = $2
	`, userID, address)
	a, err := scanAddress(row)
	if err == sql.ErrNoRows {
		return nil, routing.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get address: %w", err)
	}
	return a, nil
}

func (r *AddressRepo) GetActiveAddress(ctx context.Context, address string) (*domain.RecipientAddress, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT`+addressCols+`
		FROM inbound_addresses
		WHERE address = $1 AND active = true
	`, address)
	a, err := scanAddress(row)
	if err == sql.ErrNoRows {
		return nil, routing.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get active address: %w", err)
	}
	return a, nil
}

func (r *AddressRepo) ListAddresses(ctx context.Context, domainID string) ([]domain.RecipientAddress, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT`+addressCols+`
		FROM inbound_addresses
		WHERE domain_id = $1
		ORDER BY created_at DESC
	`, domainID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	var out []domain.RecipientAddress
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *AddressRepo) SetAddressActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE inbound_addresses SET active = $1, updated_at = NOW()
		WHERE id = $2
	`, active, id)
	if err != nil {
		return fmt.Errorf("set address active: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return routing.ErrNotFound
	}
	return nil
}

func (r *AddressRepo) SetAddressTarget(ctx context.Context, id string, endpointID, webhookID *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE inbound_addresses SET endpoint_id = $1, webhook_id = $2, updated_at = NOW()
		WHERE id = $3
	`, endpointID, webhookID, id)
	if err != nil {
		return fmt.Errorf("set address target: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return routing.ErrNotFound
	}
	return nil
}

func (r *AddressRepo) DeleteAddress(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM inbound_addresses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return routing.ErrNotFound
	}
	return nil
}

func (r *AddressRepo) MarkAddressRuleConfigured(ctx context.Context, id string, ruleName string, configured bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE inbound_addresses SET rule_name = NULLIF($1, ''), rule_configured = $2, updated_at = NOW()
		WHERE id = $3
	`, ruleName, configured, id)
	if err != nil {
		return fmt.Errorf("mark rule configured: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return routing.ErrNotFound
	}
	return nil
}

func (r *AddressRepo) EndpointOwnedBy(ctx context.Context, endpointID, userID string) (bool, error) {
	return r.domains.EndpointOwnedBy(ctx, endpointID, userID)
}

func (r *AddressRepo) WebhookOwnedBy(ctx context.Context, webhookID, userID string) (bool, error) {
	var owned bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM webhooks WHERE id = $1 AND user_id = $2)
	`, webhookID, userID).Scan(&owned)
	if err != nil {
		return false, fmt.Errorf("check webhook ownership: %w", err)
	}
	return owned, nil
}
