package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ignite/inbound/internal/domain"
	"github.com/ignite/inbound/internal/service/domains"
)

// DomainRepo implements domains.Store against PostgreSQL.
type DomainRepo struct{ db *sql.DB }

// NewDomainRepo creates a Postgres-backed domain repository.
func NewDomainRepo(db *sql.DB) *DomainRepo { return &DomainRepo{db: db} }

const domainCols = `
	id, user_id, hostname, status, can_receive_emails, has_mx_records,
	COALESCE(provider_name,''), COALESCE(provider_confidence,''),
	verification_token, catch_all_enabled, catch_all_endpoint_id,
	last_dns_check_at, last_ses_check_at, created_at, updated_at`

func scanDomain(row interface{ Scan(...interface{}) error }) (*domain.Domain, error) {
	d := &domain.Domain{}
	var providerName, providerConf string
	var catchAll sql.NullString
	var lastDNS, lastSES sql.NullTime
	err := row.Scan(
		&d.ID, &d.UserID, &d.Hostname, &d.Status, &d.CanReceiveEmails, &d.HasMXRecords,
		&providerName, &providerConf,
		&d.VerificationToken, &d.CatchAllEnabled, &catchAll,
		&lastDNS, &lastSES, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if providerName != "" {
		d.Provider = &domain.MailProvider{
			Name:       providerName,
			Confidence: domain.Confidence(providerConf),
		}
	}
	if catchAll.Valid {
		d.CatchAllEndpoint = &catchAll.String
	}
	if lastDNS.Valid {
		t := lastDNS.Time
		d.LastDNSCheckAt = &t
	}
	if lastSES.Valid {
		t := lastSES.Time
		d.LastSESCheckAt = &t
	}
	return d, nil
}

func (r *DomainRepo) GetDomain(ctx context.Context, userID, hostname string) (*domain.Domain, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT`+domainCols+`
		FROM inbound_domains
		WHERE user_id = $1 AND hostname = $2
	`, userID, hostname)
	d, err := scanDomain(row)
	if err == sql.ErrNoRows {
		return nil, domains.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get domain: %w", err)
	}
	return d, nil
}

func (r *DomainRepo) GetDomainByID(ctx context.Context, id string) (*domain.Domain, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT`+domainCols+`
		FROM inbound_domains
		WHERE id = $1
	`, id)
	d, err := scanDomain(row)
	if err == sql.ErrNoRows {
		return nil, domains.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get domain by id: %w", err)
	}
	return d, nil
}

func (r *DomainRepo) CreateDomain(ctx context.Context, d *domain.Domain, records []domain.RequiredDNSRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var providerName, providerConf interface{}
	if d.Provider != nil {
		providerName = d.Provider.Name
		providerConf = string(d.Provider.Confidence)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO inbound_domains
			(id, user_id, hostname, status, can_receive_emails, has_mx_records,
			 provider_name, provider_confidence, verification_token,
			 catch_all_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false, $10, $10)
	`, d.ID, d.UserID, d.Hostname, d.Status, d.CanReceiveEmails, d.HasMXRecords,
		providerName, providerConf, d.VerificationToken, d.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return domains.ErrDomainExists
		}
		return fmt.Errorf("create domain: %w", err)
	}

	for _, rec := range records {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO inbound_domain_records
				(id, domain_id, record_type, name, value, priority, required, verified, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8)
		`, rec.ID, rec.DomainID, rec.Type, rec.Name, rec.Value, rec.Priority, rec.Required, d.CreatedAt)
		if err != nil {
			return fmt.Errorf("create required record: %w", err)
		}
	}

	return tx.Commit()
}

func (r *DomainRepo) UpdateDomainCheck(ctx context.Context, u domains.CheckUpdate) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE inbound_domains SET
			status = $1,
			last_dns_check_at = COALESCE($2, last_dns_check_at),
			last_ses_check_at = COALESCE($3, last_ses_check_at),
			updated_at = NOW()
		WHERE id = $4
	`, u.Status, u.LastDNSCheckAt, u.LastSESCheckAt, u.DomainID)
	if err != nil {
		return fmt.Errorf("update domain check: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domains.ErrNotFound
	}
	return nil
}

func (r *DomainRepo) UpdateDomainStatus(ctx context.Context, id string, status domain.DomainStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE inbound_domains SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("update domain status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domains.ErrNotFound
	}
	return nil
}

func (r *DomainRepo) SetCatchAll(ctx context.Context, id string, enabled bool, endpointID *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE inbound_domains SET
			catch_all_enabled = $1, catch_all_endpoint_id = $2, updated_at = NOW()
		WHERE id = $3
	`, enabled, endpointID, id)
	if err != nil {
		return fmt.Errorf("set catch-all: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domains.ErrNotFound
	}
	return nil
}

func (r *DomainRepo) ListDomains(ctx context.Context, userID string) ([]domain.Domain, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT`+domainCols+`
		FROM inbound_domains
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	defer rows.Close()

	var out []domain.Domain
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *DomainRepo) ListDomainsForRecheck(ctx context.Context, staleBefore time.Time, limit int) ([]domain.Domain, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT`+domainCols+`
		FROM inbound_domains
		WHERE status = 'pending'
		   OR (status = 'verified' AND (last_dns_check_at IS NULL OR last_dns_check_at < $1))
		ORDER BY last_dns_check_at ASC NULLS FIRST
		LIMIT $2
	`, staleBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list domains for recheck: %w", err)
	}
	defer rows.Close()

	var out []domain.Domain
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *DomainRepo) DeleteDomain(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM inbound_domain_records WHERE domain_id = $1`, id); err != nil {
		return fmt.Errorf("delete required records: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM inbound_domains WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete domain: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domains.ErrNotFound
	}
	return tx.Commit()
}

func (r *DomainRepo) ListRequiredRecords(ctx context.Context, domainID string) ([]domain.RequiredDNSRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, domain_id, record_type, name, value, priority, required, verified, last_checked_at
		FROM inbound_domain_records
		WHERE domain_id = $1
		ORDER BY created_at ASC
	`, domainID)
	if err != nil {
		return nil, fmt.Errorf("list required records: %w", err)
	}
	defer rows.Close()

	var out []domain.RequiredDNSRecord
	for rows.Next() {
		var rec domain.RequiredDNSRecord
		var priority sql.NullInt64
		var checked sql.NullTime
		if err := rows.Scan(
			&rec.ID, &rec.DomainID, &rec.Type, &rec.Name, &rec.Value,
			&priority, &rec.Required, &rec.Verified, &checked,
		); err != nil {
			return nil, fmt.Errorf("scan required record: %w", err)
		}
		if priority.Valid {
			p := int(priority.Int64)
			rec.Priority = &p
		}
		if checked.Valid {
			t := checked.Time
			rec.LastCheckedAt = &t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *DomainRepo) MarkRecordVerified(ctx context.Context, recordID string, verified bool, checkedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE inbound_domain_records SET verified = $1, last_checked_at = $2
		WHERE id = $3
	`, verified, checkedAt, recordID)
	if err != nil {
		return fmt.Errorf("mark record verified: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domains.ErrNotFound
	}
	return nil
}

func (r *DomainRepo) CountAddresses(ctx context.Context, domainID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM inbound_addresses WHERE domain_id = $1
	`, domainID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count addresses: %w", err)
	}
	return n, nil
}

func (r *DomainRepo) EndpointOwnedBy(ctx context.Context, endpointID, userID string) (bool, error) {
	var owned bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM endpoints WHERE id = $1 AND user_id = $2)
	`, endpointID, userID).Scan(&owned)
	if err != nil {
		return false, fmt.Errorf("check endpoint ownership: %w", err)
	}
	return owned, nil
}
