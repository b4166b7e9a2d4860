package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/ignite/inbound/internal/domain"
	"github.com/ignite/inbound/internal/service/domains"
	"github.com/ignite/inbound/internal/service/routing"
)

var domainRows = []string{
	"id", "user_id", "hostname", "status", "can_receive_emails", "has_mx_records",
	"provider_name", "provider_confidence", "verification_token",
	"catch_all_enabled", "catch_all_endpoint_id",
	"last_dns_check_at", "last_ses_check_at", "created_at", "updated_at",
}

func domainRow(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(domainRows).AddRow(
		"dom-1", "user-1", "example.com", "pending", true, false,
		"Google Workspace", "high", "token",
		false, nil, nil, nil, now, now,
	)
}

func TestDomainRepoGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewDomainRepo(db)
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT(.|\n)+FROM inbound_domains").
			WithArgs("user-1", "example.com").
			WillReturnRows(domainRow(now))

		d, err := repo.GetDomain(context.Background(), "user-1", "example.com")
		if err != nil {
			t.Fatalf("GetDomain() error = %v", err)
		}
		if d.Hostname != "example.com" {
			t.Errorf("GetDomain() hostname = %s, want example.com", d.Hostname)
		}
		if d.Provider == nil || d.Provider.Name != "Google Workspace" {
			t.Errorf("GetDomain() provider = %+v, want Google Workspace", d.Provider)
		}
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT(.|\n)+FROM inbound_domains").
			WithArgs("user-1", "missing.com").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetDomain(context.Background(), "user-1", "missing.com")
		if err != domains.ErrNotFound {
			t.Errorf("GetDomain() error = %v, want ErrNotFound", err)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}

func TestDomainRepoCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewDomainRepo(db)
	now := time.Now().UTC()
	prio := 10
	d := &domain.Domain{
		ID: "dom-1", UserID: "user-1", Hostname: "example.com",
		Status: domain.DomainPending, CreatedAt: now, UpdatedAt: now,
	}
	records := []domain.RequiredDNSRecord{
		{ID: "rec-1", DomainID: "dom-1", Type: domain.RecordTXT, Name: "example.com", Value: "v", Required: true},
		{ID: "rec-2", DomainID: "dom-1", Type: domain.RecordMX, Name: "example.com", Value: "mx", Priority: &prio, Required: true},
	}

	t.Run("inserts domain and records in one tx", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO inbound_domains").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO inbound_domain_records").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO inbound_domain_records").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		if err := repo.CreateDomain(context.Background(), d, records); err != nil {
			t.Errorf("CreateDomain() error = %v", err)
		}
	})

	t.Run("unique violation maps to ErrDomainExists", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO inbound_domains").
			WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		if err := repo.CreateDomain(context.Background(), d, nil); err != domains.ErrDomainExists {
			t.Errorf("CreateDomain() error = %v, want ErrDomainExists", err)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}

func TestDomainRepoUpdateCheck(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewDomainRepo(db)

	t.Run("missing row maps to ErrNotFound", func(t *testing.T) {
		mock.ExpectExec("UPDATE inbound_domains").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateDomainCheck(context.Background(), domains.CheckUpdate{
			DomainID: "nope", Status: domain.DomainVerified,
		})
		if err != domains.ErrNotFound {
			t.Errorf("UpdateDomainCheck() error = %v, want ErrNotFound", err)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}

func TestAddressRepo(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewAddressRepo(db)
	now := time.Now()

	t.Run("active address lookup", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{
			"id", "domain_id", "user_id", "address", "endpoint_id", "webhook_id",
			"active", "rule_configured", "rule_name", "created_at", "updated_at",
		}).AddRow("addr-1", "dom-1", "user-1", "a@example.com", "ep-1", nil,
			true, true, "inbound-example-com", now, now)

		mock.ExpectQuery("SELECT(.|\n)+FROM inbound_addresses").
			WithArgs("a@example.com").
			WillReturnRows(rows)

		a, err := repo.GetActiveAddress(context.Background(), "a@example.com")
		if err != nil {
			t.Fatalf("GetActiveAddress() error = %v", err)
		}
		if a.EndpointID == nil || *a.EndpointID != "ep-1" {
			t.Errorf("GetActiveAddress() endpoint = %v, want ep-1", a.EndpointID)
		}
		if a.WebhookID != nil {
			t.Errorf("GetActiveAddress() webhook = %v, want nil", a.WebhookID)
		}
	})

	t.Run("duplicate address maps to ErrAddressExists", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO inbound_addresses").
			WillReturnError(&pq.Error{Code: "23505"})

		err := repo.CreateAddress(context.Background(), &domain.RecipientAddress{
			ID: "addr-2", DomainID: "dom-1", UserID: "user-1",
			Address: "a@example.com", Active: true, CreatedAt: now.UTC(),
		})
		if err != routing.ErrAddressExists {
			t.Errorf("CreateAddress() error = %v, want ErrAddressExists", err)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}
