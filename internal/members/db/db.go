package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-calendar/internal/models"
	"ms-calendar/internal/utils"
)

var (
	ErrMemberNotFound = errors.New("member not found")
	ErrOwnerNotFound  = errors.New("address owner not found")
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetByID(ctx context.Context, id string) (*models.Member, error) {
	return d.getMember(ctx, "m.id = ?", id)
}

func (d *DB) GetByDiscordID(ctx context.Context, discordID string) (*models.Member, error) {
	return d.getMember(ctx, "m.discord_id = ?", discordID)
}

func (d *DB) getMember(ctx context.Context, where string, arg string) (*models.Member, error) {
	var member models.Member
	err := d.Bun.NewSelect().
		Model(&member).
		Where(where, arg).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select member: %w", err)
	}
	return &member, nil
}

// UpsertByDiscordID creates the member on first sign-in and refreshes the
// profile fields and last activity afterwards.
func (d *DB) UpsertByDiscordID(ctx context.Context, m *models.Member) (*models.Member, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	existing, err := d.GetByDiscordID(ctx, m.DiscordID)
	if errors.Is(err, ErrMemberNotFound) {
		created := *m
		if created.ID == "" {
			created.ID = utils.GenerateID()
		}
		created.JoinedAt = now
		created.LastActivityAt = now
		created.CreatedAt = now
		created.UpdatedAt = now
		_, insertErr := d.Bun.NewInsert().Model(&created).Exec(ctx)
		if insertErr == nil {
			return &created, nil
		}
		// a concurrent sign-in may have inserted the same discord id
		existing, err = d.GetByDiscordID(ctx, m.DiscordID)
		if err != nil {
			return nil, fmt.Errorf("insert member: %w", insertErr)
		}
	} else if err != nil {
		return nil, err
	}

	existing.Username = m.Username
	existing.DisplayName = m.DisplayName
	existing.Email = m.Email
	existing.Avatar = m.Avatar
	existing.LastActivityAt = now
	existing.UpdatedAt = now

	_, err = d.Bun.NewUpdate().
		Model(existing).
		Column("username", "display_name", "email", "avatar", "last_activity_at", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	return existing, nil
}

func (d *DB) CreateResponsibility(ctx context.Context, r *models.Responsibility) error {
	if r.ID == "" {
		r.ID = utils.GenerateID()
	}
	if r.StartDate.IsZero() {
		r.StartDate = time.Now().UTC()
	}
	if _, err := d.GetByID(ctx, r.MemberID); err != nil {
		return err
	}
	if _, err := d.Bun.NewInsert().Model(r).Exec(ctx); err != nil {
		return fmt.Errorf("insert responsibility: %w", err)
	}
	return nil
}

// ListResponsibilities returns only responsibilities without an end date
// when activeOnly is set.
func (d *DB) ListResponsibilities(ctx context.Context, memberID string, activeOnly bool) ([]models.Responsibility, error) {
	out := make([]models.Responsibility, 0)
	q := d.Bun.NewSelect().
		Model(&out).
		Where("r.member_id = ?", memberID)
	if activeOnly {
		q = q.Where("r.end_date IS NULL")
	}
	if err := q.OrderExpr("r.start_date DESC, r.id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select responsibilities: %w", err)
	}
	return out, nil
}

// ResolveOwner checks that the owner row exists. Organizations have no table
// and are accepted as given.
func (d *DB) ResolveOwner(ctx context.Context, owner models.AddressOwner) error {
	if err := owner.Validate(); err != nil {
		return err
	}

	var q *bun.SelectQuery
	switch owner.Kind {
	case models.OwnerMember:
		q = d.Bun.NewSelect().Model((*models.Member)(nil)).Where("m.id = ?", owner.ID)
	case models.OwnerEvent:
		q = d.Bun.NewSelect().Model((*models.Event)(nil)).Where("e.id = ?", owner.ID)
	default:
		return nil
	}

	exists, err := q.Exists(ctx)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", owner, err)
	}
	if !exists {
		return fmt.Errorf("%s: %w", owner, ErrOwnerNotFound)
	}
	return nil
}

// CreateAddress attaches addr to owner. A default address clears the
// owner's previous default.
func (d *DB) CreateAddress(ctx context.Context, owner models.AddressOwner, addr *models.Address) error {
	if err := d.ResolveOwner(ctx, owner); err != nil {
		return err
	}
	addr.SetOwner(owner)
	if addr.ID == "" {
		addr.ID = utils.GenerateID()
	}
	if addr.Country == "" {
		addr.Country = "France"
	}

	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if addr.IsDefault {
			_, err := tx.NewUpdate().
				Model((*models.Address)(nil)).
				Set("is_default = ?", false).
				Where("addressable_type = ?", owner.Kind).
				Where("addressable_id = ?", owner.ID).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("clear default address: %w", err)
			}
		}
		if _, err := tx.NewInsert().Model(addr).Exec(ctx); err != nil {
			return fmt.Errorf("insert address: %w", err)
		}
		return nil
	})
}

func (d *DB) ListAddresses(ctx context.Context, owner models.AddressOwner) ([]models.Address, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	out := make([]models.Address, 0)
	err := d.Bun.NewSelect().
		Model(&out).
		Where("a.addressable_type = ?", owner.Kind).
		Where("a.addressable_id = ?", owner.ID).
		OrderExpr("a.is_default DESC, a.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select addresses: %w", err)
	}
	return out, nil
}
