package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-calendar/internal/members/db"
	"ms-calendar/internal/models"
)

func setupTestDB(t *testing.T) *db.DB {
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Member)(nil),
		(*models.Responsibility)(nil),
		(*models.Address)(nil),
		(*models.Event)(nil),
	} {
		_, err = bunDB.NewCreateTable().Model(model).Exec(ctx)
		require.NoError(t, err)
	}

	return &db.DB{Bun: bunDB}
}

func strPtr(s string) *string { return &s }

func seedMember(t *testing.T, store *db.DB, discordID string) *models.Member {
	m, err := store.UpsertByDiscordID(context.Background(), &models.Member{
		DiscordID:   discordID,
		Username:    "user" + discordID,
		DisplayName: "User " + discordID,
	})
	require.NoError(t, err)
	return m
}

func TestUpsertCreatesThenRefreshes(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	created, err := store.UpsertByDiscordID(ctx, &models.Member{
		DiscordID:   "80351110224678912",
		Username:    "nelly",
		DisplayName: "Nelly",
		Avatar:      strPtr("https://cdn.discordapp.com/avatars/80351110224678912/abc.png"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.JoinedAt.IsZero())

	time.Sleep(2 * time.Millisecond)

	updated, err := store.UpsertByDiscordID(ctx, &models.Member{
		DiscordID:   "80351110224678912",
		Username:    "nelly2",
		DisplayName: "Nelly B",
		Email:       strPtr("nelly@example.org"),
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.True(t, updated.LastActivityAt.After(created.LastActivityAt))

	got, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "nelly2", got.Username)
	assert.Equal(t, "Nelly B", got.DisplayName)
	assert.Nil(t, got.Avatar)
	require.NotNil(t, got.Email)
	assert.Equal(t, "nelly@example.org", *got.Email)
	assert.WithinDuration(t, created.JoinedAt, got.JoinedAt, time.Millisecond)

	count, err := store.Bun.NewSelect().Model((*models.Member)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpsertKeepsInsertError(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	first, err := store.UpsertByDiscordID(ctx, &models.Member{DiscordID: "1", Username: "a", DisplayName: "A"})
	require.NoError(t, err)

	// same primary key, different discord id: the insert fails and no row
	// matches the discord id afterwards
	_, err = store.UpsertByDiscordID(ctx, &models.Member{ID: first.ID, DiscordID: "2", Username: "b", DisplayName: "B"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, db.ErrMemberNotFound)
	assert.ErrorContains(t, err, "insert member")
	assert.ErrorContains(t, err, "UNIQUE")
}

func TestGetMemberNotFound(t *testing.T) {
	store := setupTestDB(t)
	_, err := store.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, db.ErrMemberNotFound)
	_, err = store.GetByDiscordID(context.Background(), "nope")
	assert.ErrorIs(t, err, db.ErrMemberNotFound)
}

func TestResponsibilitiesActiveFilter(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	member := seedMember(t, store, "1")

	ended := time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateResponsibility(ctx, &models.Responsibility{
		MemberID:  member.ID,
		Title:     strPtr("Trésorier"),
		Scope:     models.ScopeBureau,
		StartDate: time.Date(2022, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   &ended,
	}))
	require.NoError(t, store.CreateResponsibility(ctx, &models.Responsibility{
		MemberID:  member.ID,
		Title:     strPtr("Responsable vidéo"),
		Scope:     models.ScopePoleVideo,
		StartDate: time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC),
	}))

	all, err := store.ListResponsibilities(ctx, member.ID, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, models.ScopePoleVideo, all[0].Scope)

	active, err := store.ListResponsibilities(ctx, member.ID, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, active[0].Active())
	assert.Equal(t, "Responsable vidéo", *active[0].Title)

	none, err := store.ListResponsibilities(ctx, "someone-else", false)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestCreateResponsibilityUnknownMember(t *testing.T) {
	store := setupTestDB(t)
	err := store.CreateResponsibility(context.Background(), &models.Responsibility{MemberID: "ghost"})
	assert.ErrorIs(t, err, db.ErrMemberNotFound)
}

func TestResolveOwner(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	member := seedMember(t, store, "2")

	assert.NoError(t, store.ResolveOwner(ctx, models.MemberOwner(member.ID)))
	assert.ErrorIs(t, store.ResolveOwner(ctx, models.MemberOwner("ghost")), db.ErrOwnerNotFound)
	assert.ErrorIs(t, store.ResolveOwner(ctx, models.EventOwner("ghost")), db.ErrOwnerNotFound)
	assert.NoError(t, store.ResolveOwner(ctx, models.OrganizationOwner("asso-42")))
	assert.Error(t, store.ResolveOwner(ctx, models.AddressOwner{Kind: "planet", ID: "x"}))
	assert.Error(t, store.ResolveOwner(ctx, models.MemberOwner("")))
}

func TestAddressesDefaultIsExclusive(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	member := seedMember(t, store, "3")
	owner := models.MemberOwner(member.ID)

	first := &models.Address{City: strPtr("Lyon"), IsDefault: true}
	require.NoError(t, store.CreateAddress(ctx, owner, first))
	assert.Equal(t, "France", first.Country)
	assert.Equal(t, owner, first.Owner())

	second := &models.Address{City: strPtr("Paris"), IsDefault: true}
	require.NoError(t, store.CreateAddress(ctx, owner, second))

	list, err := store.ListAddresses(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Paris", *list[0].City)
	assert.True(t, list[0].IsDefault)
	assert.False(t, list[1].IsDefault)

	err = store.CreateAddress(ctx, models.EventOwner("ghost"), &models.Address{})
	assert.ErrorIs(t, err, db.ErrOwnerNotFound)

	other, err := store.ListAddresses(ctx, models.OrganizationOwner("asso-42"))
	require.NoError(t, err)
	assert.Empty(t, other)
}
