package http

import (
	"context"
	"io"
	"log/slog"

	"github.com/cimillas/item-reservations/internal/app"
	"github.com/cimillas/item-reservations/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubCatalog struct {
	item    domain.Item
	items   []app.CatalogItem
	err     error
	gotID   string
	created app.CreateItemInput
	updated app.UpdateItemInput
}

func (s *stubCatalog) CreateItem(_ context.Context, in app.CreateItemInput) (domain.Item, error) {
	s.created = in
	return s.item, s.err
}

func (s *stubCatalog) GetItem(_ context.Context, id string) (app.CatalogItem, error) {
	s.gotID = id
	return app.CatalogItem{Item: s.item}, s.err
}

func (s *stubCatalog) ListItems(_ context.Context) ([]app.CatalogItem, error) {
	return s.items, s.err
}

func (s *stubCatalog) UpdateItem(_ context.Context, id string, in app.UpdateItemInput) (domain.Item, error) {
	s.gotID = id
	s.updated = in
	return s.item, s.err
}

func (s *stubCatalog) DeleteItem(_ context.Context, id string) error {
	s.gotID = id
	return s.err
}

type stubReservations struct {
	item     domain.Item
	items    []domain.Item
	entry    domain.WaitingEntry
	entries  []domain.WaitingEntry
	position int
	err      error
	posErr   error
	gotItem  string
	gotUser  string
}

func (s *stubReservations) Reserve(_ context.Context, itemID, userID string) (domain.Item, error) {
	s.gotItem, s.gotUser = itemID, userID
	return s.item, s.err
}

func (s *stubReservations) Release(_ context.Context, itemID, userID string) (domain.Item, error) {
	s.gotItem, s.gotUser = itemID, userID
	return s.item, s.err
}

func (s *stubReservations) JoinQueue(_ context.Context, itemID, userID string) (domain.WaitingEntry, error) {
	s.gotItem, s.gotUser = itemID, userID
	return s.entry, s.err
}

func (s *stubReservations) LeaveQueue(_ context.Context, itemID, userID string) error {
	s.gotItem, s.gotUser = itemID, userID
	return s.err
}

func (s *stubReservations) ListQueue(_ context.Context, itemID string) ([]domain.WaitingEntry, error) {
	s.gotItem = itemID
	return s.entries, s.err
}

func (s *stubReservations) QueuePosition(_ context.Context, _, _ string) (int, error) {
	return s.position, s.posErr
}

func (s *stubReservations) ListHolds(_ context.Context, userID string) ([]domain.Item, error) {
	s.gotUser = userID
	return s.items, s.err
}

type stubHistory struct {
	entries []domain.HistoryEntry
	err     error
	filter  domain.HistoryFilter
}

func (s *stubHistory) ListHistory(_ context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	s.filter = filter
	return s.entries, s.err
}

type stubUsers struct {
	user    domain.User
	session app.Session
	err     error
}

func (s *stubUsers) Register(_ context.Context, _ app.RegisterInput) (domain.User, error) {
	return s.user, s.err
}

func (s *stubUsers) Login(_ context.Context, _, _ string) (app.Session, error) {
	return s.session, s.err
}

func (s *stubUsers) Me(_ context.Context, _ string) (domain.User, error) {
	return s.user, s.err
}

// stubAuth accepts the tokens listed in identities.
type stubAuth struct {
	identities map[string]domain.Identity
}

func (s stubAuth) Authenticate(_ context.Context, token string) (domain.Identity, error) {
	id, ok := s.identities[token]
	if !ok {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return id, nil
}

type stubLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.err
}
