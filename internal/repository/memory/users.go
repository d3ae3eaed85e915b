package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

type users struct{ v *view }

func (r *users) Create(ctx context.Context, u *model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.v.lock.Lock()
	defer r.v.lock.Unlock()

	if _, taken := r.v.st.usernames[u.Username]; taken {
		return model.ErrConflict
	}
	if _, taken := r.v.st.users[u.ID]; taken {
		return model.ErrConflict
	}
	r.v.st.users[u.ID] = &model.User{ID: u.ID, Username: u.Username, History: u.HistoryCopy()}
	r.v.st.usernames[u.Username] = u.ID
	id, name := u.ID, u.Username
	r.v.onRollback(func() {
		delete(r.v.st.users, id)
		delete(r.v.st.usernames, name)
	})
	return nil
}

func (r *users) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.v.lock.Lock()
	defer r.v.lock.Unlock()

	u, ok := r.v.st.users[id]
	if !ok {
		return nil, model.NotFoundf("user %s", id)
	}
	return &model.User{ID: u.ID, Username: u.Username, History: u.HistoryCopy()}, nil
}

func (r *users) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.v.lock.Lock()
	id, ok := r.v.st.usernames[username]
	r.v.lock.Unlock()
	if !ok {
		return nil, model.NotFoundf("user %q", username)
	}
	return r.FindByID(ctx, id)
}

// FindByIDForUpdate is FindByID: inside InTx the store mutex already
// serializes every writer.
func (r *users) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.FindByID(ctx, id)
}

// LoadHistory returns an empty history for unknown users, matching the SQL store.
func (r *users) LoadHistory(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.v.lock.Lock()
	defer r.v.lock.Unlock()

	u, ok := r.v.st.users[userID]
	if !ok {
		return []uuid.UUID{}, nil
	}
	return u.HistoryCopy(), nil
}

func (r *users) SaveHistory(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.v.lock.Lock()
	defer r.v.lock.Unlock()

	u, ok := r.v.st.users[userID]
	if !ok {
		return model.NotFoundf("user %s", userID)
	}
	prev := u.History
	history := make([]uuid.UUID, len(ids))
	copy(history, ids)
	u.History = history
	r.v.onRollback(func() { u.History = prev })
	return nil
}
