package inmemdb

import (
	"context"
	"sort"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/notification"
)

type notificationRepository struct {
	db *DB
}

var (
	_ notification.Repository = (*notificationRepository)(nil) // interface compliance check
	_ notification.Tracker    = (*trackerRepository)(nil)
)

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotifications(_ context.Context, ns []notification.Notification) ([]notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	created := make([]notification.Notification, 0, len(ns))
	for _, n := range ns {
		n := n
		n.ID = repo.db.nextID()
		repo.db.notifications[n.ID] = &n
		created = append(created, n)
	}
	return created, nil
}

func (repo *notificationRepository) GetNotification(_ context.Context, id int64) (notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if n, ok := repo.db.notifications[id]; ok {
		return *n, nil
	}
	return notification.Notification{}, core.NewNotFoundError("notification")
}

func (repo *notificationRepository) query(match func(*notification.Notification) bool, limit int) []notification.Notification {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ns := make([]notification.Notification, 0)
	for _, n := range repo.db.notifications {
		if match(n) {
			ns = append(ns, *n)
		}
	}
	sort.Slice(ns, func(i, j int) bool {
		if !ns[i].CreatedAt.Equal(ns[j].CreatedAt) {
			return ns[i].CreatedAt.After(ns[j].CreatedAt)
		}
		return ns[i].ID > ns[j].ID
	})
	if limit > 0 && len(ns) > limit {
		ns = ns[:limit]
	}
	return ns
}

func (repo *notificationRepository) QueryVisible(_ context.Context, filter notification.VisibleFilter) ([]notification.Notification, error) {
	return repo.query(func(n *notification.Notification) bool { return filter.Match(*n) }, filter.Limit), nil
}

func (repo *notificationRepository) QueryByAuthor(_ context.Context, authorID string) ([]notification.Notification, error) {
	return repo.query(func(n *notification.Notification) bool {
		return n.CreatedBy.Valid && n.CreatedBy.String == authorID
	}, 0), nil
}

func (repo *notificationRepository) DeleteNotification(_ context.Context, id int64) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.notifications[id]; !ok {
		return core.NewNotFoundError("notification")
	}
	delete(repo.db.notifications, id)
	return nil
}

type trackerRepository struct {
	db *DB
}

func NewTrackerRepository(db *DB) *trackerRepository {
	return &trackerRepository{db: db}
}

func (repo *trackerRepository) ShouldSend(_ context.Context, userID string, kind notification.Kind, day core.Date) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	last, ok := repo.db.trackers[trackerKey{userID: userID, kind: kind}]
	return !ok || !last.Equal(day), nil
}

func (repo *trackerRepository) RecordSent(_ context.Context, userID string, kind notification.Kind, day core.Date) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.trackers[trackerKey{userID: userID, kind: kind}] = day
	return nil
}

func (repo *trackerRepository) Claim(_ context.Context, userID string, kind notification.Kind, day core.Date) (bool, core.Date, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := trackerKey{userID: userID, kind: kind}
	prev := repo.db.trackers[key]
	if prev.Equal(day) {
		return false, prev, nil
	}
	repo.db.trackers[key] = day
	return true, prev, nil
}

func (repo *trackerRepository) Release(_ context.Context, userID string, kind notification.Kind, day, prev core.Date) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := trackerKey{userID: userID, kind: kind}
	if cur, ok := repo.db.trackers[key]; !ok || !cur.Equal(day) {
		return nil
	}
	if prev.IsZero() {
		delete(repo.db.trackers, key)
	} else {
		repo.db.trackers[key] = prev
	}
	return nil
}
