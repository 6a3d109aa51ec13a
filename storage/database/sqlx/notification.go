package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/notification"
)

var notificationColumns = []string{"id", "message", "created_by", "recipient_id", "semester", "created_at"}

type notificationRepository struct {
	db *sqlx.DB
}

var (
	_ notification.Repository = (*notificationRepository)(nil) // interface compliance check
	_ notification.Tracker    = (*trackerRepository)(nil)
)

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotifications(ctx context.Context, ns []notification.Notification) ([]notification.Notification, error) {
	if len(ns) == 0 {
		return []notification.Notification{}, nil
	}
	b := psql.Insert("notifications").Columns("message", "created_by", "recipient_id", "semester", "created_at")
	for _, n := range ns {
		b = b.Values(n.Message, n.CreatedBy, n.RecipientID, n.Semester, n.CreatedAt.UTC())
	}
	b = b.Suffix("RETURNING " + strings.Join(notificationColumns, ", "))

	created := make([]notification.Notification, 0, len(ns))
	if err := selectAll(ctx, repo.db, &created, b); err != nil {
		return nil, errors.Wrap(err, "inserting notifications")
	}
	return created, nil
}

func (repo *notificationRepository) GetNotification(ctx context.Context, id int64) (notification.Notification, error) {
	var n notification.Notification
	if err := get(ctx, repo.db, &n, psql.Select(notificationColumns...).From("notifications").Where(sq.Eq{"id": id})); err != nil {
		return notification.Notification{}, trapNoRowsErr(err, "notification", "finding notification")
	}
	return n, nil
}

// visibleTo is the SQL twin of notification.VisibleFilter.Match.
func visibleTo(filter notification.VisibleFilter) sq.Sqlizer {
	untargeted := sq.Eq{"recipient_id": nil}
	var targeted sq.Sqlizer = sq.Expr("FALSE")
	if filter.ViewerID != "" {
		targeted = sq.Eq{"recipient_id": filter.ViewerID}
	}
	if filter.AnySemester {
		return sq.Or{untargeted, targeted}
	}

	visible := sq.Or{targeted, sq.And{untargeted, sq.Eq{"semester": nil}}}
	if filter.Semester.Valid {
		visible = append(visible, sq.And{untargeted, sq.Eq{"semester": filter.Semester.Int}})
	}
	return visible
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (repo *notificationRepository) QueryVisible(ctx context.Context, filter notification.VisibleFilter) ([]notification.Notification, error) {
	b := psql.Select(notificationColumns...).From("notifications").
		Where(visibleTo(filter)).
		OrderBy("created_at DESC", "id DESC")
	if !filter.Since.IsZero() {
		b = b.Where(sq.GtOrEq{"created_at": filter.Since.UTC()})
	}
	if filter.ExcludeAuthor != "" {
		b = b.Where(sq.Or{sq.Eq{"created_by": nil}, sq.NotEq{"created_by": filter.ExcludeAuthor}})
	}
	if filter.ExcludePrefix != "" {
		b = b.Where(sq.NotLike{"message": escapeLike(filter.ExcludePrefix) + "%"})
	}
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit))
	}

	ns := make([]notification.Notification, 0)
	if err := selectAll(ctx, repo.db, &ns, b); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	return ns, nil
}

func (repo *notificationRepository) QueryByAuthor(ctx context.Context, authorID string) ([]notification.Notification, error) {
	b := psql.Select(notificationColumns...).From("notifications").
		Where(sq.Eq{"created_by": authorID}).
		OrderBy("created_at DESC", "id DESC")
	ns := make([]notification.Notification, 0)
	if err := selectAll(ctx, repo.db, &ns, b); err != nil {
		return nil, errors.Wrap(err, "querying sent notifications")
	}
	return ns, nil
}

func (repo *notificationRepository) DeleteNotification(ctx context.Context, id int64) error {
	res, err := exec(ctx, repo.db, psql.Delete("notifications").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NewNotFoundError("notification")
	}
	return nil
}

type trackerRepository struct {
	db *sqlx.DB
}

func NewTrackerRepository(db *sqlx.DB) *trackerRepository {
	return &trackerRepository{db: db}
}

func (repo *trackerRepository) ShouldSend(ctx context.Context, userID string, kind notification.Kind, day core.Date) (bool, error) {
	var n int
	b := psql.Select("COUNT(*)").From("notification_trackers").
		Where(sq.Eq{"user_id": userID, "kind": string(kind), "last_sent_date": day})
	if err := get(ctx, repo.db, &n, b); err != nil {
		return false, errors.Wrap(err, "checking notification tracker")
	}
	return n == 0, nil
}

func (repo *trackerRepository) RecordSent(ctx context.Context, userID string, kind notification.Kind, day core.Date) error {
	b := psql.Insert("notification_trackers").
		Columns("user_id", "kind", "last_sent_date").
		Values(userID, string(kind), day).
		Suffix("ON CONFLICT (user_id, kind) DO UPDATE SET last_sent_date = EXCLUDED.last_sent_date")
	if _, err := exec(ctx, repo.db, b); err != nil {
		return errors.Wrap(err, "recording sent notification")
	}
	return nil
}

// Claim relies on the conditional upsert: a row already on day is not updated and returns nothing.
func (repo *trackerRepository) Claim(ctx context.Context, userID string, kind notification.Kind, day core.Date) (bool, core.Date, error) {
	b := psql.Insert("notification_trackers").
		Prefix("WITH prev AS (SELECT last_sent_date FROM notification_trackers WHERE user_id = ? AND kind = ?)", userID, string(kind)).
		Columns("user_id", "kind", "last_sent_date").
		Values(userID, string(kind), day).
		Suffix("ON CONFLICT (user_id, kind) DO UPDATE SET last_sent_date = EXCLUDED.last_sent_date " +
			"WHERE notification_trackers.last_sent_date <> EXCLUDED.last_sent_date " +
			"RETURNING (SELECT last_sent_date FROM prev)")

	var prev core.Date
	if err := get(ctx, repo.db, &prev, b); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return false, day, nil
		}
		return false, core.Date{}, errors.Wrap(err, "claiming notification tracker")
	}
	return true, prev, nil
}

func (repo *trackerRepository) Release(ctx context.Context, userID string, kind notification.Kind, day, prev core.Date) error {
	where := sq.Eq{"user_id": userID, "kind": string(kind), "last_sent_date": day}
	var b sq.Sqlizer
	if prev.IsZero() {
		b = psql.Delete("notification_trackers").Where(where)
	} else {
		b = psql.Update("notification_trackers").Set("last_sent_date", prev).Where(where)
	}
	if _, err := exec(ctx, repo.db, b); err != nil {
		return errors.Wrap(err, "releasing notification tracker")
	}
	return nil
}
