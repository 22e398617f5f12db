package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/Sadman-Shakib-Aungon/quizzyverse/core"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/notification"
)

type notificationRepository struct {
	db *notificationTable
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{db: db.notification}
}

func (repo *notificationRepository) query() []notification.ParentNotification {
	notifs := make([]notification.ParentNotification, 0, len(repo.db.table))
	for _, n := range repo.db.table {
		notifs = append(notifs, *n)
	}
	sort.Slice(notifs, func(i, j int) bool { return notifs[i].CreatedAt.After(notifs[j].CreatedAt) })
	return notifs
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, n notification.ParentNotification, exec ...core.DBExecutor) (notification.ParentNotification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.table {
		if existing.StudentID == n.StudentID && existing.Quiz.QuizID == n.Quiz.QuizID {
			return notification.ParentNotification{}, notification.ErrDuplicate
		}
	}
	n.ID = uuid.New().String()
	repo.db.table[n.ID] = &n
	return n, nil
}

func (repo *notificationRepository) NotificationExists(ctx context.Context, studentID, quizID string, exec ...core.DBExecutor) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, n := range repo.db.table {
		if n.StudentID == studentID && n.Quiz.QuizID == quizID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *notificationRepository) GetNotificationByID(ctx context.Context, id string, exec ...core.DBExecutor) (notification.ParentNotification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if n, ok := repo.db.table[id]; ok {
		return *n, nil
	}
	return notification.ParentNotification{}, notification.ErrNotFound
}

func (repo *notificationRepository) UpdateNotification(ctx context.Context, n notification.ParentNotification, exec ...core.DBExecutor) (notification.ParentNotification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[n.ID]; !ok {
		return notification.ParentNotification{}, notification.ErrNotFound
	}
	repo.db.table[n.ID] = &n
	return n, nil
}

func (repo *notificationRepository) QueryNotificationsByParent(ctx context.Context, parentID string, acknowledged *bool, limit, offset int, exec ...core.DBExecutor) ([]notification.ParentNotification, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var notifs []notification.ParentNotification
	for _, n := range repo.query() {
		if n.ParentID != parentID || (n.IsActive != nil && !*n.IsActive) {
			continue
		}
		if acknowledged != nil && n.Response.Acknowledged != *acknowledged {
			continue
		}
		notifs = append(notifs, n)
	}
	total := len(notifs)
	return page(notifs, limit, offset), total, nil
}

func (repo *notificationRepository) QueryNotificationsByStudent(ctx context.Context, studentID string, limit, offset int, exec ...core.DBExecutor) ([]notification.ParentNotification, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var notifs []notification.ParentNotification
	for _, n := range repo.query() {
		if n.StudentID != studentID || (n.IsActive != nil && !*n.IsActive) {
			continue
		}
		notifs = append(notifs, n)
	}
	total := len(notifs)
	return page(notifs, limit, offset), total, nil
}

func (repo *notificationRepository) NotificationStats(ctx context.Context, exec ...core.DBExecutor) (notification.Stats, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	stats := notification.Stats{ByEmailStatus: make(map[string]int)}
	for _, n := range repo.db.table {
		if n.IsActive != nil && !*n.IsActive {
			continue
		}
		stats.Total++
		stats.ByEmailStatus[n.Email.Status]++
		if n.Response.Acknowledged {
			stats.Acknowledged++
		}
	}
	return stats, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
