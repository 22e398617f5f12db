package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/Sadman-Shakib-Aungon/quizzyverse/core"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/consultation"
)

type consultationRepository struct {
	db *consultationTable
}

var _ consultation.Repository = (*consultationRepository)(nil) // interface compliance check

func NewConsultationRepository(db *DB) consultation.Repository {
	return &consultationRepository{db: db.consultation}
}

func (repo *consultationRepository) query() []consultation.Consultation {
	consuls := make([]consultation.Consultation, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		consuls = append(consuls, *c)
	}
	sort.Slice(consuls, func(i, j int) bool { return consuls[i].CreatedAt.After(consuls[j].CreatedAt) })
	return consuls
}

func (repo *consultationRepository) CreateConsultation(ctx context.Context, c consultation.Consultation, exec ...core.DBExecutor) (consultation.Consultation, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = uuid.New().String()
	repo.db.table[c.ID] = &c
	return c, nil
}

func (repo *consultationRepository) GetConsultationByID(ctx context.Context, id string, exec ...core.DBExecutor) (consultation.Consultation, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.table[id]; ok {
		return *c, nil
	}
	return consultation.Consultation{}, consultation.ErrNotFound
}

func (repo *consultationRepository) UpdateConsultation(ctx context.Context, c consultation.Consultation, exec ...core.DBExecutor) (consultation.Consultation, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[c.ID]; !ok {
		return consultation.Consultation{}, consultation.ErrNotFound
	}
	repo.db.table[c.ID] = &c
	return c, nil
}

func (repo *consultationRepository) queryBy(match func(consultation.Consultation) bool, status string, limit, offset int) ([]consultation.Consultation, int) {
	var consuls []consultation.Consultation
	for _, c := range repo.query() {
		if !match(c) || (c.IsActive != nil && !*c.IsActive) {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		consuls = append(consuls, c)
	}
	return page(consuls, limit, offset), len(consuls)
}

func (repo *consultationRepository) QueryConsultationsByStudent(ctx context.Context, studentID, status string, limit, offset int, exec ...core.DBExecutor) ([]consultation.Consultation, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	consuls, total := repo.queryBy(func(c consultation.Consultation) bool { return c.StudentID == studentID }, status, limit, offset)
	return consuls, total, nil
}

func (repo *consultationRepository) QueryConsultationsByConsultant(ctx context.Context, consultantID, status string, limit, offset int, exec ...core.DBExecutor) ([]consultation.Consultation, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	consuls, total := repo.queryBy(func(c consultation.Consultation) bool { return c.ConsultantID == consultantID }, status, limit, offset)
	return consuls, total, nil
}

func (repo *consultationRepository) QueryRatedByConsultant(ctx context.Context, consultantID string, exec ...core.DBExecutor) ([]consultation.Consultation, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var rated []consultation.Consultation
	for _, c := range repo.query() {
		if c.ConsultantID != consultantID || (c.IsActive != nil && !*c.IsActive) {
			continue
		}
		if c.Feedback.StudentRating > 0 {
			rated = append(rated, c)
		}
	}
	return rated, nil
}

func (repo *consultationRepository) ConsultationStats(ctx context.Context, exec ...core.DBExecutor) (consultation.Stats, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	stats := consultation.Stats{
		ByStatus:  make(map[string]int),
		BySubject: make(map[string]int),
	}
	for _, c := range repo.db.table {
		if c.IsActive != nil && !*c.IsActive {
			continue
		}
		stats.Total++
		stats.ByStatus[c.Status]++
		stats.BySubject[c.TriggerQuiz.Subject]++
	}
	return stats, nil
}
