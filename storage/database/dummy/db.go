package dummydb

import (
	"sync"

	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/consultation"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/notification"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/user"
)

type (
	DB struct {
		user         *userTable
		notification *notificationTable
		consultation *consultationTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	notificationTable struct {
		sync.RWMutex
		table map[string]*notification.ParentNotification
	}

	consultationTable struct {
		sync.RWMutex
		table map[string]*consultation.Consultation
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:         &userTable{table: make(map[string]*user.User)},
		notification: &notificationTable{table: make(map[string]*notification.ParentNotification)},
		consultation: &consultationTable{table: make(map[string]*consultation.Consultation)},
	}
	return db, nil
}
