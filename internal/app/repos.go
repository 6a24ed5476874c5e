package app

import (
	"gorm.io/gorm"

	chatrepos "github.com/yungbote/jobassist-backend/internal/data/repos/chat"
	jobrepos "github.com/yungbote/jobassist-backend/internal/data/repos/jobsite"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
)

type Repos struct {
	Job          jobrepos.JobRepo
	Equipment    jobrepos.EquipmentRepo
	JobEvent     jobrepos.JobEventRepo
	Note         jobrepos.NoteRepo
	User         jobrepos.UserRepo
	Conversation chatrepos.ConversationRepo
	Message      chatrepos.MessageRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Job:          jobrepos.NewJobRepo(db, log),
		Equipment:    jobrepos.NewEquipmentRepo(db, log),
		JobEvent:     jobrepos.NewJobEventRepo(db, log),
		Note:         jobrepos.NewNoteRepo(db, log),
		User:         jobrepos.NewUserRepo(db, log),
		Conversation: chatrepos.NewConversationRepo(db, log),
		Message:      chatrepos.NewMessageRepo(db, log),
	}
}
