package worker

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

var (
	ErrEmptyJobName  = errors.New("job name is required")
	ErrEmptyCronExpr = errors.New("cron expression is required")
)

// Scheduler обертка над gocron для фоновых задач сервиса
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    Logger
	stopOnce  sync.Once
	stopErr   error
}

// NewScheduler создает планировщик, паники задач логируются
func NewScheduler(logger Logger) (*Scheduler, error) {
	sched, err := gocron.NewScheduler(
		gocron.WithGlobalJobOptions(
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					logger.Error("Scheduler: job %s (%s) panicked: %v", jobName, jobID, recoverData)
				}),
			),
		),
	)
	if err != nil {
		return nil, err
	}

	return &Scheduler{scheduler: sched, logger: logger}, nil
}

// AddJob регистрирует cron-задачу.
// Следующий запуск пропускается, пока предыдущий не завершился.
func (s *Scheduler) AddJob(name, cronExpr string, task func()) (gocron.Job, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyJobName
	}
	if strings.TrimSpace(cronExpr) == "" {
		return nil, ErrEmptyCronExpr
	}

	job, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		s.logger.Error("Scheduler: failed to register job %s (%s): %v", name, cronExpr, err)
		return nil, err
	}

	s.logger.Info("Scheduler: job %s registered (%s)", name, cronExpr)
	return job, nil
}

// Start запускает выполнение задач
func (s *Scheduler) Start() {
	s.logger.Info("Scheduler: starting")
	s.scheduler.Start()
}

// Stop останавливает планировщик и ждет завершения запущенных задач
func (s *Scheduler) Stop() error {
	s.stopOnce.Do(func() {
		s.logger.Info("Scheduler: stopping")
		s.stopErr = s.scheduler.Shutdown()
	})
	return s.stopErr
}
