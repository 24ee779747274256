package report

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/technosupport/society-watch/internal/data"
	"github.com/technosupport/society-watch/internal/stats"
)

// DefaultReportHourIST is when the daily summary goes out.
const DefaultReportHourIST = 9

// Mailer is the email collaborator; failures are logged, never raised.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// AdminLister yields the recipients: enabled admins of active societies.
type AdminLister interface {
	ListActiveAdmins(ctx context.Context) ([]data.User, error)
}

// Scheduler runs the daily report at a fixed IST hour. The delay to the
// next occurrence is recomputed from the wall clock after every run, so a
// restart never double-fires and drift never accumulates.
type Scheduler struct {
	engine  *stats.Engine
	users   AdminLister
	mailer  Mailer
	hourIST int

	mu      sync.Mutex
	running bool

	quit chan struct{}
	wg   sync.WaitGroup

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewScheduler(engine *stats.Engine, users AdminLister, mailer Mailer, hourIST int) *Scheduler {
	if hourIST < 0 || hourIST > 23 {
		hourIST = DefaultReportHourIST
	}
	return &Scheduler{
		engine:  engine,
		users:   users,
		mailer:  mailer,
		hourIST: hourIST,
		quit:    make(chan struct{}),
	}
}

// NextRunDelay computes the wait until the next occurrence of the fixed
// IST hour: today if it has not passed yet, else tomorrow.
func NextRunDelay(now time.Time, hourIST int) time.Duration {
	nowIST := data.ToIST(now)
	y, m, d := nowIST.Date()
	target := time.Date(y, m, d, hourIST, 0, 0, 0, time.UTC)
	if !nowIST.Before(target) {
		target = target.Add(24 * time.Hour)
	}
	return target.Sub(nowIST)
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

func (s *Scheduler) Stop() {
	close(s.quit)
	s.wg.Wait()
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	for {
		delay := NextRunDelay(now(), s.hourIST)
		log.Printf("[report] next daily run in %v", delay.Round(time.Second))
		timer := time.NewTimer(delay)

		select {
		case <-s.quit:
			timer.Stop()
			return
		case <-timer.C:
			s.RunOnce(context.Background())
		}
	}
}

// RunOnce executes one full report pass. Guarded against overlap: if a
// run is still in flight the call is a no-op.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Printf("[report] run already in progress, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	admins, err := s.users.ListActiveAdmins(ctx)
	if err != nil {
		log.Printf("[report] listing admins failed: %v", err)
		return
	}
	if len(admins) == 0 {
		log.Printf("[report] no active admins, nothing to send")
		return
	}

	// One snapshot per society, shared across its admins.
	snapshots := make(map[string]*stats.Snapshot)
	sent, failed := 0, 0

	for _, admin := range admins {
		snap, ok := snapshots[admin.SocietyCode]
		if !ok {
			snap, err = s.engine.Snapshot(ctx, admin.SocietyCode)
			if err != nil {
				// One society's bad data must not starve the rest.
				log.Printf("[report] snapshot failed society=%s: %v", admin.SocietyCode, err)
				failed++
				continue
			}
			snapshots[admin.SocietyCode] = snap
		}

		subject, body, err := BuildDailySummary(admin.SocietyCode, snap)
		if err != nil {
			log.Printf("[report] render failed society=%s: %v", admin.SocietyCode, err)
			failed++
			continue
		}

		if err := s.mailer.Send(ctx, admin.Email, subject, body); err != nil {
			log.Printf("[report] send failed to=%s society=%s: %v", admin.Email, admin.SocietyCode, err)
			failed++
			continue
		}
		sent++
	}

	log.Printf("[report] daily run complete sent=%d failed=%d societies=%d", sent, failed, len(snapshots))
}
