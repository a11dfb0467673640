package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/dupefind/dupefind/internal/log"
	"github.com/dupefind/dupefind/internal/progress"
	"github.com/dupefind/dupefind/internal/scheduler"
	"github.com/dupefind/dupefind/internal/store"
)

// RunState reports whether a run is in progress and its Reporter, set by
// whatever loop invokes the scan→group→reference→stats→results pipeline
// (the cmd/dupefind `serve` command's scheduled-run goroutine). It is the
// read side of exposing whether a run is currently in progress.
type RunState struct {
	mu       chan struct{} // 1-buffered: holds a token iff a run is active
	reporter *progress.Reporter
}

// NewRunState returns an idle RunState.
func NewRunState() *RunState {
	return &RunState{mu: make(chan struct{}, 1), reporter: progress.NewReporter()}
}

// Begin marks a run as started, returning the Reporter it should drive and
// a done func to call when the run finishes (always, including on error or
// cancellation).
func (s *RunState) Begin() (*progress.Reporter, func()) {
	select {
	case s.mu <- struct{}{}:
	default:
	}
	return s.reporter, func() {
		select {
		case <-s.mu:
		default:
		}
	}
}

// Active reports whether a run is currently in progress.
func (s *RunState) Active() bool {
	return len(s.mu) > 0
}

// Reporter returns the shared Reporter, readable regardless of Active().
func (s *RunState) Reporter() *progress.Reporter { return s.reporter }

// StatusHandler handles GET /api/status.
type StatusHandler struct {
	DB      *sql.DB
	Run     *RunState
	Sched   *scheduler.Scheduler
	Version string
	Logger  *log.Logger
}

type statusResponse struct {
	Version   string        `json:"version"`
	Active    bool          `json:"active"`
	Progress  progressInfo  `json:"progress"`
	Schedule  scheduleInfo  `json:"schedule"`
	LastRun   *completedRun `json:"last_run"`
}

type progressInfo struct {
	Stage      string `json:"stage"`
	ItemsDone  int64  `json:"items_done"`
	ItemsTotal int64  `json:"items_total"`
	BytesDone  int64  `json:"bytes_done"`
	BytesTotal int64  `json:"bytes_total"`
}

type scheduleInfo struct {
	Cron      string  `json:"cron"`
	NextRunAt *string `json:"next_run_at"`
}

type completedRun struct {
	ID               int64  `json:"id"`
	UUID             string `json:"uuid"`
	FinishedAt       string `json:"finished_at"`
	Mode             string `json:"mode"`
	Groups           int    `json:"groups"`
	DuplicateFiles   int    `json:"duplicate_files"`
	ReclaimableBytes int64  `json:"reclaimable_bytes"`
}

// ServeHTTP returns the system status as JSON.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Version:  h.Version,
		Active:   h.Run != nil && h.Run.Active(),
		Schedule: h.schedule(),
		LastRun:  h.lastRun(),
	}
	if h.Run != nil {
		ev := h.Run.Reporter().Snapshot()
		resp.Progress = progressInfo{
			Stage: string(ev.Stage), ItemsDone: ev.ItemsDone, ItemsTotal: ev.ItemsTotal,
			BytesDone: ev.BytesDone, BytesTotal: ev.BytesTotal,
		}
	}
	writeJSON(h.Logger, w, http.StatusOK, resp)
}

func (h *StatusHandler) schedule() scheduleInfo {
	info := scheduleInfo{}
	if h.Sched != nil {
		info.Cron = h.Sched.CronExpr()
		if t := h.Sched.NextRunAt(); t != nil {
			s := t.UTC().Format(time.RFC3339)
			info.NextRunAt = &s
		}
	}
	return info
}

func (h *StatusHandler) lastRun() *completedRun {
	if h.DB == nil {
		return nil
	}
	runs, err := store.ListRuns(h.DB, 1)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("status: list runs", log.Error(err))
		}
		return nil
	}
	if len(runs) == 0 {
		return nil
	}
	run := runs[0]
	return &completedRun{
		ID:               run.ID,
		UUID:             run.UUID,
		FinishedAt:       run.FinishedAt.Format(time.RFC3339),
		Mode:             run.Mode,
		Groups:           run.Report.Stats.Groups,
		DuplicateFiles:   run.Report.Stats.DuplicateFiles,
		ReclaimableBytes: run.Report.Stats.ReclaimableBytes,
	}
}
