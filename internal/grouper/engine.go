package grouper

import (
	"context"
	"fmt"

	"github.com/dupefind/dupefind/internal/cache"
	"github.com/dupefind/dupefind/internal/fingerprint"
	"github.com/dupefind/dupefind/internal/scanner"
)

// Mode selects which of the four equivalence relations the
// engine groups by.
type Mode int

const (
	ModeName Mode = iota
	ModeSizeName
	ModeSize
	ModeHash
)

func (m Mode) String() string {
	switch m {
	case ModeName:
		return "name"
	case ModeSizeName:
		return "size+name"
	case ModeSize:
		return "size"
	case ModeHash:
		return "hash"
	default:
		return "unknown"
	}
}

// DefaultPrehashLimit is the default number of leading
// bytes consulted before committing to a full-file hash.
const DefaultPrehashLimit = 4096

// Config parameterizes one Engine run. Fields beyond Mode are only
// meaningful for the modes that use them (hash mode reads every field except
// CaseFoldNames; name/(size,name) mode only reads CaseFoldNames; size mode
// only reads the hard-link fields).
type Config struct {
	Mode Mode

	CaseFoldNames bool

	ApplyHardLinkFilter   bool
	TrustDeviceBoundaries bool

	Algorithm    fingerprint.Algorithm
	PrehashLimit int64
	Workers      int

	PrehashCache  *cache.Cache
	FullHashCache *cache.Cache

	ErrCh      chan error
	OnProgress func(bytes int64)
}

// Engine is the staged group engine, single-use:
// construct with New, call Run once.
type Engine struct {
	cfg Config
}

// New constructs an Engine. A zero-value PrehashLimit is replaced with
// DefaultPrehashLimit and a zero Workers with 1, defending against
// misconfigured callers at the boundary rather than at every call site.
func New(cfg Config) *Engine {
	if cfg.PrehashLimit <= 0 {
		cfg.PrehashLimit = DefaultPrehashLimit
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Engine{cfg: cfg}
}

// Run narrows files into duplicate groups under the configured Mode.
// Returns the groups computed so far (possibly empty/partial) alongside
// ctx.Err() when cancelled mid-run: the coordinator propagates a stop
// status but whatever cache entries were already persisted remain valid
// for the next run.
func (e *Engine) Run(ctx context.Context, files []*scanner.FileDescriptor) ([]Group, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	switch e.cfg.Mode {
	case ModeName:
		groups, err := groupByName(files, e.cfg.CaseFoldNames)
		return groups, err
	case ModeSizeName:
		groups, err := groupBySizeName(files, e.cfg.CaseFoldNames)
		return groups, err
	case ModeSize:
		return groupBySize(files, e.cfg.ApplyHardLinkFilter, e.cfg.TrustDeviceBoundaries), nil
	case ModeHash:
		return e.runHashMode(ctx, files)
	default:
		return nil, fmt.Errorf("grouper: unknown mode %v", e.cfg.Mode)
	}
}

func (e *Engine) runHashMode(ctx context.Context, files []*scanner.FileDescriptor) ([]Group, error) {
	sizeGroups := groupBySize(files, e.cfg.ApplyHardLinkFilter, e.cfg.TrustDeviceBoundaries)
	bySize := sizeGroupsToEntries(sizeGroups)

	hashCfg := HashConfig{
		Algorithm:             e.cfg.Algorithm,
		PrehashLimit:          e.cfg.PrehashLimit,
		Workers:               e.cfg.Workers,
		ApplyHardLinkFilter:   e.cfg.ApplyHardLinkFilter,
		TrustDeviceBoundaries: e.cfg.TrustDeviceBoundaries,
		PrehashCache:          e.cfg.PrehashCache,
		FullHashCache:         e.cfg.FullHashCache,
		ErrCh:                 e.cfg.ErrCh,
		OnProgress:            e.cfg.OnProgress,
	}

	prehashSubgroups, err := stageA(ctx, bySize, hashCfg)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	groups, err := stageB(ctx, prehashSubgroups, hashCfg)
	if err != nil {
		return groups, err
	}

	return groups, nil
}
