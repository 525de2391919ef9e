package catalog

import (
	"context"
	"strconv"
	"sync"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// 営業時間・ポリシーのキャッシュ付きリーダー。
// 読みは多く書きは少ないのでRWMutexのキャッシュで持ち、書き込み時にリフレッシュする。
type Store struct {
	configRepo repo.StoreConfigRepository

	mu     sync.RWMutex
	cached model.StoreConfig
	loaded bool
}

func NewStore(configRepo repo.StoreConfigRepository) *Store {
	return &Store{configRepo: configRepo}
}

func (s *Store) Refresh(ctx context.Context) error {
	cfg, err := s.configRepo.Get(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cached = cfg
	s.loaded = true
	s.mu.Unlock()
	return nil
}

func (s *Store) Snapshot(ctx context.Context) (model.StoreConfig, error) {
	s.mu.RLock()
	if s.loaded {
		cfg := s.cached
		s.mu.RUnlock()
		return cfg, nil
	}
	s.mu.RUnlock()

	if err := s.Refresh(ctx); err != nil {
		return model.StoreConfig{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cached, nil
}

func (s *Store) Update(ctx context.Context, cfg model.StoreConfig) error {
	if err := s.configRepo.Save(ctx, cfg); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// 営業判定の理由。/business-hoursのレスポンスにそのまま出す。
const (
	ClosedReasonNone      = ""
	ClosedReasonTemporary = "temporary_closed"
	ClosedReasonDayOff    = "closed_day"
	ClosedReasonBreak     = "break_time"
	ClosedReasonHours     = "out_of_hours"
)

// IsOpenは現在時刻で営業中かどうかと、閉まっている理由を返す。
func (s *Store) IsOpen(ctx context.Context, now time.Time) (bool, string, error) {
	cfg, err := s.Snapshot(ctx)
	if err != nil {
		return false, "", err
	}
	return evaluateOpen(cfg, now)
}

func evaluateOpen(cfg model.StoreConfig, now time.Time) (bool, string, error) {
	if cfg.TemporaryClosed {
		return false, ClosedReasonTemporary, nil
	}

	closedDays, err := cfg.ClosedDays()
	if err != nil {
		return false, "", err
	}
	for _, d := range closedDays {
		if int(now.Weekday()) == d {
			return false, ClosedReasonDayOff, nil
		}
	}

	if cfg.BreakStart != "" && cfg.BreakEnd != "" {
		if withinWindow(now, cfg.BreakStart, cfg.BreakEnd) {
			return false, ClosedReasonBreak, nil
		}
	}

	hours, err := cfg.BusinessHours()
	if err != nil {
		return false, "", err
	}
	if len(hours) == 0 {
		// 営業時間未設定なら常時営業扱い
		return true, ClosedReasonNone, nil
	}

	day, ok := hours[strconv.Itoa(int(now.Weekday()))]
	if !ok || day.Open == "" || day.Close == "" {
		return false, ClosedReasonHours, nil
	}
	if !withinWindow(now, day.Open, day.Close) {
		return false, ClosedReasonHours, nil
	}

	return true, ClosedReasonNone, nil
}

// "HH:MM"区間の判定。start > end は日跨ぎ営業（例 17:00-02:00）として扱う。
func withinWindow(now time.Time, start, end string) bool {
	cur := now.Hour()*60 + now.Minute()
	s := parseHHMM(start)
	e := parseHHMM(end)
	if s < 0 || e < 0 {
		return false
	}
	if s <= e {
		return cur >= s && cur < e
	}
	return cur >= s || cur < e
}

func parseHHMM(v string) int {
	if len(v) != 5 || v[2] != ':' {
		return -1
	}
	h, err := strconv.Atoi(v[:2])
	if err != nil {
		return -1
	}
	m, err := strconv.Atoi(v[3:])
	if err != nil {
		return -1
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return -1
	}
	return h*60 + m
}
