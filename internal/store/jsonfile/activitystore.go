package jsonfile

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/hay-kot/chanfeed/internal/core/newsletter"
)

const (
	defaultMaxActivities = 500
	activityFilename     = "autofollow.jsonl"
)

// ActivityFilter narrows ActivityStore.List. Zero values match everything.
type ActivityFilter struct {
	Channel string
	Type    newsletter.ActivityType
	Since   time.Time
	Limit   int
}

func (f ActivityFilter) match(a newsletter.Activity) bool {
	if f.Channel != "" && a.Channel != f.Channel {
		return false
	}
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	if !f.Since.IsZero() && !a.Timestamp.After(f.Since) {
		return false
	}
	return true
}

// ActivityStore implements newsletter.ActivityRecorder using a JSONL file.
// A file lock guards the log so several processes sharing a data directory
// can record concurrently.
type ActivityStore struct {
	dir           string
	maxActivities int
	mu            sync.Mutex
}

// NewActivityStore creates a new activity store at the given directory.
func NewActivityStore(dir string) *ActivityStore {
	return &ActivityStore{
		dir:           dir,
		maxActivities: defaultMaxActivities,
	}
}

// WithMaxActivities sets the maximum number of activities to retain.
func (s *ActivityStore) WithMaxActivities(max int) *ActivityStore {
	s.maxActivities = max
	return s
}

// Path returns the location of the activity log.
func (s *ActivityStore) Path() string {
	return filepath.Join(s.dir, activityFilename)
}

// Record appends an activity, assigning an ID and timestamp when unset, and
// trims the log to the retention limit.
func (s *ActivityStore) Record(activity newsletter.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	if activity.Timestamp.IsZero() {
		activity.Timestamp = time.Now()
	}

	return s.locked(syscall.LOCK_EX, func() error {
		activities, err := s.read()
		if err != nil {
			return err
		}

		activities = append(activities, activity)
		if len(activities) > s.maxActivities {
			activities = activities[len(activities)-s.maxActivities:]
		}

		return s.write(activities)
	})
}

// List returns matching activities, newest first.
func (s *ActivityStore) List(filter ActivityFilter) ([]newsletter.Activity, error) {
	var result []newsletter.Activity

	err := s.locked(syscall.LOCK_SH, func() error {
		activities, err := s.read()
		if err != nil {
			return err
		}

		for i := len(activities) - 1; i >= 0; i-- {
			if !filter.match(activities[i]) {
				continue
			}
			result = append(result, activities[i])
			if filter.Limit > 0 && len(result) >= filter.Limit {
				break
			}
		}
		return nil
	})

	return result, err
}

// Last returns the most recent activity for channel. ok is false when none
// has been recorded.
func (s *ActivityStore) Last(channel string) (activity newsletter.Activity, ok bool, err error) {
	list, err := s.List(ActivityFilter{Channel: channel, Limit: 1})
	if err != nil || len(list) == 0 {
		return newsletter.Activity{}, false, err
	}
	return list[0], true, nil
}

// locked runs fn while holding both the in-process mutex and a file lock of
// the given type.
func (s *ActivityStore) locked(how int, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create activity directory: %w", err)
	}

	f, err := os.OpenFile(s.Path()+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	if err := syscall.Flock(int(f.Fd()), how); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN) //nolint:errcheck

	return fn()
}

// read loads every activity. Malformed lines are skipped. Caller must hold the lock.
func (s *ActivityStore) read() ([]newsletter.Activity, error) {
	f, err := os.Open(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open activity file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var activities []newsletter.Activity
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var a newsletter.Activity
		if err := json.Unmarshal(scanner.Bytes(), &a); err != nil {
			continue
		}
		activities = append(activities, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read activity file: %w", err)
	}

	return activities, nil
}

// write replaces the log atomically. Caller must hold the lock.
func (s *ActivityStore) write(activities []newsletter.Activity) error {
	tmpPath := s.Path() + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	enc := json.NewEncoder(f)
	for _, a := range activities {
		if err := enc.Encode(a); err != nil {
			f.Close() //nolint:errcheck
			_ = os.Remove(tmpPath)
			return fmt.Errorf("write activity: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.Path()); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
