package notifier

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/habitline/internal/calendar"
	"github.com/julianstephens/habitline/internal/constants"
	apperrors "github.com/julianstephens/habitline/internal/errors"
	"github.com/julianstephens/habitline/internal/models"
)

// deliveryRetention bounds how long delivery records are kept.
const deliveryRetention = 7 * 24 * time.Hour

// Center implements Service over a persisted Registry and delivers due
// requests through a Sender when Dispatch is called.
type Center struct {
	mu       sync.Mutex
	registry Registry
	sender   Sender
	cal      *calendar.Calendar
	grace    time.Duration
	log      *log.Logger
}

func NewCenter(registry Registry, sender Sender, cal *calendar.Calendar, logger *log.Logger) *Center {
	return &Center{
		registry: registry,
		sender:   sender,
		cal:      cal,
		grace:    constants.NotificationGracePeriod,
		log:      logger,
	}
}

// SetGracePeriod changes how late a request may still be delivered.
func (c *Center) SetGracePeriod(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grace = d
}

func (c *Center) load() (State, error) {
	st, err := c.registry.LoadNotifications()
	if err != nil {
		return State{}, fmt.Errorf("load notifications: %w: %v", apperrors.ErrNotificationServiceUnavailable, err)
	}
	return st, nil
}

func (c *Center) save(st State) error {
	cutoff := c.cal.Now().Add(-deliveryRetention)
	kept := st.Delivered[:0:0]
	for _, d := range st.Delivered {
		if d.DeliveredAt.After(cutoff) {
			kept = append(kept, d)
		}
	}
	st.Delivered = kept
	if err := c.registry.SaveNotifications(st); err != nil {
		return fmt.Errorf("save notifications: %w: %v", apperrors.ErrNotificationServiceUnavailable, err)
	}
	return nil
}

func (c *Center) put(req Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, err := c.load()
	if err != nil {
		return err
	}
	st.Pending = withoutKeys(st.Pending, map[string]bool{req.Key: true})
	st.Pending = append(st.Pending, req)
	return c.save(st)
}

// Schedule registers a daily request at the given time of day.
func (c *Center) Schedule(key string, at models.TimeOfDay, content Content) error {
	return c.put(Request{
		Key:       key,
		Trigger:   TriggerDaily,
		Time:      &at,
		Content:   content,
		CreatedAt: c.cal.Now(),
	})
}

// ScheduleOnce registers a request that fires once after delay.
func (c *Center) ScheduleOnce(key string, delay time.Duration, content Content) error {
	now := c.cal.Now()
	fireAt := now.Add(delay)
	return c.put(Request{
		Key:       key,
		Trigger:   TriggerOnce,
		FireAt:    &fireAt,
		Content:   content,
		CreatedAt: now,
	})
}

// Cancel removes pending requests and dismisses delivered ones for keys.
// Unknown keys are ignored.
func (c *Center) Cancel(keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	st, err := c.load()
	if err != nil {
		return err
	}
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	st.Pending = withoutKeys(st.Pending, set)
	for i := range st.Delivered {
		if set[st.Delivered[i].Key] {
			st.Delivered[i].Dismissed = true
		}
	}
	return c.save(st)
}

func (c *Center) ListPending() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, err := c.load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(st.Pending))
	for _, r := range st.Pending {
		keys = append(keys, r.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (c *Center) ListDelivered() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, err := c.load()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var keys []string
	for _, d := range st.Delivered {
		if d.Dismissed || seen[d.Key] {
			continue
		}
		seen[d.Key] = true
		keys = append(keys, d.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Requests returns the pending requests ordered by key.
func (c *Center) Requests() ([]Request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, err := c.load()
	if err != nil {
		return nil, err
	}
	reqs := append([]Request(nil), st.Pending...)
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].Key < reqs[j].Key })
	return reqs, nil
}

// Dispatch delivers every due request. A daily request is due once per day
// from its time of day until the grace period ends, provided it was
// scheduled before that time. A one-shot request is due from FireAt until
// the grace period ends and is removed afterwards either way. Send failures
// leave the request pending for the next call and are returned joined.
func (c *Center) Dispatch(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, err := c.load()
	if err != nil {
		return 0, err
	}

	now := c.cal.Now()
	var (
		errs      []error
		delivered int
		kept      = make([]Request, 0, len(st.Pending))
	)
	for _, req := range st.Pending {
		if err := ctx.Err(); err != nil {
			kept = append(kept, req)
			continue
		}

		due, expired := c.isDue(st, req, now)
		if expired {
			if c.log != nil {
				c.log.Debug("Dropping expired notification", "key", req.Key)
			}
			continue
		}
		if !due {
			kept = append(kept, req)
			continue
		}

		if err := c.sender.Notify(ctx, req.Content); err != nil {
			errs = append(errs, fmt.Errorf("deliver %s: %w", req.Key, err))
			kept = append(kept, req)
			continue
		}
		delivered++
		st.Delivered = append(st.Delivered, Delivery{Key: req.Key, DeliveredAt: now})
		if req.Trigger == TriggerDaily {
			kept = append(kept, req)
		}
	}
	st.Pending = kept

	if err := c.save(st); err != nil {
		errs = append(errs, err)
	}
	return delivered, errors.Join(errs...)
}

// isDue reports whether req should be delivered at now. expired is set for
// one-shot requests whose window has passed.
func (c *Center) isDue(st State, req Request, now time.Time) (due, expired bool) {
	switch req.Trigger {
	case TriggerOnce:
		if req.FireAt == nil {
			return false, true
		}
		if now.Before(*req.FireAt) {
			return false, false
		}
		if now.Sub(*req.FireAt) > c.grace {
			return false, true
		}
		return true, false
	case TriggerDaily:
		if req.Time == nil {
			return false, false
		}
		fire := req.Time.On(c.cal.Today(), c.cal.Location())
		if now.Before(fire) || now.Sub(fire) > c.grace || fire.Before(req.CreatedAt) {
			return false, false
		}
		for _, d := range st.Delivered {
			if d.Key == req.Key && c.cal.IsSameDay(d.DeliveredAt, now) {
				return false, false
			}
		}
		return true, false
	default:
		return false, true
	}
}

func withoutKeys(reqs []Request, keys map[string]bool) []Request {
	out := reqs[:0:0]
	for _, r := range reqs {
		if !keys[r.Key] {
			out = append(out, r)
		}
	}
	return out
}

// MemoryRegistry keeps notification state in memory.
type MemoryRegistry struct {
	mu    sync.Mutex
	state State
}

func (m *MemoryRegistry) LoadNotifications() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		Pending:   append([]Request(nil), m.state.Pending...),
		Delivered: append([]Delivery(nil), m.state.Delivered...),
	}, nil
}

func (m *MemoryRegistry) SaveNotifications(st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = st
	return nil
}
