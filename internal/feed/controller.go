package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/chasedut/chatfun/internal/chat"
)

// Controller routes slot-level operations to the engine owning that slot.
type Controller struct {
	mu      sync.RWMutex
	engines map[Slot]*Engine
}

func NewController(engines ...*Engine) *Controller {
	c := &Controller{engines: make(map[Slot]*Engine, len(engines))}
	for _, e := range engines {
		c.engines[e.Slot()] = e
	}
	return c
}

func (c *Controller) Engine(slot Slot) (*Engine, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.engines[slot]
	if !ok {
		return nil, fmt.Errorf("feed: unknown slot %q", slot)
	}
	return e, nil
}

func (c *Controller) Start(ctx context.Context, slot Slot) error {
	e, err := c.Engine(slot)
	if err != nil {
		return err
	}
	return e.Start(ctx)
}

func (c *Controller) Stop(slot Slot) {
	if e, err := c.Engine(slot); err == nil {
		e.Stop()
	}
}

func (c *Controller) Hide(slot Slot, epoch uint64) {
	if e, err := c.Engine(slot); err == nil {
		e.Hide(epoch)
	}
}

func (c *Controller) Show(ctx context.Context, slot Slot, epoch uint64) error {
	e, err := c.Engine(slot)
	if err != nil {
		return err
	}
	e.Show(ctx, epoch)
	return nil
}

func (c *Controller) SwitchTo(ctx context.Context, slot Slot, ch chat.Channel) error {
	e, err := c.Engine(slot)
	if err != nil {
		return err
	}
	return e.SwitchTo(ctx, ch)
}

func (c *Controller) OpenDefault(ctx context.Context, slot Slot, target string) (chat.Channel, error) {
	e, err := c.Engine(slot)
	if err != nil {
		return chat.Channel{}, err
	}
	return e.OpenDefault(ctx, target)
}

func (c *Controller) Close(slot Slot) {
	if e, err := c.Engine(slot); err == nil {
		e.Close()
	}
}

// StopAll stops every slot and waits for their goroutines to exit.
func (c *Controller) StopAll() {
	engines := c.Halt()
	for _, e := range engines {
		e.Wait()
	}
}

// Halt stops every slot without waiting. It is safe to call from a fetch
// callback, where waiting would block on the caller itself.
func (c *Controller) Halt() []*Engine {
	c.mu.RLock()
	engines := make([]*Engine, 0, len(c.engines))
	for _, e := range c.engines {
		engines = append(engines, e)
	}
	c.mu.RUnlock()

	for _, e := range engines {
		e.Stop()
	}
	return engines
}
