package core

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"leadboard-go/internal/db"
	"leadboard-go/internal/metrics"
	"leadboard-go/internal/models"
)

// ErrControllerStopped is returned by Do once Run has returned.
var ErrControllerStopped = errors.New("view controller stopped")

const eventBuffer = 64

type envelope struct {
	ev    Event
	reply chan State
}

// Controller runs the view state machine on a single goroutine. Each event is folded
// through Transition and its effects are applied before the next event is read, so a
// mirror is always re-pointed in the same step that changes the view.
type Controller struct {
	logger  *zap.Logger
	paths   db.Paths
	session SessionEnder
	clients *Mirror[models.Client]
	leads   *Mirror[models.Lead]
	metrics *metrics.Metrics

	events   chan envelope
	done     chan struct{}
	stopOnce sync.Once
	pending  []Event // follow-up events raised while applying effects; loop goroutine only

	mu       sync.RWMutex
	state    State
	watchers map[chan State]struct{}
}

// NewController creates a Controller in the loading state.
func NewController(
	logger *zap.Logger,
	paths db.Paths,
	session SessionEnder,
	clients *Mirror[models.Client],
	leads *Mirror[models.Lead],
	m *metrics.Metrics,
) *Controller {
	return &Controller{
		logger:   logger,
		paths:    paths,
		session:  session,
		clients:  clients,
		leads:    leads,
		metrics:  m,
		events:   make(chan envelope, eventBuffer),
		done:     make(chan struct{}),
		state:    InitialState(),
		watchers: make(map[chan State]struct{}),
	}
}

// Run processes events until ctx is done. Subscriptions opened by the controller
// live under ctx and are stopped when Run returns.
func (c *Controller) Run(ctx context.Context) error {
	defer c.shutdown()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env := <-c.events:
			c.step(ctx, env.ev)
			for len(c.pending) > 0 {
				ev := c.pending[0]
				c.pending = c.pending[1:]
				c.step(ctx, ev)
			}
			if env.reply != nil {
				env.reply <- c.State()
			}
		}
	}
}

// Dispatch queues ev. It returns without effect once the controller has stopped.
func (c *Controller) Dispatch(ev Event) {
	select {
	case c.events <- envelope{ev: ev}:
	case <-c.done:
	}
}

// Do queues ev and waits until it has been applied, returning the resulting state.
func (c *Controller) Do(ctx context.Context, ev Event) (State, error) {
	reply := make(chan State, 1)
	select {
	case c.events <- envelope{ev: ev, reply: reply}:
	case <-c.done:
		return State{}, ErrControllerStopped
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-c.done:
		return State{}, ErrControllerStopped
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

// Report puts err into the error slot.
func (c *Controller) Report(err *DashboardError) {
	c.Dispatch(Failed{Err: err})
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// CurrentPrincipal returns the principal the dashboard is showing, if any.
func (c *Controller) CurrentPrincipal() *models.Principal {
	s := c.State()
	if s.Principal == nil {
		return nil
	}
	p := *s.Principal
	return &p
}

// Watch returns a channel that receives the current state and then every changed state.
// Slow readers only see the latest state. The channel is closed when the controller stops.
func (c *Controller) Watch() (<-chan State, func()) {
	ch := make(chan State, 1)
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	c.watchers[ch] = struct{}{}
	ch <- c.state
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.watchers, ch)
	}
}

// Done is closed when Run has returned.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

func (c *Controller) step(ctx context.Context, ev Event) {
	c.mu.Lock()
	prev := c.state
	next, effects := Transition(prev, ev)
	c.state = next
	c.mu.Unlock()

	if next.Version == prev.Version {
		return
	}
	c.metrics.Transition(EventName(ev), string(next.View))
	c.logger.Debug("View transition",
		zap.String("event", EventName(ev)),
		zap.String("from", string(prev.View)),
		zap.String("to", string(next.View)),
	)
	for _, eff := range effects {
		c.apply(ctx, eff)
	}
	c.publish(next)
}

func (c *Controller) apply(ctx context.Context, eff Effect) {
	switch e := eff.(type) {
	case UnsubscribeClients:
		c.clients.Unsubscribe()
	case UnsubscribeLeads:
		c.leads.Unsubscribe()
	case SubscribeClients:
		gen := e.Generation
		path, err := c.paths.Clients(e.PrincipalID)
		if err != nil {
			c.pending = append(c.pending, Failed{Err: NewDashboardError(ErrKindClientsSubscription, err), Generation: gen})
			return
		}
		c.clients.Subscribe(ctx, path,
			func(items []models.Client) { c.Dispatch(ClientsSnapshot{Generation: gen, Clients: items}) },
			func(err error) {
				c.Dispatch(Failed{Err: NewDashboardError(ErrKindClientsSubscription, err), Generation: gen})
			},
		)
	case SubscribeLeads:
		gen := e.Generation
		path, err := c.paths.Leads(e.ClientID)
		if err != nil {
			c.pending = append(c.pending, Failed{Err: NewDashboardError(ErrKindLeadsSubscription, err), Generation: gen})
			return
		}
		c.leads.Subscribe(ctx, path,
			func(items []models.Lead) { c.Dispatch(LeadsSnapshot{Generation: gen, Leads: items}) },
			func(err error) {
				c.Dispatch(Failed{Err: NewDashboardError(ErrKindLeadsSubscription, err), Generation: gen})
			},
		)
	case EndSession:
		signOutCtx := context.WithoutCancel(ctx)
		go func() {
			if err := c.session.SignOut(signOutCtx); err != nil {
				c.logger.Error("Sign-out failed", zap.Error(err))
				c.Dispatch(Failed{Err: NewDashboardError(ErrKindSignOut, err)})
			}
		}()
	default:
		c.logger.Warn("Unknown effect ignored", zap.String("effect", eff.effectName()))
	}
}

func (c *Controller) publish(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ch := range c.watchers {
		select {
		case ch <- s:
		default:
			// Drop the stale state the reader has not consumed yet.
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}

func (c *Controller) shutdown() {
	c.stopOnce.Do(func() {
		c.clients.Unsubscribe()
		c.leads.Unsubscribe()
		c.mu.Lock()
		close(c.done)
		for ch := range c.watchers {
			close(ch)
		}
		c.watchers = make(map[chan State]struct{})
		c.mu.Unlock()
	})
}
