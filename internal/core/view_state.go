package core

import (
	"errors"

	"leadboard-go/internal/models"
)

// View is the screen the dashboard is on.
type View string

const (
	ViewLoading     View = "loading"
	ViewLogin       View = "login"
	ViewDashboard   View = "dashboard"
	ViewClientLeads View = "client-leads"
)

// State is the complete view state. Transition never mutates the slices of its
// input; snapshots replace them wholesale.
type State struct {
	View          View
	Principal     *models.Principal
	CurrentClient *models.Client
	Clients       []models.Client
	ClientLeads   []models.Lead
	Err           *DashboardError
	// Version increases by one on every transition that changes the state.
	Version uint64

	// Generation of the live subscription per role; zero when none is live.
	clientsGen uint64
	leadsGen   uint64
	lastGen    uint64
	// Set once the live subscription of the role has delivered its first snapshot.
	clientsLoaded bool
	leadsLoaded   bool
}

// InitialState is the state the controller starts in.
func InitialState() State {
	return State{View: ViewLoading}
}

// Event is an input to Transition.
type Event interface {
	eventName() string
}

// AuthResolved reports the identity provider's current principal; nil means signed out.
type AuthResolved struct{ Principal *models.Principal }

// ViewLeads opens the leads screen of a client shown on the dashboard.
type ViewLeads struct{ ClientID string }

// Back returns from the leads screen to the dashboard.
type Back struct{}

// SignOut ends the session.
type SignOut struct{}

// ClientsSnapshot carries a full clients list from the subscription of the given generation.
type ClientsSnapshot struct {
	Generation uint64
	Clients    []models.Client
}

// LeadsSnapshot carries a full leads list from the subscription of the given generation.
type LeadsSnapshot struct {
	Generation uint64
	Leads      []models.Lead
}

// Failed puts Err into the error slot. A non-zero Generation ties the failure to a
// subscription; it is dropped when that subscription is no longer live.
type Failed struct {
	Err        *DashboardError
	Generation uint64
}

func (AuthResolved) eventName() string    { return "AuthResolved" }
func (ViewLeads) eventName() string       { return "ViewLeads" }
func (Back) eventName() string            { return "Back" }
func (SignOut) eventName() string         { return "SignOut" }
func (ClientsSnapshot) eventName() string { return "ClientsSnapshot" }
func (LeadsSnapshot) eventName() string   { return "LeadsSnapshot" }
func (Failed) eventName() string          { return "Failed" }

// EventName returns the tag of ev, for logs and metrics.
func EventName(ev Event) string {
	if ev == nil {
		return "nil"
	}
	return ev.eventName()
}

// Effect is a side effect the controller must apply together with the new state.
type Effect interface {
	effectName() string
}

type SubscribeClients struct {
	PrincipalID string
	Generation  uint64
}

type UnsubscribeClients struct{}

type SubscribeLeads struct {
	ClientID   string
	Generation uint64
}

type UnsubscribeLeads struct{}

// EndSession asks the identity provider to sign out.
type EndSession struct{}

func (SubscribeClients) effectName() string   { return "SubscribeClients" }
func (UnsubscribeClients) effectName() string { return "UnsubscribeClients" }
func (SubscribeLeads) effectName() string     { return "SubscribeLeads" }
func (UnsubscribeLeads) effectName() string   { return "UnsubscribeLeads" }
func (EndSession) effectName() string         { return "EndSession" }

// Transition computes the next state and the effects that go with it. It is pure.
// Unsubscribe effects always precede the subscribe effect of the same transition.
func Transition(s State, ev Event) (State, []Effect) {
	next, effects, changed := transition(s, ev)
	if changed {
		next.Version = s.Version + 1
	}
	return next, effects
}

func transition(s State, ev Event) (State, []Effect, bool) {
	switch e := ev.(type) {
	case AuthResolved:
		if e.Principal == nil {
			if s.View == ViewLogin {
				return s, nil, false
			}
			next, effects := s.teardown()
			next.View = ViewLogin
			next.Principal = nil
			return next, effects, true
		}
		if s.signedIn() && s.Principal.UID == e.Principal.UID {
			return s, nil, false
		}
		next, effects := s.teardown()
		next.View = ViewDashboard
		p := *e.Principal
		next.Principal = &p
		effects = append(effects, next.subscribeClients())
		return next, effects, true

	case ViewLeads:
		if s.View != ViewDashboard {
			return s, nil, false
		}
		client, ok := s.findClient(e.ClientID)
		if !ok {
			return s, nil, false
		}
		next, effects := s.teardown()
		next.View = ViewClientLeads
		next.CurrentClient = &client
		next.lastGen++
		next.leadsGen = next.lastGen
		next.leadsLoaded = false
		effects = append(effects, SubscribeLeads{ClientID: client.ID, Generation: next.leadsGen})
		return next, effects, true

	case Back:
		if s.View != ViewClientLeads {
			return s, nil, false
		}
		next, effects := s.teardown()
		next.View = ViewDashboard
		effects = append(effects, next.subscribeClients())
		return next, effects, true

	case SignOut:
		if !s.signedIn() {
			return s, nil, false
		}
		next, effects := s.teardown()
		next.View = ViewLogin
		next.Principal = nil
		effects = append(effects, EndSession{})
		return next, effects, true

	case ClientsSnapshot:
		if e.Generation == 0 || e.Generation != s.clientsGen || s.View != ViewDashboard {
			return s, nil, false
		}
		s.Clients = e.Clients
		s.clientsLoaded = true
		return s, nil, true

	case LeadsSnapshot:
		if e.Generation == 0 || e.Generation != s.leadsGen || s.View != ViewClientLeads {
			return s, nil, false
		}
		s.ClientLeads = e.Leads
		s.leadsLoaded = true
		return s, nil, true

	case Failed:
		if e.Err == nil {
			return s, nil, false
		}
		if e.Generation != 0 && e.Generation != s.clientsGen && e.Generation != s.leadsGen {
			return s, nil, false
		}
		s.Err = e.Err
		return s, nil, true
	}
	return s, nil, false
}

func (s State) signedIn() bool {
	return s.Principal != nil && (s.View == ViewDashboard || s.View == ViewClientLeads)
}

// teardown ends both subscriptions and clears everything they mirrored.
func (s State) teardown() (State, []Effect) {
	var effects []Effect
	if s.leadsGen != 0 {
		effects = append(effects, UnsubscribeLeads{})
	}
	if s.clientsGen != 0 {
		effects = append(effects, UnsubscribeClients{})
	}
	s.leadsGen = 0
	s.clientsGen = 0
	s.clientsLoaded = false
	s.leadsLoaded = false
	s.Clients = nil
	s.ClientLeads = nil
	s.CurrentClient = nil
	return s, effects
}

func (s *State) subscribeClients() Effect {
	s.lastGen++
	s.clientsGen = s.lastGen
	s.clientsLoaded = false
	return SubscribeClients{PrincipalID: s.Principal.UID, Generation: s.clientsGen}
}

func (s State) findClient(id string) (models.Client, bool) {
	for _, c := range s.Clients {
		if c.ID == id {
			return c, true
		}
	}
	return models.Client{}, false
}

// ClientsGeneration is the generation of the live clients subscription, zero if none.
func (s State) ClientsGeneration() uint64 { return s.clientsGen }

// LeadsGeneration is the generation of the live leads subscription, zero if none.
func (s State) LeadsGeneration() uint64 { return s.leadsGen }

// ClientsPending reports whether the clients subscription is live but has not
// delivered its first snapshot yet.
func (s State) ClientsPending() bool { return s.clientsGen != 0 && !s.clientsLoaded }

// LeadsPending reports whether the leads subscription is live but has not
// delivered its first snapshot yet.
func (s State) LeadsPending() bool { return s.leadsGen != 0 && !s.leadsLoaded }

// Validate checks the structural invariants every reachable state satisfies.
func (s State) Validate() error {
	switch s.View {
	case ViewLoading, ViewLogin:
		if s.Principal != nil {
			return errors.New("principal set outside the signed-in views")
		}
	case ViewDashboard, ViewClientLeads:
		if s.Principal == nil {
			return errors.New("signed-in view without a principal")
		}
	default:
		return errors.New("unknown view")
	}
	if (s.View == ViewClientLeads) != (s.CurrentClient != nil) {
		return errors.New("current client must be set exactly on the leads screen")
	}
	if s.clientsGen != 0 && s.leadsGen != 0 {
		return errors.New("clients and leads subscriptions live at once")
	}
	if (s.clientsLoaded && s.clientsGen == 0) || (s.leadsLoaded && s.leadsGen == 0) {
		return errors.New("snapshot marked loaded without a live subscription")
	}
	if s.View != ViewDashboard && (s.clientsGen != 0 || len(s.Clients) > 0) {
		return errors.New("clients mirrored outside the dashboard")
	}
	if s.View != ViewClientLeads && (s.leadsGen != 0 || len(s.ClientLeads) > 0) {
		return errors.New("leads mirrored outside the leads screen")
	}
	return nil
}
