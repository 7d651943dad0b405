package api

import (
	"time"

	"leadboard-go/internal/core"
	"leadboard-go/internal/models"
)

// Placeholder shown for absent lead fields.
const Placeholder = "N/A"

const loadingMessage = "Carregando..."

// Screen kinds. ScreenError replaces whichever screen the view was on.
const (
	ScreenLoading     = "loading"
	ScreenLogin       = "login"
	ScreenDashboard   = "dashboard"
	ScreenClientLeads = "client-leads"
	ScreenError       = "error"
)

// Screen is what the operator sees for one view state. It is served as HTML and as JSON.
type Screen struct {
	Kind       string      `json:"screen"`
	Version    uint64      `json:"version"`
	Title      string      `json:"title"`
	OperatorID string      `json:"operatorId,omitempty"`
	Anonymous  bool        `json:"anonymous,omitempty"`
	Error      *ErrorView  `json:"error,omitempty"`
	Clients    []ClientRow `json:"clients,omitempty"`
	Client     *ClientRow  `json:"client,omitempty"`
	Leads      []LeadRow   `json:"leads,omitempty"`
	LeadCount  int         `json:"leadCount"`
	Empty      string      `json:"emptyMessage,omitempty"`
	Loading    bool        `json:"loading,omitempty"` // list awaits its first snapshot
}

// ErrorView is the error screen content.
type ErrorView struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type ClientRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type LeadRow struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	NationalID   string `json:"nationalId"`
	Registration string `json:"registration"`
	Employer     string `json:"employer"`
	KeyPressed   string `json:"keyPressed"`
	InterestedAt string `json:"interestedAt"`
}

// Present maps a view state to its screen. A set error slot wins over every view.
func Present(s core.State) Screen {
	screen := Screen{Version: s.Version}
	if s.Principal != nil {
		screen.OperatorID = s.Principal.UID
		screen.Anonymous = s.Principal.Anonymous
	}

	if s.Err != nil {
		screen.Kind = ScreenError
		screen.Title = "Erro"
		screen.Error = &ErrorView{Kind: s.Err.Kind.String(), Message: s.Err.Message()}
		return screen
	}

	switch s.View {
	case core.ViewLogin:
		screen.Kind = ScreenLogin
		screen.Title = "Login"
	case core.ViewDashboard:
		screen.Kind = ScreenDashboard
		screen.Title = "Painel Administrativo"
		screen.Clients = make([]ClientRow, 0, len(s.Clients))
		for _, c := range s.Clients {
			screen.Clients = append(screen.Clients, clientRow(c))
		}
		switch {
		case s.ClientsPending():
			screen.Loading = true
			screen.Empty = loadingMessage
		case len(screen.Clients) == 0:
			screen.Empty = "Nenhum cliente cadastrado."
		}
	case core.ViewClientLeads:
		screen.Kind = ScreenClientLeads
		row := clientRow(*s.CurrentClient)
		screen.Client = &row
		screen.Title = "Leads de " + row.Name
		screen.Leads = make([]LeadRow, 0, len(s.ClientLeads))
		for _, l := range s.ClientLeads {
			screen.Leads = append(screen.Leads, leadRow(l))
		}
		screen.LeadCount = len(screen.Leads)
		switch {
		case s.LeadsPending():
			screen.Loading = true
			screen.Empty = loadingMessage
		case screen.LeadCount == 0:
			screen.Empty = "Nenhum lead encontrado para este cliente."
		}
	default:
		screen.Kind = ScreenLoading
		screen.Title = loadingMessage
	}
	return screen
}

func clientRow(c models.Client) ClientRow {
	row := ClientRow{ID: c.ID, Name: c.Name}
	if !c.CreatedAt.IsZero() {
		row.CreatedAt = c.CreatedAt.UTC().Format(time.RFC3339)
	}
	return row
}

func leadRow(l models.Lead) LeadRow {
	return LeadRow{
		ID:           l.ID,
		Name:         orPlaceholder(l.Name),
		Phone:        orPlaceholder(l.Phone),
		Email:        orPlaceholder(l.Email),
		NationalID:   orPlaceholder(l.NationalID),
		Registration: orPlaceholder(l.Registration),
		Employer:     orPlaceholder(l.Employer),
		KeyPressed:   orPlaceholder(l.KeyPressed),
		InterestedAt: orPlaceholder(l.InterestedAt),
	}
}

func orPlaceholder(v string) string {
	if v == "" {
		return Placeholder
	}
	return v
}
