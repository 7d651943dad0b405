package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPrincipal is returned when a mutation runs without a signed-in operator.
	ErrNoPrincipal = errors.New("no signed-in principal")
	// ErrEmptyClientName rejects client names that are blank after trimming.
	ErrEmptyClientName = errors.New("client name is empty")
)

// ErrorKind identifies which operation populated the dashboard error slot.
type ErrorKind int

const (
	ErrKindAuth ErrorKind = iota + 1
	ErrKindClientsSubscription
	ErrKindLeadsSubscription
	ErrKindAddClient
	ErrKindDeleteClient
	ErrKindSignOut
)

var kindNames = map[ErrorKind]string{
	ErrKindAuth:                "auth",
	ErrKindClientsSubscription: "clients_subscription",
	ErrKindLeadsSubscription:   "leads_subscription",
	ErrKindAddClient:           "add_client",
	ErrKindDeleteClient:        "delete_client",
	ErrKindSignOut:             "sign_out",
}

// Operator-facing messages. The dashboard is used by a Portuguese-speaking team.
var kindMessages = map[ErrorKind]string{
	ErrKindAuth:                "Ocorreu um erro na autenticação. Por favor, recarregue a página.",
	ErrKindClientsSubscription: "Não foi possível carregar a lista de clientes.",
	ErrKindLeadsSubscription:   "Não foi possível carregar os leads deste cliente.",
	ErrKindAddClient:           "Ocorreu um erro ao adicionar o cliente.",
	ErrKindDeleteClient:        "Ocorreu um erro ao excluir o cliente.",
	ErrKindSignOut:             "Não foi possível fazer logout. Por favor, tente novamente.",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Message is the text shown to the operator for this kind.
func (k ErrorKind) Message() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return "Ocorreu um erro inesperado."
}

// DashboardError is the value held in the single error slot of the view state.
type DashboardError struct {
	Kind ErrorKind
	Err  error
}

// NewDashboardError wraps err under kind.
func NewDashboardError(kind ErrorKind, err error) *DashboardError {
	return &DashboardError{Kind: kind, Err: err}
}

func (e *DashboardError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *DashboardError) Unwrap() error {
	return e.Err
}

// Message is the operator-facing text. The cause is logged, never displayed.
func (e *DashboardError) Message() string {
	return e.Kind.Message()
}
