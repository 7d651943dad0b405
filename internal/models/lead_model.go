package models

// Lead is a contact record collected for a client.
// Every field is optional; an empty string means the document did not carry it.
// Leads are written by the call-campaign backend, which uses Portuguese field names.
type Lead struct {
	ID           string `json:"id" firestore:"-"`
	Name         string `json:"name,omitempty" firestore:"nome,omitempty"`
	Phone        string `json:"phone,omitempty" firestore:"telefone,omitempty"`
	Email        string `json:"email,omitempty" firestore:"email,omitempty"`
	NationalID   string `json:"nationalId,omitempty" firestore:"cpf,omitempty"` // CPF
	Registration string `json:"registration,omitempty" firestore:"matricula,omitempty"`
	Employer     string `json:"employer,omitempty" firestore:"empregador,omitempty"`
	KeyPressed   string `json:"keyPressed,omitempty" firestore:"digito_pressionado,omitempty"`
	InterestedAt string `json:"interestedAt,omitempty" firestore:"data_interesse,omitempty"`
}

// Field names used by lead documents.
const (
	LeadFieldName         = "nome"
	LeadFieldPhone        = "telefone"
	LeadFieldEmail        = "email"
	LeadFieldNationalID   = "cpf"
	LeadFieldRegistration = "matricula"
	LeadFieldEmployer     = "empregador"
	LeadFieldKeyPressed   = "digito_pressionado"
	LeadFieldInterestedAt = "data_interesse"
)
