// Package template renders the fixed set of appointment emails. All client
// facing copy is French, matching the site.
package template

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
)

// Kind selects one of the five appointment emails.
type Kind string

const (
	KindSubmission Kind = "submission"
	KindValidated  Kind = "validated"
	KindRefused    Kind = "refused"
	KindProposal   Kind = "proposal"
	KindAdminNew   Kind = "admin_new"
)

func (k Kind) Valid() bool {
	switch k {
	case KindSubmission, KindValidated, KindRefused, KindProposal, KindAdminNew:
		return true
	}
	return false
}

// AdminRecipient reports whether the email goes to the admin inbox instead
// of the client.
func (k Kind) AdminRecipient() bool {
	return k == KindAdminNew
}

// Appointment is the payload the appointment service posts for rendering.
type Appointment struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	CountryCode   string `json:"country_code"`
	PhoneLocal    string `json:"phone_local"`
	ServiceType   string `json:"service_type"`
	PreferredDate string `json:"preferred_date"`
	PreferredTime string `json:"preferred_time"`
	Message       string `json:"message"`
	ProposedDate  string `json:"proposed_date"`
	ProposedTime  string `json:"proposed_time"`
	ProposalToken string `json:"proposal_token"`
}

func (a Appointment) Phone() string {
	if a.CountryCode == "" {
		return a.PhoneLocal
	}
	return a.CountryCode + " " + a.PhoneLocal
}

type Email struct {
	Subject string
	HTML    string
}

type renderData struct {
	Appointment
	DisplayName  string
	Phone        string
	SiteURL      string
	ProposalLink string
}

// Render produces the subject and HTML body for the given kind. The site
// URL feeds the admin panel button and the proposal response links.
func Render(kind Kind, appt Appointment, siteURL string) (Email, error) {
	tmpl, ok := templates[kind]
	if !ok {
		return Email{}, fmt.Errorf("unknown email type %q", kind)
	}

	data := renderData{
		Appointment: appt,
		DisplayName: appt.Name,
		Phone:       appt.Phone(),
		SiteURL:     siteURL,
	}
	if siteURL != "" && appt.ProposalToken != "" {
		data.ProposalLink = siteURL + "?token=" + appt.ProposalToken + "&action=respond"
	}

	var buf bytes.Buffer
	if err := tmpl.body.Execute(&buf, data); err != nil {
		return Email{}, err
	}

	subject := tmpl.subject
	if kind == KindAdminNew {
		subject = subject + " - " + appt.Name
	}
	return Email{Subject: subject, HTML: buf.String()}, nil
}

type emailTemplate struct {
	subject string
	body    *htmltemplate.Template
}

var templates = map[Kind]emailTemplate{
	KindSubmission: {
		subject: "Votre demande de rendez-vous a été reçue - MIMB Immigration",
		body: mustParse("submission", `
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="color: #B8860B; border-bottom: 2px solid #B8860B; padding-bottom: 10px;">
    Demande de rendez-vous reçue
  </h1>
  <p>Bonjour <strong>{{.DisplayName}}</strong>,</p>
  <p>Votre demande de rendez-vous a bien été reçue et est <strong>en attente de validation</strong>.</p>
  <div style="background: #f8f8f8; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3 style="margin-top: 0;">Récapitulatif</h3>
    <p><strong>Service:</strong> {{.ServiceType}}</p>
    <p><strong>Date souhaitée:</strong> {{.PreferredDate}}</p>
    <p><strong>Créneau:</strong> {{.PreferredTime}}</p>
    {{if .Message}}<p><strong>Message:</strong> {{.Message}}</p>{{end}}
  </div>
  <p>Nous vous contacterons sous 24h pour confirmer votre rendez-vous.</p>
  <p style="color: #666;">
    Cordialement,<br/>
    <strong>MIMB Immigration Consulting</strong>
  </p>
</div>`),
	},
	KindValidated: {
		subject: "✅ Votre rendez-vous est confirmé - MIMB Immigration",
		body: mustParse("validated", `
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="color: #22c55e; border-bottom: 2px solid #22c55e; padding-bottom: 10px;">
    Rendez-vous confirmé
  </h1>
  <p>Bonjour <strong>{{.DisplayName}}</strong>,</p>
  <p>Nous avons le plaisir de vous confirmer votre rendez-vous !</p>
  <div style="background: #f0fdf4; padding: 20px; border-radius: 8px; margin: 20px 0; border-left: 4px solid #22c55e;">
    <h3 style="margin-top: 0; color: #22c55e;">Détails du rendez-vous</h3>
    <p><strong>📅 Date:</strong> {{.PreferredDate}}</p>
    <p><strong>🕐 Heure:</strong> {{.PreferredTime}}</p>
    <p><strong>📋 Service:</strong> {{.ServiceType}}</p>
  </div>
  <p>Nous vous attendons avec les documents nécessaires pour votre consultation.</p>
  <p style="color: #666;">
    Cordialement,<br/>
    <strong>MIMB Immigration Consulting</strong>
  </p>
</div>`),
	},
	KindRefused: {
		subject: "Information sur votre demande de rendez-vous - MIMB Immigration",
		body: mustParse("refused", `
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="color: #ef4444; border-bottom: 2px solid #ef4444; padding-bottom: 10px;">
    Demande de rendez-vous non confirmée
  </h1>
  <p>Bonjour <strong>{{.DisplayName}}</strong>,</p>
  <p>Nous avons le regret de vous informer que votre demande de rendez-vous n'a pas pu être confirmée pour le créneau demandé.</p>
  <div style="background: #fef2f2; padding: 20px; border-radius: 8px; margin: 20px 0; border-left: 4px solid #ef4444;">
    <p><strong>Date demandée:</strong> {{.PreferredDate}}</p>
    <p><strong>Créneau:</strong> {{.PreferredTime}}</p>
  </div>
  <p>N'hésitez pas à soumettre une nouvelle demande avec un autre créneau qui vous convient.</p>
  <p style="color: #666;">
    Cordialement,<br/>
    <strong>MIMB Immigration Consulting</strong>
  </p>
</div>`),
	},
	KindProposal: {
		subject: "📅 Nouvelle proposition de date - MIMB Immigration",
		body: mustParse("proposal", `
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="color: #B8860B; border-bottom: 2px solid #B8860B; padding-bottom: 10px;">
    Nouvelle proposition de créneau
  </h1>
  <p>Bonjour <strong>{{.DisplayName}}</strong>,</p>
  <p>Le créneau que vous aviez demandé n'est malheureusement pas disponible. Nous vous proposons une nouvelle date :</p>
  <div style="background: #fef3cd; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <p><strong>❌ Date initiale:</strong> {{.PreferredDate}} à {{.PreferredTime}}</p>
    <p><strong>✅ Nouvelle proposition:</strong> {{.ProposedDate}} à {{.ProposedTime}}</p>
  </div>
  {{if .ProposalLink}}
  <p>
    <a href="{{.ProposalLink}}" style="display: inline-block; background: #B8860B; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px;">
      Répondre à la proposition
    </a>
  </p>
  {{else}}
  <p>Pour accepter ou refuser cette proposition, veuillez répondre à cet email ou nous contacter directement.</p>
  {{end}}
  <p style="color: #666;">
    Cordialement,<br/>
    <strong>MIMB Immigration Consulting</strong>
  </p>
</div>`),
	},
	KindAdminNew: {
		subject: "🆕 Nouveau RDV à valider",
		body: mustParse("admin_new", `
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="color: #B8860B; border-bottom: 2px solid #B8860B; padding-bottom: 10px;">
    Nouveau rendez-vous à valider
  </h1>
  <div style="background: #f8f8f8; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3 style="margin-top: 0;">Informations client</h3>
    <p><strong>👤 Nom:</strong> {{.DisplayName}}</p>
    <p><strong>📧 Email:</strong> {{.Email}}</p>
    <p><strong>📱 Téléphone:</strong> {{.Phone}}</p>
    <p><strong>📋 Service:</strong> {{.ServiceType}}</p>
    <p><strong>📅 Date souhaitée:</strong> {{.PreferredDate}}</p>
    <p><strong>🕐 Créneau:</strong> {{.PreferredTime}}</p>
    {{if .Message}}<p><strong>💬 Message:</strong> {{.Message}}</p>{{end}}
  </div>
  <p>
    <a href="{{.SiteURL}}/admin" style="display: inline-block; background: #B8860B; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px;">
      Accéder au panel admin
    </a>
  </p>
</div>`),
	},
}

func mustParse(name, body string) *htmltemplate.Template {
	return htmltemplate.Must(htmltemplate.New(name).Parse(body))
}
