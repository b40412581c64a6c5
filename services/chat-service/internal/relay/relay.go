// Package relay forwards visitor questions to the upstream chat
// completion API with the cabinet's standing system prompt.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	ErrRateLimited    = errors.New("upstream rate limited")
	ErrQuotaExhausted = errors.New("upstream quota exhausted")
)

// UpstreamError covers upstream failures other than the rate and quota
// cases, which callers map to dedicated responses.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

const systemPrompt = `Tu es l'assistant virtuel de MIMBIMMIGRATION CONSULTANCY INC., un cabinet de conseil en immigration canadienne dirigé par Mimb Franklin, consultant réglementé membre du CICC.

INFORMATIONS SUR LE CABINET:
- Nom: MIMBIMMIGRATION CONSULTANCY INC.
- Consultant: Mimb Franklin, Consultant CRIC réglementé
- Téléphone: (514) 462-7623
- Email: fmimb@yahoo.fr
- Localisation: Montréal, Québec, Canada
- Horaires: Lundi au Vendredi, 9h-17h EST
- Langues: Français et Anglais

SERVICES OFFERTS:
1. Résidence permanente (Entrée Express, travailleurs qualifiés, parrainage familial, programmes provinciaux)
2. Permis de travail (EIMT, mobilité francophone, transferts intra-entreprises)
3. Permis d'études (CAQ, permis d'études, PTPD)
4. Visas visiteurs (visa visiteur, super visa, prolongations)
5. Protection et asile

FAQ COURANTES:
- Délai résidence permanente: 6 mois (Entrée Express) à 12-24 mois (autres programmes)
- Offre d'emploi: Pas toujours nécessaire, dépend du programme
- Vérification statut: Registre public du CICC
- Services bilingues: Oui, français et anglais

INSTRUCTIONS:
- Réponds de manière professionnelle, concise et amicale
- Si on te demande des conseils juridiques spécifiques, recommande de prendre rendez-vous avec le consultant
- Guide les visiteurs vers le formulaire de rendez-vous pour des questions détaillées
- Réponds dans la langue de la question (français ou anglais)
- Maximum 3-4 phrases par réponse`

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Client struct {
	endpoint  string
	apiKey    string
	model     string
	maxTokens int
	http      *http.Client
}

func NewClient(endpoint, apiKey, model string, maxTokens int) *Client {
	if model == "" {
		model = "google/gemini-2.5-flash"
	}
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &Client{
		endpoint:  endpoint,
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type completionRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the conversation prefixed with the system prompt and
// returns the assistant reply.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("chat api key not configured")
	}

	body, err := json.Marshal(completionRequest{
		Model:     c.model,
		Messages:  append([]Message{{Role: "system", Content: systemPrompt}}, messages...),
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", ErrRateLimited
	case resp.StatusCode == http.StatusPaymentRequired:
		return "", ErrQuotaExhausted
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &UpstreamError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "Désolé, je n'ai pas pu générer une réponse.", nil
	}
	return parsed.Choices[0].Message.Content, nil
}
