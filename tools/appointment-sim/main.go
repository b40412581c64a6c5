// Command appointment-sim drives the public appointment flow against a
// running gateway: it submits a booking request and can answer an
// outstanding proposal by token. Useful for smoke-testing a fresh
// environment without the front end.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	var (
		baseURL = flag.String("base-url", getenv("BASE_URL", "http://localhost:8080"), "gateway base url")
		action  = flag.String("action", "create", "create | respond")
		email   = flag.String("email", getenv("SIM_EMAIL", "client@example.com"), "client email")
		service = flag.String("service", "Permis d'études", "requested service")
		date    = flag.String("date", "", "preferred date (YYYY-MM-DD, defaults to a week out)")
		slot    = flag.String("slot", "09:00 - 10:00", "preferred time slot")
		token   = flag.String("token", "", "proposal token (action=respond)")
		answer  = flag.String("answer", "accept", "accept | decline (action=respond)")
	)
	flag.Parse()

	switch *action {
	case "create":
		day := *date
		if day == "" {
			day = time.Now().AddDate(0, 0, 7).Format("2006-01-02")
		}
		body, err := json.Marshal(map[string]any{
			"name":           "Test Client",
			"email":          *email,
			"country_code":   "+1",
			"phone_local":    "5145550199",
			"service_type":   *service,
			"preferred_date": day,
			"preferred_time": *slot,
			"message":        "Demande envoyée par appointment-sim.",
		})
		if err != nil {
			fatal(err.Error())
		}
		post(*baseURL+"/api/v1/appointments", body)

	case "respond":
		if strings.TrimSpace(*token) == "" {
			fatal("-token is required for action=respond")
		}
		body, err := json.Marshal(map[string]any{
			"token":  *token,
			"action": *answer,
		})
		if err != nil {
			fatal(err.Error())
		}
		post(*baseURL+"/api/v1/appointments/respond", body)

	default:
		fatal("unsupported action: " + *action)
	}
}

func post(url string, body []byte) {
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	fmt.Printf("%s %s\n%s\n", resp.Status, url, string(out))
	if resp.StatusCode >= 300 {
		os.Exit(1)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
