// Command smoke runs an end-to-end check against a live rooflens-api: login,
// create a customer and an offer, send it, respond through the public token,
// and verify the terminal state stuck.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

func main() {
	log.SetFlags(0)

	base := os.Getenv("ROOFLENS_SMOKE_ADDR")
	if base == "" {
		base = "http://localhost:8080"
	}
	email := os.Getenv("ROOFLENS_SMOKE_EMAIL")
	password := os.Getenv("ROOFLENS_SMOKE_PASSWORD")
	if email == "" || password == "" {
		log.Fatal("set ROOFLENS_SMOKE_EMAIL and ROOFLENS_SMOKE_PASSWORD")
	}

	c := &client{base: base, http: &http.Client{Timeout: 10 * time.Second}}

	var login struct {
		Token   string `json:"token"`
		Account struct {
			BranchID string `json:"branch_id"`
		} `json:"account"`
	}
	c.post("/v1/auth/login", map[string]any{"email": email, "password": password}, &login)
	c.token = login.Token
	branch := login.Account.BranchID
	if branch == "" {
		branch = "oslo"
	}

	var cust struct {
		ID string `json:"id"`
	}
	c.post("/v1/customers", map[string]any{
		"name": "Smoke Test Kunde", "branch_id": branch,
	}, &cust)

	var doc struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	c.post("/v1/documents", map[string]any{
		"kind": "offer", "title": "Smoke test offer",
		"branch_id": branch, "customer_id": cust.ID,
		"recipient_name": "Smoke Tester", "recipient_email": "smoke@example.com",
	}, &doc)
	if doc.Status != "draft" {
		log.Fatalf("new document not draft: %s", doc.Status)
	}

	var sent struct {
		PublicURL string `json:"public_url"`
	}
	c.post("/v1/documents/"+doc.ID+"/send", nil, &sent)

	anon := &client{base: base, http: c.http}
	var view struct {
		Status string `json:"status"`
	}
	anon.get(sent.PublicURL, &view)
	if view.Status != "pending" {
		log.Fatalf("public view not pending: %s", view.Status)
	}

	anon.post(sent.PublicURL+"/respond", map[string]any{
		"outcome": "accepted", "name": "Smoke Tester", "email": "smoke@example.com",
	}, &view)
	if view.Status != "accepted" {
		log.Fatalf("response did not accept: %s", view.Status)
	}

	c.get("/v1/documents/"+doc.ID, &doc)
	if doc.Status != "accepted" {
		log.Fatalf("stored status mismatch: %s", doc.Status)
	}

	fmt.Printf("smoke test passed: document=%s\n", doc.ID)
}

type client struct {
	base  string
	token string
	http  *http.Client
}

func (c *client) post(path string, payload, out any) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			log.Fatalf("marshal %s: %v", path, err)
		}
		body = bytes.NewReader(raw)
	}
	c.do(http.MethodPost, path, body, out)
}

func (c *client) get(path string, out any) {
	c.do(http.MethodGet, path, nil, out)
}

func (c *client) do(method, path string, body io.Reader, out any) {
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Fatalf("%s %s: status %d body %s", method, path, resp.StatusCode, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			log.Fatalf("decode %s: %v", path, err)
		}
	}
}
