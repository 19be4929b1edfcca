package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// smoke-trades drives a running tradedesk-api through the full approval
// workflow: book as trader, confirm as confirmer, approve as approver, then
// verify the terminal state refuses further changes.
func main() {
	base := os.Getenv("TRADEDESK_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}

	client := &http.Client{Timeout: 5 * time.Second}

	trader := mintToken("smoke-trader", []string{"trader"})
	confirmer := mintToken("smoke-confirmer", []string{"confirms"})
	approver := mintToken("smoke-approver", []string{"approver"})

	created := call(client, http.MethodPost, base+"/v1/trades", trader, map[string]any{
		"symbol":   "AAPL",
		"side":     "BUY",
		"quantity": 100,
		"price":    18950,
	}, http.StatusCreated)
	id, _ := created["id"].(string)
	if id == "" {
		log.Fatalf("create returned no id: %v", created)
	}
	if created["status"] != "PENDING" {
		log.Fatalf("new trade not pending: %v", created["status"])
	}

	confirmed := call(client, http.MethodPost, base+"/v1/trades/"+id+"/confirm", confirmer,
		map[string]any{"action": "confirm"}, http.StatusOK)
	if confirmed["status"] != "CONFIRMED" {
		log.Fatalf("confirm failed: %v", confirmed["status"])
	}

	approved := call(client, http.MethodPost, base+"/v1/trades/"+id+"/approve", approver,
		map[string]any{"action": "approve"}, http.StatusOK)
	if approved["status"] != "APPROVED" {
		log.Fatalf("approve failed: %v", approved["status"])
	}

	// The workflow is terminal now; a second confirm must be refused.
	call(client, http.MethodPost, base+"/v1/trades/"+id+"/confirm", confirmer,
		map[string]any{"action": "confirm"}, http.StatusForbidden)

	fmt.Printf("✅ tradedesk smoke test passed: trade=%s\n", id)
}

func mintToken(sub string, roles []string) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":                sub,
		"preferred_username": sub,
		"tradedesk/roles":    roles,
	})
	signed, err := tok.SignedString([]byte("smoke"))
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	return signed
}

func call(client *http.Client, method, url, token string, body map[string]any, wantStatus int) map[string]any {
	payload, err := json.Marshal(body)
	if err != nil {
		log.Fatalf("marshal body: %v", err)
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	if resp.StatusCode != wantStatus {
		log.Fatalf("%s %s: status %d, want %d (%v)", method, url, resp.StatusCode, wantStatus, decoded)
	}
	return decoded
}
