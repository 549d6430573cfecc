package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"surplus-market/internal/gateway"

	"github.com/google/uuid"
)

// sendwebhook posts a signed Mercado Pago payment notification to a running server.
func main() {
	target := flag.String("url", "http://localhost:8080/api/webhooks/mercadopago", "webhook endpoint")
	paymentID := flag.String("payment", "", "gateway payment ID")
	secret := flag.String("secret", os.Getenv("MERCADOPAGO_WEBHOOK_SECRET"), "signing secret")
	flag.Parse()

	if *paymentID == "" {
		log.Fatal("-payment is required")
	}

	body := fmt.Sprintf(`{"type":"payment","action":"payment.updated","data":{"id":%q}}`, *paymentID)
	requestID := uuid.NewString()
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	req, err := http.NewRequest(http.MethodPost, *target, bytes.NewBufferString(body))
	if err != nil {
		log.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	req.Header.Set("X-Signature", gateway.Sign(*secret, *paymentID, requestID, ts))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Failed to send webhook: %v", err)
	}
	defer resp.Body.Close()

	reply, _ := io.ReadAll(resp.Body)
	fmt.Printf("%d %s\n", resp.StatusCode, reply)
}
